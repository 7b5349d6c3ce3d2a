// Package headless_ext provides breakpoint-table operations on top of the
// headless debugger client.
//
// The provisioner itself only creates breakpoints; the operations here let
// the cmd layer inspect the engine's table after provisioning (--verify)
// and empty it before provisioning (--reset), since re-running the
// provisioner never deduplicates.
package headless_ext
