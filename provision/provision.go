package provision

import (
	"fmt"
	"io"
	"strings"
)

// Engine is the capability the provisioner needs from a debugging engine:
// resolve a file:line location and register a breakpoint there, returning
// the engine's breakpoint ID. Both the headless and DAP sessions satisfy it.
type Engine interface {
	SetBreakpoint(file string, line int) (int, error)
}

// Handle is a non-owning reference to a breakpoint registered with the
// engine. The engine owns the breakpoint itself; the handle is only used
// for reporting.
type Handle struct {
	ID   int
	File string
	Line int
}

func (h Handle) String() string {
	return fmt.Sprintf("%d at %s:%d", h.ID, h.File, h.Line)
}

// Provision registers one breakpoint per spec, in input order, and returns
// the resulting handles in the same order.
//
// On the first spec the engine rejects, Provision stops: remaining specs are
// not attempted, and the error is returned together with the handles already
// obtained. Breakpoints registered before the failure stay registered; there
// is no rollback. Provision is not idempotent: calling it again re-registers
// every spec, and any deduplication is the engine's, not ours.
func Provision(engine Engine, specs []BreakpointSpec) ([]Handle, error) {
	handles := make([]Handle, 0, len(specs))
	for _, spec := range specs {
		id, err := engine.SetBreakpoint(spec.File, spec.Line)
		if err != nil {
			return handles, fmt.Errorf("breakpoint at %s: %w", spec, err)
		}
		handles = append(handles, Handle{ID: id, File: spec.File, Line: spec.Line})
	}
	return handles, nil
}

// Report writes a single human-readable line listing the handles, for
// operator confirmation. It has no effect on the engine.
func Report(w io.Writer, handles []Handle) error {
	if len(handles) == 0 {
		_, err := fmt.Fprintln(w, "breakpoints: none")
		return err
	}
	parts := make([]string, 0, len(handles))
	for _, h := range handles {
		parts = append(parts, h.String())
	}
	_, err := fmt.Fprintf(w, "breakpoints: %s\n", strings.Join(parts, ", "))
	return err
}
