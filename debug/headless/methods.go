package headless

type RPCMethod string

const (
	RPCCommand RPCMethod = "RPCServer.Command"
	RPCState   RPCMethod = "RPCServer.State"
	RPCDetach  RPCMethod = "RPCServer.Detach"

	// Breakpoint methods
	// Documentation: https://pkg.go.dev/github.com/go-delve/delve/service/rpc2
	RPCCreateBreakpoint RPCMethod = "RPCServer.CreateBreakpoint"
	RPCListBreakpoints  RPCMethod = "RPCServer.ListBreakpoints"
	RPCClearBreakpoint  RPCMethod = "RPCServer.ClearBreakpoint"
)
