package headless_ext

import (
	"fmt"
	"strings"

	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/rpc2"
	"github.com/xhd2015/dlv-autobreak/debug/common"
	"github.com/xhd2015/dlv-autobreak/debug/headless"
)

// ListBreakpoints lists all breakpoints in the current debug session
func ListBreakpoints(session common.Session) ([]*api.Breakpoint, error) {
	listBpOut, err := sendHeadlessClientRequest[rpc2.ListBreakpointsOut](session, headless.RPCListBreakpoints, rpc2.ListBreakpointsIn{})
	if err != nil {
		return nil, fmt.Errorf("failed to list breakpoints: %w", err)
	}
	return listBpOut.Breakpoints, nil
}

// FormatBreakpoints renders a breakpoint table the way `dlv` prints it,
// one breakpoint per line.
func FormatBreakpoints(breakpoints []*api.Breakpoint) string {
	if len(breakpoints) == 0 {
		return "No breakpoints set."
	}

	var builder strings.Builder
	builder.WriteString("Breakpoints:\n")
	for _, bp := range breakpoints {
		status := "enabled"
		if bp.Disabled {
			status = "disabled"
		}
		builder.WriteString(fmt.Sprintf("%d: %s:%d (%s)\n", bp.ID, bp.File, bp.Line, status))
	}
	return builder.String()
}

// ClearBreakpoint removes a breakpoint
func ClearBreakpoint(session common.Session, breakpointID int) error {
	// Create clear breakpoint request
	clearBpIn := rpc2.ClearBreakpointIn{
		Id: breakpointID,
	}

	// Send the request to clear the breakpoint
	_, err := sendHeadlessClientRequest[rpc2.ClearBreakpointOut](session, headless.RPCClearBreakpoint, clearBpIn)
	if err != nil {
		return fmt.Errorf("failed to clear breakpoint %d: %w", breakpointID, err)
	}

	return nil
}

// ClearAllBreakpoints empties the engine's breakpoint table. Internal
// runtime breakpoints (negative IDs) are left alone.
func ClearAllBreakpoints(session common.Session) (int, error) {
	breakpoints, err := ListBreakpoints(session)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, bp := range breakpoints {
		if bp.ID < 0 {
			continue
		}
		if err := ClearBreakpoint(session, bp.ID); err != nil {
			return cleared, err
		}
		cleared++
	}
	return cleared, nil
}
