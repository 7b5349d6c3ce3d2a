package debug

import (
	"fmt"

	"github.com/xhd2015/dlv-autobreak/debug/common"
	"github.com/xhd2015/dlv-autobreak/debug/dap"
	"github.com/xhd2015/dlv-autobreak/debug/headless"
	"github.com/xhd2015/dlv-autobreak/log"
)

// NewSessionManager creates a new session manager based on the debugger
// type. listenAddr is where a launched debug server listens; empty keeps
// each engine's default.
func NewSessionManager(debuggerType string, listenAddr string, logger log.Logger) (common.SessionManager, error) {
	switch debuggerType {
	case "dap":
		sm := dap.NewSessionManager(logger)
		if listenAddr != "" {
			sm.SetListenAddr(listenAddr)
		}
		return sm, nil
	case "headless":
		sm := headless.NewSessionManager(logger)
		if listenAddr != "" {
			sm.SetListenAddr(listenAddr)
		}
		return sm, nil
	default:
		return nil, fmt.Errorf("unsupported debugger type: %s", debuggerType)
	}
}
