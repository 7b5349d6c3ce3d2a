package headless

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/rpc2"
	"github.com/google/uuid"
	"github.com/xhd2015/dlv-autobreak/debug/common"
	"github.com/xhd2015/dlv-autobreak/log"
	"github.com/xhd2015/dlv-autobreak/provision"
)

// DefaultListenAddr is where a launched Delve headless server listens when
// the caller does not pick an address.
const DefaultListenAddr = "127.0.0.1:54321"

// SessionManager manages headless debug sessions
type SessionManager struct {
	debuggerType string
	listenAddr   string
	sessions     map[string]common.Session
	mu           sync.Mutex
	logger       log.Logger
}

// NewSessionManager creates a new headless session manager
func NewSessionManager(logger log.Logger) *SessionManager {
	return &SessionManager{
		debuggerType: "headless",
		listenAddr:   DefaultListenAddr,
		sessions:     make(map[string]common.Session),
		logger:       log.OrNop(logger),
	}
}

// SetListenAddr overrides the address a launched Delve server listens on.
func (sm *SessionManager) SetListenAddr(addr string) {
	sm.listenAddr = addr
}

// GetDebuggerType returns the type of debugger being used
func (sm *SessionManager) GetDebuggerType() string {
	return sm.debuggerType
}

// NewSession creates a new headless debug session.
//
// Mode "remote" attaches to an already-running Delve server: no process is
// started, and the caller connects via ConnectRemote. The other modes
// (debug, exec, test) launch `dlv` with --accept-multiclient so the server
// and its breakpoint table outlive this process.
func (sm *SessionManager) NewSession(programPath string, args []string, mode string) (common.Session, error) {
	sm.logger.Debugf("creating session for program: %s, mode: %s", programPath, mode)

	// Generate a session ID
	sessionID := fmt.Sprintf("session-%d", uuid.New().ID())

	var dlvCmd *exec.Cmd
	var client *Client

	if mode == "remote" {
		// For remote mode, we don't start a server
		client = NewClient(sm.logger)
		// The actual connection will be established by ConnectRemote
	} else {
		// Determine the correct command based on mode
		dlvCommand := "debug"
		if mode == "exec" {
			dlvCommand = "exec"
		} else if mode == "test" {
			dlvCommand = "test"
		}

		sm.logger.Debugf("starting Delve in headless mode on %s", sm.listenAddr)

		dlvArgs := []string{
			dlvCommand,
			"--headless",
			"--api-version=2",
			"--accept-multiclient",
			"--listen=" + sm.listenAddr,
			programPath,
		}
		if len(args) > 0 {
			dlvArgs = append(dlvArgs, "--")
			dlvArgs = append(dlvArgs, args...)
		}
		dlvCmd = exec.Command("dlv", dlvArgs...)

		if err := dlvCmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start Delve headless server: %w", err)
		}

		// Give the server a moment to start up
		time.Sleep(1 * time.Second)

		// Connect to the headless server
		client = NewClient(sm.logger)
		if err := client.Connect(context.Background(), sm.listenAddr); err != nil {
			return nil, fmt.Errorf("failed to connect to headless server: %w", err)
		}
	}

	// Create a new session
	session := &Session{
		id:      sessionID,
		Client:  client,
		program: programPath,
		cmd:     dlvCmd,
		addr:    sm.listenAddr,
		logger:  sm.logger,
	}

	// Store session
	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()

	return session, nil
}

// CreateSession creates a new debug session with the given parameters
func (sm *SessionManager) CreateSession(ctx context.Context, programPath string, args []string, mode string) (*common.SessionInfo, error) {
	session, err := sm.NewSession(programPath, args, mode)
	if err != nil {
		return nil, err
	}

	return &common.SessionInfo{
		ID:          session.GetID(),
		ProgramPath: programPath,
		State:       "created",
		Addr:        sm.listenAddr,
	}, nil
}

// TerminateSession terminates a debug session
func (sm *SessionManager) TerminateSession(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	// Terminate the session
	err := session.Terminate()
	if err != nil {
		return err
	}

	// Remove from sessions map
	delete(sm.sessions, sessionID)

	return nil
}

// ListSessions returns a list of active debug sessions
func (sm *SessionManager) ListSessions() []*common.SessionInfo {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var result []*common.SessionInfo
	for id, session := range sm.sessions {
		s := session.(*Session) // Type assertion
		state := "attached"
		if s.Client.IsClosed() {
			state = "detached"
		}

		result = append(result, &common.SessionInfo{
			ID:          id,
			ProgramPath: s.program,
			State:       state,
			Addr:        s.addr,
		})
	}

	return result
}

// GetSession returns a debug session by ID
func (sm *SessionManager) GetSession(sessionID string) (common.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}

	return session, nil
}

// Session represents a headless debug session
type Session struct {
	id      string
	Client  *Client
	program string
	cmd     *exec.Cmd
	addr    string
	logger  log.Logger
}

// GetID returns the session ID
func (s *Session) GetID() string {
	return s.id
}

// unresolvedPatterns are the messages Delve returns when a file:line cannot
// be mapped to an executable location in the loaded symbol table.
var unresolvedPatterns = []string{
	"could not find statement",
	"could not find file",
	"could not find function",
	"location not found",
	"not found in debug info",
}

// SetBreakpoint sets a breakpoint at the given file and line
func (s *Session) SetBreakpoint(file string, line int) (int, error) {
	s.logger.Debugf("setting breakpoint at %s:%d", file, line)

	// Create a structured breakpoint request using the proper type
	bp := api.Breakpoint{
		File: file,
		Line: line,
	}

	// Use the proper typed request structure from Delve
	createBpIn := rpc2.CreateBreakpointIn{
		Breakpoint: bp,
	}

	// Send the request to Delve with a typed response
	response, err := SendHeadlessClientRequest[rpc2.CreateBreakpointOut](s.Client, RPCCreateBreakpoint, createBpIn)
	if err != nil {
		msg := err.Error()
		for _, pattern := range unresolvedPatterns {
			if strings.Contains(msg, pattern) {
				return 0, fmt.Errorf("%v: %w", err, provision.ErrUnresolvedLocation)
			}
		}
		return 0, fmt.Errorf("failed to set breakpoint: %w", err)
	}

	s.logger.Debugf("breakpoint %d created at %s:%d", response.Breakpoint.ID, file, line)

	// Return the breakpoint ID directly from the typed response
	return response.Breakpoint.ID, nil
}

// ConnectRemote connects to a remote debugger
func (s *Session) ConnectRemote(ctx context.Context, address string) error {
	s.addr = address
	if err := s.Client.Connect(ctx, address); err != nil {
		return fmt.Errorf("failed to connect to remote debugger: %w", err)
	}
	return nil
}

// Detach disconnects from the Delve server without killing the target.
// Breakpoints stay registered in the server's table: after provisioning the
// table belongs to the operator, not to us.
func (s *Session) Detach() error {
	s.logger.Debugf("detaching from Delve server at %s", s.addr)
	if err := s.Client.Close(); err != nil {
		return fmt.Errorf("failed to close client connection: %w", err)
	}
	return nil
}

// Terminate terminates the debug session
func (s *Session) Terminate() error {
	// First, check if the target is still alive by getting its state
	if !s.isExited() {
		s.logger.Debugf("detaching and killing target")
		_, err := SendHeadlessClientRequest[rpc2.DetachOut](s.Client, RPCDetach, rpc2.DetachIn{Kill: true})
		if err != nil {
			s.logger.Warnf("error sending detach command: %v", err)
			// Continue with the cleanup even if the detach fails
		}
	} else {
		s.logger.Debugf("target has already exited, skipping detach")
	}

	// Close the client connection
	if err := s.Client.Close(); err != nil {
		s.logger.Warnf("failed to close client connection: %v", err)
	}

	// Kill the Delve process if we launched one
	if s.cmd != nil && s.cmd.Process != nil {
		s.logger.Debugf("killing Delve process")
		if err := s.cmd.Process.Kill(); err != nil {
			s.logger.Warnf("failed to kill Delve process: %v", err)
		}
	}

	return nil
}

// isExited checks if the debug target has exited
func (s *Session) isExited() bool {
	// Create a properly typed state request
	stateIn := rpc2.StateIn{
		NonBlocking: true,
	}

	// Send a request to get the current state with a typed response
	response, err := SendHeadlessClientRequest[rpc2.StateOut](s.Client, RPCState, stateIn)
	if err != nil {
		// Common error patterns that indicate the target has exited
		exitPatterns := []string{
			"process exited",
			"has exited with status",
			"process not found",
			"no such process",
		}

		for _, pattern := range exitPatterns {
			if strings.Contains(err.Error(), pattern) {
				s.logger.Debugf("target has exited according to error: %v", err)
				return true
			}
		}

		// For other errors, log but assume exited to be safe
		s.logger.Debugf("error getting target state, assuming exited: %v", err)
		return true
	}

	// Check exited status directly from the typed response
	if response.State != nil && response.State.Exited {
		s.logger.Debugf("target has exited with status %d", response.State.ExitStatus)
		return true
	}

	return false
}
