package dap

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xhd2015/dlv-autobreak/debug/common"
	"github.com/xhd2015/dlv-autobreak/log"
	"github.com/xhd2015/dlv-autobreak/provision"
)

// DefaultListenAddr is where a launched Delve DAP server listens when the
// caller does not pick an address.
const DefaultListenAddr = "127.0.0.1:54322"

// SessionManager manages DAP debug sessions
type SessionManager struct {
	debuggerType string
	listenAddr   string
	sessions     map[string]common.Session
	mu           sync.Mutex
	logger       log.Logger
}

// NewSessionManager creates a new DAP session manager
func NewSessionManager(logger log.Logger) *SessionManager {
	return &SessionManager{
		debuggerType: "dap",
		listenAddr:   DefaultListenAddr,
		sessions:     make(map[string]common.Session),
		logger:       log.OrNop(logger),
	}
}

// SetListenAddr overrides the address a launched Delve DAP server listens on.
func (sm *SessionManager) SetListenAddr(addr string) {
	sm.listenAddr = addr
}

// GetDebuggerType returns the type of debugger being used
func (sm *SessionManager) GetDebuggerType() string {
	return sm.debuggerType
}

// NewSession creates a new DAP debug session.
//
// Mode "remote" connects to an already-running DAP server via ConnectRemote.
// The other modes launch `dlv dap` and perform the initialize/launch
// handshake, leaving the target stopped at entry so breakpoints can be
// provisioned before it runs.
func (sm *SessionManager) NewSession(programPath string, args []string, mode string) (common.Session, error) {
	sm.logger.Debugf("creating DAP session for program: %s, mode: %s", programPath, mode)

	// Generate a session ID
	sessionID := fmt.Sprintf("session-%d", uuid.New().ID())

	var dlvCmd *exec.Cmd
	client := NewClient(sm.logger)

	if mode != "remote" {
		dlvCmd = exec.Command("dlv", "dap", "--listen="+sm.listenAddr)
		if err := dlvCmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start Delve DAP server: %w", err)
		}

		// Give the server a moment to start up
		time.Sleep(1 * time.Second)

		if err := client.Connect(context.Background(), sm.listenAddr); err != nil {
			return nil, fmt.Errorf("failed to connect to DAP server: %w", err)
		}

		if err := client.Initialize(programPath, args, mode); err != nil {
			return nil, fmt.Errorf("failed to initialize debug session: %w", err)
		}
	}

	// Create a new session
	session := &Session{
		id:        sessionID,
		client:    client,
		program:   programPath,
		cmd:       dlvCmd,
		addr:      sm.listenAddr,
		logger:    sm.logger,
		fileLines: make(map[string][]int),
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
		if s.client.IsClosed() {
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

// Session represents a DAP debug session
type Session struct {
	id      string
	client  *Client
	program string
	cmd     *exec.Cmd
	addr    string
	logger  log.Logger

	// DAP setBreakpoints replaces the whole breakpoint set of a file, so
	// the session tracks every line requested so far per file
	fileLines map[string][]int
}

// GetID returns the session ID
func (s *Session) GetID() string {
	return s.id
}

// SetBreakpoint sets a breakpoint at the given file and line
func (s *Session) SetBreakpoint(file string, line int) (int, error) {
	s.logger.Debugf("setting breakpoint at %s:%d", file, line)

	lines := append(s.fileLines[file], line)
	breakpoints, err := s.client.SetBreakpoints(file, lines)
	if err != nil {
		return 0, err
	}
	if len(breakpoints) != len(lines) {
		return 0, fmt.Errorf("adapter returned %d breakpoints for %d requested lines", len(breakpoints), len(lines))
	}

	// Responses come back in request order; the new breakpoint is last
	bp := breakpoints[len(breakpoints)-1]
	if !bp.Verified {
		reason := bp.Message
		if reason == "" {
			reason = "breakpoint not verified by adapter"
		}
		return 0, fmt.Errorf("%s:%d: %s: %w", file, line, reason, provision.ErrUnresolvedLocation)
	}

	s.fileLines[file] = lines
	s.logger.Debugf("breakpoint %d created at %s:%d", bp.Id, file, line)
	return bp.Id, nil
}

// ConnectRemote connects to an already-running DAP server and performs the
// initialize/attach handshake.
func (s *Session) ConnectRemote(ctx context.Context, address string) error {
	s.addr = address
	if err := s.client.Connect(ctx, address); err != nil {
		return fmt.Errorf("failed to connect to remote debugger: %w", err)
	}
	if err := s.client.AttachRemote(); err != nil {
		return fmt.Errorf("failed to attach to remote debugger: %w", err)
	}
	return nil
}

// Detach finishes breakpoint configuration so the target runs with the
// provisioned breakpoints armed, then drops the connection. Unlike the
// headless engine, a DAP session does not outlive its client connection.
func (s *Session) Detach() error {
	if err := s.client.ConfigurationDone(); err != nil {
		s.logger.Warnf("error finishing configuration: %v", err)
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close client connection: %w", err)
	}
	return nil
}

// Terminate terminates the debug session
func (s *Session) Terminate() error {
	// End the session on the adapter side
	if err := s.client.Disconnect(); err != nil {
		s.logger.Warnf("failed to send disconnect request: %v", err)
	}

	// Close the client connection
	if err := s.client.Close(); err != nil {
		s.logger.Warnf("failed to close client connection: %v", err)
	}

	// Kill the DAP server process if we launched one
	if s.cmd != nil && s.cmd.Process != nil {
		if err := s.cmd.Process.Kill(); err != nil {
			s.logger.Warnf("failed to kill DAP server process: %v", err)
		}
	}

	return nil
}
