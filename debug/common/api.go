package common

import (
	"context"
)

// DebuggerClient is the interface that both DAP and headless clients must implement
type DebuggerClient interface {
	// Connect establishes a connection to the debug server
	Connect(ctx context.Context, addr string) error

	// Close closes the connection to the debug server
	Close() error

	// IsClosed returns whether the client is closed
	IsClosed() bool
}

// SessionManager is the interface for managing debug sessions
type SessionManager interface {
	// NewSession creates a new debug session
	NewSession(programPath string, args []string, mode string) (Session, error)

	// GetDebuggerType returns the type of debugger being used
	GetDebuggerType() string

	// CreateSession creates a new debug session with the given parameters
	CreateSession(ctx context.Context, programPath string, args []string, mode string) (*SessionInfo, error)

	// TerminateSession terminates a debug session
	TerminateSession(sessionID string) error

	// ListSessions returns a list of active debug sessions
	ListSessions() []*SessionInfo

	// GetSession returns a debug session by ID
	GetSession(sessionID string) (Session, error)
}

// Session is the interface for a debug session. SetBreakpoint is the resolve
// capability the provisioner consumes: the engine either maps file:line to an
// executable location and returns a breakpoint ID, or rejects the location.
type Session interface {
	// GetID returns the session ID
	GetID() string

	// SetBreakpoint sets a breakpoint at the given file and line and
	// returns the engine's breakpoint ID
	SetBreakpoint(file string, line int) (int, error)

	// ConnectRemote connects the session to an already-running debug
	// server, for sessions created in "remote" mode
	ConnectRemote(ctx context.Context, addr string) error

	// Detach disconnects from the engine, leaving the target running and
	// its breakpoint table in place for the operator
	Detach() error

	// Terminate terminates the debug session
	Terminate() error
}

// SessionInfo holds information about a debug session
type SessionInfo struct {
	ID          string
	ProgramPath string
	State       string
	Addr        string
}
