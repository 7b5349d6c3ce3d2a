package dap

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhd2015/dlv-autobreak/log"
	"github.com/xhd2015/dlv-autobreak/provision"
)

// fakeAdapter is a minimal DAP server: it answers the handshake and treats
// any breakpoint on line 999 as unresolvable, the way an adapter reports a
// line with no statement.
type fakeAdapter struct {
	mu       sync.Mutex
	seq      int
	requests []dap.RequestMessage
}

func (f *fakeAdapter) record(req dap.RequestMessage) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
}

func (f *fakeAdapter) setBreakpointsRequests() []*dap.SetBreakpointsRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*dap.SetBreakpointsRequest
	for _, req := range f.requests {
		if r, ok := req.(*dap.SetBreakpointsRequest); ok {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeAdapter) newResponse(req dap.RequestMessage) dap.Response {
	f.seq++
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Seq: f.seq, Type: "response"},
		RequestSeq:      req.GetRequest().Seq,
		Success:         true,
		Command:         req.GetRequest().Command,
	}
}

func (f *fakeAdapter) serve(t *testing.T, conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		message, err := dap.ReadProtocolMessage(reader)
		if err != nil {
			return
		}
		req, ok := message.(dap.RequestMessage)
		if !ok {
			continue
		}
		f.record(req)

		switch m := req.(type) {
		case *dap.InitializeRequest:
			dap.WriteProtocolMessage(conn, &dap.InitializeResponse{Response: f.newResponse(m)})
			f.seq++
			dap.WriteProtocolMessage(conn, &dap.InitializedEvent{
				Event: dap.Event{
					ProtocolMessage: dap.ProtocolMessage{Seq: f.seq, Type: "event"},
					Event:           "initialized",
				},
			})
		case *dap.LaunchRequest:
			dap.WriteProtocolMessage(conn, &dap.LaunchResponse{Response: f.newResponse(m)})
		case *dap.AttachRequest:
			dap.WriteProtocolMessage(conn, &dap.AttachResponse{Response: f.newResponse(m)})
		case *dap.SetBreakpointsRequest:
			breakpoints := make([]dap.Breakpoint, 0, len(m.Arguments.Breakpoints))
			for i, sb := range m.Arguments.Breakpoints {
				bp := dap.Breakpoint{
					Id:       100 + i,
					Line:     sb.Line,
					Verified: sb.Line != 999,
				}
				if !bp.Verified {
					bp.Message = "could not find statement"
				}
				breakpoints = append(breakpoints, bp)
			}
			dap.WriteProtocolMessage(conn, &dap.SetBreakpointsResponse{
				Response: f.newResponse(m),
				Body:     dap.SetBreakpointsResponseBody{Breakpoints: breakpoints},
			})
		case *dap.ConfigurationDoneRequest:
			dap.WriteProtocolMessage(conn, &dap.ConfigurationDoneResponse{Response: f.newResponse(m)})
		case *dap.DisconnectRequest:
			dap.WriteProtocolMessage(conn, &dap.DisconnectResponse{Response: f.newResponse(m)})
		default:
			t.Logf("fake adapter ignoring request: %T", req)
		}
	}
}

func startFakeAdapter(t *testing.T) (*fakeAdapter, string) {
	adapter := &fakeAdapter{}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go adapter.serve(t, conn)
		}
	}()

	return adapter, ln.Addr().String()
}

func newTestSession(t *testing.T, addr string) *Session {
	client := NewClient(nil)
	require.NoError(t, client.Connect(context.Background(), addr))
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Initialize("./testprog", nil, "debug"))
	return &Session{
		client:    client,
		logger:    log.Nop,
		fileLines: make(map[string][]int),
	}
}

func TestSetBreakpointVerified(t *testing.T) {
	adapter, addr := startFakeAdapter(t)
	session := newTestSession(t, addr)

	id, err := session.SetBreakpoint("main.go", 10)
	require.NoError(t, err)
	assert.Equal(t, 100, id)

	reqs := adapter.setBreakpointsRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "main.go", reqs[0].Arguments.Source.Path)
}

func TestSetBreakpointAccumulatesPerFile(t *testing.T) {
	adapter, addr := startFakeAdapter(t)
	session := newTestSession(t, addr)

	_, err := session.SetBreakpoint("main.go", 10)
	require.NoError(t, err)
	id, err := session.SetBreakpoint("main.go", 20)
	require.NoError(t, err)
	assert.Equal(t, 101, id)

	// DAP replaces the whole set per file, so the second request must carry
	// both lines
	reqs := adapter.setBreakpointsRequests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[1].Arguments.Breakpoints, 2)
	assert.Equal(t, 10, reqs[1].Arguments.Breakpoints[0].Line)
	assert.Equal(t, 20, reqs[1].Arguments.Breakpoints[1].Line)
}

func TestSetBreakpointUnverified(t *testing.T) {
	_, addr := startFakeAdapter(t)
	session := newTestSession(t, addr)

	_, err := session.SetBreakpoint("main.go", 999)
	require.ErrorIs(t, err, provision.ErrUnresolvedLocation)

	// The rejected line must not linger in the tracked set
	id, err := session.SetBreakpoint("main.go", 10)
	require.NoError(t, err)
	assert.Equal(t, 100, id)
}

func TestDetachFinishesConfiguration(t *testing.T) {
	adapter, addr := startFakeAdapter(t)
	session := newTestSession(t, addr)

	require.NoError(t, session.Detach())

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	var sawConfigDone bool
	for _, req := range adapter.requests {
		if _, ok := req.(*dap.ConfigurationDoneRequest); ok {
			sawConfigDone = true
		}
	}
	assert.True(t, sawConfigDone, "detach should send configurationDone")
}

func TestConnectNoServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	client := NewClient(nil)
	err = client.Connect(context.Background(), addr)
	require.ErrorIs(t, err, provision.ErrEngineUnavailable)
}
