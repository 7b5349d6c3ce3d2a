package dap

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/go-dap"
	"github.com/xhd2015/dlv-autobreak/debug/common"
	"github.com/xhd2015/dlv-autobreak/log"
	"github.com/xhd2015/dlv-autobreak/provision"
)

var _ common.DebuggerClient = (*Client)(nil)

// Client represents a DAP client that communicates with a Delve DAP server
type Client struct {
	conn     net.Conn
	reader   *bufio.Reader
	seq      int
	isClosed bool
	mutex    sync.Mutex
	logger   log.Logger
}

// NewClient creates a new DAP client
func NewClient(logger log.Logger) *Client {
	return &Client{
		logger: log.OrNop(logger),
	}
}

// Connect connects to a DAP server
func (c *Client) Connect(ctx context.Context, addr string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var d net.Dialer
	var err error

	// Set connection timeout to 10 seconds
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c.conn, err = d.DialContext(timeoutCtx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to DAP server at %s: %w", addr, provision.ErrEngineUnavailable)
	}

	// Create buffered reader
	c.reader = bufio.NewReader(c.conn)
	c.isClosed = false

	c.logger.Debugf("connected to DAP server at %s", addr)
	return nil
}

// Close closes the connection to the DAP server
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.isClosed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.isClosed
}

// Initialize performs the DAP handshake: initialize, then launch or attach.
// It returns once the adapter has sent the initialized event, at which point
// breakpoints can be set.
func (c *Client) Initialize(program string, args []string, mode string) error {
	c.logger.Debugf("initializing DAP session for program: %s, mode: %s", program, mode)

	initReq := &dap.InitializeRequest{
		Request: c.newRequest("initialize"),
		Arguments: dap.InitializeRequestArguments{
			ClientID:        "dlv-autobreak",
			ClientName:      "dlv-autobreak",
			AdapterID:       "go",
			Locale:          "en-us",
			LinesStartAt1:   true,
			ColumnsStartAt1: true,
			PathFormat:      "path",
		},
	}
	if _, err := c.sendAndWait(initReq); err != nil {
		return fmt.Errorf("failed to initialize debug adapter: %w", err)
	}

	launchArgs := map[string]interface{}{
		"request": "launch",
		"mode":    mode,
		"program": program,
	}
	if len(args) > 0 {
		launchArgs["args"] = args
	}
	// Stop at entry so the session stays paused while breakpoints are
	// provisioned
	launchArgs["stopOnEntry"] = true

	rawArgs, err := json.Marshal(launchArgs)
	if err != nil {
		return fmt.Errorf("failed to marshal launch arguments: %w", err)
	}
	launchReq := &dap.LaunchRequest{
		Request:   c.newRequest("launch"),
		Arguments: json.RawMessage(rawArgs),
	}
	if _, err := c.sendAndWait(launchReq); err != nil {
		return fmt.Errorf("failed to launch program: %w", err)
	}

	return nil
}

// AttachRemote performs the initialize/attach handshake against a DAP
// server that already controls a target (dlv dap started with
// --accept-multiclient, or a connected headless backend).
func (c *Client) AttachRemote() error {
	initReq := &dap.InitializeRequest{
		Request: c.newRequest("initialize"),
		Arguments: dap.InitializeRequestArguments{
			ClientID:        "dlv-autobreak",
			ClientName:      "dlv-autobreak",
			AdapterID:       "go",
			Locale:          "en-us",
			LinesStartAt1:   true,
			ColumnsStartAt1: true,
			PathFormat:      "path",
		},
	}
	if _, err := c.sendAndWait(initReq); err != nil {
		return fmt.Errorf("failed to initialize debug adapter: %w", err)
	}

	rawArgs, err := json.Marshal(map[string]interface{}{
		"request": "attach",
		"mode":    "remote",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal attach arguments: %w", err)
	}
	attachReq := &dap.AttachRequest{
		Request:   c.newRequest("attach"),
		Arguments: json.RawMessage(rawArgs),
	}
	if _, err := c.sendAndWait(attachReq); err != nil {
		return fmt.Errorf("failed to attach: %w", err)
	}
	return nil
}

// SetBreakpoints replaces the breakpoint set for one source file, per DAP
// semantics, and returns the adapter's view of each requested breakpoint.
func (c *Client) SetBreakpoints(file string, lines []int) ([]dap.Breakpoint, error) {
	sourceBreakpoints := make([]dap.SourceBreakpoint, 0, len(lines))
	for _, line := range lines {
		sourceBreakpoints = append(sourceBreakpoints, dap.SourceBreakpoint{Line: line})
	}

	req := &dap.SetBreakpointsRequest{
		Request: c.newRequest("setBreakpoints"),
		Arguments: dap.SetBreakpointsArguments{
			Source:      dap.Source{Path: file},
			Breakpoints: sourceBreakpoints,
		},
	}
	resp, err := c.sendAndWait(req)
	if err != nil {
		return nil, fmt.Errorf("failed to set breakpoints in %s: %w", file, err)
	}

	bpResp, ok := resp.(*dap.SetBreakpointsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T for setBreakpoints", resp)
	}
	return bpResp.Body.Breakpoints, nil
}

// ConfigurationDone tells the adapter that breakpoint configuration is
// finished and the target may run.
func (c *Client) ConfigurationDone() error {
	req := &dap.ConfigurationDoneRequest{
		Request: c.newRequest("configurationDone"),
	}
	if _, err := c.sendAndWait(req); err != nil {
		return fmt.Errorf("failed to finish configuration: %w", err)
	}
	return nil
}

// Disconnect ends the debug session on the adapter side.
func (c *Client) Disconnect() error {
	req := &dap.DisconnectRequest{
		Request: c.newRequest("disconnect"),
	}
	if _, err := c.sendAndWait(req); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	return nil
}

func (c *Client) newRequest(command string) dap.Request {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.seq++
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  c.seq,
			Type: "request",
		},
		Command: command,
	}
}

// sendAndWait writes one request and reads messages until the matching
// response arrives. Events received in between are logged and skipped.
func (c *Client) sendAndWait(req dap.RequestMessage) (dap.ResponseMessage, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isClosed || c.conn == nil {
		return nil, fmt.Errorf("client is closed: %w", provision.ErrEngineUnavailable)
	}

	if err := dap.WriteProtocolMessage(c.conn, req); err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", req.GetRequest().Command, err)
	}

	for {
		message, err := dap.ReadProtocolMessage(c.reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		switch m := message.(type) {
		case *dap.OutputEvent:
			c.logger.Debugf("DAP output: %s", m.Body.Output)
		case *dap.InitializedEvent:
			c.logger.Debugf("DAP adapter initialized")
		case *dap.StoppedEvent:
			c.logger.Debugf("stopped event: reason=%s, threadId=%d", m.Body.Reason, m.Body.ThreadId)
		case dap.EventMessage:
			c.logger.Debugf("DAP event: %T", message)
		case dap.ResponseMessage:
			resp := m.GetResponse()
			if resp.RequestSeq != req.GetRequest().Seq {
				c.logger.Debugf("skipping response for request %d", resp.RequestSeq)
				continue
			}
			if !resp.Success {
				if errResp, ok := m.(*dap.ErrorResponse); ok && errResp.Body.Error != nil {
					return nil, fmt.Errorf("%s request failed: %s", resp.Command, errResp.Body.Error.Format)
				}
				return nil, fmt.Errorf("%s request failed: %s", resp.Command, resp.Message)
			}
			return m, nil
		default:
			c.logger.Debugf("DAP message received: %T", message)
		}
	}
}
