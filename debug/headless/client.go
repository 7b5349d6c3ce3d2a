package headless

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-delve/delve/service/rpc2"
	"github.com/xhd2015/dlv-autobreak/debug/common"
	"github.com/xhd2015/dlv-autobreak/log"
	"github.com/xhd2015/dlv-autobreak/provision"
)

// Simplified request structure for JSON-RPC
type jsonRPCRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	Id     int           `json:"id"`
}

// Simplified response structure for JSON-RPC
type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Id int `json:"id"`
}

var _ common.DebuggerClient = (*Client)(nil)

// Client represents a headless client that communicates with a Delve headless server
type Client struct {
	conn     net.Conn
	reader   *bufio.Reader
	seq      int
	isClosed bool
	addr     string     // Store the server address for reconnection
	mutex    sync.Mutex // Protect concurrent access to connection
	logger   log.Logger
}

// NewClient creates a new headless client
func NewClient(logger log.Logger) *Client {
	return &Client{
		seq:    1,
		logger: log.OrNop(logger),
	}
}

// Connect connects to a headless server
func (c *Client) Connect(ctx context.Context, addr string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Store the address for reconnection
	c.addr = addr

	var d net.Dialer
	var err error

	// Set connection timeout to 10 seconds
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c.conn, err = d.DialContext(timeoutCtx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to headless server at %s: %w", addr, provision.ErrEngineUnavailable)
	}

	// Create buffered reader
	c.reader = bufio.NewReader(c.conn)

	// Reset the closed flag
	c.isClosed = false

	c.logger.Debugf("connected to Delve server at %s", addr)
	return nil
}

// Close closes the connection to the headless server
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

// SendHeadlessClientRequest sends a request to the headless server and
// decodes the response into T. The call is blocking: it returns only after
// Delve confirms or rejects the request.
func SendHeadlessClientRequest[T any](c *Client, method RPCMethod, params interface{}) (T, error) {
	return sendRequest[T](c, method, params, true)
}

func sendRequest[T any](c *Client, method RPCMethod, params interface{}, allowReconnect bool) (T, error) {
	var result T

	// Create a typed request structure
	req := jsonRPCRequest{
		Method: string(method),
	}

	// Format params for Delve's JSON-RPC API. Typed rpc2 inputs go through
	// as-is; everything else is wrapped into the single-element params array
	// Delve expects.
	switch typedParams := params.(type) {
	case rpc2.CreateBreakpointIn, rpc2.ListBreakpointsIn, rpc2.ClearBreakpointIn,
		rpc2.StateIn, rpc2.DetachIn:
		req.Params = []interface{}{typedParams}
	default:
		req.Params = []interface{}{params}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isClosed {
		return result, fmt.Errorf("client is closed: %w", provision.ErrEngineUnavailable)
	}
	if c.conn == nil {
		return result, fmt.Errorf("connection to server not established: %w", provision.ErrEngineUnavailable)
	}

	// Assign the sequence number under lock
	req.Id = c.seq
	c.seq++

	// Serialize request to JSON
	requestBytes, err := json.Marshal(req)
	if err != nil {
		return result, fmt.Errorf("failed to marshal request: %w", err)
	}

	c.logger.Debugf("sending request to Delve: %s", requestBytes)

	// Add newline for Delve headless server
	requestBytes = append(requestBytes, '\n')

	// Send the request
	if _, err := c.conn.Write(requestBytes); err != nil {
		if allowReconnect && isConnectionError(err) {
			if reconnErr := c.reconnectLocked(context.Background()); reconnErr != nil {
				return result, fmt.Errorf("failed to send request and reconnect: %w", err)
			}
			return retrySendLocked[T](c, req)
		}
		return result, fmt.Errorf("failed to send request: %w", err)
	}

	// Read the response directly; the protocol is strictly request/response
	// for the methods we use
	line, err := c.reader.ReadString('\n')
	if err != nil {
		if allowReconnect && isConnectionError(err) {
			if reconnErr := c.reconnectLocked(context.Background()); reconnErr != nil {
				return result, fmt.Errorf("connection failed and reconnect also failed: %w", reconnErr)
			}
			return retrySendLocked[T](c, req)
		}
		return result, fmt.Errorf("failed to read response: %w", err)
	}

	// Parse the JSON response using our typed structure
	var resp jsonRPCResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return result, fmt.Errorf("failed to parse response: %w", err)
	}

	// Check for errors in the response
	if resp.Error != nil {
		return result, fmt.Errorf("error from Delve: %s", resp.Error.Message)
	}

	// Check if this is the response to our request
	if resp.Id != req.Id {
		return result, fmt.Errorf("response ID %d does not match request ID %d", resp.Id, req.Id)
	}

	// Unmarshal the result into the typed response
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return result, nil
}

// retrySendLocked re-sends a request once after a successful reconnect.
// Caller must hold the mutex lock.
func retrySendLocked[T any](c *Client, req jsonRPCRequest) (T, error) {
	var result T
	requestBytes, err := json.Marshal(req)
	if err != nil {
		return result, fmt.Errorf("failed to marshal request: %w", err)
	}
	requestBytes = append(requestBytes, '\n')
	if _, err := c.conn.Write(requestBytes); err != nil {
		return result, fmt.Errorf("failed to send request after reconnect: %w", err)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return result, fmt.Errorf("failed to read response after reconnect: %w", err)
	}
	var resp jsonRPCResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return result, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		return result, fmt.Errorf("error from Delve: %s", resp.Error.Message)
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return result, nil
}

func isConnectionError(err error) bool {
	return err == io.EOF || strings.Contains(err.Error(), "use of closed network connection")
}

// reconnectLocked attempts to reconnect to the Delve server.
// Caller must hold the mutex lock.
func (c *Client) reconnectLocked(ctx context.Context) error {
	// Close the existing connection if it's still open
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}

	if c.addr == "" {
		return fmt.Errorf("cannot reconnect: no server address stored")
	}

	c.logger.Debugf("attempting to reconnect to Delve server at %s", c.addr)

	var d net.Dialer
	var err error

	// Set connection timeout
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c.conn, err = d.DialContext(timeoutCtx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to reconnect to headless server: %w", err)
	}

	// Create new buffered reader
	c.reader = bufio.NewReader(c.conn)

	// Reset the closed flag
	c.isClosed = false

	c.logger.Debugf("reconnected to Delve server at %s", c.addr)
	return nil
}
