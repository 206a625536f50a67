package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"policy-impact-lab/internal/domain"
)

// ErrClientClosed is returned by WSClient after Close.
var ErrClientClosed = errors.New("client closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// Dataset is sent with every calculate request.
	Dataset string
	// HandshakeTimeout bounds the dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages; pongs extend it.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// RequestTimeout bounds the wait for a response.
	RequestTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		RequestTimeout:   30 * time.Second,
	}
}

type wsResult struct {
	values []float64
	err    error
}

// WSClient fetches result vectors over a persistent JSON-RPC WebSocket.
// Responses are matched to requests by id, so Get is safe for concurrent use.
// A dropped connection fails in-flight requests and is redialled on the next Get.
type WSClient struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// pending maps request ID to the channel awaiting its response
	pending   map[uint64]chan wsResult
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSClient creates a WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		pending:  make(map[uint64]chan wsResult),
		done:     make(chan struct{}),
	}

	c.connMu.Lock()
	err := c.connectLocked(ctx)
	c.connMu.Unlock()
	if err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connectLocked dials and starts a reader for the new connection.
// Caller holds connMu.
func (c *WSClient) connectLocked(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	readTimeout := c.config.ReadTimeout
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	c.conn = conn
	c.wg.Add(1)
	go c.readLoop(conn)
	return nil
}

// Get implements Provider.
func (c *WSClient) Get(ctx context.Context, scenario domain.Scenario, variable string, aggregation domain.Aggregation) ([]float64, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	reqID := c.requestID.Add(1)
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  MethodCalculate,
		Params: []interface{}{calculateParams{
			Dataset:     c.config.Dataset,
			Scenario:    string(scenario),
			Variable:    variable,
			Aggregation: string(aggregation),
		}},
	}

	ch := make(chan wsResult, 1)

	c.connMu.Lock()
	if c.closed.Load() {
		c.connMu.Unlock()
		return nil, ErrClientClosed
	}
	if c.conn == nil {
		if err := c.connectLocked(ctx); err != nil {
			c.connMu.Unlock()
			return nil, err
		}
	}
	c.pendingMu.Lock()
	c.pending[reqID] = ch
	c.pendingMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		c.forget(reqID)
		return nil, fmt.Errorf("write request: %w", err)
	}

	timer := time.NewTimer(c.config.RequestTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, mapRPCError(res.err, scenario, variable, aggregation)
		}
		return res.values, nil
	case <-timer.C:
		c.forget(reqID)
		return nil, fmt.Errorf("request timeout after %s", c.config.RequestTimeout)
	case <-c.done:
		return nil, ErrClientClosed
	case <-ctx.Done():
		c.forget(reqID)
		return nil, ctx.Err()
	}
}

func (c *WSClient) forget(reqID uint64) {
	c.pendingMu.Lock()
	delete(c.pending, reqID)
	c.pendingMu.Unlock()
}

// failPending delivers err to every in-flight request.
func (c *WSClient) failPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		ch <- wsResult{err: err}
		delete(c.pending, id)
	}
}

// Close closes the WebSocket connection and waits for background goroutines.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
		c.conn = nil
	}
	c.failPending(ErrClientClosed)
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads responses from one connection until it fails.
func (c *WSClient) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.connMu.Lock()
			if c.conn == conn {
				c.conn = nil
				conn.Close()
				c.failPending(fmt.Errorf("connection lost: %w", err))
			}
			c.connMu.Unlock()
			return
		}
		c.handleMessage(message)
	}
}

// handleMessage routes a response to its waiting request.
// Frames without a pending id are dropped.
func (c *WSClient) handleMessage(message []byte) {
	var resp rpcResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()
	if !ok {
		return
	}

	if resp.Error != nil {
		ch <- wsResult{err: resp.Error}
		return
	}
	var result calculateResult
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			ch <- wsResult{err: fmt.Errorf("unmarshal result: %w", err)}
			return
		}
	}
	if result.Values == nil {
		result.Values = []float64{}
	}
	ch <- wsResult{values: result.Values}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// a failed ping surfaces as a read error
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}
