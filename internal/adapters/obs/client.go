package obs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bft-labs/streamkeeper/pkg/log"
)

// ErrAuthenticationFailed is returned when the server rejects the password.
var ErrAuthenticationFailed = errors.New("obs: authentication failed")

var errClientClosed = errors.New("obs: connection closed")

// Client is a minimal obs-websocket v5 request client. Events are ignored.
type Client struct {
	conn   *websocket.Conn
	logger log.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *requestResponse
	err     error

	done chan struct{}
}

// Dial connects to address and completes the Hello/Identify handshake.
func Dial(ctx context.Context, address, password string, logger log.Logger) (*Client, error) {
	dialer := websocket.Dialer{
		Subprotocols:     []string{Subprotocol},
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	c := &Client{
		conn:    conn,
		logger:  logger,
		pending: make(map[string]chan *requestResponse),
		done:    make(chan struct{}),
	}

	if err := c.identify(ctx, password); err != nil {
		_ = conn.Close()
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

func (c *Client) identify(ctx context.Context, password string) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
		defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()
	}

	var m message
	if err := c.conn.ReadJSON(&m); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if m.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", m.Op)
	}
	var h hello
	if err := json.Unmarshal(m.D, &h); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}

	id := identify{RPCVersion: rpcVersion}
	if h.Authentication != nil {
		if password == "" {
			return fmt.Errorf("%w: server requires a password", ErrAuthenticationFailed)
		}
		id.Authentication = authResponse(password, h.Authentication.Salt, h.Authentication.Challenge)
	}
	if err := c.write(opIdentify, id); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}

	if err := c.conn.ReadJSON(&m); err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) && ce.Code == closeAuthenticationFailed {
			return ErrAuthenticationFailed
		}
		return fmt.Errorf("read identified: %w", err)
	}
	if m.Op != opIdentified {
		return fmt.Errorf("expected identified, got op %d", m.Op)
	}
	var ack identified
	if err := json.Unmarshal(m.D, &ack); err != nil {
		return fmt.Errorf("decode identified: %w", err)
	}
	c.logger.Debug("connected to obs",
		log.String("obs_websocket_version", h.OBSWebSocketVersion),
		log.Int("rpc_version", ack.NegotiatedRPCVersion),
	)
	return nil
}

func (c *Client) write(op int, d interface{}) error {
	m, err := encode(op, d)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(m)
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		var m message
		if err := c.conn.ReadJSON(&m); err != nil {
			c.fail(err)
			return
		}
		if m.Op != opRequestResponse {
			continue
		}
		var resp requestResponse
		if err := json.Unmarshal(m.D, &resp); err != nil {
			c.logger.Warn("malformed obs response", log.Err(err))
			continue
		}
		c.mu.Lock()
		ch := c.pending[resp.RequestID]
		delete(c.pending, resp.RequestID)
		c.mu.Unlock()
		if ch != nil {
			ch <- &resp
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil || websocket.IsCloseError(c.err, websocket.CloseNormalClosure) {
		return errClientClosed
	}
	return fmt.Errorf("%w: %v", errClientClosed, c.err)
}

// Request sends requestType with data and decodes the response data into
// out, which may be nil. A failed request status yields a *RequestError.
func (c *Client) Request(ctx context.Context, requestType string, data, out interface{}) error {
	id := uuid.NewString()
	ch := make(chan *requestResponse, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(opRequest, request{RequestType: requestType, RequestID: id, RequestData: data}); err != nil {
		return fmt.Errorf("send %s: %w", requestType, err)
	}

	var resp *requestResponse
	select {
	case resp = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.closeErr()
	}

	if !resp.RequestStatus.Result {
		return &RequestError{
			RequestType: requestType,
			Code:        resp.RequestStatus.Code,
			Comment:     resp.RequestStatus.Comment,
		}
	}
	if out != nil && len(resp.ResponseData) > 0 {
		if err := json.Unmarshal(resp.ResponseData, out); err != nil {
			return fmt.Errorf("decode %s response: %w", requestType, err)
		}
	}
	return nil
}

// Close sends a normal close frame and waits for the read loop to exit.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
	}
	return c.conn.Close()
}
