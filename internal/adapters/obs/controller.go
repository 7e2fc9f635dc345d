// Package obs controls an OBS Studio stream output over obs-websocket v5.
package obs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

// DefaultAddress is where obs-websocket listens by default.
const DefaultAddress = "ws://localhost:4455"

var errNotConnected = errors.New("obs: not connected")

// Config configures the OBS controller.
type Config struct {
	Address  string
	Password string

	// RequestTimeout bounds the handshake and every request.
	RequestTimeout time.Duration
}

// Controller implements the output controller and ingest configurer on OBS.
type Controller struct {
	cfg    Config
	logger log.Logger

	mu     sync.Mutex
	client *Client
}

// NewController creates a controller. No connection is made until Connect.
func NewController(cfg Config, logger log.Logger) *Controller {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Controller{cfg: cfg, logger: logger}
}

// Connect opens the websocket session. It is a no-op when already connected.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	client, err := Dial(ctx, c.cfg.Address, c.cfg.Password, c.logger)
	if err != nil {
		return err
	}
	c.client = client
	c.logger.Info("connected to obs", log.String("address", c.cfg.Address))
	return nil
}

// Disconnect closes the session, if any.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	c.logger.Debug("disconnecting from obs")
	return client.Close()
}

func (c *Controller) request(ctx context.Context, requestType string, data, out interface{}) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return errNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	return client.Request(ctx, requestType, data, out)
}

// IsOutputActive reports whether the stream output is running.
func (c *Controller) IsOutputActive(ctx context.Context) (bool, error) {
	var status struct {
		OutputActive bool `json:"outputActive"`
	}
	if err := c.request(ctx, "GetStreamStatus", nil, &status); err != nil {
		return false, err
	}
	return status.OutputActive, nil
}

// Start starts the stream output. An output that is already running counts
// as success.
func (c *Controller) Start(ctx context.Context) error {
	err := c.request(ctx, "StartStream", nil, nil)
	var rerr *RequestError
	if errors.As(err, &rerr) && rerr.Code == codeOutputRunning {
		return nil
	}
	return err
}

// Stop stops the stream output. An output that is not running counts as
// success.
func (c *Controller) Stop(ctx context.Context) error {
	err := c.request(ctx, "StopStream", nil, nil)
	var rerr *RequestError
	if errors.As(err, &rerr) && rerr.Code == codeOutputNotRunning {
		return nil
	}
	return err
}

type streamServiceSettings struct {
	StreamServiceType     string            `json:"streamServiceType"`
	StreamServiceSettings map[string]string `json:"streamServiceSettings"`
}

// ConfigureIngest points the stream output at the broadcast's ingestion
// endpoint as a custom RTMP service.
func (c *Controller) ConfigureIngest(ctx context.Context, b domain.Broadcast) error {
	if b.IngestionURL == "" || b.IngestionKey == "" {
		c.logger.Debug("no ingestion endpoint to configure", log.String("resource_id", b.ResourceID))
		return nil
	}
	err := c.request(ctx, "SetStreamServiceSettings", streamServiceSettings{
		StreamServiceType: "rtmp_custom",
		StreamServiceSettings: map[string]string{
			"server": b.IngestionURL,
			"key":    b.IngestionKey,
		},
	}, nil)
	if err != nil {
		return err
	}
	c.logger.Info("configured obs stream service",
		log.String("server", b.IngestionURL),
		log.String("key", domain.MaskKey(b.IngestionKey)),
	)
	return nil
}
