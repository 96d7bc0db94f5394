package simulator

import (
	"context"
	"sync"
	"sync/atomic"

	"mocap-track-go/internal/natnet"
	"mocap-track-go/internal/types"
)

// Client is an in-process natnet.Client fed by Stream.
type Client struct {
	sim Config
	// NoMulticast makes Run fail for multicast configurations, like a
	// network without multicast routing.
	NoMulticast bool

	mu      sync.Mutex
	cfg     natnet.ClientConfig
	handler func(types.FramePayload)
	cancel  context.CancelFunc
	stopped chan struct{}

	connected atomic.Bool
}

func NewClient(sim Config) *Client {
	return &Client{sim: sim}
}

func (c *Client) Configure(cfg natnet.ClientConfig) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *Client) SetFrameHandler(fn func(types.FramePayload)) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

func (c *Client) Run() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return true
	}
	if c.cfg.UseMulticast && c.NoMulticast {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.stopped = make(chan struct{})
	frames := Stream(ctx, c.sim)
	handler := c.handler
	stopped := c.stopped
	go func() {
		defer close(stopped)
		for frame := range frames {
			c.connected.Store(true)
			if handler != nil {
				handler(frame)
			}
		}
	}()
	return true
}

func (c *Client) Connected() bool {
	return c.connected.Load()
}

func (c *Client) Shutdown() {
	c.mu.Lock()
	cancel, stopped := c.cancel, c.stopped
	c.cancel, c.stopped = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
	c.connected.Store(false)
}
