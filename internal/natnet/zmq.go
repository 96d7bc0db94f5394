package natnet

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"

	"mocap-track-go/internal/monitoring"
	"mocap-track-go/internal/types"
)

type ZMQOptions struct {
	DataPort       int
	MulticastGroup string
	// RecvTimeout bounds each blocking receive so Shutdown is observed.
	RecvTimeout time.Duration
	LogEvery    int
}

// ZMQClient receives CBOR frames on a ZeroMQ SUB socket, over TCP for unicast
// or PGM for multicast.
type ZMQClient struct {
	opts ZMQOptions

	mu      sync.Mutex
	cfg     ClientConfig
	handler func(types.FramePayload)
	done    chan struct{}
	stopped chan struct{}

	connected atomic.Bool
	received  atomic.Uint64
	errLog    monitoring.EveryN
}

func NewZMQClient(opts ZMQOptions) *ZMQClient {
	if opts.DataPort == 0 {
		opts.DataPort = DefaultDataPort
	}
	if opts.MulticastGroup == "" {
		opts.MulticastGroup = DefaultMulticastGroup
	}
	if opts.RecvTimeout <= 0 {
		opts.RecvTimeout = 100 * time.Millisecond
	}
	return &ZMQClient{
		opts:   opts,
		errLog: monitoring.EveryN{N: opts.LogEvery},
	}
}

func (c *ZMQClient) Configure(cfg ClientConfig) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *ZMQClient) SetFrameHandler(fn func(types.FramePayload)) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

// Endpoint returns the ZeroMQ endpoint the client connects to for cfg.
func (c *ZMQClient) Endpoint(cfg ClientConfig) string {
	if cfg.UseMulticast {
		return fmt.Sprintf("epgm://%s;%s:%d", cfg.ClientAddress, c.opts.MulticastGroup, c.opts.DataPort)
	}
	return fmt.Sprintf("tcp://%s:%d", cfg.ServerAddress, c.opts.DataPort)
}

func (c *ZMQClient) Run() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return true
	}

	endpoint := c.Endpoint(c.cfg)
	socket, err := c.open(endpoint)
	if err != nil {
		monitoring.Logf("natnet: connect %s: %v", endpoint, err)
		return false
	}

	c.connected.Store(false)
	c.done = make(chan struct{})
	c.stopped = make(chan struct{})
	go c.receive(socket, c.handler, c.cfg.Verbosity, c.done, c.stopped)
	return true
}

func (c *ZMQClient) open(endpoint string) (*zmq4.Socket, error) {
	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, err
	}
	if err := socket.SetLinger(0); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetRcvtimeo(c.opts.RecvTimeout); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetSubscribe(""); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}
	return socket, nil
}

func (c *ZMQClient) receive(socket *zmq4.Socket, handler func(types.FramePayload), verbosity int, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	defer socket.Close()

	for {
		select {
		case <-done:
			return
		default:
		}

		msg, err := socket.RecvBytes(0)
		if err != nil {
			if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
				continue
			}
			c.errLog.Logf("natnet: recv error: %v", err)
			continue
		}

		frame, err := DecodeFrame(msg)
		if err != nil {
			c.errLog.Logf("natnet: %v", err)
			continue
		}
		// Verbosity 1 announces the first frame, 2 and up every frame.
		if n := c.received.Add(1); verbosity > 1 || (verbosity > 0 && n == 1) {
			monitoring.Logf("natnet: frame %d received", frame.FrameNumber)
		}
		c.connected.Store(true)
		if handler != nil {
			handler(frame)
		}
	}
}

// Connected reports whether a frame has arrived since Run.
func (c *ZMQClient) Connected() bool {
	return c.connected.Load()
}

func (c *ZMQClient) FramesReceived() uint64 {
	return c.received.Load()
}

func (c *ZMQClient) Shutdown() {
	c.mu.Lock()
	done, stopped := c.done, c.stopped
	c.done, c.stopped = nil, nil
	c.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	<-stopped
	c.connected.Store(false)
}

// Publisher sends CBOR frames on a ZeroMQ PUB socket for ZMQClient to consume.
type Publisher struct {
	socket *zmq4.Socket
}

func NewPublisher(endpoint string) (*Publisher, error) {
	socket, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, err
	}
	if err := socket.SetLinger(0); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Bind(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}
	return &Publisher{socket: socket}, nil
}

// Endpoint returns the bound endpoint, resolving wildcard ports.
func (p *Publisher) Endpoint() (string, error) {
	return p.socket.GetLastEndpoint()
}

func (p *Publisher) Publish(frame types.FramePayload) error {
	payload, err := EncodeFrame(frame)
	if err != nil {
		return err
	}
	_, err = p.socket.SendBytes(payload, 0)
	return err
}

func (p *Publisher) Close() error {
	return p.socket.Close()
}
