package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"mocap-track-go/internal/cache"
	"mocap-track-go/internal/monitoring"
	"mocap-track-go/internal/natnet"
)

type State int

const (
	StateIdle State = iota
	StateStarting
	StateStreaming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Options struct {
	ClientAddress string
	ServerAddress string
	Unicast       bool
	// NewClient builds a fresh stream client for every connection attempt.
	NewClient func() natnet.Client
	// SettleDelay is how long Start waits after Run before checking
	// Connected. Zero skips the wait.
	SettleDelay      time.Duration
	PollInterval     time.Duration
	ListPollInterval time.Duration
}

const (
	DefaultSettleDelay      = 300 * time.Millisecond
	DefaultPollInterval     = 10 * time.Millisecond
	DefaultListPollInterval = 100 * time.Millisecond
)

type Status struct {
	State         string      `json:"state"`
	SessionID     string      `json:"session_id,omitempty"`
	ClientAddress string      `json:"client_address"`
	ServerAddress string      `json:"server_address"`
	Multicast     bool        `json:"multicast"`
	StartedAt     *time.Time  `json:"started_at,omitempty"`
	Cache         cache.Stats `json:"cache"`
}

// Tracker owns one stream client and the frame cache it feeds, and answers
// polling queries against that cache.
type Tracker struct {
	opts Options

	mu        sync.Mutex
	state     State
	client    natnet.Client
	frames    *cache.FrameCache
	sessionID string
	multicast bool
	startedAt time.Time
	// stopPending records a Stop that arrived while Start was connecting.
	stopPending bool
}

func New(opts Options) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ListPollInterval <= 0 {
		opts.ListPollInterval = DefaultListPollInterval
	}
	if opts.NewClient == nil {
		opts.NewClient = func() natnet.Client {
			return natnet.NewZMQClient(natnet.ZMQOptions{})
		}
	}
	return &Tracker{opts: opts}
}

// Start connects the stream client and begins caching frames. Calling Start
// while already streaming logs a warning and does nothing. A Stop issued
// while Start is connecting makes Start shut the client down and return
// ErrLifecycle.
func (t *Tracker) Start() error {
	t.mu.Lock()
	if t.state == StateStreaming || t.state == StateStarting {
		t.mu.Unlock()
		monitoring.Logf("tracker: streaming already started, call Stop first")
		return nil
	}
	t.state = StateStarting
	t.stopPending = false
	t.mu.Unlock()

	frames := cache.New()
	client, multicast, err := t.connect(frames)

	t.mu.Lock()
	if err != nil {
		t.state = StateIdle
		t.stopPending = false
		t.mu.Unlock()
		return err
	}
	if t.stopPending {
		t.state = StateStopped
		t.stopPending = false
		t.mu.Unlock()
		client.Shutdown()
		monitoring.Logf("tracker: stopped while starting")
		return fmt.Errorf("%w: stopped while starting", ErrLifecycle)
	}
	defer t.mu.Unlock()
	t.client = client
	t.frames = frames
	t.multicast = multicast
	t.sessionID = uuid.NewString()
	t.startedAt = time.Now()
	t.state = StateStreaming
	monitoring.Logf("tracker: streaming started (session %s, server %s, multicast=%t)", t.sessionID, t.opts.ServerAddress, multicast)
	return nil
}

func (t *Tracker) connect(frames *cache.FrameCache) (natnet.Client, bool, error) {
	multicast := !t.opts.Unicast
	client := t.newClient(multicast, frames)
	running := client.Run()
	if !running && multicast {
		monitoring.Logf("tracker: multicast start failed, retrying with unicast")
		client.Shutdown()
		multicast = false
		client = t.newClient(multicast, frames)
		running = client.Run()
	}
	if !running {
		client.Shutdown()
		return nil, false, fmt.Errorf("%w: could not start client", ErrConnection)
	}

	if t.opts.SettleDelay > 0 {
		time.Sleep(t.opts.SettleDelay)
	}
	if !client.Connected() {
		client.Shutdown()
		return nil, false, fmt.Errorf("%w: could not connect to %s, verify the server is streaming", ErrConnection, t.opts.ServerAddress)
	}
	return client, multicast, nil
}

func (t *Tracker) newClient(multicast bool, frames *cache.FrameCache) natnet.Client {
	client := t.opts.NewClient()
	client.Configure(natnet.ClientConfig{
		ClientAddress: t.opts.ClientAddress,
		ServerAddress: t.opts.ServerAddress,
		UseMulticast:  multicast,
		Verbosity:     0,
	})
	client.SetFrameHandler(frames.Update)
	return client
}

// Stop shuts the stream client down and discards cached data. It is safe to
// call at any time, any number of times.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.state == StateStarting {
		t.stopPending = true
		t.mu.Unlock()
		return
	}
	if t.state != StateStreaming {
		t.mu.Unlock()
		return
	}
	client := t.client
	session := t.sessionID
	t.client = nil
	t.frames = nil
	t.sessionID = ""
	t.multicast = false
	t.startedAt = time.Time{}
	t.state = StateStopped
	t.mu.Unlock()

	client.Shutdown()
	monitoring.Logf("tracker: streaming stopped (session %s)", session)
}

func (t *Tracker) IsStreaming() bool {
	return t.State() == StateStreaming
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	status := Status{
		State:         t.state.String(),
		SessionID:     t.sessionID,
		ClientAddress: t.opts.ClientAddress,
		ServerAddress: t.opts.ServerAddress,
		Multicast:     t.multicast,
	}
	if !t.startedAt.IsZero() {
		startedAt := t.startedAt
		status.StartedAt = &startedAt
	}
	frames := t.frames
	t.mu.Unlock()

	if frames != nil {
		status.Cache = frames.Stats()
	}
	return status
}

// liveCache returns the live frame cache, or ErrLifecycle when not streaming.
func (t *Tracker) liveCache() (*cache.FrameCache, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateStreaming {
		return nil, ErrLifecycle
	}
	return t.frames, nil
}
