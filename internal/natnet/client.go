package natnet

import "mocap-track-go/internal/types"

const (
	DefaultDataPort       = 1511
	DefaultMulticastGroup = "239.255.42.99"
)

type ClientConfig struct {
	ClientAddress string
	ServerAddress string
	UseMulticast  bool
	// Verbosity 0 is silent; higher values log receive and decode errors.
	Verbosity int
}

// Client is a motion-capture stream client. The frame handler is called from
// a goroutine owned by the client, once per received frame.
type Client interface {
	Configure(cfg ClientConfig)
	SetFrameHandler(fn func(types.FramePayload))
	// Run starts receiving and reports whether the client could start.
	Run() bool
	Connected() bool
	Shutdown()
}
