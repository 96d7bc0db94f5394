package simulator

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mocap-track-go/internal/natnet"
	"mocap-track-go/internal/types"
)

var _ natnet.Client = (*Client)(nil)

func TestFrameShape(t *testing.T) {
	cfg := DefaultConfig()
	frame := Frame(cfg, 5, 0, nil)

	assert.Equal(t, 5, frame.FrameNumber)
	require.Len(t, frame.RigidBodies, cfg.RigidBodies)
	assert.Len(t, frame.MarkerSets, cfg.RigidBodies)
	assert.Len(t, frame.LabeledMarkers, cfg.RigidBodies*cfg.MarkersPerBody)
	assert.Len(t, frame.UnlabeledMarkers, cfg.Unlabeled)

	for i, rb := range frame.RigidBodies {
		assert.Equal(t, i+1, rb.ID)
		assert.InDelta(t, cfg.Radius, math.Hypot(rb.Pos[0], rb.Pos[1]), 1e-9)
		norm := math.Sqrt(rb.Rot[0]*rb.Rot[0] + rb.Rot[1]*rb.Rot[1] + rb.Rot[2]*rb.Rot[2] + rb.Rot[3]*rb.Rot[3])
		assert.InDelta(t, 1.0, norm, 1e-9)
	}

	model, marker := types.UnpackMarkerID(frame.LabeledMarkers[4].ID)
	assert.Equal(t, 2, model)
	assert.Equal(t, 2, marker)
}

func TestStreamStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultConfig()
	cfg.Rate = 500
	frames := Stream(ctx, cfg)

	first := <-frames
	second := <-frames
	assert.Equal(t, first.FrameNumber+1, second.FrameNumber)

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-frames
		return !ok
	}, time.Second, time.Millisecond)
}

func TestClientLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rate = 500
	c := NewClient(cfg)
	c.Configure(natnet.ClientConfig{UseMulticast: false})

	got := make(chan types.FramePayload, 1)
	c.SetFrameHandler(func(f types.FramePayload) {
		select {
		case got <- f:
		default:
		}
	})

	require.True(t, c.Run())
	select {
	case f := <-got:
		assert.NotEmpty(t, f.RigidBodies)
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}
	assert.True(t, c.Connected())

	c.Shutdown()
	assert.False(t, c.Connected())
	c.Shutdown()
}

func TestClientWithoutMulticast(t *testing.T) {
	c := NewClient(DefaultConfig())
	c.NoMulticast = true
	c.Configure(natnet.ClientConfig{UseMulticast: true})
	assert.False(t, c.Run())
	c.Shutdown()
}
