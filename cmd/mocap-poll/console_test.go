package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mocap-track-go/internal/config"
	"mocap-track-go/internal/monitoring"
	"mocap-track-go/internal/tracker"
)

func TestRenderSnapshotWithSimulator(t *testing.T) {
	monitoring.SetLogger(nil)
	cfg := config.Default()
	cfg.Debug = true
	cfg.Timeout = time.Second

	trk := tracker.New(tracker.Options{
		Unicast:     true,
		SettleDelay: 50 * time.Millisecond,
		NewClient:   clientFactory(cfg),
	})
	require.NoError(t, trk.Start())
	defer trk.Stop()

	out, err := renderSnapshot(trk, cfg, newConsoleStyles())
	require.NoError(t, err)
	assert.Contains(t, out, "mocap-poll")
	assert.Contains(t, out, "body 1")
	assert.Contains(t, out, "set body_2")
	assert.Contains(t, out, "1->2 world")
	assert.Contains(t, out, "1->2 local")
	assert.Contains(t, out, "body 1 z axis")
}

func TestRenderSnapshotNotStreaming(t *testing.T) {
	cfg := config.Default()
	cfg.Timeout = 10 * time.Millisecond
	trk := tracker.New(tracker.Options{})

	_, err := renderSnapshot(trk, cfg, newConsoleStyles())
	assert.ErrorIs(t, err, tracker.ErrLifecycle)
}
