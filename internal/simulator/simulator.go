package simulator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"mocap-track-go/internal/types"
)

type Config struct {
	Rate           float64
	RigidBodies    int
	MarkersPerBody int
	Unlabeled      int
	// Radius of the circle each rigid body travels, in meters.
	Radius float64
	Noise  float64
}

func DefaultConfig() Config {
	return Config{
		Rate:           120,
		RigidBodies:    3,
		MarkersPerBody: 3,
		Unlabeled:      2,
		Radius:         1.0,
		Noise:          0.0005,
	}
}

// Stream emits synthetic frames at cfg.Rate until ctx is done. Rigid body i
// (id i+1) circles the origin at height i*0.5 while yawing to face its
// direction of travel.
func Stream(ctx context.Context, cfg Config) <-chan types.FramePayload {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultConfig().Rate
	}
	out := make(chan types.FramePayload)
	go func() {
		defer close(out)

		frameInterval := time.Duration(float64(time.Second) / cfg.Rate)
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		frameNumber := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t := float64(frameNumber) / cfg.Rate
				frame := Frame(cfg, frameNumber, t, rng)
				select {
				case <-ctx.Done():
					return
				case out <- frame:
				}
				frameNumber++
			}
		}
	}()
	return out
}

// Frame builds the synthetic frame at time t. rng adds marker noise and
// places unlabeled markers; it may be nil for a noiseless frame.
func Frame(cfg Config, frameNumber int, t float64, rng *rand.Rand) types.FramePayload {
	noise := func() float64 {
		if rng == nil || cfg.Noise == 0 {
			return 0
		}
		return rng.NormFloat64() * cfg.Noise
	}

	frame := types.FramePayload{
		FrameNumber:      frameNumber,
		RigidBodies:      make([]types.RigidBodyReport, 0, cfg.RigidBodies),
		MarkerSets:       make([]types.MarkerSetReport, 0, cfg.RigidBodies),
		UnlabeledMarkers: make([]types.Vec3, 0, cfg.Unlabeled),
		LabeledMarkers:   make([]types.LabeledMarkerReport, 0, cfg.RigidBodies*cfg.MarkersPerBody),
	}

	for i := 0; i < cfg.RigidBodies; i++ {
		id := i + 1
		phase := 2 * math.Pi * float64(i) / math.Max(float64(cfg.RigidBodies), 1)
		angle := t*0.5 + phase
		pos := types.Vec3{
			cfg.Radius * math.Cos(angle),
			cfg.Radius * math.Sin(angle),
			0.5 * float64(i),
		}
		yaw := angle + math.Pi/2
		rot := types.Quat{0, 0, math.Sin(yaw / 2), math.Cos(yaw / 2)}

		frame.RigidBodies = append(frame.RigidBodies, types.RigidBodyReport{
			ID:            id,
			Pos:           pos,
			Rot:           rot,
			Error:         math.Abs(noise()),
			TrackingValid: true,
		})

		markers := make([]types.Vec3, cfg.MarkersPerBody)
		for j := range markers {
			a := yaw + 2*math.Pi*float64(j)/float64(cfg.MarkersPerBody)
			markers[j] = types.Vec3{
				pos[0] + 0.05*math.Cos(a) + noise(),
				pos[1] + 0.05*math.Sin(a) + noise(),
				pos[2] + noise(),
			}
			frame.LabeledMarkers = append(frame.LabeledMarkers, types.LabeledMarkerReport{
				ID:       id<<16 | (j + 1),
				Pos:      markers[j],
				Size:     0.014,
				Residual: math.Abs(noise()),
			})
		}
		frame.MarkerSets = append(frame.MarkerSets, types.MarkerSetReport{
			ModelName: fmt.Sprintf("body_%d", id),
			Positions: markers,
		})
	}

	for k := 0; k < cfg.Unlabeled; k++ {
		var p types.Vec3
		if rng != nil {
			p = types.Vec3{rng.Float64()*4 - 2, rng.Float64()*4 - 2, rng.Float64() * 2}
		}
		frame.UnlabeledMarkers = append(frame.UnlabeledMarkers, p)
	}
	return frame
}
