package cache

import (
	"sync"
	"time"

	"mocap-track-go/internal/types"
)

// FrameCache holds the latest sample of every structure delivered by the
// stream. It is written by a single producer and read by any number of
// callers; every read returns a copy.
type FrameCache struct {
	mu         sync.Mutex
	bodies     map[int]types.RigidBodySample
	order      []int
	markerSets types.MarkerSets
	unlabeled  []types.Vec3
	labeled    []types.LabeledMarker

	frames      uint64
	lastFrame   int
	lastUpdated time.Time
}

type Stats struct {
	FramesApplied uint64    `json:"frames_applied"`
	LastFrame     int       `json:"last_frame"`
	LastUpdated   time.Time `json:"last_updated"`
	RigidBodies   int       `json:"rigid_bodies"`
}

func New() *FrameCache {
	return &FrameCache{
		bodies:     make(map[int]types.RigidBodySample),
		markerSets: types.MarkerSets{},
	}
}

// Update applies one frame. Rigid bodies are inserted or overwritten by id;
// marker sets, unlabeled and labeled markers are replaced wholesale when the
// frame carries them and left untouched otherwise.
func (c *FrameCache) Update(frame types.FramePayload) {
	// Build everything outside the lock; the critical section only swaps.
	var bodies []types.RigidBodySample
	if frame.RigidBodies != nil {
		bodies = make([]types.RigidBodySample, len(frame.RigidBodies))
		for i, rb := range frame.RigidBodies {
			bodies[i] = types.RigidBodySample{
				ID:            rb.ID,
				Position:      rb.Pos,
				Orientation:   rb.Rot,
				MarkerError:   rb.Error,
				TrackingValid: rb.TrackingValid,
			}
		}
	}

	var markerSets types.MarkerSets
	if frame.MarkerSets != nil {
		markerSets = make(types.MarkerSets, len(frame.MarkerSets))
		for _, ms := range frame.MarkerSets {
			markerSets[ms.ModelName] = append([]types.Vec3{}, ms.Positions...)
		}
	}

	var unlabeled []types.Vec3
	if frame.UnlabeledMarkers != nil {
		unlabeled = append([]types.Vec3{}, frame.UnlabeledMarkers...)
	}

	var labeled []types.LabeledMarker
	if frame.LabeledMarkers != nil {
		labeled = make([]types.LabeledMarker, len(frame.LabeledMarkers))
		for i, lm := range frame.LabeledMarkers {
			modelID, markerID := types.UnpackMarkerID(lm.ID)
			labeled[i] = types.LabeledMarker{
				ID:       lm.ID,
				ModelID:  modelID,
				MarkerID: markerID,
				Pos:      lm.Pos,
				Size:     lm.Size,
				Residual: lm.Residual,
				Param:    lm.Param,
			}
		}
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sample := range bodies {
		if _, ok := c.bodies[sample.ID]; !ok {
			c.order = append(c.order, sample.ID)
		}
		c.bodies[sample.ID] = sample
	}
	if markerSets != nil {
		c.markerSets = markerSets
	}
	if unlabeled != nil {
		c.unlabeled = unlabeled
	}
	if labeled != nil {
		c.labeled = labeled
	}
	c.frames++
	c.lastFrame = frame.FrameNumber
	c.lastUpdated = now
}

// RigidBody returns the stored sample for id.
func (c *FrameCache) RigidBody(id int) (types.RigidBodySample, bool) {
	c.mu.Lock()
	sample, ok := c.bodies[id]
	c.mu.Unlock()
	return sample, ok
}

// RigidBodies returns every stored sample in the order its id first appeared.
func (c *FrameCache) RigidBodies() []types.RigidBodySample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.RigidBodySample, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.bodies[id])
	}
	return out
}

// MarkerSets returns the marker sets from the latest frame that reported
// them. The returned map is owned by the caller.
func (c *FrameCache) MarkerSets() types.MarkerSets {
	c.mu.Lock()
	sets := c.markerSets
	c.mu.Unlock()
	// Stored maps are never mutated after the swap in Update, so cloning
	// outside the lock is safe.
	return sets.Clone()
}

func (c *FrameCache) UnlabeledMarkers() []types.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Vec3{}, c.unlabeled...)
}

func (c *FrameCache) LabeledMarkers() []types.LabeledMarker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.LabeledMarker{}, c.labeled...)
}

func (c *FrameCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		FramesApplied: c.frames,
		LastFrame:     c.lastFrame,
		LastUpdated:   c.lastUpdated,
		RigidBodies:   len(c.bodies),
	}
}
