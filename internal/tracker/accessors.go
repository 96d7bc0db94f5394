package tracker

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"mocap-track-go/internal/cache"
	"mocap-track-go/internal/geometry"
	"mocap-track-go/internal/monitoring"
	"mocap-track-go/internal/types"
)

// poll calls read until it yields a value or timeout elapses, measured from
// entry. read runs at least once. The returned error is only ever
// ErrLifecycle; a timeout is reported as ok == false.
func poll[T any](t *Tracker, timeout, interval time.Duration, read func(*cache.FrameCache) (T, bool)) (T, bool, error) {
	var zero T
	deadline := time.Now().Add(timeout)
	for {
		frames, err := t.liveCache()
		if err != nil {
			return zero, false, err
		}
		if v, ok := read(frames); ok {
			return v, true, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, false, nil
		}
		time.Sleep(min(interval, remaining))
	}
}

// RigidBodyData waits up to timeout for a sample of rigid body id and returns
// the fields selected by info.
func (t *Tracker) RigidBodyData(id int, info types.InfoType, timeout time.Duration) (types.RigidBodyData, error) {
	if _, err := t.liveCache(); err != nil {
		return types.RigidBodyData{}, err
	}
	if !info.Valid() {
		return types.RigidBodyData{}, fmt.Errorf("%w: info type must be %q, %q or %q, got %q",
			ErrConfiguration, types.InfoPosition, types.InfoOrientation, types.InfoBoth, info)
	}

	sample, ok, err := poll(t, timeout, t.opts.PollInterval, func(c *cache.FrameCache) (types.RigidBodySample, bool) {
		return c.RigidBody(id)
	})
	if err != nil {
		return types.RigidBodyData{}, err
	}
	if !ok {
		return types.RigidBodyData{}, fmt.Errorf("%w: no data received for rigid body %d within %s", ErrTimeout, id, timeout)
	}

	data := types.RigidBodyData{
		MarkerError:   sample.MarkerError,
		TrackingValid: sample.TrackingValid,
	}
	if info == types.InfoPosition || info == types.InfoBoth {
		pos := sample.Position
		data.Position = &pos
	}
	if info == types.InfoOrientation || info == types.InfoBoth {
		rot := sample.Orientation
		data.Orientation = &rot
	}
	return data, nil
}

func (t *Tracker) Position(id int, timeout time.Duration) (types.Vec3, error) {
	data, err := t.RigidBodyData(id, types.InfoPosition, timeout)
	if err != nil {
		return types.Vec3{}, err
	}
	return *data.Position, nil
}

func (t *Tracker) Orientation(id int, timeout time.Duration) (types.Quat, error) {
	data, err := t.RigidBodyData(id, types.InfoOrientation, timeout)
	if err != nil {
		return types.Quat{}, err
	}
	return *data.Orientation, nil
}

func (t *Tracker) Pose(id int, timeout time.Duration) (types.Vec3, types.Quat, error) {
	data, err := t.RigidBodyData(id, types.InfoBoth, timeout)
	if err != nil {
		return types.Vec3{}, types.Quat{}, err
	}
	return *data.Position, *data.Orientation, nil
}

// RotationMatrix returns the rotation matrix of rigid body id. Its columns
// are the body's x, y and z axes in world coordinates.
func (t *Tracker) RotationMatrix(id int, timeout time.Duration) (*mat.Dense, error) {
	q, err := t.Orientation(id, timeout)
	if err != nil {
		return nil, err
	}
	r, err := geometry.QuaternionToRotationMatrix(q)
	if err != nil {
		return nil, fmt.Errorf("%w: rigid body %d: %w", ErrConfiguration, id, err)
	}
	return r, nil
}

// ListAvailableRigidBodies waits until at least one rigid body has been seen
// and returns a snapshot of each, in the order their ids first appeared.
func (t *Tracker) ListAvailableRigidBodies(timeout time.Duration) ([]types.RigidBodySample, error) {
	bodies, ok, err := poll(t, timeout, t.opts.ListPollInterval, func(c *cache.FrameCache) ([]types.RigidBodySample, bool) {
		bodies := c.RigidBodies()
		return bodies, len(bodies) > 0
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no rigid bodies received within %s", ErrTimeout, timeout)
	}
	return bodies, nil
}

// MarkerSets waits for non-empty marker sets. Unlike the rigid body queries
// it returns an empty result, not an error, on timeout.
func (t *Tracker) MarkerSets(timeout time.Duration) (types.MarkerSets, error) {
	sets, ok, err := poll(t, timeout, t.opts.PollInterval, func(c *cache.FrameCache) (types.MarkerSets, bool) {
		sets := c.MarkerSets()
		return sets, len(sets) > 0
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.MarkerSets{}, nil
	}
	return sets, nil
}

// UnlabeledMarkers returns an empty slice on timeout.
func (t *Tracker) UnlabeledMarkers(timeout time.Duration) ([]types.Vec3, error) {
	markers, ok, err := poll(t, timeout, t.opts.PollInterval, func(c *cache.FrameCache) ([]types.Vec3, bool) {
		markers := c.UnlabeledMarkers()
		return markers, len(markers) > 0
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return []types.Vec3{}, nil
	}
	return markers, nil
}

// LabeledMarkers returns an empty slice on timeout.
func (t *Tracker) LabeledMarkers(timeout time.Duration) ([]types.LabeledMarker, error) {
	markers, ok, err := poll(t, timeout, t.opts.PollInterval, func(c *cache.FrameCache) ([]types.LabeledMarker, bool) {
		markers := c.LabeledMarkers()
		return markers, len(markers) > 0
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return []types.LabeledMarker{}, nil
	}
	return markers, nil
}

// RelativePosition returns position(id2) - position(id1) in world axes. ok is
// false when either body is unavailable or the tracker is not streaming.
func (t *Tracker) RelativePosition(id1, id2 int, timeout time.Duration) (types.Vec3, bool) {
	p1, err := t.Position(id1, timeout)
	if err != nil {
		return types.Vec3{}, false
	}
	p2, err := t.Position(id2, timeout)
	if err != nil {
		return types.Vec3{}, false
	}
	return geometry.RelativePosition(p1, p2), true
}

// RelativePositionLocal is RelativePosition expressed in the axes of rigid
// body id1. A degenerate id1 orientation also yields ok == false.
func (t *Tracker) RelativePositionLocal(id1, id2 int, timeout time.Duration) (types.Vec3, bool) {
	p1, q1, err := t.Pose(id1, timeout)
	if err != nil {
		return types.Vec3{}, false
	}
	p2, err := t.Position(id2, timeout)
	if err != nil {
		return types.Vec3{}, false
	}
	local, err := geometry.RelativePositionLocal(p1, p2, q1)
	if err != nil {
		monitoring.Logf("tracker: rigid body %d orientation %v: %v", id1, q1, err)
		return types.Vec3{}, false
	}
	return local, true
}

// RelativeOrientation returns orientation(id2) - orientation(id1) component
// by component. The result is not a rotation; see RelativeRotation.
func (t *Tracker) RelativeOrientation(id1, id2 int, timeout time.Duration) (types.Quat, bool) {
	q1, err := t.Orientation(id1, timeout)
	if err != nil {
		return types.Quat{}, false
	}
	q2, err := t.Orientation(id2, timeout)
	if err != nil {
		return types.Quat{}, false
	}
	return geometry.QuatDifference(q1, q2), true
}

// RelativeRotation returns the orientation of id2 in the frame of id1.
func (t *Tracker) RelativeRotation(id1, id2 int, timeout time.Duration) (types.Quat, bool) {
	q1, err := t.Orientation(id1, timeout)
	if err != nil {
		return types.Quat{}, false
	}
	q2, err := t.Orientation(id2, timeout)
	if err != nil {
		return types.Quat{}, false
	}
	rel, err := geometry.RelativeRotation(q1, q2)
	if err != nil {
		monitoring.Logf("tracker: relative rotation %d->%d: %v", id1, id2, err)
		return types.Quat{}, false
	}
	return rel, true
}
