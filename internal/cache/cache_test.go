package cache

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mocap-track-go/internal/types"
)

func TestUpdateThenRead(t *testing.T) {
	c := New()
	c.Update(types.FramePayload{
		FrameNumber: 12,
		RigidBodies: []types.RigidBodyReport{
			{ID: 3, Pos: types.Vec3{1, 2, 3}, Rot: types.IdentityQuat, Error: 0.01, TrackingValid: true},
		},
	})

	got, ok := c.RigidBody(3)
	require.True(t, ok)
	want := types.RigidBodySample{
		ID:            3,
		Position:      types.Vec3{1, 2, 3},
		Orientation:   types.Quat{0, 0, 0, 1},
		MarkerError:   0.01,
		TrackingValid: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sample mismatch (-want +got):\n%s", diff)
	}

	_, ok = c.RigidBody(4)
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.FramesApplied)
	assert.Equal(t, 12, stats.LastFrame)
	assert.Equal(t, 1, stats.RigidBodies)
}

func TestRigidBodiesKeepUnreportedAndFirstSeenOrder(t *testing.T) {
	c := New()
	c.Update(types.FramePayload{RigidBodies: []types.RigidBodyReport{{ID: 5}, {ID: 2}}})
	c.Update(types.FramePayload{RigidBodies: []types.RigidBodyReport{{ID: 9}, {ID: 5, Pos: types.Vec3{7, 7, 7}}}})

	bodies := c.RigidBodies()
	require.Len(t, bodies, 3)
	assert.Equal(t, []int{5, 2, 9}, ids(bodies))
	assert.Equal(t, types.Vec3{7, 7, 7}, bodies[0].Position)

	// A frame without rigid bodies leaves them alone.
	c.Update(types.FramePayload{UnlabeledMarkers: []types.Vec3{}})
	assert.Len(t, c.RigidBodies(), 3)
}

func TestWholesaleReplaceOnlyWhenPresent(t *testing.T) {
	c := New()
	c.Update(types.FramePayload{
		MarkerSets: []types.MarkerSetReport{
			{ModelName: "wand", Positions: []types.Vec3{{1, 0, 0}, {0, 1, 0}}},
			{ModelName: "hat", Positions: []types.Vec3{{0, 0, 1}}},
		},
		UnlabeledMarkers: []types.Vec3{{9, 9, 9}},
		LabeledMarkers:   []types.LabeledMarkerReport{{ID: 1<<16 | 4, Pos: types.Vec3{1, 1, 1}, Size: 0.014, Residual: 0.2, Param: 2}},
	})

	// Absent categories keep prior data.
	c.Update(types.FramePayload{FrameNumber: 2})
	assert.Len(t, c.MarkerSets(), 2)
	assert.Len(t, c.UnlabeledMarkers(), 1)
	labeled := c.LabeledMarkers()
	require.Len(t, labeled, 1)
	assert.Equal(t, 1, labeled[0].ModelID)
	assert.Equal(t, 4, labeled[0].MarkerID)
	assert.Equal(t, 2, labeled[0].Param)

	// Present categories replace, not merge.
	c.Update(types.FramePayload{
		MarkerSets:       []types.MarkerSetReport{{ModelName: "hat", Positions: []types.Vec3{{5, 5, 5}}}},
		UnlabeledMarkers: []types.Vec3{},
		LabeledMarkers:   []types.LabeledMarkerReport{},
	})
	sets := c.MarkerSets()
	assert.Equal(t, types.MarkerSets{"hat": {{5, 5, 5}}}, sets)
	assert.Empty(t, c.UnlabeledMarkers())
	assert.Empty(t, c.LabeledMarkers())
}

func TestReadsReturnCopies(t *testing.T) {
	c := New()
	c.Update(types.FramePayload{
		RigidBodies:      []types.RigidBodyReport{{ID: 1, Pos: types.Vec3{1, 1, 1}}},
		MarkerSets:       []types.MarkerSetReport{{ModelName: "wand", Positions: []types.Vec3{{1, 2, 3}}}},
		UnlabeledMarkers: []types.Vec3{{4, 5, 6}},
		LabeledMarkers:   []types.LabeledMarkerReport{{ID: 8}},
	})

	bodies := c.RigidBodies()
	bodies[0].Position[0] = 100
	sets := c.MarkerSets()
	sets["wand"][0][0] = 100
	delete(sets, "wand")
	unlabeled := c.UnlabeledMarkers()
	unlabeled[0][0] = 100
	labeled := c.LabeledMarkers()
	labeled[0].ID = 100

	sample, _ := c.RigidBody(1)
	assert.Equal(t, 1.0, sample.Position[0])
	assert.Equal(t, types.MarkerSets{"wand": {{1, 2, 3}}}, c.MarkerSets())
	assert.Equal(t, []types.Vec3{{4, 5, 6}}, c.UnlabeledMarkers())
	assert.Equal(t, 8, c.LabeledMarkers()[0].ID)
}

func TestUpdateDoesNotAliasPayload(t *testing.T) {
	positions := []types.Vec3{{1, 2, 3}}
	unlabeled := []types.Vec3{{4, 5, 6}}
	c := New()
	c.Update(types.FramePayload{
		MarkerSets:       []types.MarkerSetReport{{ModelName: "wand", Positions: positions}},
		UnlabeledMarkers: unlabeled,
	})
	positions[0][0] = 100
	unlabeled[0][0] = 100

	assert.Equal(t, 1.0, c.MarkerSets()["wand"][0][0])
	assert.Equal(t, 4.0, c.UnlabeledMarkers()[0][0])
}

func TestConcurrentReadsNeverTorn(t *testing.T) {
	c := New()
	const (
		writes  = 2000
		readers = 8
	)

	var wg sync.WaitGroup
	done := make(chan struct{})
	errs := make(chan string, readers)

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if s, ok := c.RigidBody(1); ok && !consistent(s) {
					errs <- "torn rigid body sample"
					return
				}
				for _, s := range c.RigidBodies() {
					if !consistent(s) {
						errs <- "torn rigid body listing"
						return
					}
				}
				for _, set := range c.MarkerSets() {
					if len(set) != 2 || set[0] != set[1] {
						errs <- "torn marker set"
						return
					}
				}
			}
		}()
	}

	for i := 0; i < writes; i++ {
		k := float64(i)
		c.Update(types.FramePayload{
			FrameNumber: i,
			RigidBodies: []types.RigidBodyReport{
				{ID: 1, Pos: types.Vec3{k, k, k}, Rot: types.Quat{k, k, k, k}, Error: k, TrackingValid: i%2 == 0},
				{ID: 2, Pos: types.Vec3{k, k, k}, Rot: types.Quat{k, k, k, k}, Error: k, TrackingValid: i%2 == 0},
			},
			MarkerSets: []types.MarkerSetReport{{ModelName: "m", Positions: []types.Vec3{{k, k, k}, {k, k, k}}}},
		})
	}
	close(done)
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
	assert.Equal(t, uint64(writes), c.Stats().FramesApplied)
}

func consistent(s types.RigidBodySample) bool {
	k := s.MarkerError
	if s.TrackingValid != (int(k)%2 == 0) {
		return false
	}
	return s.Position == types.Vec3{k, k, k} && s.Orientation == types.Quat{k, k, k, k}
}

func ids(samples []types.RigidBodySample) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = s.ID
	}
	return out
}
