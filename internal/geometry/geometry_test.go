package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"mocap-track-go/internal/types"
)

const eps = 1e-9

func TestQuaternionToRotationMatrixIdentity(t *testing.T) {
	r, err := QuaternionToRotationMatrix(types.IdentityQuat)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(r, eye(), eps), "got %v", mat.Formatted(r))
}

func TestQuaternionToRotationMatrixNormalizesInput(t *testing.T) {
	r, err := QuaternionToRotationMatrix(types.Quat{0, 0, 0, 2})
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(r, eye(), eps))
}

func TestQuaternionToRotationMatrixDegenerate(t *testing.T) {
	_, err := QuaternionToRotationMatrix(types.Quat{})
	assert.ErrorIs(t, err, ErrDegenerateQuaternion)

	_, err = QuaternionToRotationMatrix(types.Quat{math.NaN(), 0, 0, 1})
	assert.ErrorIs(t, err, ErrDegenerateQuaternion)
}

func TestQuaternionToRotationMatrixOrthonormal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		q := types.Quat{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		r, err := QuaternionToRotationMatrix(q)
		require.NoError(t, err)

		var rrt mat.Dense
		rrt.Mul(r, r.T())
		assert.True(t, mat.EqualApprox(&rrt, eye(), 1e-9), "q=%v", q)
		assert.InDelta(t, 1.0, mat.Det(r), 1e-9)
	}
}

func TestQuaternionToRotationMatrixQuarterTurnZ(t *testing.T) {
	s := math.Sqrt2 / 2
	r, err := QuaternionToRotationMatrix(types.Quat{0, 0, s, s})
	require.NoError(t, err)

	want := mat.NewDense(3, 3, []float64{
		0, -1, 0,
		1, 0, 0,
		0, 0, 1,
	})
	assert.True(t, mat.EqualApprox(r, want, eps), "got %v", mat.Formatted(r))
}

func TestRotateIntoLocal(t *testing.T) {
	s := math.Sqrt2 / 2
	r, err := QuaternionToRotationMatrix(types.Quat{0, 0, s, s})
	require.NoError(t, err)

	// The reference body's x axis points along world y.
	local := RotateIntoLocal(r, types.Vec3{0, 1, 0})
	assertVec(t, types.Vec3{1, 0, 0}, local)

	local = RotateIntoLocal(eye(), types.Vec3{1, 2, 3})
	assertVec(t, types.Vec3{1, 2, 3}, local)
}

func TestRelativePosition(t *testing.T) {
	assert.Equal(t, types.Vec3{5, 0, 0}, RelativePosition(types.Vec3{0, 0, 0}, types.Vec3{5, 0, 0}))
	assert.Equal(t, types.Vec3{-1, -1, 3}, RelativePosition(types.Vec3{2, 3, 0}, types.Vec3{1, 2, 3}))
}

func TestRelativePositionLocalIdentityMatchesWorld(t *testing.T) {
	a, b := types.Vec3{1, -2, 0.5}, types.Vec3{4, 4, 4}
	local, err := RelativePositionLocal(a, b, types.IdentityQuat)
	require.NoError(t, err)
	assertVec(t, RelativePosition(a, b), local)

	_, err = RelativePositionLocal(a, b, types.Quat{})
	assert.ErrorIs(t, err, ErrDegenerateQuaternion)
}

func TestQuatDifference(t *testing.T) {
	got := QuatDifference(types.Quat{0, 0, 0, 1}, types.Quat{0.5, 0, 0.25, 0.5})
	assert.Equal(t, types.Quat{0.5, 0, 0.25, -0.5}, got)
}

func TestRelativeRotation(t *testing.T) {
	s := math.Sqrt2 / 2
	quarter := types.Quat{0, 0, s, s}

	self, err := RelativeRotation(quarter, quarter)
	require.NoError(t, err)
	assertQuat(t, types.IdentityQuat, self)

	fromIdentity, err := RelativeRotation(types.IdentityQuat, types.Quat{0, 0, 2, 2})
	require.NoError(t, err)
	assertQuat(t, quarter, fromIdentity)

	_, err = RelativeRotation(types.Quat{}, quarter)
	assert.ErrorIs(t, err, ErrDegenerateQuaternion)
}

func eye() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

func assertVec(t *testing.T, want, got types.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], eps, "axis %d", i)
	}
}

func assertQuat(t *testing.T, want, got types.Quat) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], eps, "component %d", i)
	}
}
