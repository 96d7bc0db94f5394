package geometry

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"mocap-track-go/internal/types"
)

var ErrDegenerateQuaternion = errors.New("quaternion has zero or non-finite length")

func toNumber(q types.Quat) quat.Number {
	return quat.Number{Real: q[3], Imag: q[0], Jmag: q[1], Kmag: q[2]}
}

func fromNumber(n quat.Number) types.Quat {
	return types.Quat{n.Imag, n.Jmag, n.Kmag, n.Real}
}

func normalize(q types.Quat) (quat.Number, error) {
	n := toNumber(q)
	norm := quat.Abs(n)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return quat.Number{}, ErrDegenerateQuaternion
	}
	return quat.Scale(1/norm, n), nil
}

// QuaternionToRotationMatrix normalizes q and returns its 3x3 rotation matrix.
func QuaternionToRotationMatrix(q types.Quat) (*mat.Dense, error) {
	n, err := normalize(q)
	if err != nil {
		return nil, err
	}
	x, y, z, w := n.Imag, n.Jmag, n.Kmag, n.Real
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}), nil
}

// RotateIntoLocal expresses a world-frame vector in the axes of r. r must be
// orthonormal, so its inverse is its transpose.
func RotateIntoLocal(r mat.Matrix, v types.Vec3) types.Vec3 {
	var out mat.VecDense
	out.MulVec(r.T(), mat.NewVecDense(3, []float64{v[0], v[1], v[2]}))
	return types.Vec3{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}

// RelativePosition returns b - a per axis.
func RelativePosition(a, b types.Vec3) types.Vec3 {
	return types.Vec3{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
}

// RelativePositionLocal returns b - a expressed in the frame oriented by ref.
func RelativePositionLocal(a, b types.Vec3, ref types.Quat) (types.Vec3, error) {
	r, err := QuaternionToRotationMatrix(ref)
	if err != nil {
		return types.Vec3{}, err
	}
	return RotateIntoLocal(r, RelativePosition(a, b)), nil
}

// QuatDifference returns b - a component by component. This is not a rotation;
// use RelativeRotation for the orientation of b seen from a.
func QuatDifference(a, b types.Quat) types.Quat {
	return types.Quat{b[0] - a[0], b[1] - a[1], b[2] - a[2], b[3] - a[3]}
}

// RelativeRotation returns the unit quaternion a⁻¹·b.
func RelativeRotation(a, b types.Quat) (types.Quat, error) {
	na, err := normalize(a)
	if err != nil {
		return types.Quat{}, err
	}
	nb, err := normalize(b)
	if err != nil {
		return types.Quat{}, err
	}
	return fromNumber(quat.Mul(quat.Conj(na), nb)), nil
}
