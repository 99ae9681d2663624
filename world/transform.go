package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Transform places an object in the world. The rotation is stored as a unit quaternion;
// Euler angles are only a conversion and do not round-trip uniquely.
//
// The zero value has a zero scale and an invalid rotation. Use NewTransform or Reset.
type Transform struct {
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
}

// NewTransform returns an identity transform: at the origin, unrotated, unit scale
func NewTransform() Transform {
	var t Transform
	t.Reset()
	return t
}

func (t *Transform) Reset() {
	t.position = mgl32.Vec3{}
	t.rotation = mgl32.QuatIdent()
	t.scale = mgl32.Vec3{1, 1, 1}
}

func (t *Transform) WorldPosition() mgl32.Vec3 { return t.position }
func (t *Transform) WorldScale() mgl32.Vec3    { return t.scale }

func (t *Transform) SetWorldPosition(position mgl32.Vec3) { t.position = position }
func (t *Transform) SetWorldScale(scale mgl32.Vec3)       { t.scale = scale }

func (t *Transform) WorldRotation() mgl32.Quat { return t.rotation }

// SetWorldRotation stores the normalized rotation
func (t *Transform) SetWorldRotation(rotation mgl32.Quat) {
	t.rotation = rotation.Normalize()
}

// WorldRotationEulerRadians returns pitch, yaw and roll (rotation about X, Y and Z)
func (t *Transform) WorldRotationEulerRadians() mgl32.Vec3 {
	return quatToEuler(t.rotation)
}

func (t *Transform) SetWorldRotationEulerRadians(angles mgl32.Vec3) {
	t.rotation = eulerToQuat(angles).Normalize()
}

func (t *Transform) WorldRotationEulerDegrees() mgl32.Vec3 {
	return radiansToDegrees(t.WorldRotationEulerRadians())
}

func (t *Transform) SetWorldRotationEulerDegrees(angles mgl32.Vec3) {
	t.SetWorldRotationEulerRadians(degreesToRadians(angles))
}

// RotateBy applies delta after the current rotation
func (t *Transform) RotateBy(delta mgl32.Quat) {
	t.rotation = delta.Mul(t.rotation).Normalize()
}

func (t *Transform) RotateByEulerRadians(delta mgl32.Vec3) {
	t.RotateBy(eulerToQuat(delta))
}

func (t *Transform) RotateByEulerDegrees(delta mgl32.Vec3) {
	t.RotateByEulerRadians(degreesToRadians(delta))
}

// WorldMatrix returns the column-major model matrix translate * rotate * scale
func (t *Transform) WorldMatrix() mgl32.Mat4 {
	translate := mgl32.Translate3D(t.position.X(), t.position.Y(), t.position.Z())
	scale := mgl32.Scale3D(t.scale.X(), t.scale.Y(), t.scale.Z())
	return translate.Mul4(t.rotation.Mat4()).Mul4(scale)
}

// ForwardDirection is the rotated -Z axis
func (t *Transform) ForwardDirection() mgl32.Vec3 {
	return t.rotation.Rotate(mgl32.Vec3{0, 0, -1}).Normalize()
}

// RightDirection is the rotated +X axis
func (t *Transform) RightDirection() mgl32.Vec3 {
	return t.rotation.Rotate(mgl32.Vec3{1, 0, 0}).Normalize()
}

// UpDirection is the rotated +Y axis
func (t *Transform) UpDirection() mgl32.Vec3 {
	return t.rotation.Rotate(mgl32.Vec3{0, 1, 0}).Normalize()
}

func degreesToRadians(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{mgl32.DegToRad(v[0]), mgl32.DegToRad(v[1]), mgl32.DegToRad(v[2])}
}

func radiansToDegrees(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{mgl32.RadToDeg(v[0]), mgl32.RadToDeg(v[1]), mgl32.RadToDeg(v[2])}
}

// eulerToQuat rotates about X, then Y, then Z, all in world axes
func eulerToQuat(angles mgl32.Vec3) mgl32.Quat {
	return mgl32.AnglesToQuat(angles[2], angles[1], angles[0], mgl32.ZYX)
}

// quatToEuler inverts eulerToQuat. At gimbal lock the roll is folded into the pitch.
func quatToEuler(q mgl32.Quat) mgl32.Vec3 {
	w, x, y, z := float64(q.W), float64(q.V[0]), float64(q.V[1]), float64(q.V[2])
	const epsilon = 1e-6

	pitchY := 2 * (y*z + w*x)
	pitchX := w*w - x*x - y*y + z*z
	var pitch float64
	if math.Abs(pitchX) < epsilon && math.Abs(pitchY) < epsilon {
		pitch = 2 * math.Atan2(x, w)
	} else {
		pitch = math.Atan2(pitchY, pitchX)
	}

	yaw := math.Asin(math.Max(-1, math.Min(1, -2*(x*z-w*y))))

	rollY := 2 * (x*y + w*z)
	rollX := w*w + x*x - y*y - z*z
	var roll float64
	if !(math.Abs(rollX) < epsilon && math.Abs(rollY) < epsilon) {
		roll = math.Atan2(rollY, rollX)
	}

	return mgl32.Vec3{float32(pitch), float32(yaw), float32(roll)}
}
