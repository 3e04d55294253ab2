package spatial

import "math"

// Quat is a rotation quaternion. It maps body-frame vectors into the world
// frame. Identity orientation has the body right axis on +X, up on +Y and
// forward on +Z.
type Quat struct {
	W, X, Y, Z float64
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat { return Quat{W: 1} }

// QuatAxisAngle builds a rotation of angle radians about the given axis.
func QuatAxisAngle(axis Vec3, angle float64) Quat {
	axis = axis.Normalize()
	s := math.Sin(angle / 2)
	return Quat{
		W: math.Cos(angle / 2),
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
	}
}

// QuatFromEuler composes pitch about X, then yaw about Y, then roll about Z
// (radians) into a single rotation: q = qx * qy * qz.
func QuatFromEuler(pitch, yaw, roll float64) Quat {
	qx := QuatAxisAngle(Vec3{X: 1}, pitch)
	qy := QuatAxisAngle(Vec3{Y: 1}, yaw)
	qz := QuatAxisAngle(Vec3{Z: 1}, roll)
	return qx.Mul(qy).Mul(qz)
}

// Mul composes rotations: (q.Mul(r)).Rotate(v) == q.Rotate(r.Rotate(v)).
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Conj returns the conjugate, which for unit quaternions is the inverse.
func (q Quat) Conj() Quat {
	return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

func (q Quat) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalize rescales q to unit length. A degenerate quaternion collapses to
// the identity.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n == 0 {
		return QuatIdentity()
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// Rotate applies the rotation to a vector: v' = q v q*.
func (q Quat) Rotate(v Vec3) Vec3 {
	// v' = v + 2w(u x v) + 2(u x (u x v)) with u the vector part
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// InverseRotate applies the inverse rotation, mapping world into body frame.
func (q Quat) InverseRotate(v Vec3) Vec3 {
	return q.Conj().Rotate(v)
}

// Right, Up and Forward return the body axes expressed in world coordinates.
func (q Quat) Right() Vec3   { return q.Rotate(Vec3{X: 1}) }
func (q Quat) Up() Vec3      { return q.Rotate(Vec3{Y: 1}) }
func (q Quat) Forward() Vec3 { return q.Rotate(Vec3{Z: 1}) }

// HeadingRad returns the rotation about world Y of the projected forward
// axis, in radians. Zero heading points along +Z.
func (q Quat) HeadingRad() float64 {
	f := q.Forward()
	f.Y = 0
	if f.Length() < 1e-9 {
		// Pointing straight up or down; fall back to the up axis projection.
		u := q.Up()
		return math.Atan2(u.X, u.Z)
	}
	return math.Atan2(f.X, f.Z)
}

// Integrate advances the orientation by an angular velocity (rad/s, world
// frame) over dt using the quaternion derivative, then renormalizes.
func (q Quat) Integrate(omega Vec3, dt float64) Quat {
	w := Quat{W: 0, X: omega.X, Y: omega.Y, Z: omega.Z}
	dq := w.Mul(q)
	h := 0.5 * dt
	return Quat{
		W: q.W + dq.W*h,
		X: q.X + dq.X*h,
		Y: q.Y + dq.Y*h,
		Z: q.Z + dq.Z*h,
	}.Normalize()
}

// QuatFromTo returns the shortest rotation taking direction a onto b.
func QuatFromTo(a, b Vec3) Quat {
	a = a.Normalize()
	b = b.Normalize()
	d := a.Dot(b)
	if d >= 1-1e-12 {
		return QuatIdentity()
	}
	if d <= -1+1e-12 {
		// Opposite vectors: rotate 180 degrees about any perpendicular axis.
		perp := a.Cross(Vec3{X: 1})
		if perp.Length() < 1e-9 {
			perp = a.Cross(Vec3{Y: 1})
		}
		return QuatAxisAngle(perp, math.Pi)
	}
	axis := a.Cross(b)
	q := Quat{W: 1 + d, X: axis.X, Y: axis.Y, Z: axis.Z}
	return q.Normalize()
}

// Slerp spherically interpolates from q to r. t is clamped to [0,1].
func (q Quat) Slerp(r Quat, t float64) Quat {
	t = Clamp(t, 0, 1)
	d := q.W*r.W + q.X*r.X + q.Y*r.Y + q.Z*r.Z
	if d < 0 {
		r = Quat{-r.W, -r.X, -r.Y, -r.Z}
		d = -d
	}
	if d > 1-1e-9 {
		// Nearly identical; nlerp avoids division by a vanishing sine.
		return Quat{
			q.W + (r.W-q.W)*t,
			q.X + (r.X-q.X)*t,
			q.Y + (r.Y-q.Y)*t,
			q.Z + (r.Z-q.Z)*t,
		}.Normalize()
	}
	theta := math.Acos(d)
	s := math.Sin(theta)
	wq := math.Sin((1-t)*theta) / s
	wr := math.Sin(t*theta) / s
	return Quat{
		q.W*wq + r.W*wr,
		q.X*wq + r.X*wr,
		q.Y*wq + r.Y*wr,
		q.Z*wq + r.Z*wr,
	}.Normalize()
}

// LevelHeading returns a level orientation (zero pitch and roll) preserving
// the heading of q.
func (q Quat) LevelHeading() Quat {
	return QuatAxisAngle(Vec3{Y: 1}, q.HeadingRad())
}
