package spatial

import (
	"math"
	"testing"
)

func TestVec3Cross(t *testing.T) {
	got := Vec3{X: 1}.Cross(Vec3{Y: 1})
	vecNear(t, got, Vec3{Z: 1}, eps)
}

func TestVec3NormalizeSafeZero(t *testing.T) {
	vecNear(t, Vec3{}.NormalizeSafe(1e-9), Vec3{}, eps)
}

func TestVec3Lerp(t *testing.T) {
	a := Vec3{X: 1}
	b := Vec3{X: 3, Y: 2}
	vecNear(t, a.Lerp(b, 0.5), Vec3{X: 2, Y: 1}, eps)
}

func TestClamp(t *testing.T) {
	cases := []struct {
		in, lo, hi, want float64
	}{
		{5, 0, 1, 1},
		{-5, 0, 1, 0},
		{0.5, 0, 1, 0.5},
	}
	for _, c := range cases {
		if got := Clamp(c.in, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", c.in, c.lo, c.hi, got, c.want)
		}
	}
}

func TestWrapAngleDeg(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{190, -170},
		{-190, 170},
		{360, 0},
	}
	for _, c := range cases {
		if got := WrapAngleDeg(c.in); math.Abs(got-c.want) > eps {
			t.Errorf("WrapAngleDeg(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIsFinite(t *testing.T) {
	if !(Vec3{X: 1, Y: 2, Z: 3}).IsFinite() {
		t.Error("finite vector reported non-finite")
	}
	if (Vec3{X: math.NaN()}).IsFinite() {
		t.Error("NaN vector reported finite")
	}
	if (Vec3{Z: math.Inf(1)}).IsFinite() {
		t.Error("Inf vector reported finite")
	}
}
