package ground

import (
	"math"
	"testing"

	"github.com/aeroterra/sim/internal/phys"
	"github.com/aeroterra/sim/internal/spatial"
	"github.com/aeroterra/sim/internal/terrain"
)

func testSuspension() Suspension {
	return Suspension{
		Travel:        0.4,
		WheelRadius:   0.35,
		Stiffness:     35000,
		Damping:       4500,
		DetectionDist: 3,
		RayOffset:     0.5,
	}
}

func TestUpdateContactCompressed(t *testing.T) {
	s := testSuspension()
	body := phys.NewBody(1500, spatial.Vec3{X: 1, Y: 1, Z: 1})
	// Mount 0.5m above flat ground: rest length is travel+radius = 0.75,
	// so the suspension is compressed by 0.25.
	body.Position = spatial.Vec3{Y: 0.5}
	w := WheelContact{}

	s.UpdateContact(&w, body, terrain.NewHeightfield(terrain.Flat(0)))

	if !w.Detected || !w.Grounded {
		t.Fatalf("detected=%v grounded=%v, want both true", w.Detected, w.Grounded)
	}
	if math.Abs(w.Compression-0.25) > 1e-9 {
		t.Errorf("compression = %v, want 0.25", w.Compression)
	}
}

func TestUpdateContactDetectedButNotGrounded(t *testing.T) {
	s := testSuspension()
	body := phys.NewBody(1500, spatial.Vec3{X: 1, Y: 1, Z: 1})
	// Within detection range but beyond the rest length: the wheel hangs.
	body.Position = spatial.Vec3{Y: 2}
	w := WheelContact{}

	s.UpdateContact(&w, body, terrain.NewHeightfield(terrain.Flat(0)))

	if !w.Detected {
		t.Error("terrain within detection distance not detected")
	}
	if w.Grounded {
		t.Error("hanging wheel reported grounded")
	}
	if w.Compression != 0 {
		t.Errorf("compression = %v, want floor of 0", w.Compression)
	}
}

func TestUpdateContactMissResets(t *testing.T) {
	s := testSuspension()
	body := phys.NewBody(1500, spatial.Vec3{X: 1, Y: 1, Z: 1})
	body.Position = spatial.Vec3{Y: 0.5}
	w := WheelContact{}

	s.UpdateContact(&w, body, terrain.NewHeightfield(terrain.Flat(0)))
	if !w.Grounded {
		t.Fatal("setup failed to ground the wheel")
	}

	body.Position = spatial.Vec3{Y: 500}
	s.UpdateContact(&w, body, terrain.NewHeightfield(terrain.Flat(0)))
	if w.Detected || w.Grounded || w.Compression != 0 {
		t.Errorf("miss did not reset wheel: %+v", w)
	}
}

func TestForceZeroWhenAirborne(t *testing.T) {
	s := testSuspension()
	w := WheelContact{Grounded: false, Compression: 0.3}
	if f := s.Force(&w, 0.02); f != (spatial.Vec3{}) {
		t.Errorf("airborne wheel produced force %+v", f)
	}
}

func TestForceSpringPlusDamper(t *testing.T) {
	s := testSuspension()
	w := WheelContact{
		Grounded:        true,
		Compression:     0.2,
		PrevCompression: 0.18,
		GroundNormal:    spatial.Vec3{Y: 1},
	}

	f := s.Force(&w, 0.02)

	// spring 0.2*35000 = 7000, damper (0.02/0.02)*4500 = 4500
	if math.Abs(f.Y-11500) > 1e-6 {
		t.Errorf("force = %v, want 11500", f.Y)
	}
}

func TestForceNeverPullsDown(t *testing.T) {
	s := testSuspension()
	// Rapid extension: the damper term dominates negative. The wheel must
	// not pull the body into the ground.
	w := WheelContact{
		Grounded:        true,
		Compression:     0.01,
		PrevCompression: 0.4,
		GroundNormal:    spatial.Vec3{Y: 1},
	}

	f := s.Force(&w, 0.02)
	if f.Y < 0 {
		t.Errorf("suspension pulled down: %v", f.Y)
	}
}

func TestForceAlongGroundNormal(t *testing.T) {
	s := testSuspension()
	n := spatial.Vec3{X: 0.3, Y: 0.9}.Normalize()
	w := WheelContact{
		Grounded:        true,
		Compression:     0.1,
		PrevCompression: 0.1,
		GroundNormal:    n,
	}

	f := s.Force(&w, 0.02)
	cos := f.Dot(n) / f.Length()
	if math.Abs(cos-1) > 1e-9 {
		t.Errorf("force not along normal, cos = %v", cos)
	}
}
