package imu

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/buildscan/buildscan/sensor"
)

// restSample is an IMU reading for a device lying flat: gravity along -z,
// no rotation.
func restSample(ts int64) sensor.InertialSample {
	return sensor.InertialSample{
		Acceleration: r3.Vector{Z: -GravityMS2},
		Orientation:  sensor.EulerAngles{},
		TimestampMs:  ts,
	}
}

func TestGravityCompensationAtRest(t *testing.T) {
	p := NewProcessor(DefaultConfig(), sensor.NewFaultLog(), golog.NewTestLogger(t))

	p.ProcessReading(restSample(0))
	p.ProcessReading(restSample(100))
	p.ProcessReading(restSample(200))

	// at rest the compensated acceleration is zero, so no drift accrues
	test.That(t, p.Velocity(), test.ShouldResemble, r3.Vector{})
	test.That(t, p.Position(), test.ShouldResemble, r3.Vector{})
}

func TestZeroVelocityUpdate(t *testing.T) {
	p := NewProcessor(DefaultConfig(), sensor.NewFaultLog(), golog.NewTestLogger(t))

	p.ProcessReading(restSample(0))

	// a tiny residual acceleration for 100ms integrates to well under the
	// 0.01 m/s threshold, so the update must clamp velocity to exactly zero
	s := restSample(100)
	s.Acceleration.X += 0.05
	p.ProcessReading(s)

	test.That(t, p.Velocity().X, test.ShouldEqual, 0.0)
	test.That(t, p.Velocity().Y, test.ShouldEqual, 0.0)
	test.That(t, p.Velocity().Z, test.ShouldEqual, 0.0)
}

func TestIntegratesMotion(t *testing.T) {
	p := NewProcessor(DefaultConfig(), sensor.NewFaultLog(), golog.NewTestLogger(t))

	p.ProcessReading(restSample(0))

	// 1 m/s² forward for one second
	s := restSample(1000)
	s.Acceleration.X += 1.0
	p.ProcessReading(s)

	test.That(t, p.Velocity().X, test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, p.Position().X, test.ShouldAlmostEqual, 1.0, 1e-9)

	p.ResetPosition()
	test.That(t, p.Velocity(), test.ShouldResemble, r3.Vector{})
	test.That(t, p.Position(), test.ShouldResemble, r3.Vector{})
}

func TestOrientationDegreesAndDeclination(t *testing.T) {
	cfg := Config{MagneticDeclinationDeg: 2.5}
	p := NewProcessor(cfg, sensor.NewFaultLog(), golog.NewTestLogger(t))

	_, ok := p.Orientation()
	test.That(t, ok, test.ShouldBeFalse)

	s := restSample(0)
	s.Orientation = sensor.EulerAngles{Pitch: math.Pi / 6, Roll: -math.Pi / 4, Yaw: math.Pi / 2}
	p.ProcessReading(s)

	o, ok := p.Orientation()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, o.Pitch, test.ShouldAlmostEqual, 30.0, 1e-9)
	test.That(t, o.Roll, test.ShouldAlmostEqual, -45.0, 1e-9)
	test.That(t, o.Yaw, test.ShouldAlmostEqual, 92.5, 1e-9)
}

func TestRejectsNonFiniteSample(t *testing.T) {
	faults := sensor.NewFaultLog()
	p := NewProcessor(DefaultConfig(), faults, golog.NewTestLogger(t))

	good := restSample(0)
	p.ProcessReading(good)

	bad := restSample(100)
	bad.Gyro.Y = math.NaN()
	got := p.ProcessReading(bad)

	test.That(t, got, test.ShouldNotBeNil)
	test.That(t, got.TimestampMs, test.ShouldEqual, int64(0))
	test.That(t, faults.Len(), test.ShouldEqual, 1)

	// rejected sample must not advance the integrator
	test.That(t, p.Position(), test.ShouldResemble, r3.Vector{})
}
