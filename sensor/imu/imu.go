// Package imu dead-reckons device position from inertial samples.
//
// Integration is deliberately simple: gravity-compensated acceleration is
// Euler-integrated into velocity and position. That drifts, so a
// zero-velocity update clamps velocity to exactly zero whenever all
// components are below a small threshold, and callers reset position when
// starting a new room. There is no Kalman or particle filtering here.
package imu

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/buildscan/buildscan/sensor"
	"github.com/buildscan/buildscan/utils"
)

// GravityMS2 is standard gravity in m/s².
const GravityMS2 = 9.80665

// ZeroVelocityThresholdMS is the per-component speed below which the
// integrator snaps velocity to exactly zero.
const ZeroVelocityThresholdMS = 0.01

// Config holds integrator tunables.
type Config struct {
	// MagneticDeclinationDeg is added to the yaw heading to correct from
	// magnetic to true north. Site-specific; zero by default.
	MagneticDeclinationDeg float64 `json:"magnetic_declination_deg"`
}

// DefaultConfig returns integrator defaults.
func DefaultConfig() Config {
	return Config{}
}

// OrientationDegrees is the device attitude in degrees with yaw corrected
// for magnetic declination.
type OrientationDegrees struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

// Processor integrates accepted inertial samples into a position estimate.
type Processor struct {
	cfg    Config
	logger golog.Logger
	faults *sensor.FaultLog

	last      *sensor.InertialSample
	lastTsMs  int64
	hasAnchor bool
	velocity  r3.Vector
	position  r3.Vector
}

// NewProcessor returns an IMU processor appending faults to the given log.
func NewProcessor(cfg Config, faults *sensor.FaultLog, logger golog.Logger) *Processor {
	return &Processor{cfg: cfg, logger: logger, faults: faults}
}

// ProcessReading validates one sample and advances the integrator. It
// returns the accepted sample, or the prior last-known-good sample
// (possibly nil) when rejected.
func (p *Processor) ProcessReading(s sensor.InertialSample) *sensor.InertialSample {
	if err := s.Validate(); err != nil {
		p.logger.Debugw("rejecting inertial sample", "error", err, "timestamp_ms", s.TimestampMs)
		p.faults.Reject(sensor.KindIMU, s.TimestampMs, err)
		return p.last
	}

	if p.hasAnchor {
		dt := float64(s.TimestampMs-p.lastTsMs) / 1000.0
		if dt > 0 {
			p.integrate(s, dt)
		}
	}
	p.hasAnchor = true
	p.lastTsMs = s.TimestampMs
	accepted := s
	p.last = &accepted
	return p.last
}

// integrate advances velocity and position by one Euler step.
func (p *Processor) integrate(s sensor.InertialSample, dt float64) {
	linear := s.Acceleration.Sub(gravityInSensorFrame(s.Orientation))

	p.velocity = p.velocity.Add(linear.Mul(dt))
	p.position = p.position.Add(p.velocity.Mul(dt))

	if math.Abs(p.velocity.X) < ZeroVelocityThresholdMS &&
		math.Abs(p.velocity.Y) < ZeroVelocityThresholdMS &&
		math.Abs(p.velocity.Z) < ZeroVelocityThresholdMS {
		p.velocity = r3.Vector{}
	}
}

// gravityInSensorFrame resolves standard gravity into the sensor frame for
// the given pitch and roll.
func gravityInSensorFrame(o sensor.EulerAngles) r3.Vector {
	sinP, cosP := math.Sin(o.Pitch), math.Cos(o.Pitch)
	sinR, cosR := math.Sin(o.Roll), math.Cos(o.Roll)
	return r3.Vector{
		X: GravityMS2 * sinP,
		Y: -GravityMS2 * cosP * sinR,
		Z: -GravityMS2 * cosP * cosR,
	}
}

// Position returns the integrated position in meters since the last reset.
func (p *Processor) Position() r3.Vector {
	return p.position
}

// Velocity returns the current velocity estimate in m/s.
func (p *Processor) Velocity() r3.Vector {
	return p.velocity
}

// Orientation returns the last accepted attitude in degrees, with the
// configured declination correction applied to yaw. False if no sample has
// been accepted yet.
func (p *Processor) Orientation() (OrientationDegrees, bool) {
	if p.last == nil {
		return OrientationDegrees{}, false
	}
	return OrientationDegrees{
		Pitch: utils.RadToDeg(p.last.Orientation.Pitch),
		Roll:  utils.RadToDeg(p.last.Orientation.Roll),
		Yaw:   utils.RadToDeg(p.last.Orientation.Yaw) + p.cfg.MagneticDeclinationDeg,
	}, true
}

// ResetPosition zeroes position, velocity, and the integration time anchor.
// The mapper calls this at room boundaries to bound drift.
func (p *Processor) ResetPosition() {
	p.position = r3.Vector{}
	p.velocity = r3.Vector{}
	p.hasAnchor = false
	p.lastTsMs = 0
}
