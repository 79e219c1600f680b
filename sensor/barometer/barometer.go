// Package barometer tracks relative altitude against a session baseline and
// signals probable floor changes from pressure deltas.
package barometer

import (
	"math"

	"github.com/edaniels/golog"

	"github.com/buildscan/buildscan/sensor"
)

// MetersPerFloor is the nominal story height used for barometric floor
// estimation. The point-cloud floor grouping uses a different constant
// (2.7m); the two are intentionally kept separate, see DESIGN.md.
const MetersPerFloor = 3.0

// FloorChangeDeltaHPa is the pressure shift from baseline treated as a
// floor transition. Roughly 0.12 hPa per meter near sea level, so 0.3 hPa
// is between two and three meters of climb.
const FloorChangeDeltaHPa = 0.3

// Processor accepts barometric readings and derives floor-level estimates.
// The first accepted reading establishes the baseline unless one was set
// explicitly with ResetBaseline.
type Processor struct {
	logger golog.Logger
	faults *sensor.FaultLog

	hasBaseline      bool
	baselinePressure float64
	baselineAltitude float64
	last             *sensor.BarometricSample
}

// NewProcessor returns a barometer processor appending faults to the given log.
func NewProcessor(faults *sensor.FaultLog, logger golog.Logger) *Processor {
	return &Processor{logger: logger, faults: faults}
}

// ProcessReading validates one reading. It returns the accepted reading, or
// the prior last-known-good reading (possibly nil) when rejected.
func (p *Processor) ProcessReading(s sensor.BarometricSample) *sensor.BarometricSample {
	if err := s.Validate(); err != nil {
		p.logger.Debugw("rejecting barometric reading", "error", err, "timestamp_ms", s.TimestampMs)
		p.faults.Reject(sensor.KindBarometer, s.TimestampMs, err)
		return p.last
	}
	accepted := s
	p.last = &accepted
	if !p.hasBaseline {
		p.setBaseline(s.PressureHPa, s.RelativeAltitudeM)
	}
	return p.last
}

// ResetBaseline pins the baseline to the given pressure and altitude,
// typically after the mapper commits a floor transition.
func (p *Processor) ResetBaseline(pressureHPa, altitudeM float64) {
	p.setBaseline(pressureHPa, altitudeM)
}

func (p *Processor) setBaseline(pressureHPa, altitudeM float64) {
	p.hasBaseline = true
	p.baselinePressure = pressureHPa
	p.baselineAltitude = altitudeM
	p.logger.Debugw("barometer baseline set", "pressure_hpa", pressureHPa, "altitude_m", altitudeM)
}

// EstimateFloorLevel returns the floor offset from the baseline, at
// MetersPerFloor per floor. The second return is false until a baseline
// and at least one accepted reading exist.
func (p *Processor) EstimateFloorLevel() (int, bool) {
	if !p.hasBaseline || p.last == nil {
		return 0, false
	}
	level := math.Round((p.last.RelativeAltitudeM - p.baselineAltitude) / MetersPerFloor)
	return int(level), true
}

// HasFloorChanged reports whether the given pressure has drifted far enough
// from the baseline to indicate a floor transition. Always false before a
// baseline exists.
func (p *Processor) HasFloorChanged(newPressureHPa float64) bool {
	if !p.hasBaseline {
		return false
	}
	return math.Abs(newPressureHPa-p.baselinePressure) >= FloorChangeDeltaHPa
}

// Current returns the last accepted reading, or nil.
func (p *Processor) Current() *sensor.BarometricSample {
	return p.last
}
