// Package gnss validates positioning fixes and retains the last good one.
package gnss

import (
	"github.com/edaniels/golog"
	geo "github.com/kellydunn/golang-geo"

	"github.com/buildscan/buildscan/sensor"
)

// Processor accepts or rejects GNSS fixes one at a time. A rejected fix is
// logged as a fault and the previously accepted fix remains current.
type Processor struct {
	logger golog.Logger
	faults *sensor.FaultLog
	last   *sensor.GNSSSample
}

// NewProcessor returns a GNSS processor appending faults to the given log.
func NewProcessor(faults *sensor.FaultLog, logger golog.Logger) *Processor {
	return &Processor{logger: logger, faults: faults}
}

// ProcessReading validates one fix. It returns the accepted fix, or the
// prior last-known-good fix (possibly nil) when the new one is rejected.
func (p *Processor) ProcessReading(s sensor.GNSSSample) *sensor.GNSSSample {
	if err := s.Validate(); err != nil {
		p.logger.Debugw("rejecting gnss fix", "error", err, "timestamp_ms", s.TimestampMs)
		p.faults.Reject(sensor.KindGNSS, s.TimestampMs, err)
		return p.last
	}
	accepted := s
	p.last = &accepted
	return p.last
}

// CurrentLocation returns the last accepted fix as a geodetic point, or nil
// if no fix has been accepted yet.
func (p *Processor) CurrentLocation() *geo.Point {
	if p.last == nil {
		return nil
	}
	return geo.NewPoint(p.last.Latitude, p.last.Longitude)
}

// CurrentFix returns the last accepted raw sample, or nil.
func (p *Processor) CurrentFix() *sensor.GNSSSample {
	return p.last
}
