package gnss

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/buildscan/buildscan/sensor"
)

func TestAcceptsGoodFix(t *testing.T) {
	logger := golog.NewTestLogger(t)
	faults := sensor.NewFaultLog()
	p := NewProcessor(faults, logger)

	test.That(t, p.CurrentLocation(), test.ShouldBeNil)

	fix := sensor.GNSSSample{Latitude: 51.5, Longitude: -0.12, ElevationM: 35, HorizontalAccuracyM: 4, TimestampMs: 100}
	got := p.ProcessReading(fix)
	test.That(t, got, test.ShouldNotBeNil)
	test.That(t, *got, test.ShouldResemble, fix)
	test.That(t, faults.Len(), test.ShouldEqual, 0)

	loc := p.CurrentLocation()
	test.That(t, loc, test.ShouldNotBeNil)
	test.That(t, loc.Lat(), test.ShouldEqual, 51.5)
	test.That(t, loc.Lng(), test.ShouldEqual, -0.12)
}

func TestRejectsInaccurateFix(t *testing.T) {
	logger := golog.NewTestLogger(t)
	faults := sensor.NewFaultLog()
	p := NewProcessor(faults, logger)

	bad := sensor.GNSSSample{Latitude: 51.5, Longitude: -0.12, ElevationM: 35, HorizontalAccuracyM: 25, TimestampMs: 100}
	test.That(t, p.ProcessReading(bad), test.ShouldBeNil)
	test.That(t, faults.Len(), test.ShouldEqual, 1)
	test.That(t, faults.All()[0].Code, test.ShouldEqual, sensor.FaultRejectedSample)

	good := bad
	good.HorizontalAccuracyM = 3
	good.TimestampMs = 200
	test.That(t, p.ProcessReading(good), test.ShouldNotBeNil)

	// a later bad fix falls back to the accepted one
	bad.TimestampMs = 300
	got := p.ProcessReading(bad)
	test.That(t, got, test.ShouldNotBeNil)
	test.That(t, got.TimestampMs, test.ShouldEqual, int64(200))
	test.That(t, faults.Len(), test.ShouldEqual, 2)
}
