package segmentation

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/buildscan/buildscan/sensor"
)

// wallLine lays points along one side of a room with 0.1m spacing and
// cycling z values up to 2.5m, skipping the along-wall interval
// (gapStart, gapEnd) if gapEnd > gapStart.
func wallLine(x0, y0, x1, y1, gapStart, gapEnd float64) []sensor.LidarPoint {
	var pts []sensor.LidarPoint
	dx, dy := x1-x0, y1-y0
	length := r3.Vector{X: dx, Y: dy}.Norm()
	steps := int(length / 0.1)
	for i := 0; i <= steps; i++ {
		t := float64(i) * 0.1
		if gapEnd > gapStart && t > gapStart && t < gapEnd {
			continue
		}
		f := t / length
		pts = append(pts, sensor.LidarPoint{
			X: x0 + dx*f,
			Y: y0 + dy*f,
			Z: float64(i%6) * 0.5,
		})
	}
	return pts
}

// squareRoomScan is a 6x6m room with a 1.0m door gap on the south wall and
// a 0.6m window gap on the east wall.
func squareRoomScan() sensor.LidarScan {
	var pts []sensor.LidarPoint
	pts = append(pts, wallLine(0, 0, 6, 0, 2.0, 3.0)...)  // south, door
	pts = append(pts, wallLine(6, 0, 6, 6, 2.0, 2.55)...) // east, window
	pts = append(pts, wallLine(6, 6, 0, 6, 0, 0)...)      // north
	pts = append(pts, wallLine(0, 6, 0, 0, 0, 0)...)      // west
	return sensor.LidarScan{ScanID: "room", Points: pts, TimestampMs: 1}
}

func newDetector(t *testing.T) *WallDetector {
	t.Helper()
	d, err := NewWallDetector(DefaultConfig(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return d
}

func TestDetectBoundarySquareRoom(t *testing.T) {
	d := newDetector(t)
	boundary, quality, ok := d.DetectBoundary(squareRoomScan())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(boundary.Corners), test.ShouldEqual, 4)
	test.That(t, boundary.CeilingHeightM, test.ShouldEqual, 2.5)

	test.That(t, boundary.Area(), test.ShouldAlmostEqual, 36.0, 1.0)
	centroid := boundary.Centroid()
	test.That(t, centroid.X, test.ShouldAlmostEqual, 3.0, 0.2)
	test.That(t, centroid.Y, test.ShouldAlmostEqual, 3.0, 0.2)

	test.That(t, quality.WallCount, test.ShouldEqual, 4)
	test.That(t, quality.InlierCount, test.ShouldBeGreaterThan, 200)
	test.That(t, quality.ResidualRMS, test.ShouldBeLessThan, DefaultConfig().DistanceThresholdM)
}

func TestDetectBoundaryDeterministicWithSeed(t *testing.T) {
	first, _, ok := newDetector(t).DetectBoundary(squareRoomScan())
	test.That(t, ok, test.ShouldBeTrue)
	second, _, ok := newDetector(t).DetectBoundary(squareRoomScan())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, second.Corners, test.ShouldResemble, first.Corners)
}

func TestDetectBoundaryTooSparse(t *testing.T) {
	d := newDetector(t)
	scan := sensor.LidarScan{
		ScanID:      "sparse",
		Points:      []sensor.LidarPoint{{X: 0}, {X: 1}, {X: 2}, {X: 3}},
		TimestampMs: 1,
	}
	_, _, ok := d.DetectBoundary(scan)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestDetectWallsPeelsInliers(t *testing.T) {
	d := newDetector(t)
	walls := d.DetectWalls(scanVectors(squareRoomScan()))
	test.That(t, len(walls), test.ShouldEqual, 4)

	// every wall keeps its supporting points for opening analysis
	for _, w := range walls {
		test.That(t, len(w.Inliers), test.ShouldBeGreaterThan, DefaultConfig().MinInliers)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 0
	_, err := NewWallDetector(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)

	cfg = DefaultConfig()
	cfg.DistanceThresholdM = -0.1
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)

	cfg = DefaultConfig()
	cfg.FloorHeightM = 0
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
}
