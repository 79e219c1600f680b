package pointcloud

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/buildscan/buildscan/sensor"
)

// gridScan lays out a dense unit grid of wall points at the given origin.
func gridScan(id string, originX float64) sensor.LidarScan {
	var pts []sensor.LidarPoint
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			pts = append(pts, sensor.LidarPoint{X: originX + float64(i)*0.1, Y: float64(j) * 0.1, Z: 1})
		}
	}
	return sensor.LidarScan{ScanID: id, Points: pts, TimestampMs: 1}
}

func TestMergeScans(t *testing.T) {
	merged := MergeScans([]sensor.LidarScan{gridScan("a", 0), gridScan("b", 10)})
	test.That(t, merged.Size(), test.ShouldEqual, 50)
}

func TestRemoveStatisticalOutliersDropsDisplacedPoint(t *testing.T) {
	scan := gridScan("a", 0)
	// one point far outside the grid's neighbor-distance distribution
	scan.Points = append(scan.Points, sensor.LidarPoint{X: 50, Y: 50, Z: 1})
	cloud := MergeScans([]sensor.LidarScan{scan})

	filtered := RemoveStatisticalOutliers(cloud, 10, 2.0)
	test.That(t, filtered.Size(), test.ShouldEqual, cloud.Size()-1)
	filtered.Iterate(func(p r3.Vector) bool {
		test.That(t, p.X, test.ShouldBeLessThan, 10.0)
		return true
	})
}

func TestRemoveStatisticalOutliersSmallCloud(t *testing.T) {
	cloud := NewFromPoints([]r3.Vector{{X: 0}, {X: 100}})
	// too few points to judge; everything is kept
	test.That(t, RemoveStatisticalOutliers(cloud, 10, 2.0).Size(), test.ShouldEqual, 2)
}

func TestNormalizeToOrigin(t *testing.T) {
	cloud := NewFromPoints([]r3.Vector{{X: 3, Y: -2, Z: 7}, {X: 5, Y: 0, Z: 9}})
	normalized := NormalizeToOrigin(cloud)

	meta := normalized.MetaData()
	test.That(t, meta.MinX, test.ShouldEqual, 0.0)
	test.That(t, meta.MinY, test.ShouldEqual, 0.0)
	test.That(t, meta.MinZ, test.ShouldEqual, 0.0)
	test.That(t, normalized.At(1), test.ShouldResemble, r3.Vector{X: 2, Y: 2, Z: 2})
}

func TestPreprocessorEndToEnd(t *testing.T) {
	cfg := DefaultPreprocessConfig()
	cfg.AltitudeOffsetM = 0.5
	p, err := NewPreprocessor(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	cloud := p.Process([]sensor.LidarScan{gridScan("a", 0)})
	test.That(t, cloud.Size(), test.ShouldEqual, 25)
	// normalized after calibration, so the minimum sits at the origin
	test.That(t, cloud.MetaData().MinZ, test.ShouldEqual, 0.0)
}

func TestPreprocessConfigValidate(t *testing.T) {
	bad := DefaultPreprocessConfig()
	bad.NeighborCount = 0
	_, err := NewPreprocessor(bad, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)

	bad = DefaultPreprocessConfig()
	bad.OutlierStdDevs = -1
	test.That(t, bad.Validate(), test.ShouldNotBeNil)
}
