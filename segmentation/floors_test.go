package segmentation

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/buildscan/buildscan/pointcloud"
)

// lowRoomPoints is a 6x6 room outline with wall points kept below 1.3m so
// the whole room lands in one height bucket, shifted up by elevation.
func lowRoomPoints(elevation float64) []r3.Vector {
	var pts []r3.Vector
	for _, p := range squareRoomScan().Points {
		v := p.Vec()
		v.Z = float64(int(v.Z*2)%3) * 0.5 // 0, 0.5, 1.0
		v.Z += elevation
		pts = append(pts, v)
	}
	return pts
}

func TestSegmentByHeight(t *testing.T) {
	cloud := pointcloud.New()
	for _, p := range lowRoomPoints(0) {
		cloud.Add(p)
	}
	for _, p := range lowRoomPoints(5.4) {
		cloud.Add(p)
	}

	segments := SegmentByHeight(cloud, 2.7)
	test.That(t, len(segments), test.ShouldEqual, 2)
	test.That(t, segments[0].Index, test.ShouldEqual, 0)
	test.That(t, segments[0].ElevationM, test.ShouldEqual, 0.0)
	test.That(t, segments[1].Index, test.ShouldEqual, 2)
	test.That(t, segments[1].ElevationM, test.ShouldAlmostEqual, 5.4, 1e-9)
	test.That(t, len(segments[0].Points), test.ShouldEqual, len(segments[1].Points))
}

func TestBaseSegmentIndex(t *testing.T) {
	_, ok := BaseSegmentIndex(pointcloud.New(), 2.7)
	test.That(t, ok, test.ShouldBeFalse)

	// wall returns confined to the upper half of a 2.7m story still
	// belong to story zero
	upper := pointcloud.New()
	for _, p := range lowRoomPoints(1.4) {
		upper.Add(p)
	}
	idx, ok := BaseSegmentIndex(upper, 2.7)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, idx, test.ShouldEqual, 0)

	elevated := pointcloud.New()
	for _, p := range lowRoomPoints(3.0) {
		elevated.Add(p)
	}
	idx, ok = BaseSegmentIndex(elevated, 2.7)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, idx, test.ShouldEqual, 1)
}

func TestClusterElevations(t *testing.T) {
	var heights []float64
	for i := 0; i < 20; i++ {
		heights = append(heights, float64(i)*0.01)        // around 0.1
		heights = append(heights, 3.0+float64(i)*0.01)    // around 3.1
	}

	centers, err := ClusterElevations(heights, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(centers), test.ShouldEqual, 2)
	test.That(t, centers[0], test.ShouldAlmostEqual, 0.095, 0.5)
	test.That(t, centers[1], test.ShouldAlmostEqual, 3.095, 0.5)

	single, err := ClusterElevations(heights, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(single), test.ShouldEqual, 1)
	test.That(t, single[0], test.ShouldAlmostEqual, 3.0, 1e-9)

	_, err = ClusterElevations([]float64{1}, 2)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ClusterElevations(heights, 0)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFloorSegmenter(t *testing.T) {
	logger := golog.NewTestLogger(t)
	detector, err := NewWallDetector(DefaultConfig(), logger)
	test.That(t, err, test.ShouldBeNil)
	segmenter := NewFloorSegmenter(detector, logger)

	cloud := pointcloud.New()
	for _, p := range lowRoomPoints(0) {
		cloud.Add(p)
	}
	for _, p := range lowRoomPoints(5.4) {
		cloud.Add(p)
	}

	floors := segmenter.Segment(cloud)
	test.That(t, len(floors), test.ShouldEqual, 2)
	test.That(t, floors[0].Index, test.ShouldEqual, 0)
	test.That(t, len(floors[0].Boundary.Corners), test.ShouldEqual, 4)
	test.That(t, floors[1].ElevationM, test.ShouldAlmostEqual, 5.4, 1e-9)
	test.That(t, len(floors[1].Boundary.Corners), test.ShouldEqual, 4)
}
