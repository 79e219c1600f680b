package segmentation

import (
	"math"
	"sort"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"github.com/pkg/errors"

	"github.com/buildscan/buildscan/building"
	"github.com/buildscan/buildscan/pointcloud"
	"github.com/buildscan/buildscan/utils"
)

// FloorSegment is one height bucket of a cloud: the points whose
// round(z / floorHeight) equals Index.
type FloorSegment struct {
	Index      int
	ElevationM float64
	Points     []r3.Vector
}

// SegmentByHeight buckets a cloud's points into floor segments by
// round(z / floorHeightM), returned in ascending floor order.
func SegmentByHeight(cloud *pointcloud.Cloud, floorHeightM float64) []FloorSegment {
	buckets := map[int][]r3.Vector{}
	cloud.Iterate(func(p r3.Vector) bool {
		idx := int(math.Round(p.Z / floorHeightM))
		buckets[idx] = append(buckets[idx], p)
		return true
	})

	indices := make([]int, 0, len(buckets))
	for idx := range buckets {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	segments := make([]FloorSegment, 0, len(indices))
	for _, idx := range indices {
		segments = append(segments, FloorSegment{
			Index:      idx,
			ElevationM: float64(idx) * floorHeightM,
			Points:     buckets[idx],
		})
	}
	return segments
}

// BaseSegmentIndex returns which story a cloud's floor-level returns sit
// on, as an offset at floorHeightM per story. Wall returns routinely fill
// the upper half of a normal-height room, so the judgment anchors on the
// lowest point: a story spans [k*h, (k+1)*h). The mapper uses this to spot
// height-cluster mismatches against the floor it believes it is on. False
// for an empty cloud.
func BaseSegmentIndex(cloud *pointcloud.Cloud, floorHeightM float64) (int, bool) {
	if cloud.Size() == 0 {
		return 0, false
	}
	return int(math.Floor(cloud.MetaData().MinZ / floorHeightM)), true
}

// ClusterElevations k-means clusters raw point heights and returns the
// sorted cluster centers. The mapper uses it to cross-check barometric
// floor elevations against what the geometry actually shows. With a single
// cluster the median height is returned directly.
func ClusterElevations(heights []float64, k int) ([]float64, error) {
	if k < 1 {
		return nil, errors.New("cluster count must be at least 1")
	}
	if len(heights) < k {
		return nil, errors.Errorf("need at least %d heights for %d clusters", k, k)
	}
	if k == 1 {
		return []float64{utils.Median(append([]float64(nil), heights...)...)}, nil
	}

	var observations clusters.Observations
	for _, h := range heights {
		observations = append(observations, clusters.Coordinates{h})
	}
	km := kmeans.New()
	result, err := km.Partition(observations, k)
	if err != nil {
		return nil, errors.Wrap(err, "clustering elevations")
	}

	centers := make([]float64, 0, len(result))
	for _, c := range result {
		centers = append(centers, c.Center[0])
	}
	sort.Float64s(centers)
	return centers, nil
}

// FloorSegmenter splits a preprocessed cloud into floors and extracts each
// floor's rooms with the shared wall detector.
type FloorSegmenter struct {
	detector     *WallDetector
	floorHeightM float64
	logger       golog.Logger
}

// NewFloorSegmenter returns a segmenter using the detector's configured
// floor height.
func NewFloorSegmenter(detector *WallDetector, logger golog.Logger) *FloorSegmenter {
	return &FloorSegmenter{
		detector:     detector,
		floorHeightM: detector.cfg.FloorHeightM,
		logger:       logger,
	}
}

// SegmentedFloor is one floor recovered from a whole-session cloud.
type SegmentedFloor struct {
	Index      int
	ElevationM float64
	Boundary   building.Boundary
	Quality    Quality
}

// Segment buckets the cloud by height and runs wall extraction on each
// bucket. Buckets without enough structure are skipped, not errors.
func (s *FloorSegmenter) Segment(cloud *pointcloud.Cloud) []SegmentedFloor {
	var floors []SegmentedFloor
	for _, seg := range SegmentByHeight(cloud, s.floorHeightM) {
		walls := s.detector.DetectWalls(seg.Points)
		if len(walls) < 3 {
			s.logger.Debugw("floor bucket lacks wall structure", "floor_index", seg.Index, "points", len(seg.Points))
			continue
		}
		ordered := orderWallsClockwise(walls)
		corners := wallIntersections(ordered)
		if len(corners) < 3 {
			continue
		}
		maxZ := 0.0
		for _, pt := range seg.Points {
			if pt.Z > maxZ {
				maxZ = pt.Z
			}
		}
		floors = append(floors, SegmentedFloor{
			Index:      seg.Index,
			ElevationM: seg.ElevationM,
			Boundary:   building.Boundary{Corners: corners, CeilingHeightM: maxZ - seg.ElevationM},
			Quality:    fitQuality(ordered),
		})
	}
	return floors
}
