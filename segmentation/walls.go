// Package segmentation extracts building structure from point clouds:
// RANSAC wall fitting, room boundary assembly, opening detection, and
// floor segmentation.
package segmentation

import (
	"math"
	"math/rand"
	"sort"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/buildscan/buildscan/building"
	"github.com/buildscan/buildscan/sensor"
	"github.com/buildscan/buildscan/utils"
)

// Config holds the wall-detection tunables. Seed makes the RANSAC sampling
// reproducible; tests pin it.
type Config struct {
	// Iterations is the RANSAC sample budget per wall.
	Iterations int `json:"iterations"`
	// DistanceThresholdM is the max point-to-line distance for an inlier.
	DistanceThresholdM float64 `json:"distance_threshold_m"`
	// MinInliers is the least support a candidate needs to count as a wall.
	MinInliers int `json:"min_inliers"`
	// MinRemainingPoints stops extraction once fewer points are left.
	MinRemainingPoints int `json:"min_remaining_points"`
	// FloorHeightM is the story height used for point bucketing. This is
	// deliberately distinct from the barometric floor constant, see
	// DESIGN.md.
	FloorHeightM float64 `json:"floor_height_m"`
	// Seed seeds the RANSAC random source.
	Seed int64 `json:"seed"`
}

// DefaultConfig returns the standard detection settings.
func DefaultConfig() Config {
	return Config{
		Iterations:         100,
		DistanceThresholdM: 0.3,
		MinInliers:         10,
		MinRemainingPoints: 10,
		FloorHeightM:       2.7,
		Seed:               1,
	}
}

// Validate checks the config for usable values.
func (cfg Config) Validate() error {
	if cfg.Iterations < 1 {
		return errors.New("iterations must be at least 1")
	}
	if cfg.DistanceThresholdM <= 0 {
		return errors.New("distance_threshold_m must be positive")
	}
	if cfg.MinInliers < 2 {
		return errors.New("min_inliers must be at least 2")
	}
	if cfg.MinRemainingPoints < 2 {
		return errors.New("min_remaining_points must be at least 2")
	}
	if cfg.FloorHeightM <= 0 {
		return errors.New("floor_height_m must be positive")
	}
	return nil
}

// Wall is one fitted wall line. Anchor and Dir define the infinite line in
// the XY plane; Inliers keeps the original 3D points so opening detection
// can recover sill heights.
type Wall struct {
	Anchor   r3.Vector
	Dir      r3.Vector
	Inliers  []r3.Vector
	Centroid r3.Vector
}

// distanceToLine returns the 2D perpendicular distance from p to the wall line.
func (w Wall) distanceToLine(p r3.Vector) float64 {
	return math.Abs(cross2D(w.Dir, p.Sub(w.Anchor))) / norm2D(w.Dir)
}

// project returns p's offset along the wall direction from the anchor.
func (w Wall) project(p r3.Vector) float64 {
	return dot2D(p.Sub(w.Anchor), w.Dir) / norm2D(w.Dir)
}

// pointAt returns the 2D point at offset t along the wall.
func (w Wall) pointAt(t float64) building.Point2D {
	unit := w.Dir.Mul(1 / norm2D(w.Dir))
	return building.Point2D{X: w.Anchor.X + unit.X*t, Y: w.Anchor.Y + unit.Y*t}
}

// Quality summarizes how well the walls fit the scan, feeding the session
// accuracy estimate.
type Quality struct {
	WallCount   int     `json:"wall_count"`
	InlierCount int     `json:"inlier_count"`
	ResidualRMS float64 `json:"residual_rms"`
}

// WallDetector finds walls in a scan's 2D projection via RANSAC line fitting.
type WallDetector struct {
	cfg    Config
	random *rand.Rand
	logger golog.Logger
}

// NewWallDetector returns a detector with the given config.
func NewWallDetector(cfg Config, logger golog.Logger) (*WallDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid segmentation config")
	}
	return &WallDetector{
		cfg:    cfg,
		random: rand.New(rand.NewSource(cfg.Seed)),
		logger: logger,
	}, nil
}

// DetectWalls repeatedly fits the best-supported line to the remaining
// points, peeling off each wall's inliers, until too few points remain or
// no candidate has enough support. Distances use the XY projection only;
// z is carried along for later height analysis.
func (d *WallDetector) DetectWalls(points []r3.Vector) []Wall {
	remaining := append([]r3.Vector(nil), points...)
	var walls []Wall
	for len(remaining) >= d.cfg.MinRemainingPoints {
		wall, inlierIdx, ok := d.bestLine(remaining)
		if !ok || len(inlierIdx) < d.cfg.MinInliers {
			break
		}
		walls = append(walls, wall)
		remaining = removeIndices(remaining, inlierIdx)
	}
	return walls
}

// bestLine runs the RANSAC sample budget over the given points and returns
// the best-supported line with its inlier indices.
func (d *WallDetector) bestLine(points []r3.Vector) (Wall, []int, bool) {
	n := len(points)
	if n < 2 {
		return Wall{}, nil, false
	}

	var bestAnchor, bestDir r3.Vector
	bestInliers := -1
	for i := 0; i < d.cfg.Iterations; i++ {
		i1 := utils.SampleRandomIntRange(0, n-1, d.random)
		i2 := utils.SampleRandomIntRange(0, n-1, d.random)
		p1, p2 := points[i1], points[i2]
		dir := p2.Sub(p1)
		dir.Z = 0
		if norm2D(dir) < 1e-9 {
			continue
		}

		candidate := Wall{Anchor: p1, Dir: dir}
		inliers := 0
		for _, pt := range points {
			if candidate.distanceToLine(pt) < d.cfg.DistanceThresholdM {
				inliers++
			}
		}
		if inliers > bestInliers {
			bestAnchor, bestDir = p1, dir
			bestInliers = inliers
		}
	}
	if bestInliers < 0 {
		return Wall{}, nil, false
	}

	wall := Wall{Anchor: bestAnchor, Dir: bestDir}
	var idx []int
	var centroid r3.Vector
	for i, pt := range points {
		if wall.distanceToLine(pt) < d.cfg.DistanceThresholdM {
			idx = append(idx, i)
			wall.Inliers = append(wall.Inliers, pt)
			centroid = centroid.Add(pt)
		}
	}
	if len(idx) > 0 {
		wall.Centroid = centroid.Mul(1 / float64(len(idx)))
	}
	return wall, idx, true
}

// DetectBoundary extracts a room outline from one scan. It requires at
// least three walls; the second return reports fit quality and the third
// is false when no boundary was found.
func (d *WallDetector) DetectBoundary(scan sensor.LidarScan) (building.Boundary, Quality, bool) {
	points := scanVectors(scan)
	walls := d.DetectWalls(points)
	if len(walls) < 3 {
		d.logger.Debugw("insufficient walls for a boundary", "walls", len(walls), "scan_id", scan.ScanID)
		return building.Boundary{}, Quality{}, false
	}

	ordered := orderWallsClockwise(walls)
	corners := wallIntersections(ordered)
	if len(corners) < 3 {
		d.logger.Debugw("too many parallel wall pairs", "walls", len(walls), "corners", len(corners))
		return building.Boundary{}, Quality{}, false
	}

	maxZ := 0.0
	for _, pt := range points {
		if pt.Z > maxZ {
			maxZ = pt.Z
		}
	}

	return building.Boundary{Corners: corners, CeilingHeightM: maxZ}, fitQuality(ordered), true
}

// fitQuality computes the RMS of inlier residuals across all walls.
func fitQuality(walls []Wall) Quality {
	var squared []float64
	inliers := 0
	for _, wall := range walls {
		inliers += len(wall.Inliers)
		for _, pt := range wall.Inliers {
			squared = append(squared, utils.Square(wall.distanceToLine(pt)))
		}
	}
	q := Quality{WallCount: len(walls), InlierCount: inliers}
	if len(squared) > 0 {
		q.ResidualRMS = math.Sqrt(stat.Mean(squared, nil))
	}
	return q
}

// orderWallsClockwise sorts walls clockwise by the angle of each wall's
// centroid around the centroid of all wall centroids.
func orderWallsClockwise(walls []Wall) []Wall {
	var center r3.Vector
	for _, w := range walls {
		center = center.Add(w.Centroid)
	}
	center = center.Mul(1 / float64(len(walls)))

	ordered := append([]Wall(nil), walls...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ai := math.Atan2(ordered[i].Centroid.Y-center.Y, ordered[i].Centroid.X-center.X)
		aj := math.Atan2(ordered[j].Centroid.Y-center.Y, ordered[j].Centroid.X-center.X)
		return ai > aj
	})
	return ordered
}

// wallIntersections intersects each consecutive pair of ordered walls.
// Parallel pairs (zero denominator) contribute no corner.
func wallIntersections(walls []Wall) []building.Point2D {
	var corners []building.Point2D
	n := len(walls)
	for i := 0; i < n; i++ {
		a, b := walls[i], walls[(i+1)%n]
		denom := cross2D(a.Dir, b.Dir)
		if math.Abs(denom) < 1e-9 {
			continue
		}
		t := cross2D(b.Anchor.Sub(a.Anchor), b.Dir) / denom
		corners = append(corners, building.Point2D{
			X: a.Anchor.X + a.Dir.X*t,
			Y: a.Anchor.Y + a.Dir.Y*t,
		})
	}
	return corners
}

func scanVectors(scan sensor.LidarScan) []r3.Vector {
	out := make([]r3.Vector, 0, len(scan.Points))
	for _, pt := range scan.Points {
		out = append(out, pt.Vec())
	}
	return out
}

func removeIndices(points []r3.Vector, idx []int) []r3.Vector {
	drop := make(map[int]bool, len(idx))
	for _, i := range idx {
		drop[i] = true
	}
	out := points[:0]
	for i, pt := range points {
		if !drop[i] {
			out = append(out, pt)
		}
	}
	return out
}

func cross2D(a, b r3.Vector) float64 {
	return a.X*b.Y - a.Y*b.X
}

func dot2D(a, b r3.Vector) float64 {
	return a.X*b.X + a.Y*b.Y
}

func norm2D(v r3.Vector) float64 {
	return math.Hypot(v.X, v.Y)
}
