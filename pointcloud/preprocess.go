package pointcloud

import (
	"math"
	"sort"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/buildscan/buildscan/sensor"
)

// PreprocessConfig holds the tunables for cloud cleanup.
type PreprocessConfig struct {
	// AltitudeOffsetM is a constant calibration added to every z value,
	// correcting for the scanner's height above the floor.
	AltitudeOffsetM float64 `json:"altitude_offset_m"`
	// NeighborCount is how many nearest neighbors the statistical outlier
	// filter averages over.
	NeighborCount int `json:"neighbor_count"`
	// OutlierStdDevs is how many standard deviations from the global mean
	// neighbor distance a point may sit before it is dropped.
	OutlierStdDevs float64 `json:"outlier_std_devs"`
}

// DefaultPreprocessConfig returns the standard cleanup settings.
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		AltitudeOffsetM: 0,
		NeighborCount:   10,
		OutlierStdDevs:  2.0,
	}
}

// Validate checks the config for usable values.
func (cfg PreprocessConfig) Validate() error {
	if cfg.NeighborCount < 1 {
		return errors.New("neighbor_count must be at least 1")
	}
	if cfg.OutlierStdDevs <= 0 {
		return errors.New("outlier_std_devs must be positive")
	}
	return nil
}

// Preprocessor merges raw scans into one calibrated, outlier-free cloud
// translated to a local origin.
type Preprocessor struct {
	cfg    PreprocessConfig
	logger golog.Logger
}

// NewPreprocessor returns a preprocessor with the given config.
func NewPreprocessor(cfg PreprocessConfig, logger golog.Logger) (*Preprocessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid preprocess config")
	}
	return &Preprocessor{cfg: cfg, logger: logger}, nil
}

// Process runs the full cleanup: merge, altitude calibration, statistical
// outlier removal, and normalization to the origin.
func (p *Preprocessor) Process(scans []sensor.LidarScan) *Cloud {
	merged := MergeScans(scans)
	calibrated := applyAltitudeOffset(merged, p.cfg.AltitudeOffsetM)
	filtered := RemoveStatisticalOutliers(calibrated, p.cfg.NeighborCount, p.cfg.OutlierStdDevs)
	p.logger.Debugw("preprocessed cloud",
		"scans", len(scans),
		"merged_points", merged.Size(),
		"dropped_outliers", merged.Size()-filtered.Size(),
	)
	return NormalizeToOrigin(filtered)
}

// MergeScans concatenates the points of all scans into one cloud.
func MergeScans(scans []sensor.LidarScan) *Cloud {
	total := 0
	for _, scan := range scans {
		total += len(scan.Points)
	}
	cloud := NewWithPrealloc(total)
	for _, scan := range scans {
		for _, pt := range scan.Points {
			cloud.Add(pt.Vec())
		}
	}
	return cloud
}

func applyAltitudeOffset(cloud *Cloud, offsetM float64) *Cloud {
	if offsetM == 0 {
		return cloud
	}
	out := NewWithPrealloc(cloud.Size())
	cloud.Iterate(func(p r3.Vector) bool {
		out.Add(r3.Vector{X: p.X, Y: p.Y, Z: p.Z + offsetM})
		return true
	})
	return out
}

// RemoveStatisticalOutliers drops points whose mean distance to their
// neighborCount nearest neighbors deviates more than maxStdDevs standard
// deviations from the global mean of that quantity.
//
// The neighbor search is brute force, O(n²) in the cloud size. That is
// acceptable for room-scale scans but will not scale to very large
// sessions.
func RemoveStatisticalOutliers(cloud *Cloud, neighborCount int, maxStdDevs float64) *Cloud {
	n := cloud.Size()
	if n <= neighborCount+1 {
		return cloud
	}

	points := cloud.Points()
	meanDists := make([]float64, n)
	distRow := make([]float64, 0, n-1)
	for i, pt := range points {
		distRow = distRow[:0]
		for j, other := range points {
			if i == j {
				continue
			}
			distRow = append(distRow, pt.Sub(other).Norm())
		}
		sort.Float64s(distRow)
		sum := 0.0
		for k := 0; k < neighborCount; k++ {
			sum += distRow[k]
		}
		meanDists[i] = sum / float64(neighborCount)
	}

	// errors only occur on empty input, which is excluded above
	globalMean, _ := stats.Mean(meanDists)
	stdDev, _ := stats.StandardDeviation(meanDists)

	out := NewWithPrealloc(n)
	for i, pt := range points {
		if stdDev == 0 || math.Abs(meanDists[i]-globalMean) <= maxStdDevs*stdDev {
			out.Add(pt)
		}
	}
	return out
}

// NormalizeToOrigin translates all points so the bounding-box minimum sits
// at the origin.
func NormalizeToOrigin(cloud *Cloud) *Cloud {
	if cloud.Size() == 0 {
		return cloud
	}
	meta := cloud.MetaData()
	min := r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}
	out := NewWithPrealloc(cloud.Size())
	cloud.Iterate(func(p r3.Vector) bool {
		out.Add(p.Sub(min))
		return true
	})
	return out
}
