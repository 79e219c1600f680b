package mapper

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/buildscan/buildscan/geometry"
	"github.com/buildscan/buildscan/pointcloud"
	"github.com/buildscan/buildscan/segmentation"
	"github.com/buildscan/buildscan/sensor/imu"
)

// DefaultStitchToleranceM is how close two boundary centroids must be,
// in meters, for their detections to be merged into one room.
const DefaultStitchToleranceM = 1.0

// Config bundles the tuning knobs of a mapping session.
type Config struct {
	Segmentation     segmentation.Config         `json:"segmentation"`
	Preprocess       pointcloud.PreprocessConfig `json:"preprocess"`
	Geometry         geometry.Config             `json:"geometry"`
	IMU              imu.Config                  `json:"imu"`
	StitchToleranceM float64                     `json:"stitch_tolerance_m"`
}

// DefaultConfig returns the configuration used when callers have no
// calibration of their own.
func DefaultConfig() Config {
	return Config{
		Segmentation:     segmentation.DefaultConfig(),
		Preprocess:       pointcloud.DefaultPreprocessConfig(),
		Geometry:         geometry.DefaultConfig(),
		StitchToleranceM: DefaultStitchToleranceM,
	}
}

// Validate checks every nested section.
func (cfg Config) Validate() error {
	var err error
	if cfg.StitchToleranceM <= 0 {
		err = multierr.Append(err, errors.New("stitch tolerance must be positive"))
	}
	err = multierr.Append(err, cfg.Segmentation.Validate())
	err = multierr.Append(err, cfg.Preprocess.Validate())
	err = multierr.Append(err, cfg.Geometry.Validate())
	return err
}
