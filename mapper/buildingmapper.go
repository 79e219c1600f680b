package mapper

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/buildscan/buildscan/building"
	"github.com/buildscan/buildscan/geometry"
	"github.com/buildscan/buildscan/pointcloud"
	"github.com/buildscan/buildscan/segmentation"
	"github.com/buildscan/buildscan/sensor"
)

// Exporter persists the artifacts of a session. Implementations decide
// the serialization format and layout under the output directory.
type Exporter interface {
	Export(ctx context.Context, outputDir string, artifacts *Artifacts) error
	ExportFaults(ctx context.Context, path string, faults []sensor.Fault) error
}

// Metadata summarizes a finished or in-progress session.
type Metadata struct {
	SessionID               string    `json:"session_id"`
	BuildingName            string    `json:"building_name"`
	PointCount              int       `json:"point_count"`
	RoomCount               int       `json:"room_count"`
	FloorCount              int       `json:"floor_count"`
	FaultCount              int       `json:"fault_count"`
	AccuracyEstimate        float64   `json:"accuracy_estimate"`
	FloorElevationEstimates []float64 `json:"floor_elevation_estimates,omitempty"`
	// StructuralSegments counts the height buckets of the whole-session
	// cloud holding recoverable room structure. Buckets are half-story
	// sized, so a fully scanned story typically contributes two; fewer
	// segments than mapped floors means a floor lacks wall coverage.
	StructuralSegments int `json:"structural_segments"`
	Partial                 bool      `json:"partial"`
	GeneratedAtMs           int64     `json:"generated_at_ms"`
}

// Artifacts is everything a session produces: the map, its derived
// geometry, and summary metadata.
type Artifacts struct {
	Map      *building.BuildingMap `json:"map"`
	Sketch   *geometry.Sketch2D    `json:"sketch"`
	Model    *geometry.Model3D     `json:"model"`
	Metadata Metadata              `json:"metadata"`
}

// BuildingMapper is the top-level entry point. It drives a RoomMapper
// through the session, derives the 2D sketch and 3D model on completion,
// and delegates persistence to an Exporter.
type BuildingMapper struct {
	cfg          Config
	logger       golog.Logger
	room         *RoomMapper
	preprocessor *pointcloud.Preprocessor
	builder      *geometry.Builder
	segmenter    *segmentation.FloorSegmenter
	exporter     Exporter
}

// NewBuildingMapper wires a mapper around the given exporter. The exporter
// may be nil, in which case completion still returns artifacts but
// persists nothing.
func NewBuildingMapper(cfg Config, exporter Exporter, logger golog.Logger) (*BuildingMapper, error) {
	room, err := NewRoomMapper(cfg, logger)
	if err != nil {
		return nil, err
	}
	preprocessor, err := pointcloud.NewPreprocessor(cfg.Preprocess, logger)
	if err != nil {
		return nil, err
	}
	builder, err := geometry.NewBuilder(cfg.Geometry, logger)
	if err != nil {
		return nil, err
	}
	detector, err := segmentation.NewWallDetector(cfg.Segmentation, logger)
	if err != nil {
		return nil, err
	}
	return &BuildingMapper{
		cfg:          cfg,
		logger:       logger,
		room:         room,
		preprocessor: preprocessor,
		builder:      builder,
		segmenter:    segmentation.NewFloorSegmenter(detector, logger),
		exporter:     exporter,
	}, nil
}

// StartMapping opens a new session.
func (m *BuildingMapper) StartMapping(sessionID, name string) error {
	return m.room.StartMapping(sessionID, name)
}

// ProcessSensorData feeds one tick of readings into the session.
func (m *BuildingMapper) ProcessSensorData(readings ...sensor.Reading) error {
	return m.room.ProcessSensorData(readings...)
}

// CompleteMapping finalizes the session, builds all artifacts, and asks
// the exporter to persist them under outputDir. An export failure is
// recorded as a fault and logged but never invalidates the returned
// artifacts; the caller still holds the completed map.
func (m *BuildingMapper) CompleteMapping(ctx context.Context, outputDir string) (*Artifacts, error) {
	bm, err := m.room.CompleteMapping()
	if err != nil {
		return nil, err
	}
	artifacts := m.buildArtifacts(bm, false)
	if m.exporter != nil && outputDir != "" {
		if err := m.exporter.Export(ctx, outputDir, artifacts); err != nil {
			m.logger.Errorw("artifact export failed", "dir", outputDir, "error", err)
			m.room.faults.Append(sensor.Fault{
				Sensor:      sensor.KindSession,
				Code:        sensor.FaultExportFailed,
				Message:     err.Error(),
				TimestampMs: time.Now().UnixMilli(),
			})
			artifacts.Metadata.FaultCount = m.room.faults.Len()
		}
	}
	return artifacts, nil
}

// ExportCurrentState writes a partial snapshot of the in-progress session.
// It fails when no session is active or the export itself fails.
func (m *BuildingMapper) ExportCurrentState(ctx context.Context, outputDir string) error {
	bm, err := m.room.Snapshot()
	if err != nil {
		return err
	}
	if m.exporter == nil {
		return errors.New("no exporter configured")
	}
	artifacts := m.buildArtifacts(bm, true)
	if err := m.exporter.Export(ctx, outputDir, artifacts); err != nil {
		m.room.faults.Append(sensor.Fault{
			Sensor:      sensor.KindSession,
			Code:        sensor.FaultExportFailed,
			Message:     err.Error(),
			TimestampMs: time.Now().UnixMilli(),
		})
		return errors.Wrap(err, "partial export failed")
	}
	return nil
}

// ExportErrorLog writes the session's fault log to the given path. Usable
// in any session state.
func (m *BuildingMapper) ExportErrorLog(ctx context.Context, path string) error {
	if m.exporter == nil {
		return errors.New("no exporter configured")
	}
	return m.exporter.ExportFaults(ctx, path, m.room.Faults())
}

// State reports the underlying session state.
func (m *BuildingMapper) State() State {
	return m.room.State()
}

// Faults returns a copy of all recorded faults.
func (m *BuildingMapper) Faults() []sensor.Fault {
	return m.room.Faults()
}

func (m *BuildingMapper) buildArtifacts(bm *building.BuildingMap, partial bool) *Artifacts {
	sketch := m.builder.BuildSketch(bm.Building)
	model := m.builder.BuildModel(bm.Building)

	pointCount := 0
	structural := 0
	var elevations []float64
	if scans := m.room.Scans(); len(scans) > 0 {
		cloud := m.preprocessor.Process(scans)
		pointCount = cloud.Size()
		elevations = m.estimateFloorElevations(cloud, len(bm.Building.Floors))
		structural = len(m.segmenter.Segment(cloud))
		if structural < len(bm.Building.Floors) {
			m.logger.Warnw("mapped floors exceed structural height segments",
				"floors", len(bm.Building.Floors),
				"structural_segments", structural,
			)
		}
	}

	return &Artifacts{
		Map:    bm,
		Sketch: sketch,
		Model:  model,
		Metadata: Metadata{
			SessionID:               m.room.SessionID(),
			BuildingName:            bm.Building.Name,
			PointCount:              pointCount,
			RoomCount:               bm.Building.RoomCount(),
			FloorCount:              len(bm.Building.Floors),
			FaultCount:              m.room.faults.Len(),
			AccuracyEstimate:        m.accuracyEstimate(),
			FloorElevationEstimates: elevations,
			StructuralSegments:      structural,
			Partial:                 partial,
			GeneratedAtMs:           time.Now().UnixMilli(),
		},
	}
}

// estimateFloorElevations cross-checks the barometric floor structure
// against the geometric point distribution.
func (m *BuildingMapper) estimateFloorElevations(cloud *pointcloud.Cloud, floorCount int) []float64 {
	if floorCount < 1 || cloud.Size() < floorCount {
		return nil
	}
	heights := make([]float64, 0, cloud.Size())
	cloud.Iterate(func(p r3.Vector) bool {
		heights = append(heights, p.Z)
		return true
	})
	centers, err := segmentation.ClusterElevations(heights, floorCount)
	if err != nil {
		m.logger.Debugw("elevation clustering failed", "error", err)
		return nil
	}
	return centers
}

// accuracyEstimate folds fit residuals and fault pressure into a single
// [0,1] confidence figure. A mean residual at the inlier threshold maps
// to zero geometric confidence.
func (m *BuildingMapper) accuracyEstimate() float64 {
	qualities := m.room.Qualities()
	if len(qualities) == 0 {
		return 0
	}
	residuals := make([]float64, 0, len(qualities))
	for _, q := range qualities {
		residuals = append(residuals, q.ResidualRMS)
	}
	base := 1 - stat.Mean(residuals, nil)/m.cfg.Segmentation.DistanceThresholdM
	penalty := 0.02 * float64(m.room.faults.Len())
	if penalty > 0.5 {
		penalty = 0.5
	}
	estimate := base - penalty
	if estimate < 0 {
		return 0
	}
	if estimate > 1 {
		return 1
	}
	return estimate
}
