// Package mapper orchestrates a mapping session: it routes raw sensor
// readings to their processors, fuses the results into a growing Building
// aggregate, and exposes the session lifecycle.
//
// A mapper owns exactly one session at a time and processes readings
// strictly sequentially; concurrent calls require external serialization.
package mapper

import (
	"fmt"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/buildscan/buildscan/building"
	"github.com/buildscan/buildscan/pointcloud"
	"github.com/buildscan/buildscan/segmentation"
	"github.com/buildscan/buildscan/sensor"
	"github.com/buildscan/buildscan/sensor/barometer"
	"github.com/buildscan/buildscan/sensor/gnss"
	"github.com/buildscan/buildscan/sensor/imu"
	"github.com/buildscan/buildscan/sensor/lidar"
)

// State is the session lifecycle phase. Completed is terminal.
type State int

// The session states.
const (
	StateIdle State = iota
	StateMapping
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMapping:
		return "mapping"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Session state errors.
var (
	ErrNotMapping     = errors.New("no active mapping session")
	ErrAlreadyMapping = errors.New("a mapping session is already active")
	ErrCompleted      = errors.New("mapping session already completed")
)

// RoomMapper fuses per-tick sensor output into a Building aggregate. The
// aggregate is exclusively owned by the mapper until CompleteMapping
// clones and freezes it.
type RoomMapper struct {
	cfg    Config
	logger golog.Logger

	state       State
	sessionID   string
	bld         *building.Building
	transitions []building.Transition

	faults     *sensor.FaultLog
	gnssProc   *gnss.Processor
	baroProc   *barometer.Processor
	imuProc    *imu.Processor
	lidarStore *lidar.Store
	detector   *segmentation.WallDetector

	currentFloor  int
	baselineFloor int
	lastRoomID    string
	qualities     []segmentation.Quality
}

// NewRoomMapper constructs an idle mapper and its sensor processors.
func NewRoomMapper(cfg Config, logger golog.Logger) (*RoomMapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid mapper config")
	}
	detector, err := segmentation.NewWallDetector(cfg.Segmentation, logger)
	if err != nil {
		return nil, err
	}
	faults := sensor.NewFaultLog()
	return &RoomMapper{
		cfg:        cfg,
		logger:     logger,
		faults:     faults,
		gnssProc:   gnss.NewProcessor(faults, logger),
		baroProc:   barometer.NewProcessor(faults, logger),
		imuProc:    imu.NewProcessor(cfg.IMU, faults, logger),
		lidarStore: lidar.NewStore(faults, logger),
		detector:   detector,
	}, nil
}

// StartMapping opens the session and creates an empty building with one
// ground floor and a pending location.
func (m *RoomMapper) StartMapping(sessionID, name string) error {
	switch m.state {
	case StateMapping:
		return ErrAlreadyMapping
	case StateCompleted:
		return ErrCompleted
	}
	m.sessionID = sessionID
	m.bld = &building.Building{
		ID:     sessionID,
		Name:   name,
		Floors: []*building.Floor{{ElevationM: 0, Rooms: []*building.Room{}}},
	}
	m.state = StateMapping
	m.logger.Infow("mapping session started", "session_id", sessionID, "building", name)
	return nil
}

// ProcessSensorData routes any subset of sample kinds through their
// processors and folds accepted output into the building. Invalid samples
// are logged as faults and never surface as errors; only state misuse or
// an unhandled reading kind returns one.
func (m *RoomMapper) ProcessSensorData(readings ...sensor.Reading) error {
	switch m.state {
	case StateIdle:
		return ErrNotMapping
	case StateCompleted:
		return ErrCompleted
	}

	var err error
	for _, reading := range readings {
		switch s := reading.(type) {
		case sensor.GNSSSample:
			m.handleGNSS(s)
		case sensor.BarometricSample:
			m.handleBarometer(s)
		case sensor.InertialSample:
			m.imuProc.ProcessReading(s)
		case sensor.LidarScan:
			if m.lidarStore.ProcessReading(s) {
				m.handleScan(s)
			}
		default:
			err = multierr.Append(err, errors.Errorf("unhandled reading kind %q", reading.Kind()))
		}
	}
	return err
}

func (m *RoomMapper) handleGNSS(s sensor.GNSSSample) {
	m.gnssProc.ProcessReading(s)
	if m.bld.Location == nil {
		m.bld.Location = m.gnssProc.CurrentLocation()
	}
}

// handleBarometer checks the floor-change trigger against the current
// baseline before the reading shifts it.
func (m *RoomMapper) handleBarometer(s sensor.BarometricSample) {
	changed := m.baroProc.HasFloorChanged(s.PressureHPa)
	accepted := m.baroProc.ProcessReading(s)
	if accepted == nil || *accepted != s {
		return
	}
	if !changed {
		return
	}
	level, ok := m.baroProc.EstimateFloorLevel()
	if !ok {
		return
	}
	target := m.baselineFloor + level
	if target == m.currentFloor {
		return
	}
	m.switchFloor(target, s.TimestampMs)
	m.baroProc.ResetBaseline(s.PressureHPa, s.RelativeAltitudeM)
	m.baselineFloor = target
}

// switchFloor moves the session to the target floor, creating intermediate
// floors as needed, and resets dead reckoning for the new story.
func (m *RoomMapper) switchFloor(target int, timestampMs int64) {
	if target < 0 {
		target = 0
	}
	for len(m.bld.Floors) <= target {
		index := len(m.bld.Floors)
		m.bld.Floors = append(m.bld.Floors, &building.Floor{
			ElevationM: float64(index) * barometer.MetersPerFloor,
			Rooms:      []*building.Room{},
		})
	}
	m.transitions = append(m.transitions, building.Transition{
		FromRoomID:  m.lastRoomID,
		FromFloor:   m.currentFloor,
		ToFloor:     target,
		TimestampMs: timestampMs,
	})
	m.logger.Infow("floor transition", "from", m.currentFloor, "to", target)
	m.currentFloor = target
	m.lastRoomID = ""
	m.imuProc.ResetPosition()
}

// handleScan runs boundary and opening detection on an accepted scan and
// commits the result. Detection problems are recorded as faults; a panic
// inside the geometry code must not abort the walkthrough either.
func (m *RoomMapper) handleScan(scan sensor.LidarScan) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorw("room detection panicked", "scan_id", scan.ScanID, "recovered", r)
			m.faults.Append(sensor.Fault{
				Sensor:      sensor.KindLidar,
				Code:        sensor.FaultDetectionFailed,
				Message:     fmt.Sprintf("detection panic: %v", r),
				TimestampMs: scan.TimestampMs,
			})
		}
	}()

	m.checkHeightCluster(scan)

	boundary, quality, ok := m.detector.DetectBoundary(scan)
	if !ok {
		m.faults.Append(sensor.Fault{
			Sensor:      sensor.KindLidar,
			Code:        sensor.FaultDetectionFailed,
			Message:     "no room boundary found in scan",
			TimestampMs: scan.TimestampMs,
			Context:     map[string]interface{}{"scan_id": scan.ScanID},
		})
		return
	}

	doors := m.detector.DetectDoors(scan)
	windows := m.detector.DetectWindows(scan)
	m.translateToDevicePosition(&boundary, doors, windows)
	m.commitRoom(boundary, doors, windows, quality, scan.TimestampMs)
}

// checkHeightCluster opens a new floor when the scan's floor-level height
// cluster sits a story or more away from the device. Judged from the
// lowest returns, not the dominant bucket: wall points above half height
// are normal for a single-story room and must not look like a climb.
func (m *RoomMapper) checkHeightCluster(scan sensor.LidarScan) {
	cloud := pointcloud.NewWithPrealloc(len(scan.Points))
	for _, pt := range scan.Points {
		cloud.Add(pt.Vec())
	}
	offset, ok := segmentation.BaseSegmentIndex(cloud, m.cfg.Segmentation.FloorHeightM)
	if !ok || offset == 0 {
		return
	}
	m.logger.Debugw("height-cluster mismatch", "offset", offset, "scan_id", scan.ScanID)
	m.switchFloor(m.currentFloor+offset, scan.TimestampMs)
}

// translateToDevicePosition shifts room-local detection output by the
// dead-reckoned device position, so revisited rooms land near their
// earlier detections and stitching can match them.
func (m *RoomMapper) translateToDevicePosition(boundary *building.Boundary, doors, windows []building.Opening) {
	pos := m.imuProc.Position()
	if pos.X == 0 && pos.Y == 0 {
		return
	}
	for i := range boundary.Corners {
		boundary.Corners[i].X += pos.X
		boundary.Corners[i].Y += pos.Y
	}
	for i := range doors {
		doors[i].Start.X += pos.X
		doors[i].Start.Y += pos.Y
		doors[i].End.X += pos.X
		doors[i].End.Y += pos.Y
	}
	for i := range windows {
		windows[i].Start.X += pos.X
		windows[i].Start.Y += pos.Y
		windows[i].End.X += pos.X
		windows[i].End.Y += pos.Y
	}
}

// commitRoom stitches the boundary into an existing room on the current
// floor when their centroids sit within the stitch tolerance, otherwise
// appends a new room.
func (m *RoomMapper) commitRoom(
	boundary building.Boundary,
	doors, windows []building.Opening,
	quality segmentation.Quality,
	timestampMs int64,
) {
	m.qualities = append(m.qualities, quality)
	floor := m.bld.Floors[m.currentFloor]

	centroid := boundary.Centroid()
	for _, room := range floor.Rooms {
		existing := room.Boundary.Centroid()
		dx, dy := centroid.X-existing.X, centroid.Y-existing.Y
		if dx*dx+dy*dy <= m.cfg.StitchToleranceM*m.cfg.StitchToleranceM {
			room.Absorb(boundary, doors, windows)
			if m.lastRoomID != room.ID {
				m.recordRoomTransition(room.ID, timestampMs)
			}
			m.logger.Debugw("stitched boundary into existing room", "room_id", room.ID)
			return
		}
	}

	room := &building.Room{
		ID:             uuid.NewString(),
		FloorIndex:     m.currentFloor,
		Boundary:       boundary,
		Doors:          doors,
		Windows:        windows,
		CeilingHeightM: boundary.CeilingHeightM,
	}
	floor.Rooms = append(floor.Rooms, room)
	m.recordRoomTransition(room.ID, timestampMs)
	m.imuProc.ResetPosition()
	m.logger.Infow("room committed",
		"room_id", room.ID,
		"floor", m.currentFloor,
		"corners", len(boundary.Corners),
		"doors", len(doors),
		"windows", len(windows),
	)
}

func (m *RoomMapper) recordRoomTransition(toRoomID string, timestampMs int64) {
	m.transitions = append(m.transitions, building.Transition{
		FromRoomID:  m.lastRoomID,
		ToRoomID:    toRoomID,
		FromFloor:   m.currentFloor,
		ToFloor:     m.currentFloor,
		TimestampMs: timestampMs,
	})
	m.lastRoomID = toRoomID
}

// CompleteMapping freezes the session and returns an immutable building
// map. The mapper cannot be restarted afterwards.
func (m *RoomMapper) CompleteMapping() (*building.BuildingMap, error) {
	switch m.state {
	case StateIdle:
		return nil, ErrNotMapping
	case StateCompleted:
		return nil, ErrCompleted
	}
	m.state = StateCompleted
	m.logger.Infow("mapping session completed",
		"session_id", m.sessionID,
		"floors", len(m.bld.Floors),
		"rooms", m.bld.RoomCount(),
		"faults", m.faults.Len(),
	)
	return &building.BuildingMap{
		Building:    m.bld.Clone(),
		Transitions: append([]building.Transition(nil), m.transitions...),
	}, nil
}

// Snapshot returns a deep copy of the in-progress building map. It fails
// unless a session is active.
func (m *RoomMapper) Snapshot() (*building.BuildingMap, error) {
	if m.state != StateMapping {
		return nil, ErrNotMapping
	}
	return &building.BuildingMap{
		Building:    m.bld.Clone(),
		Transitions: append([]building.Transition(nil), m.transitions...),
	}, nil
}

// State returns the current session state. Safe in any state.
func (m *RoomMapper) State() State {
	return m.state
}

// Faults returns a copy of all recorded faults. Safe in any state.
func (m *RoomMapper) Faults() []sensor.Fault {
	return m.faults.All()
}

// SessionID returns the active or completed session id.
func (m *RoomMapper) SessionID() string {
	return m.sessionID
}

// Scans returns every accepted lidar scan of the session.
func (m *RoomMapper) Scans() []sensor.LidarScan {
	return m.lidarStore.All()
}

// Qualities returns the fit quality of every committed detection.
func (m *RoomMapper) Qualities() []segmentation.Quality {
	return append([]segmentation.Quality(nil), m.qualities...)
}
