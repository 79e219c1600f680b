// Package lidar validates and stores point-cloud scans for a session.
package lidar

import (
	"github.com/edaniels/golog"

	"github.com/buildscan/buildscan/sensor"
)

// Store keeps every accepted scan of a session, upserted by scan id. The
// most recently accepted scan drives boundary detection; the full set
// feeds the point-cloud preprocessor.
type Store struct {
	logger golog.Logger
	faults *sensor.FaultLog

	scans    map[string]sensor.LidarScan
	order    []string
	latestID string
}

// NewStore returns an empty scan store appending faults to the given log.
func NewStore(faults *sensor.FaultLog, logger golog.Logger) *Store {
	return &Store{
		logger: logger,
		faults: faults,
		scans:  map[string]sensor.LidarScan{},
	}
}

// ProcessReading validates one scan and upserts it by id. It reports
// whether the scan was accepted.
func (s *Store) ProcessReading(scan sensor.LidarScan) bool {
	if err := scan.Validate(); err != nil {
		s.logger.Debugw("rejecting lidar scan", "error", err, "scan_id", scan.ScanID, "timestamp_ms", scan.TimestampMs)
		s.faults.Reject(sensor.KindLidar, scan.TimestampMs, err)
		return false
	}
	if _, ok := s.scans[scan.ScanID]; !ok {
		s.order = append(s.order, scan.ScanID)
	}
	s.scans[scan.ScanID] = scan
	s.latestID = scan.ScanID
	return true
}

// Latest returns the most recently accepted scan.
func (s *Store) Latest() (sensor.LidarScan, bool) {
	if s.latestID == "" {
		return sensor.LidarScan{}, false
	}
	return s.scans[s.latestID], true
}

// All returns every stored scan in first-acceptance order.
func (s *Store) All() []sensor.LidarScan {
	out := make([]sensor.LidarScan, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.scans[id])
	}
	return out
}

// Len returns the number of distinct stored scans.
func (s *Store) Len() int {
	return len(s.scans)
}
