// Package sensor defines the raw sample types produced by the handheld
// capture device, one case per sensor kind, plus the session fault log.
package sensor

import (
	"encoding/json"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Kind identifies which sensor produced a reading.
type Kind int

// The supported sensor kinds. KindSession is reserved for faults raised by
// the pipeline itself rather than a physical sensor.
const (
	KindGNSS Kind = iota
	KindBarometer
	KindIMU
	KindLidar
	KindSession
)

func (k Kind) String() string {
	switch k {
	case KindGNSS:
		return "gnss"
	case KindBarometer:
		return "barometer"
	case KindIMU:
		return "imu"
	case KindLidar:
		return "lidar"
	case KindSession:
		return "session"
	default:
		return "unknown"
	}
}

// MarshalJSON renders a Kind as its string name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON parses the string name form written by MarshalJSON.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "gnss":
		*k = KindGNSS
	case "barometer":
		*k = KindBarometer
	case "imu":
		*k = KindIMU
	case "lidar":
		*k = KindLidar
	case "session":
		*k = KindSession
	default:
		return errors.Errorf("unknown sensor kind %q", name)
	}
	return nil
}

// Reading is a sealed variant over the four raw sample shapes. The fusion
// router type-switches over it; adding a sensor kind means adding a case
// there and a type here.
type Reading interface {
	Kind() Kind
	Timestamp() int64

	isReading()
}

// MaxHorizontalAccuracyM is the worst GNSS horizontal accuracy accepted.
const MaxHorizontalAccuracyM = 10.0

// GNSSSample is a single positioning fix.
type GNSSSample struct {
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	ElevationM          float64 `json:"elevation_m"`
	HorizontalAccuracyM float64 `json:"horizontal_accuracy_m"`
	TimestampMs         int64   `json:"timestamp_ms"`
}

// Kind implements Reading.
func (s GNSSSample) Kind() Kind { return KindGNSS }

// Timestamp implements Reading.
func (s GNSSSample) Timestamp() int64 { return s.TimestampMs }

func (s GNSSSample) isReading() {}

// Validate reports why the fix should be rejected, or nil to accept it.
func (s GNSSSample) Validate() error {
	if !isFinite(s.HorizontalAccuracyM) || s.HorizontalAccuracyM > MaxHorizontalAccuracyM {
		return errors.Errorf("horizontal accuracy %.1fm exceeds %.0fm", s.HorizontalAccuracyM, MaxHorizontalAccuracyM)
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return errors.Errorf("latitude %f out of range", s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return errors.Errorf("longitude %f out of range", s.Longitude)
	}
	if !isFinite(s.ElevationM) {
		return errors.New("elevation is not finite")
	}
	return nil
}

// Temperature bounds for an accepted barometric reading, degrees celsius.
const (
	MinTemperatureC = -20.0
	MaxTemperatureC = 50.0
)

// BarometricSample is a single pressure altimeter reading.
type BarometricSample struct {
	PressureHPa       float64 `json:"pressure_hpa"`
	TemperatureC      float64 `json:"temperature_c"`
	RelativeAltitudeM float64 `json:"relative_altitude_m"`
	TimestampMs       int64   `json:"timestamp_ms"`
}

// Kind implements Reading.
func (s BarometricSample) Kind() Kind { return KindBarometer }

// Timestamp implements Reading.
func (s BarometricSample) Timestamp() int64 { return s.TimestampMs }

func (s BarometricSample) isReading() {}

// Validate reports why the reading should be rejected, or nil to accept it.
func (s BarometricSample) Validate() error {
	if !isFinite(s.PressureHPa) || s.PressureHPa <= 0 {
		return errors.Errorf("pressure %f is not positive", s.PressureHPa)
	}
	if s.TemperatureC < MinTemperatureC || s.TemperatureC > MaxTemperatureC {
		return errors.Errorf("temperature %.1fC outside [%.0f, %.0f]", s.TemperatureC, MinTemperatureC, MaxTemperatureC)
	}
	if !isFinite(s.RelativeAltitudeM) {
		return errors.New("relative altitude is not finite")
	}
	return nil
}

// EulerAngles is a device attitude in radians.
type EulerAngles struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

// InertialSample is one IMU tick: body-frame acceleration and angular rate
// plus the fused attitude reported by the device.
type InertialSample struct {
	Acceleration r3.Vector   `json:"acceleration"`
	Gyro         r3.Vector   `json:"gyro"`
	Magnetometer *r3.Vector  `json:"magnetometer,omitempty"`
	Orientation  EulerAngles `json:"orientation"`
	TimestampMs  int64       `json:"timestamp_ms"`
}

// Kind implements Reading.
func (s InertialSample) Kind() Kind { return KindIMU }

// Timestamp implements Reading.
func (s InertialSample) Timestamp() int64 { return s.TimestampMs }

func (s InertialSample) isReading() {}

// Validate reports why the sample should be rejected, or nil to accept it.
func (s InertialSample) Validate() error {
	if !finiteVec(s.Acceleration) {
		return errors.New("acceleration is not finite")
	}
	if !finiteVec(s.Gyro) {
		return errors.New("gyro is not finite")
	}
	if s.Magnetometer != nil && !finiteVec(*s.Magnetometer) {
		return errors.New("magnetometer is not finite")
	}
	if !isFinite(s.Orientation.Pitch) || !isFinite(s.Orientation.Roll) || !isFinite(s.Orientation.Yaw) {
		return errors.New("orientation is not finite")
	}
	return nil
}

// LidarPoint is one range return in the scanner frame, meters.
type LidarPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Intensity float64 `json:"intensity,omitempty"`
}

// Vec returns the point position as an r3.Vector.
func (p LidarPoint) Vec() r3.Vector { return r3.Vector{X: p.X, Y: p.Y, Z: p.Z} }

// LidarScan is a full sweep of range returns. ScanID is the upsert key; a
// scan resubmitted with the same id replaces the earlier version.
type LidarScan struct {
	ScanID      string       `json:"scan_id"`
	Points      []LidarPoint `json:"points"`
	TimestampMs int64        `json:"timestamp_ms"`
}

// Kind implements Reading.
func (s LidarScan) Kind() Kind { return KindLidar }

// Timestamp implements Reading.
func (s LidarScan) Timestamp() int64 { return s.TimestampMs }

func (s LidarScan) isReading() {}

// Validate reports why the scan should be rejected, or nil to accept it.
func (s LidarScan) Validate() error {
	if s.ScanID == "" {
		return errors.New("scan id is empty")
	}
	if len(s.Points) == 0 {
		return errors.New("scan has no points")
	}
	for i, pt := range s.Points {
		if !isFinite(pt.X) || !isFinite(pt.Y) || !isFinite(pt.Z) {
			return errors.Errorf("point %d is not finite", i)
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteVec(v r3.Vector) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}
