package sensor

// FaultCode classifies a fault for downstream triage.
type FaultCode string

// Fault codes appended by the pipeline.
const (
	FaultRejectedSample  FaultCode = "rejected_sample"
	FaultDetectionFailed FaultCode = "detection_failed"
	FaultExportFailed    FaultCode = "export_failed"
)

// Fault records a recovered problem during a mapping session. Faults are
// logged and accumulated; they never propagate as errors across the
// session boundary.
type Fault struct {
	Sensor      Kind                   `json:"sensor"`
	Code        FaultCode              `json:"code"`
	Message     string                 `json:"message"`
	TimestampMs int64                  `json:"timestamp_ms"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// FaultLog is an append-only list of faults for one mapping session. It is
// owned by the session and not safe for concurrent use, matching the
// sequential processing model.
type FaultLog struct {
	faults []Fault
}

// NewFaultLog returns an empty fault log.
func NewFaultLog() *FaultLog {
	return &FaultLog{}
}

// Append adds a fault to the log.
func (l *FaultLog) Append(f Fault) {
	l.faults = append(l.faults, f)
}

// Reject is a convenience for logging a rejected sample.
func (l *FaultLog) Reject(kind Kind, timestampMs int64, err error) {
	l.Append(Fault{
		Sensor:      kind,
		Code:        FaultRejectedSample,
		Message:     err.Error(),
		TimestampMs: timestampMs,
	})
}

// Len returns the number of recorded faults.
func (l *FaultLog) Len() int {
	return len(l.faults)
}

// All returns a copy of the recorded faults in append order.
func (l *FaultLog) All() []Fault {
	out := make([]Fault, len(l.faults))
	copy(out, l.faults)
	return out
}
