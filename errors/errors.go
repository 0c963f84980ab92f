package errors

import "fmt"

// ParseError wraps a specific error with context about where it occurred.
type ParseError struct {
	Line   int
	Record []string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v (record: %v)", e.Line, e.Err, e.Record)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Ingestion errors
var (
	ErrInvalidFieldCount = fmt.Errorf("invalid field count")
	ErrEmptyRecord       = fmt.Errorf("empty record")
	ErrMissingArrival    = fmt.Errorf("missing arrival timestamp")
	ErrInvalidTimestamp  = fmt.Errorf("invalid timestamp")
	ErrMissingService    = fmt.Errorf("missing service")
	ErrInvalidWorker     = fmt.Errorf("invalid worker id")
	ErrInvalidActivity   = fmt.Errorf("invalid activity id")
	ErrInconsistentTimes = fmt.Errorf("inconsistent call timestamps")
	ErrWaitOutOfRange    = fmt.Errorf("wait time out of range")
)

// Replay errors
var (
	ErrNoCalls       = fmt.Errorf("no valid call records")
	ErrUnschedulable = fmt.Errorf("unschedulable event time")
	ErrInvalidConfig = fmt.Errorf("invalid config")
)
