// Package tperror defines the error kinds shared across the urban-centre,
// population, OD-batching and accessibility stages.
package tperror

import "fmt"

// Kind classifies a failure mode so callers can switch on it with errors.As
// instead of matching strings.
type Kind int

// Error kinds, one per failure mode in the pipeline's contract.
const (
	// InputNotFound means a referenced file or directory is missing.
	InputNotFound Kind = iota
	// FormatMismatch means a file's extension, magic bytes or schema did
	// not match what was expected.
	FormatMismatch
	// CRSMismatch means two inputs carry different coordinate reference
	// systems in a context where no reprojection is performed.
	CRSMismatch
	// EmptyWindow means a raster clip produced no data.
	EmptyWindow
	// ThresholdRejectsAll means no cell or cluster survived a threshold.
	ThresholdRejectsAll
	// SeedOutside means the urban-centre seed point fell outside the
	// raster window.
	SeedOutside
	// SeedUnassigned means the urban-centre seed point fell on a cell
	// that was discarded by an earlier filter.
	SeedUnassigned
	// RoutingOutOfRange means the requested departure time fell outside
	// the routing engine's timetable coverage.
	RoutingOutOfRange
	// CardinalityViolation means an internal join that was assumed to be
	// 1-to-1 observed duplicates.
	CardinalityViolation
	// UnsupportedUnits means a metric-only operation received non-metric
	// units.
	UnsupportedUnits
)

var kindNames = map[Kind]string{
	InputNotFound:        "InputNotFound",
	FormatMismatch:       "FormatMismatch",
	CRSMismatch:          "CRSMismatch",
	EmptyWindow:          "EmptyWindow",
	ThresholdRejectsAll:  "ThresholdRejectsAll",
	SeedOutside:          "SeedOutside",
	SeedUnassigned:       "SeedUnassigned",
	RoutingOutOfRange:    "RoutingOutOfRange",
	CardinalityViolation: "CardinalityViolation",
	UnsupportedUnits:     "UnsupportedUnits",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// Error is the single error type returned by this module's public API. It
// carries the failure Kind plus the offending parameter name and value, as
// required by spec's error-handling design.
type Error struct {
	Kind  Kind
	Op    string // the operation that failed, e.g. "urbancentre.Extract"
	Param string // the parameter name implicated, if any
	Value string // the offending value, formatted, if any
	Err   error  // wrapped cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Param != "" {
		msg += fmt.Sprintf(" (param=%s", e.Param)
		if e.Value != "" {
			msg += fmt.Sprintf(", value=%s", e.Value)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, tperror.New("", tperror.SeedOutside)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error for the given operation and kind.
func New(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// WithParam sets the offending parameter name and formatted value.
func (e *Error) WithParam(name string, value interface{}) *Error {
	e.Param = name
	e.Value = fmt.Sprintf("%v", value)
	return e
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}
