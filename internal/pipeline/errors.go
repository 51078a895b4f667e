package pipeline

import "fmt"

// Stage names used in errors and logs.
const (
	StageClean     = "clean"
	StageStructure = "structure"
	StageExtract   = "extract"
)

// TransformError reports a failed transformer call for one unit of work:
// the whole document in the clean stage, a chunk in the structure stage or
// a group in the extract stage.
type TransformError struct {
	Stage string
	Index int
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: transform of unit %d failed: %v", e.Stage, e.Index, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// ParseError reports a group whose response held no recoverable JSON array.
type ParseError struct {
	Group   int
	Preview string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("extract: group %d: no JSON array in response %q: %v", e.Group, e.Preview, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports one rejected record.
type ValidationError struct {
	Group  int
	Record int
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("extract: group %d record %d rejected: %v", e.Group, e.Record, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
