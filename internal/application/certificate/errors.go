package certificate

import "fmt"

// Stage names a step of the issuance pipeline
type Stage string

const (
	StageStore   Stage = "store"
	StageRender  Stage = "render"
	StageConvert Stage = "convert"
	StagePublish Stage = "publish"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// StageError is a failure of one pipeline stage. Stages completed before the
// failure are not rolled back.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface
func (e *StageError) Error() string {
	return fmt.Sprintf("certificate %s stage failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
