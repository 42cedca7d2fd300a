package review

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfOrderStage   = errors.New("stage out of order")
	ErrMalformedResponse = errors.New("malformed analyzer response")
	ErrReviewComplete    = errors.New("review already complete")
	ErrUnknownStage      = errors.New("unknown stage")
)

// OutOfOrderStageError reports an attempt to run a stage before its prerequisites,
// or to run a stage that has already completed.
type OutOfOrderStageError struct {
	Stage   Stage
	Current Stage
	Missing Stage
}

func (e *OutOfOrderStageError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("stage %s out of order: missing result for %s (current stage %s)", e.Stage, e.Missing, e.Current)
	}
	return fmt.Sprintf("stage %s out of order: current stage is %s", e.Stage, e.Current)
}

func (e *OutOfOrderStageError) Is(target error) bool {
	return target == ErrOutOfOrderStage
}

// MalformedAnalyzerResponseError reports analyzer output that could not be parsed into the
// stage's result shape. The same stage may be run again.
type MalformedAnalyzerResponseError struct {
	Stage  Stage
	Reason string
	Err    error
}

func (e *MalformedAnalyzerResponseError) Error() string {
	msg := fmt.Sprintf("malformed analyzer response for %s: %s", e.Stage, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedAnalyzerResponseError) Unwrap() error {
	return e.Err
}

func (e *MalformedAnalyzerResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func malformed(stage Stage, reason string, err error) error {
	return &MalformedAnalyzerResponseError{Stage: stage, Reason: reason, Err: err}
}
