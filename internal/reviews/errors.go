package reviews

import "errors"

var (
	ErrNotFound           = errors.New("review session not found")
	ErrInvalidInput       = errors.New("invalid review input")
	ErrQueueNotConfigured = errors.New("review queue not configured")
)

const (
	ErrorCodeAnalyzerMalformed   = "ANALYZER_MALFORMED"
	ErrorCodeStageOutOfOrder     = "STAGE_OUT_OF_ORDER"
	ErrorCodeAnalyzerUnavailable = "ANALYZER_UNAVAILABLE"
	ErrorCodeAnalyzerTimeout     = "ANALYZER_TIMEOUT"
	ErrorCodeInternal            = "INTERNAL_ERROR"
)
