package review

import (
	"context"
	"encoding/json"
)

// Request is everything an analyzer receives for one stage.
type Request struct {
	Stage             Stage
	Instruction       string
	DocumentText      string
	TargetDescription string
	DomainTag         string
	Prior             Result
	TargetSystems     []string
}

// Response is the analyzer's answer for one stage. Structured holds the stage's JSON object;
// when it is empty the object is extracted from Raw. RewrittenText is only read for
// FinalIntegration and is likewise extracted from Raw when empty.
type Response struct {
	Structured    json.RawMessage
	RewrittenText string
	Raw           string
}

// Analyzer performs the content analysis for a single stage.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Response, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, req Request) (Response, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
