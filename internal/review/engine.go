package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resume-review/internal/shared/metrics"
)

// SystemMatcher selects the applicant tracking systems a target description mentions.
type SystemMatcher interface {
	SystemNames(description string) []string
}

// Input is the document under review and its context.
type Input struct {
	DocumentText      string `json:"documentText"`
	TargetDescription string `json:"targetDescription"`
	DomainTag         string `json:"domainTag"`
}

// Engine sequences the five review stages. It holds no per-review state; progress lives in
// the Result passed to each call.
type Engine struct {
	analyzer  Analyzer
	templates Templates
	systems   SystemMatcher
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithTemplates replaces the embedded stage instructions.
func WithTemplates(t Templates) Option {
	return func(e *Engine) {
		if !t.Empty() {
			e.templates = t
		}
	}
}

// WithSystemMatcher enables ATS system preselection for the ATS and final stages.
func WithSystemMatcher(m SystemMatcher) Option {
	return func(e *Engine) {
		e.systems = m
	}
}

// WithClock overrides the clock used for stage timing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine constructs an engine around analyzer.
func NewEngine(analyzer Analyzer, opts ...Option) (*Engine, error) {
	if analyzer == nil {
		return nil, errors.New("review engine: analyzer is required")
	}
	e := &Engine{
		analyzer:  analyzer,
		templates: DefaultTemplates(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// CheckStage reports whether stage may run next against acc without calling the analyzer.
func CheckStage(stage Stage, acc Result) error {
	current := acc.Stage()
	if current == StageDone {
		return ErrReviewComplete
	}
	if !stage.Runnable() {
		return fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
	for _, prereq := range stage.Prerequisites() {
		if !acc.Has(prereq) {
			return &OutOfOrderStageError{Stage: stage, Current: current, Missing: prereq}
		}
	}
	if stage != current || acc.Has(stage) {
		return &OutOfOrderStageError{Stage: stage, Current: current}
	}
	return nil
}

// RunStage runs stage against acc. acc is only modified when the stage succeeds: the stage
// result is stored and CurrentStage moves to the following stage. FinalIntegration also
// records the rewritten text and the overall score.
func (e *Engine) RunStage(ctx context.Context, stage Stage, in Input, acc *Result) error {
	if acc == nil {
		return errors.New("review engine: result is required")
	}
	if err := CheckStage(stage, *acc); err != nil {
		return err
	}

	req := Request{
		Stage:             stage,
		Instruction:       e.templates.Instruction(stage),
		DocumentText:      in.DocumentText,
		TargetDescription: in.TargetDescription,
		DomainTag:         in.DomainTag,
		Prior:             acc.Clone(),
	}
	if e.systems != nil && (stage == StageATSOptimization || stage == StageFinalIntegration) {
		req.TargetSystems = e.systems.SystemNames(in.TargetDescription)
	}

	metrics.IncStageStarted(string(stage))
	started := e.now()

	resp, err := e.analyzer.Analyze(ctx, req)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		metrics.IncStageFailed(string(stage), failureReason(err))
		return fmt.Errorf("%s: %w", stage, err)
	}

	next := acc.Clone()
	if err := e.apply(stage, resp, req, &next); err != nil {
		metrics.IncStageFailed(string(stage), failureReason(err))
		return err
	}
	next.CurrentStage = stage.Next()
	if stage == StageFinalIntegration {
		if mean, ok := next.MeanScore(); ok {
			next.OverallScore = &mean
		}
	}

	*acc = next
	metrics.IncStageCompleted(string(stage))
	metrics.ObserveStageDurationMs(string(stage), float64(e.now().Sub(started).Microseconds())/1000.0)
	return nil
}

// Next runs the stage acc is positioned at and returns it.
func (e *Engine) Next(ctx context.Context, in Input, acc *Result) (Stage, error) {
	if acc == nil {
		return "", errors.New("review engine: result is required")
	}
	stage := acc.Stage()
	if stage == StageDone {
		return stage, ErrReviewComplete
	}
	return stage, e.RunStage(ctx, stage, in, acc)
}

// RunCompleteReview runs every stage in order, stopping at the first failure. On failure the
// result holds the stages completed before it.
func (e *Engine) RunCompleteReview(ctx context.Context, in Input) (Result, error) {
	acc := NewResult()
	for !acc.Done() {
		if _, err := e.Next(ctx, in, &acc); err != nil {
			return acc, err
		}
	}
	return acc, nil
}

func (e *Engine) apply(stage Stage, resp Response, req Request, acc *Result) error {
	obj := resp.Structured
	jsonEnd := -1
	if len(obj) == 0 {
		if resp.Raw == "" {
			return malformed(stage, "empty response", nil)
		}
		var err error
		obj, jsonEnd, err = ExtractStructured(resp.Raw)
		if err != nil {
			return malformed(stage, "structured result not found", err)
		}
	}

	decoded, err := decodeStage(stage, obj)
	if err != nil {
		return err
	}

	switch v := decoded.(type) {
	case *InitialAnalysis:
		acc.InitialAnalysis = v
	case *TechnicalOptimization:
		acc.TechnicalOptimization = v
	case *ATSOptimization:
		if len(v.TargetSystems) == 0 {
			v.TargetSystems = cloneStrings(req.TargetSystems)
		}
		acc.ATSOptimization = v
	case *ExecutiveImpact:
		acc.ExecutiveImpact = v
	case *FinalIntegration:
		text := resp.RewrittenText
		if text == "" {
			text = ExtractRewrittenText(resp.Raw, obj, jsonEnd)
		}
		if text == "" {
			return malformed(stage, "rewritten document not found", nil)
		}
		v.RewrittenText = text
		acc.FinalIntegration = v
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "analyzer"
	}
}
