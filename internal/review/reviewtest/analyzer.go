// Package reviewtest provides scripted analyzers for exercising the review pipeline.
package reviewtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"resume-review/internal/review"
)

// ScriptedAnalyzer answers each stage with a well-formed structured result carrying the
// configured score. The final stage also returns RewrittenText.
type ScriptedAnalyzer struct {
	Scores        map[review.Stage]float64
	RewrittenText string
	// Fail, when set, is consulted before answering; a non-nil error is returned as is.
	Fail func(req review.Request) error

	mu    sync.Mutex
	calls []review.Request
}

// NewScripted returns an analyzer answering the five stages with scores in order.
func NewScripted(rewritten string, scores ...float64) *ScriptedAnalyzer {
	a := &ScriptedAnalyzer{Scores: map[review.Stage]float64{}, RewrittenText: rewritten}
	for i, st := range review.Stages {
		if i < len(scores) {
			a.Scores[st] = scores[i]
		}
	}
	return a
}

func (a *ScriptedAnalyzer) Analyze(ctx context.Context, req review.Request) (review.Response, error) {
	a.mu.Lock()
	a.calls = append(a.calls, req)
	a.mu.Unlock()

	if a.Fail != nil {
		if err := a.Fail(req); err != nil {
			return review.Response{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return review.Response{}, err
	}
	return review.Response{Raw: StageJSON(req.Stage, a.Scores[req.Stage]), RewrittenText: a.rewritten(req.Stage)}, nil
}

func (a *ScriptedAnalyzer) rewritten(stage review.Stage) string {
	if stage != review.StageFinalIntegration {
		return ""
	}
	return a.RewrittenText
}

// Calls returns the requests received so far.
func (a *ScriptedAnalyzer) Calls() []review.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]review.Request(nil), a.calls...)
}

// StageJSON renders a minimal valid structured result for stage.
func StageJSON(stage review.Stage, score float64) string {
	var lists []string
	switch stage {
	case review.StageInitialAnalysis:
		lists = []string{"strengths", "weaknesses", "missingKeywords"}
	case review.StageTechnicalOptimization:
		lists = []string{"technicalSkills", "missingTechnologies", "recommendations"}
	case review.StageATSOptimization:
		lists = []string{"keywords", "formattingIssues"}
	case review.StageExecutiveImpact:
		lists = []string{"leadershipHighlights", "quantifiedAchievements", "recommendations"}
	case review.StageFinalIntegration:
		lists = []string{"improvements", "remainingGaps"}
	}
	var b strings.Builder
	fmt.Fprintf(&b, `{"score":%g`, score)
	for _, name := range lists {
		fmt.Fprintf(&b, `,%q:["%s item"]`, name, name)
	}
	b.WriteString("}")
	return b.String()
}
