package review

import (
	"fmt"
	"strings"
)

// Stage identifies one step of the review pipeline.
type Stage string

const (
	StageInitialAnalysis       Stage = "initial_analysis"
	StageTechnicalOptimization Stage = "technical_optimization"
	StageATSOptimization       Stage = "ats_optimization"
	StageExecutiveImpact       Stage = "executive_impact"
	StageFinalIntegration      Stage = "final_integration"
	StageDone                  Stage = "done"
)

// Stages lists the runnable stages in execution order.
var Stages = []Stage{
	StageInitialAnalysis,
	StageTechnicalOptimization,
	StageATSOptimization,
	StageExecutiveImpact,
	StageFinalIntegration,
}

var stageTitles = map[Stage]string{
	StageInitialAnalysis:       "Initial Analysis",
	StageTechnicalOptimization: "Technical Optimization",
	StageATSOptimization:       "ATS Optimization",
	StageExecutiveImpact:       "Executive Impact",
	StageFinalIntegration:      "Final Integration",
	StageDone:                  "Done",
}

// Index returns the position of s in the pipeline. Done is len(Stages); unknown stages are -1.
func (s Stage) Index() int {
	if s == StageDone {
		return len(Stages)
	}
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Runnable reports whether s is one of the five executable stages.
func (s Stage) Runnable() bool {
	i := s.Index()
	return i >= 0 && i < len(Stages)
}

// Next returns the stage that follows s. Done and unknown stages return Done.
func (s Stage) Next() Stage {
	i := s.Index()
	if i < 0 || i+1 >= len(Stages) {
		return StageDone
	}
	return Stages[i+1]
}

// Prerequisites returns the stages whose results must exist before s runs.
func (s Stage) Prerequisites() []Stage {
	i := s.Index()
	if i <= 0 {
		return nil
	}
	if i > len(Stages) {
		i = len(Stages)
	}
	return append([]Stage(nil), Stages[:i]...)
}

// Title returns a human readable stage name.
func (s Stage) Title() string {
	if t, ok := stageTitles[s]; ok {
		return t
	}
	return string(s)
}

func (s Stage) String() string { return string(s) }

// ParseStage accepts stage ids in snake, kebab or camel case.
func ParseStage(raw string) (Stage, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "initial_analysis", "initialanalysis":
		return StageInitialAnalysis, nil
	case "technical_optimization", "technicaloptimization":
		return StageTechnicalOptimization, nil
	case "ats_optimization", "atsoptimization":
		return StageATSOptimization, nil
	case "executive_impact", "executiveimpact":
		return StageExecutiveImpact, nil
	case "final_integration", "finalintegration":
		return StageFinalIntegration, nil
	case "done":
		return StageDone, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, raw)
}
