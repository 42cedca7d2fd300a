package review

// InitialAnalysis is the first-pass assessment of the document.
type InitialAnalysis struct {
	Score           float64  `json:"score"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	MissingKeywords []string `json:"missingKeywords"`
}

// TechnicalOptimization covers technical skills against the target description.
type TechnicalOptimization struct {
	Score               float64  `json:"score"`
	TechnicalSkills     []string `json:"technicalSkills"`
	MissingTechnologies []string `json:"missingTechnologies"`
	Recommendations     []string `json:"recommendations"`
}

// ATSOptimization covers keyword coverage and formatting for applicant tracking systems.
type ATSOptimization struct {
	Score            float64  `json:"score"`
	Keywords         []string `json:"keywords"`
	FormattingIssues []string `json:"formattingIssues"`
	TargetSystems    []string `json:"targetSystems"`
}

// ExecutiveImpact covers leadership and quantified achievements.
type ExecutiveImpact struct {
	Score                  float64  `json:"score"`
	LeadershipHighlights   []string `json:"leadershipHighlights"`
	QuantifiedAchievements []string `json:"quantifiedAchievements"`
	Recommendations        []string `json:"recommendations"`
}

// FinalIntegration carries the final assessment and the rewritten document body.
type FinalIntegration struct {
	Score         float64  `json:"score"`
	Improvements  []string `json:"improvements"`
	RemainingGaps []string `json:"remainingGaps"`
	RewrittenText string   `json:"rewrittenText"`
}

// Result accumulates one result per executed stage. A stage field is only set once every
// earlier stage field is set.
type Result struct {
	InitialAnalysis       *InitialAnalysis       `json:"initialAnalysis,omitempty"`
	TechnicalOptimization *TechnicalOptimization `json:"technicalOptimization,omitempty"`
	ATSOptimization       *ATSOptimization       `json:"atsOptimization,omitempty"`
	ExecutiveImpact       *ExecutiveImpact       `json:"executiveImpact,omitempty"`
	FinalIntegration      *FinalIntegration      `json:"finalIntegration,omitempty"`
	CurrentStage          Stage                  `json:"currentStage"`
	OverallScore          *float64               `json:"overallScore,omitempty"`
}

// NewResult returns an empty result positioned at the first stage.
func NewResult() Result {
	return Result{CurrentStage: StageInitialAnalysis}
}

// Stage returns the stage the result is positioned at, treating an empty value as the first stage.
func (r Result) Stage() Stage {
	if r.CurrentStage == "" {
		return StageInitialAnalysis
	}
	return r.CurrentStage
}

// Done reports whether every stage has run.
func (r Result) Done() bool {
	return r.Stage() == StageDone
}

// Has reports whether the result for stage is recorded.
func (r Result) Has(stage Stage) bool {
	switch stage {
	case StageInitialAnalysis:
		return r.InitialAnalysis != nil
	case StageTechnicalOptimization:
		return r.TechnicalOptimization != nil
	case StageATSOptimization:
		return r.ATSOptimization != nil
	case StageExecutiveImpact:
		return r.ExecutiveImpact != nil
	case StageFinalIntegration:
		return r.FinalIntegration != nil
	}
	return false
}

// StageScore returns the score recorded for stage.
func (r Result) StageScore(stage Stage) (float64, bool) {
	switch stage {
	case StageInitialAnalysis:
		if r.InitialAnalysis != nil {
			return r.InitialAnalysis.Score, true
		}
	case StageTechnicalOptimization:
		if r.TechnicalOptimization != nil {
			return r.TechnicalOptimization.Score, true
		}
	case StageATSOptimization:
		if r.ATSOptimization != nil {
			return r.ATSOptimization.Score, true
		}
	case StageExecutiveImpact:
		if r.ExecutiveImpact != nil {
			return r.ExecutiveImpact.Score, true
		}
	case StageFinalIntegration:
		if r.FinalIntegration != nil {
			return r.FinalIntegration.Score, true
		}
	}
	return 0, false
}

// MeanScore averages the scores of the stages present. Missing stages are excluded.
func (r Result) MeanScore() (float64, bool) {
	var sum float64
	var n int
	for _, st := range Stages {
		if score, ok := r.StageScore(st); ok {
			sum += score
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// RewrittenText returns the final stage's document body, if any.
func (r Result) RewrittenText() string {
	if r.FinalIntegration == nil {
		return ""
	}
	return r.FinalIntegration.RewrittenText
}

// Clone returns a deep copy.
func (r Result) Clone() Result {
	out := Result{CurrentStage: r.CurrentStage}
	if r.InitialAnalysis != nil {
		v := *r.InitialAnalysis
		v.Strengths = cloneStrings(v.Strengths)
		v.Weaknesses = cloneStrings(v.Weaknesses)
		v.MissingKeywords = cloneStrings(v.MissingKeywords)
		out.InitialAnalysis = &v
	}
	if r.TechnicalOptimization != nil {
		v := *r.TechnicalOptimization
		v.TechnicalSkills = cloneStrings(v.TechnicalSkills)
		v.MissingTechnologies = cloneStrings(v.MissingTechnologies)
		v.Recommendations = cloneStrings(v.Recommendations)
		out.TechnicalOptimization = &v
	}
	if r.ATSOptimization != nil {
		v := *r.ATSOptimization
		v.Keywords = cloneStrings(v.Keywords)
		v.FormattingIssues = cloneStrings(v.FormattingIssues)
		v.TargetSystems = cloneStrings(v.TargetSystems)
		out.ATSOptimization = &v
	}
	if r.ExecutiveImpact != nil {
		v := *r.ExecutiveImpact
		v.LeadershipHighlights = cloneStrings(v.LeadershipHighlights)
		v.QuantifiedAchievements = cloneStrings(v.QuantifiedAchievements)
		v.Recommendations = cloneStrings(v.Recommendations)
		out.ExecutiveImpact = &v
	}
	if r.FinalIntegration != nil {
		v := *r.FinalIntegration
		v.Improvements = cloneStrings(v.Improvements)
		v.RemainingGaps = cloneStrings(v.RemainingGaps)
		out.FinalIntegration = &v
	}
	if r.OverallScore != nil {
		v := *r.OverallScore
		out.OverallScore = &v
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
