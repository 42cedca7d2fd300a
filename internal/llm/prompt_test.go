package llm

import (
	"strings"
	"testing"

	"resume-review/internal/review"
)

func TestBuildMessagesIncludesContext(t *testing.T) {
	score := 70.0
	prior := review.NewResult()
	prior.InitialAnalysis = &review.InitialAnalysis{Score: score}
	prior.CurrentStage = review.StageTechnicalOptimization

	msgs := BuildMessages(review.Request{
		Stage:             review.StageTechnicalOptimization,
		Instruction:       "Tighten the technical sections.",
		DocumentText:      "  Jane Doe  ",
		TargetDescription: "Senior Go engineer",
		DomainTag:         "backend",
		TargetSystems:     []string{"Workday", "Greenhouse"},
		Prior:             prior,
	})
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "JSON") {
		t.Fatalf("system prompt must request JSON: %+v", msgs[0])
	}
	if !strings.Contains(msgs[1].Content, "Technical Optimization") || !strings.Contains(msgs[1].Content, "Tighten") {
		t.Fatalf("unexpected instruction message %q", msgs[1].Content)
	}
	user := msgs[2].Content
	for _, want := range []string{"RESUME:\nJane Doe", "Senior Go engineer", "DOMAIN: backend", "Workday, Greenhouse", `"initialAnalysis"`} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, user)
		}
	}
}

func TestBuildMessagesFirstStageHasNoPrior(t *testing.T) {
	msgs := BuildMessages(review.Request{
		Stage:        review.StageInitialAnalysis,
		DocumentText: "text",
		Prior:        review.NewResult(),
	})
	user := msgs[2].Content
	if strings.Contains(user, "PRIOR STAGE RESULTS") {
		t.Fatalf("first stage should not include prior results")
	}
	if !strings.Contains(user, "(none provided)") {
		t.Fatalf("expected placeholder target description")
	}
}
