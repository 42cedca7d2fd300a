package llm

import (
	_ "embed"
	"encoding/json"
	"strings"

	"resume-review/internal/review"
)

//go:embed prompts/system.txt
var systemPrompt string

// BuildMessages renders the chat prompt for one review stage: the fixed system prompt, the
// stage instruction, and the document with its context and prior results.
func BuildMessages(req review.Request) []Message {
	return []Message{
		{Role: "system", Content: strings.TrimSpace(systemPrompt)},
		{Role: "developer", Content: stageHeader(req.Stage) + "\n\n" + req.Instruction},
		{Role: "user", Content: buildUserPrompt(req)},
	}
}

func stageHeader(stage review.Stage) string {
	return "Stage: " + stage.Title() + " (" + string(stage) + ")"
}

func buildUserPrompt(req review.Request) string {
	var b strings.Builder
	b.WriteString("RESUME:\n")
	b.WriteString(strings.TrimSpace(req.DocumentText))
	b.WriteString("\n\nTARGET DESCRIPTION:\n")
	if td := strings.TrimSpace(req.TargetDescription); td != "" {
		b.WriteString(td)
	} else {
		b.WriteString("(none provided)")
	}
	if tag := strings.TrimSpace(req.DomainTag); tag != "" {
		b.WriteString("\n\nDOMAIN: ")
		b.WriteString(tag)
	}
	if len(req.TargetSystems) > 0 {
		b.WriteString("\n\nTARGET ATS SYSTEMS: ")
		b.WriteString(strings.Join(req.TargetSystems, ", "))
	}
	if prior := priorJSON(req.Prior); prior != "" {
		b.WriteString("\n\nPRIOR STAGE RESULTS (JSON):\n")
		b.WriteString(prior)
	}
	return b.String()
}

func priorJSON(prior review.Result) string {
	if !prior.Has(review.StageInitialAnalysis) {
		return ""
	}
	b, err := json.Marshal(prior)
	if err != nil {
		return ""
	}
	return string(b)
}
