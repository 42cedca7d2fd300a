package review

import (
	"strings"
	"testing"
)

func TestExtractStructuredSkipsProse(t *testing.T) {
	raw := "Analysis {not json} follows: {\"score\": 5, \"nested\": {\"a\": 1}} trailing"
	obj, end, err := ExtractStructured(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if string(obj) != `{"score": 5, "nested": {"a": 1}}` {
		t.Fatalf("unexpected object %s", obj)
	}
	if strings.TrimSpace(raw[end:]) != "trailing" {
		t.Fatalf("unexpected remainder %q", raw[end:])
	}
}

func TestExtractStructuredNone(t *testing.T) {
	if _, _, err := ExtractStructured("no braces here"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestExtractRewrittenTextDelimited(t *testing.T) {
	raw := "{\"score\":1}\n=== OPTIMIZED RESUME ===\nSUMMARY\nNew\n=== END OPTIMIZED RESUME ===\nNotes after"
	got := ExtractRewrittenText(raw, nil, 11)
	if got != "SUMMARY\nNew" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractRewrittenTextFromField(t *testing.T) {
	obj := []byte(`{"score":1,"optimizedResume":"  SKILLS\nGo  "}`)
	got := ExtractRewrittenText(string(obj), obj, len(obj))
	if got != "SKILLS\nGo" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractRewrittenTextRemainderStripsFences(t *testing.T) {
	raw := "{\"score\":1}\n```markdown\nSUMMARY\nText\n```\n"
	got := ExtractRewrittenText(raw, nil, len(`{"score":1}`))
	if got != "SUMMARY\nText" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractRewrittenTextEmpty(t *testing.T) {
	if got := ExtractRewrittenText(`{"score":1}`, nil, -1); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestValidateFieldsATSAllowsMissingTargetSystems(t *testing.T) {
	obj := []byte(`{"score": 40, "keywords": ["go"], "formattingIssues": []}`)
	if err := validateFields(StageATSOptimization, obj); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
