package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var errNoJSONObject = errors.New("no JSON object found")

var (
	rewrittenStart = regexp.MustCompile(`(?im)^[ \t]*[-=#*>]*[ \t]*(?:optimized|rewritten|revised)[ \t]+(?:resume|document|cv)[ \t]*[-=#*:]*[ \t]*$`)
	rewrittenEnd   = regexp.MustCompile(`(?im)^[ \t]*[-=#*>]*[ \t]*end[ \t]+(?:of[ \t]+)?(?:optimized|rewritten|revised)[ \t]+(?:resume|document|cv)[ \t]*[-=#*]*[ \t]*$`)
)

// rewrittenKeys are JSON fields that may carry the rewritten document inside the structured object.
var rewrittenKeys = []string{"rewrittenText", "optimizedDocument", "optimizedResume", "optimized_resume", "rewritten_text"}

// ExtractStructured returns the first complete JSON object in raw and the byte offset just past it.
func ExtractStructured(raw string) (json.RawMessage, int, error) {
	start := strings.IndexByte(raw, '{')
	for start >= 0 {
		dec := json.NewDecoder(strings.NewReader(raw[start:]))
		var obj json.RawMessage
		if err := dec.Decode(&obj); err == nil && len(obj) > 0 && obj[0] == '{' {
			return obj, start + int(dec.InputOffset()), nil
		}
		next := strings.IndexByte(raw[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, -1, errNoJSONObject
}

// ExtractRewrittenText pulls the rewritten document body out of a final-stage response.
// Lookup order: an explicit "OPTIMIZED RESUME" style delimiter block in raw, then a string
// field of the structured object, then whatever follows the JSON object (jsonEnd) in raw.
// The heuristic is a placeholder contract; callers must treat an empty result as malformed.
func ExtractRewrittenText(raw string, structured json.RawMessage, jsonEnd int) string {
	if loc := rewrittenStart.FindStringIndex(raw); loc != nil {
		body := raw[loc[1]:]
		if end := rewrittenEnd.FindStringIndex(body); end != nil {
			body = body[:end[0]]
		}
		if text := stripFences(body); text != "" {
			return text
		}
	}

	if len(structured) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(structured, &fields); err == nil {
			for _, key := range rewrittenKeys {
				rawVal, ok := fields[key]
				if !ok {
					continue
				}
				var text string
				if err := json.Unmarshal(rawVal, &text); err == nil && strings.TrimSpace(text) != "" {
					return strings.TrimSpace(text)
				}
			}
		}
	}

	if jsonEnd >= 0 && jsonEnd <= len(raw) {
		return stripFences(raw[jsonEnd:])
	}
	return ""
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

type fieldKind int

const (
	scoreField fieldKind = iota
	listField
)

type resultField struct {
	name string
	kind fieldKind
}

var stageFields = map[Stage][]resultField{
	StageInitialAnalysis: {
		{"score", scoreField}, {"strengths", listField}, {"weaknesses", listField}, {"missingKeywords", listField},
	},
	StageTechnicalOptimization: {
		{"score", scoreField}, {"technicalSkills", listField}, {"missingTechnologies", listField}, {"recommendations", listField},
	},
	StageATSOptimization: {
		{"score", scoreField}, {"keywords", listField}, {"formattingIssues", listField},
	},
	StageExecutiveImpact: {
		{"score", scoreField}, {"leadershipHighlights", listField}, {"quantifiedAchievements", listField}, {"recommendations", listField},
	},
	StageFinalIntegration: {
		{"score", scoreField}, {"improvements", listField}, {"remainingGaps", listField},
	},
}

// validateFields checks that obj is a JSON object holding every required field of stage
// with the right shape: scores are numbers in [0,100], lists are arrays of strings.
func validateFields(stage Stage, obj json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return malformed(stage, "structured result is not a JSON object", err)
	}
	for _, f := range stageFields[stage] {
		rawVal, ok := fields[f.name]
		if !ok {
			return malformed(stage, fmt.Sprintf("missing field %q", f.name), nil)
		}
		switch f.kind {
		case scoreField:
			var score float64
			if err := json.Unmarshal(rawVal, &score); err != nil {
				return malformed(stage, fmt.Sprintf("field %q is not a number", f.name), err)
			}
			if score < 0 || score > 100 {
				return malformed(stage, fmt.Sprintf("field %q out of range: %v", f.name, score), nil)
			}
		case listField:
			var list []string
			if err := json.Unmarshal(rawVal, &list); err != nil {
				return malformed(stage, fmt.Sprintf("field %q is not a list of strings", f.name), err)
			}
		}
	}
	return nil
}

// decodeStage validates obj and decodes it into the stage's typed result.
func decodeStage(stage Stage, obj json.RawMessage) (any, error) {
	if err := validateFields(stage, obj); err != nil {
		return nil, err
	}
	var (
		out any
		err error
	)
	switch stage {
	case StageInitialAnalysis:
		var v InitialAnalysis
		err = json.Unmarshal(obj, &v)
		out = &v
	case StageTechnicalOptimization:
		var v TechnicalOptimization
		err = json.Unmarshal(obj, &v)
		out = &v
	case StageATSOptimization:
		var v ATSOptimization
		err = json.Unmarshal(obj, &v)
		out = &v
	case StageExecutiveImpact:
		var v ExecutiveImpact
		err = json.Unmarshal(obj, &v)
		out = &v
	case StageFinalIntegration:
		var v FinalIntegration
		err = json.Unmarshal(obj, &v)
		out = &v
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
	if err != nil {
		return nil, malformed(stage, "structured result does not match stage shape", err)
	}
	return out, nil
}
