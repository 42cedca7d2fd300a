package review

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplatesYAML string

// Templates is the read-only table of per-stage analyzer instructions.
type Templates struct {
	instructions map[Stage]string
}

type templateFile struct {
	Stages map[string]struct {
		Instruction string `yaml:"instruction"`
	} `yaml:"stages"`
}

// NewTemplates builds a table from instructions; every runnable stage is required.
func NewTemplates(instructions map[Stage]string) (Templates, error) {
	out := Templates{instructions: make(map[Stage]string, len(Stages))}
	for _, st := range Stages {
		text := strings.TrimSpace(instructions[st])
		if text == "" {
			return Templates{}, fmt.Errorf("stage templates: missing instruction for %s", st)
		}
		out.instructions[st] = text
	}
	return out, nil
}

// LoadTemplates parses a YAML stage template table.
func LoadTemplates(r io.Reader) (Templates, error) {
	var file templateFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return Templates{}, fmt.Errorf("stage templates: decode: %w", err)
	}
	instructions := make(map[Stage]string, len(file.Stages))
	for key, entry := range file.Stages {
		stage, err := ParseStage(key)
		if err != nil || !stage.Runnable() {
			return Templates{}, fmt.Errorf("stage templates: unknown stage %q", key)
		}
		instructions[stage] = entry.Instruction
	}
	return NewTemplates(instructions)
}

// LoadTemplatesFile reads a YAML stage template table from disk.
func LoadTemplatesFile(path string) (Templates, error) {
	f, err := os.Open(path)
	if err != nil {
		return Templates{}, fmt.Errorf("stage templates: %w", err)
	}
	defer f.Close()
	return LoadTemplates(f)
}

// DefaultTemplates returns the embedded template table.
func DefaultTemplates() Templates {
	t, err := LoadTemplates(strings.NewReader(defaultTemplatesYAML))
	if err != nil {
		panic(err)
	}
	return t
}

// Instruction returns the instruction for stage.
func (t Templates) Instruction(stage Stage) string {
	return t.instructions[stage]
}

// Empty reports whether the table holds no instructions.
func (t Templates) Empty() bool {
	return len(t.instructions) == 0
}
