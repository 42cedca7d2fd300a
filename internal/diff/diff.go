package diff

import (
	"fmt"

	"resume-review/internal/sections"
)

// Kind classifies a section-level change.
type Kind string

const (
	KindAddition     Kind = "addition"
	KindDeletion     Kind = "deletion"
	KindModification Kind = "modification"
)

// Change is one section-level difference between two documents.
type Change struct {
	Kind        Kind    `json:"kind"`
	SectionName string  `json:"sectionName"`
	Before      *string `json:"before,omitempty"`
	After       *string `json:"after,omitempty"`
	Description string  `json:"description"`
}

// Sections compares two section mappings. Additions come first in the order of to, then
// deletions in the order of from, then modifications in the order of to. A section whose text
// differs in any way is reported as one modification.
func Sections(from, to sections.Sections) []Change {
	changes := make([]Change, 0)

	for _, name := range to.Names() {
		if from.Has(name) {
			continue
		}
		after, _ := to.Get(name)
		changes = append(changes, Change{
			Kind:        KindAddition,
			SectionName: name,
			After:       strPtr(after),
			Description: fmt.Sprintf("Added section %q", name),
		})
	}

	for _, name := range from.Names() {
		if to.Has(name) {
			continue
		}
		before, _ := from.Get(name)
		changes = append(changes, Change{
			Kind:        KindDeletion,
			SectionName: name,
			Before:      strPtr(before),
			Description: fmt.Sprintf("Removed section %q", name),
		})
	}

	for _, name := range to.Names() {
		before, ok := from.Get(name)
		if !ok {
			continue
		}
		after, _ := to.Get(name)
		if before == after {
			continue
		}
		changes = append(changes, Change{
			Kind:        KindModification,
			SectionName: name,
			Before:      strPtr(before),
			After:       strPtr(after),
			Description: fmt.Sprintf("Modified section %q", name),
		})
	}

	return changes
}

// Count returns the number of changes of each kind.
func Count(changes []Change) map[Kind]int {
	out := map[Kind]int{KindAddition: 0, KindDeletion: 0, KindModification: 0}
	for _, c := range changes {
		out[c.Kind]++
	}
	return out
}

func strPtr(s string) *string {
	return &s
}
