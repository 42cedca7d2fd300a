package sections

import (
	"encoding/json"
	"strings"
)

// HeaderSection holds content that appears before the first recognized heading.
const HeaderSection = "Header"

// Sections is an insertion-ordered mapping of canonical section name to text.
type Sections struct {
	names []string
	text  map[string]string
}

// Entry is one named section in document order.
type Entry struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// New returns an empty mapping.
func New() Sections {
	return Sections{text: map[string]string{}}
}

// FromEntries builds a mapping from ordered entries; later duplicates replace earlier text
// but keep the original position.
func FromEntries(entries []Entry) Sections {
	s := New()
	for _, e := range entries {
		s.Set(e.Name, e.Text)
	}
	return s
}

// Set stores text under name, appending the name if it is new.
func (s *Sections) Set(name, text string) {
	if s.text == nil {
		s.text = map[string]string{}
	}
	if _, ok := s.text[name]; !ok {
		s.names = append(s.names, name)
	}
	s.text[name] = text
}

// Get returns the text for name.
func (s Sections) Get(name string) (string, bool) {
	text, ok := s.text[name]
	return text, ok
}

// Has reports whether name is present.
func (s Sections) Has(name string) bool {
	_, ok := s.text[name]
	return ok
}

// Names returns section names in insertion order.
func (s Sections) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of sections.
func (s Sections) Len() int {
	return len(s.names)
}

// Entries returns the sections in insertion order.
func (s Sections) Entries() []Entry {
	out := make([]Entry, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, Entry{Name: name, Text: s.text[name]})
	}
	return out
}

// Equal reports whether both mappings hold the same names, order and text.
func (s Sections) Equal(other Sections) bool {
	if len(s.names) != len(other.names) {
		return false
	}
	for i, name := range s.names {
		if other.names[i] != name || other.text[name] != s.text[name] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the mapping as an ordered list of entries.
func (s Sections) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Entries())
}

// UnmarshalJSON decodes an ordered list of entries.
func (s *Sections) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*s = FromEntries(entries)
	return nil
}

func (s Sections) String() string {
	var b strings.Builder
	for i, name := range s.names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
	}
	return b.String()
}
