package sections

import (
	"regexp"
	"strings"
)

// Heading pairs a canonical section name with the pattern that recognizes it.
// Patterns are matched against a whole trimmed line.
type Heading struct {
	Name    string
	Pattern *regexp.Regexp
}

func heading(name, pattern string) Heading {
	return Heading{Name: name, Pattern: regexp.MustCompile(`(?i)^\s*(?:` + pattern + `)\s*:?\s*$`)}
}

// DefaultHeadings is the ordered heading table used by Segment.
var DefaultHeadings = []Heading{
	heading("Contact", `contact(?:\s+(?:information|info|details))?|personal\s+(?:information|info|details)`),
	heading("Summary", `(?:professional\s+|executive\s+|career\s+)?summary|(?:professional\s+|career\s+)?profile|objective|career\s+objective|about(?:\s+me)?`),
	heading("Experience", `(?:work|professional|employment|relevant)?\s*experience|employment(?:\s+history)?|work\s+history|career\s+history`),
	heading("Education", `education(?:\s+and\s+training)?|academic\s+(?:background|history)|qualifications`),
	heading("Skills", `(?:technical\s+|core\s+|key\s+)?skills|(?:core\s+)?competencies|technologies|skills\s+(?:and|&)\s+\w+`),
	heading("Projects", `(?:personal\s+|key\s+|selected\s+)?projects`),
	heading("Certifications", `certifications?|licenses?(?:\s+(?:and|&)\s+certifications?)?|certificates?`),
	heading("Languages", `languages?`),
	heading("Interests", `interests|hobbies(?:\s+(?:and|&)\s+interests)?`),
	heading("References", `references?`),
}

// Segmenter splits document text into named sections. The zero value uses DefaultHeadings.
type Segmenter struct {
	Headings []Heading
}

var defaultSegmenter = Segmenter{Headings: DefaultHeadings}

// Segment splits text with the default heading table.
func Segment(text string) Sections {
	return defaultSegmenter.Segment(text)
}

// Segment scans text line by line. Content before the first heading belongs to HeaderSection;
// a repeated heading replaces the earlier section text.
func (s Segmenter) Segment(text string) Sections {
	headings := s.Headings
	if headings == nil {
		headings = DefaultHeadings
	}

	out := New()
	current := HeaderSection
	var buf []string

	flush := func() {
		out.Set(current, strings.Join(trimBlankLines(buf), "\n"))
		buf = buf[:0]
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		if name, ok := match(headings, line); ok {
			flush()
			current = name
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return out
}

// trimBlankLines drops whitespace-only lines at both ends. Lines with content are kept as is.
func trimBlankLines(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

func match(headings []Heading, line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}
	for _, h := range headings {
		if h.Pattern.MatchString(trimmed) {
			return h.Name, true
		}
	}
	return "", false
}
