// Package ats looks up applicant tracking systems named in a job description.
package ats

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML string

const (
	nameMentionPoints    = 100.0
	companyMentionPoints = 50.0
	scoreThreshold       = 25.0
	defaultFallbackCount = 5
)

var ErrEmptyCatalog = errors.New("ats catalog is empty")

// System is one catalog entry.
type System struct {
	Name       string  `yaml:"name" json:"name"`
	Company    string  `yaml:"company" json:"company"`
	Popularity float64 `yaml:"popularity" json:"popularity"`
}

// Match is a scored catalog entry.
type Match struct {
	System
	Score            float64 `json:"score"`
	NameMentioned    bool    `json:"nameMentioned"`
	CompanyMentioned bool    `json:"companyMentioned"`
	// Fallback marks entries returned by popularity because nothing cleared the threshold.
	Fallback bool `json:"fallback"`
}

// Catalog is an immutable table of systems.
type Catalog struct {
	systems        []System
	namePattern    []*regexp.Regexp
	companyPattern []*regexp.Regexp
	fallbackCount  int
}

type catalogFile struct {
	Systems []System `yaml:"systems"`
}

// NewCatalog builds a catalog. fallbackCount <= 0 uses the default of 5.
func NewCatalog(systems []System, fallbackCount int) (*Catalog, error) {
	if len(systems) == 0 {
		return nil, ErrEmptyCatalog
	}
	if fallbackCount <= 0 {
		fallbackCount = defaultFallbackCount
	}
	c := &Catalog{fallbackCount: fallbackCount}
	for i, s := range systems {
		s.Name = strings.TrimSpace(s.Name)
		s.Company = strings.TrimSpace(s.Company)
		if s.Name == "" {
			return nil, fmt.Errorf("ats catalog: entry %d has no name", i)
		}
		if s.Popularity < 0 || s.Popularity > 100 {
			return nil, fmt.Errorf("ats catalog: %s popularity out of range", s.Name)
		}
		c.systems = append(c.systems, s)
		c.namePattern = append(c.namePattern, mentionPattern(s.Name))
		c.companyPattern = append(c.companyPattern, mentionPattern(s.Company))
	}
	return c, nil
}

// LoadCatalog parses a YAML catalog.
func LoadCatalog(r io.Reader, fallbackCount int) (*Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("ats catalog: decode: %w", err)
	}
	return NewCatalog(file.Systems, fallbackCount)
}

// LoadCatalogFile reads a YAML catalog from disk.
func LoadCatalogFile(path string, fallbackCount int) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ats catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f, fallbackCount)
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog(fallbackCount int) *Catalog {
	c, err := LoadCatalog(strings.NewReader(defaultCatalogYAML), fallbackCount)
	if err != nil {
		panic(err)
	}
	return c
}

// Systems returns a copy of the catalog entries.
func (c *Catalog) Systems() []System {
	return append([]System(nil), c.systems...)
}

// Match returns the entries whose name or owning company appears in description. Each scores
// 100 for a name mention, 50 for a company mention, plus half the popularity; entries at or
// below 25 are dropped. The result is ordered by score, then popularity, then name.
func (c *Catalog) Match(description string) []Match {
	var out []Match
	for i, s := range c.systems {
		m := Match{System: s, Score: s.Popularity / 2}
		if c.namePattern[i] != nil && c.namePattern[i].MatchString(description) {
			m.NameMentioned = true
			m.Score += nameMentionPoints
		}
		if c.companyPattern[i] != nil && c.companyPattern[i].MatchString(description) {
			m.CompanyMentioned = true
			m.Score += companyMentionPoints
		}
		if !m.NameMentioned && !m.CompanyMentioned {
			continue
		}
		if m.Score > scoreThreshold {
			out = append(out, m)
		}
	}
	sortMatches(out)
	return out
}

// Lookup returns Match results, or the most popular entries when nothing matched. limit <= 0
// means no limit for matches and the fallback count for the popularity list.
func (c *Catalog) Lookup(description string, limit int) []Match {
	matches := c.Match(description)
	if len(matches) == 0 {
		matches = c.topByPopularity()
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// SystemNames returns the names Lookup selects for description.
func (c *Catalog) SystemNames(description string) []string {
	matches := c.Lookup(description, c.fallbackCount)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Name)
	}
	return names
}

func (c *Catalog) topByPopularity() []Match {
	out := make([]Match, 0, len(c.systems))
	for _, s := range c.systems {
		out = append(out, Match{System: s, Score: s.Popularity, Fallback: true})
	}
	sortMatches(out)
	if len(out) > c.fallbackCount {
		out = out[:c.fallbackCount]
	}
	return out
}

func sortMatches(ms []Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].Score != ms[j].Score {
			return ms[i].Score > ms[j].Score
		}
		if ms[i].Popularity != ms[j].Popularity {
			return ms[i].Popularity > ms[j].Popularity
		}
		return ms[i].Name < ms[j].Name
	})
}

func mentionPattern(term string) *regexp.Regexp {
	if term == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
}
