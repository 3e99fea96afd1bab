// Package keywords holds injectable keyword dictionaries and counts their
// occurrences in text.
package keywords

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"
)

//go:embed default_product.yaml
var defaultProductYAML []byte

// Mode selects how a term is matched against text.
type Mode string

const (
	// ModeWord matches whole words only, case-insensitively. Word boundaries
	// are Unicode-aware, so Hangul counts as a word character.
	ModeWord Mode = "word"
	// ModeSubstring counts every case-insensitive occurrence.
	ModeSubstring Mode = "substring"
)

// ErrUnknownMode is returned for a dictionary with an unsupported mode.
var ErrUnknownMode = errors.New("keywords: unknown match mode")

// Dictionary is an ordered set of terms plus a matching mode.
type Dictionary struct {
	Name  string   `yaml:"name"`
	Mode  Mode     `yaml:"mode"`
	Terms []string `yaml:"terms"`
}

// Default returns the built-in product dictionary.
func Default() Dictionary {
	d, err := Parse(defaultProductYAML)
	if err != nil {
		panic(fmt.Sprintf("keywords: embedded dictionary: %v", err))
	}
	return d
}

// Parse decodes a YAML dictionary. An empty mode defaults to ModeWord.
func Parse(data []byte) (Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Dictionary{}, fmt.Errorf("decode dictionary: %w", err)
	}
	if d.Mode == "" {
		d.Mode = ModeWord
	}
	return d, nil
}

// LoadFile reads a YAML dictionary from disk.
func LoadFile(path string) (Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dictionary{}, fmt.Errorf("read dictionary: %w", err)
	}
	return Parse(data)
}

// Matcher counts dictionary matches in text. It is safe for concurrent use.
type Matcher struct {
	name     string
	mode     Mode
	terms    []string
	patterns []*regexp2.Regexp
}

// NewMatcher compiles a dictionary. Terms are trimmed and de-duplicated
// case-insensitively, keeping the first occurrence.
func NewMatcher(d Dictionary) (*Matcher, error) {
	if d.Mode == "" {
		d.Mode = ModeWord
	}
	if d.Mode != ModeWord && d.Mode != ModeSubstring {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, d.Mode)
	}

	m := &Matcher{name: d.Name, mode: d.Mode}
	seen := make(map[string]bool, len(d.Terms))
	for _, t := range d.Terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		m.terms = append(m.terms, t)
	}

	if m.mode == ModeWord {
		m.patterns = make([]*regexp2.Regexp, len(m.terms))
		for i, t := range m.terms {
			re, err := regexp2.Compile(`\b`+regexp2.Escape(t)+`\b`, regexp2.IgnoreCase)
			if err != nil {
				return nil, fmt.Errorf("compile term %q: %w", t, err)
			}
			m.patterns[i] = re
		}
	}
	return m, nil
}

// Name returns the dictionary name.
func (m *Matcher) Name() string { return m.name }

// Terms returns the de-duplicated terms in dictionary order.
func (m *Matcher) Terms() []string {
	out := make([]string, len(m.terms))
	copy(out, m.terms)
	return out
}

// Count returns the total number of term matches in text.
func (m *Matcher) Count(text string) int {
	if m == nil || text == "" {
		return 0
	}
	if m.mode == ModeSubstring {
		lower := strings.ToLower(text)
		n := 0
		for _, t := range m.terms {
			n += strings.Count(lower, t)
		}
		return n
	}

	n := 0
	for _, re := range m.patterns {
		match, err := re.FindStringMatch(text)
		for err == nil && match != nil {
			n++
			match, err = re.FindNextMatch(match)
		}
	}
	return n
}
