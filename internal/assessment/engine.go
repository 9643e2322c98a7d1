package assessment

import (
	"errors"
	"fmt"
	"strings"
)

// Level is the discrete output of a threat assessment.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// ErrInvalidInput indicates an empty or unusable situation description.
var ErrInvalidInput = errors.New("situation description must not be empty")

// Situation is a structured description of the circumstances to rate.
type Situation struct {
	Narrative string `json:"narrative"`
	Location  string `json:"location,omitempty"`
	Context   string `json:"context,omitempty"`
}

// Assessment is the result of rating one situation.
type Assessment struct {
	Level     Level    `json:"level"`
	Rationale string   `json:"rationale"`
	Actions   []string `json:"actions"`
}

// Rule is one row of the ordered decision table. A rule with no keywords
// matches everything and terminates the cascade.
type Rule struct {
	Priority int
	Name     string
	Level    Level
	Keywords []string
	Actions  []string
}

// Engine rates situations against a fixed, ordered rule table. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	rules []Rule
}

// NewEngine builds the three-rule cascade from the configured keyword
// taxonomy: imminent danger, elevated risk, then the Low catch-all.
func NewEngine(imminent, elevated []string) *Engine {
	return &Engine{rules: []Rule{
		{
			Priority: 1,
			Name:     "imminent-danger",
			Level:    LevelHigh,
			Keywords: lowerAll(imminent),
			Actions: []string{
				"Call emergency services immediately (911/112).",
				"Move to a safe location; do not confront or pursue anyone.",
				"Stay on the line with the operator until help arrives.",
			},
		},
		{
			Priority: 2,
			Name:     "elevated-risk",
			Level:    LevelMedium,
			Keywords: lowerAll(elevated),
			Actions: []string{
				"Stay alert and move to a populated, well-lit area.",
				"Consider contacting local authorities.",
				"Document details (time, descriptions) if safe to do so.",
			},
		},
		{
			Priority: 3,
			Name:     "baseline",
			Level:    LevelLow,
			Actions: []string{
				"Maintain situational awareness and follow general safety precautions.",
			},
		},
	}}
}

// Rules exposes the table for inspection, ordered by priority.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Assess rates a situation. First matching rule wins; the table is total so
// every non-empty input reaches a level. Pure: same input, same output.
func (e *Engine) Assess(s Situation) (Assessment, error) {
	if strings.TrimSpace(s.Narrative) == "" {
		return Assessment{}, ErrInvalidInput
	}
	haystack := strings.ToLower(s.Narrative + " " + s.Context)
	for _, rule := range e.rules {
		kw, ok := rule.match(haystack)
		if !ok {
			continue
		}
		return Assessment{
			Level:     rule.Level,
			Rationale: rule.rationale(kw),
			Actions:   append([]string(nil), rule.Actions...),
		}, nil
	}
	// Unreachable: the final rule is a catch-all.
	return Assessment{}, fmt.Errorf("no rule matched situation")
}

func (r Rule) match(haystack string) (string, bool) {
	if len(r.Keywords) == 0 {
		return "", true
	}
	for _, kw := range r.Keywords {
		if strings.Contains(haystack, kw) {
			return kw, true
		}
	}
	return "", false
}

func (r Rule) rationale(keyword string) string {
	if keyword == "" {
		return fmt.Sprintf("rule %d (%s): no imminent or elevated risk indicators present", r.Priority, r.Name)
	}
	return fmt.Sprintf("rule %d (%s): indicator %q present in the description", r.Priority, r.Name, keyword)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
