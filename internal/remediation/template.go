// Package remediation turns scan findings into developer-facing fix
// guidance using a catalog of templates keyed by alert type.
package remediation

import (
	"fmt"
	"strings"
)

// Difficulty is the expected effort of a fix.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "EASY"
	DifficultyModerate Difficulty = "MODERATE"
	DifficultyComplex  Difficulty = "COMPLEX"
)

// ParseDifficulty parses a difficulty case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToUpper(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyModerate, DifficultyComplex:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// CodeExample is a snippet showing the fix in one language.
type CodeExample struct {
	Language    string `json:"language" yaml:"language"`
	Description string `json:"description,omitempty" yaml:"description"`
	Code        string `json:"code" yaml:"code"`
}

// Template is a catalog entry for one alert type.
type Template struct {
	Key              string        `json:"key" yaml:"key"`
	Title            string        `json:"title" yaml:"title"`
	Description      string        `json:"description" yaml:"description"`
	Steps            []string      `json:"steps" yaml:"steps"`
	CodeExamples     []CodeExample `json:"code_examples,omitempty" yaml:"code_examples"`
	References       []string      `json:"references,omitempty" yaml:"references"`
	Difficulty       Difficulty    `json:"difficulty" yaml:"difficulty"`
	EstimatedMinutes int           `json:"estimated_minutes" yaml:"estimated_minutes"`
	// AutomatedFix is an optional script or command that applies the fix.
	AutomatedFix string `json:"automated_fix,omitempty" yaml:"automated_fix"`
}

func (t Template) validate() error {
	if strings.TrimSpace(t.Key) == "" {
		return fmt.Errorf("template without key")
	}
	if t.Title == "" {
		return fmt.Errorf("template %q: title is required", t.Key)
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("template %q: at least one step is required", t.Key)
	}
	if _, err := ParseDifficulty(string(t.Difficulty)); err != nil {
		return fmt.Errorf("template %q: %w", t.Key, err)
	}
	if t.EstimatedMinutes < 0 {
		return fmt.Errorf("template %q: estimated_minutes must not be negative", t.Key)
	}
	return nil
}
