// Package policy defines active-scan policies: which rules run and at what
// attack strength and alert threshold.
package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Strength is how hard a rule attacks; higher sends more requests.
type Strength string

const (
	StrengthDefault Strength = "DEFAULT"
	StrengthLow     Strength = "LOW"
	StrengthMedium  Strength = "MEDIUM"
	StrengthHigh    Strength = "HIGH"
	StrengthInsane  Strength = "INSANE"
)

// Threshold is how confident a rule must be before raising an alert.
type Threshold string

const (
	ThresholdDefault Threshold = "DEFAULT"
	ThresholdOff     Threshold = "OFF"
	ThresholdLow     Threshold = "LOW"
	ThresholdMedium  Threshold = "MEDIUM"
	ThresholdHigh    Threshold = "HIGH"
)

// ParseStrength parses a strength case-insensitively. Empty means DEFAULT.
func ParseStrength(s string) (Strength, error) {
	switch v := Strength(strings.ToUpper(strings.TrimSpace(s))); v {
	case "":
		return StrengthDefault, nil
	case StrengthDefault, StrengthLow, StrengthMedium, StrengthHigh, StrengthInsane:
		return v, nil
	}
	return "", fmt.Errorf("unknown attack strength %q", s)
}

// ParseThreshold parses a threshold case-insensitively. Empty means DEFAULT.
func ParseThreshold(s string) (Threshold, error) {
	switch v := Threshold(strings.ToUpper(strings.TrimSpace(s))); v {
	case "":
		return ThresholdDefault, nil
	case ThresholdDefault, ThresholdOff, ThresholdLow, ThresholdMedium, ThresholdHigh:
		return v, nil
	}
	return "", fmt.Errorf("unknown alert threshold %q", s)
}

// ErrLocked is returned when a rule is toggled after the policy was handed
// to a scan.
var ErrLocked = errors.New("policy is locked")

// ScanPolicy is a named rule selection. The enabled and disabled sets are
// always disjoint. An empty enabled set means every rule except the
// disabled ones.
type ScanPolicy struct {
	Name        string
	Description string
	Strength    Strength
	Threshold   Threshold

	enabled  map[int]struct{}
	disabled map[int]struct{}
	locked   bool
}

// New creates an unlocked policy with no rules selected.
func New(name, description string, strength Strength, threshold Threshold) *ScanPolicy {
	return &ScanPolicy{
		Name:        name,
		Description: description,
		Strength:    strength,
		Threshold:   threshold,
		enabled:     make(map[int]struct{}),
		disabled:    make(map[int]struct{}),
	}
}

// Enable adds rules to the enabled set and removes them from the disabled set.
func (p *ScanPolicy) Enable(ids ...int) error {
	if p.locked {
		return fmt.Errorf("enable rules in %q: %w", p.Name, ErrLocked)
	}
	for _, id := range ids {
		delete(p.disabled, id)
		p.enabled[id] = struct{}{}
	}
	return nil
}

// Disable adds rules to the disabled set and removes them from the enabled set.
func (p *ScanPolicy) Disable(ids ...int) error {
	if p.locked {
		return fmt.Errorf("disable rules in %q: %w", p.Name, ErrLocked)
	}
	for _, id := range ids {
		delete(p.enabled, id)
		p.disabled[id] = struct{}{}
	}
	return nil
}

// Lock freezes the rule sets. It is called when a scan starts.
func (p *ScanPolicy) Lock() { p.locked = true }

// Locked reports whether Lock was called.
func (p *ScanPolicy) Locked() bool { return p.locked }

// EnabledRules returns the enabled rule ids in ascending order.
func (p *ScanPolicy) EnabledRules() []int { return sortedKeys(p.enabled) }

// DisabledRules returns the disabled rule ids in ascending order.
func (p *ScanPolicy) DisabledRules() []int { return sortedKeys(p.disabled) }

// IsEnabled reports whether the policy runs rule id.
func (p *ScanPolicy) IsEnabled(id int) bool {
	if _, off := p.disabled[id]; off {
		return false
	}
	if len(p.enabled) == 0 {
		return true
	}
	_, on := p.enabled[id]
	return on
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
