package policy

import (
	"fmt"
	"strings"

	"github.com/buemura/zapscan/pkg/scanerr"
)

// Built-in policy names.
const (
	NameOWASPTop10    = "OWASP-Top-10"
	NameSQLInjection  = "SQL-Injection"
	NameXSS           = "XSS"
	NameAPISecurity   = "API-Security"
	NameComprehensive = "Comprehensive"
	NameQuickScan     = "Quick-Scan"
)

// quickScanRules is how many rules Quick-Scan takes from each category.
const quickScanRules = 2

func build(name, description string, strength Strength, threshold Threshold, rules []int) *ScanPolicy {
	p := New(name, description, strength, threshold)
	_ = p.Enable(rules...)
	return p
}

// OWASPTop10 covers the categories behind the OWASP Top 10.
func OWASPTop10() *ScanPolicy {
	return build(NameOWASPTop10, "Rules mapped to the OWASP Top 10 categories", StrengthMedium, ThresholdMedium,
		union(AccessControl, Crypto, SQLInjection, XSS, Injection, Misconfiguration, Components, Deserialization, SSRF, XXE, PathTraversal))
}

func SQLInjectionPolicy() *ScanPolicy {
	return build(NameSQLInjection, "SQL injection rules only", StrengthHigh, ThresholdLow, union(SQLInjection))
}

func XSSPolicy() *ScanPolicy {
	return build(NameXSS, "Cross-site scripting rules only", StrengthHigh, ThresholdLow, union(XSS))
}

// APISecurity targets JSON and XML APIs.
func APISecurity() *ScanPolicy {
	return build(NameAPISecurity, "Rules relevant to HTTP APIs", StrengthMedium, ThresholdMedium,
		union(API, Injection, SQLInjection, XXE, SSRF, AccessControl))
}

// Comprehensive enables every category at high strength.
func Comprehensive() *ScanPolicy {
	return build(NameComprehensive, "Every rule category", StrengthHigh, ThresholdLow, union(Categories...))
}

// QuickScan runs a few rules from the highest-yield categories.
func QuickScan() *ScanPolicy {
	var rules []int
	for _, c := range []Category{SQLInjection, XSS, PathTraversal, Misconfiguration} {
		rules = append(rules, prefix(c, quickScanRules)...)
	}
	return build(NameQuickScan, "A small fast subset of rules", StrengthLow, ThresholdMedium, rules)
}

// Custom builds a policy from an arbitrary rule set.
func Custom(name, description string, rules []int, strength Strength, threshold Threshold) *ScanPolicy {
	return build(name, description, strength, threshold, rules)
}

// Definition is a custom policy read from configuration.
type Definition struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description" yaml:"description" mapstructure:"description"`
	Rules       []int  `json:"rules" yaml:"rules" mapstructure:"rules"`
	Disabled    []int  `json:"disabled" yaml:"disabled" mapstructure:"disabled"`
	Strength    string `json:"strength" yaml:"strength" mapstructure:"strength"`
	Threshold   string `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
}

func (d Definition) build() (*ScanPolicy, error) {
	strength, err := ParseStrength(d.Strength)
	if err != nil {
		return nil, scanerr.Configf("policies."+d.Name+".strength", "%v", err)
	}
	threshold, err := ParseThreshold(d.Threshold)
	if err != nil {
		return nil, scanerr.Configf("policies."+d.Name+".threshold", "%v", err)
	}
	p := Custom(d.Name, d.Description, d.Rules, strength, threshold)
	_ = p.Disable(d.Disabled...)
	return p, nil
}

type entry struct {
	name  string
	build func() (*ScanPolicy, error)
}

// Manager resolves policy names to fresh policy instances.
type Manager struct {
	entries []entry
}

// NewManager creates a manager with the built-in policies plus defs.
// Custom names must be unique and must not shadow a built-in.
func NewManager(defs ...Definition) (*Manager, error) {
	m := &Manager{}
	for _, f := range []func() *ScanPolicy{OWASPTop10, SQLInjectionPolicy, XSSPolicy, APISecurity, Comprehensive, QuickScan} {
		m.entries = append(m.entries, entry{name: f().Name, build: wrap(f)})
	}

	for _, d := range defs {
		if strings.TrimSpace(d.Name) == "" {
			return nil, scanerr.Configf("policies", "custom policy without a name")
		}
		if _, ok := m.find(d.Name); ok {
			return nil, scanerr.Configf("policies", "duplicate policy name %q", d.Name)
		}
		if _, err := d.build(); err != nil {
			return nil, err
		}
		m.entries = append(m.entries, entry{name: d.Name, build: d.build})
	}
	return m, nil
}

func wrap(f func() *ScanPolicy) func() (*ScanPolicy, error) {
	return func() (*ScanPolicy, error) { return f(), nil }
}

func (m *Manager) find(name string) (entry, bool) {
	for _, e := range m.entries {
		if strings.EqualFold(e.name, name) {
			return e, true
		}
	}
	return entry{}, false
}

// Names lists built-in policies first, then custom ones in definition order.
func (m *Manager) Names() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.name
	}
	return out
}

// Get returns a new unlocked instance of the named policy. Names are
// matched case-insensitively.
func (m *Manager) Get(name string) (*ScanPolicy, error) {
	e, ok := m.find(name)
	if !ok {
		return nil, scanerr.Configf("policy", "unknown policy %q (available: %s)", name, strings.Join(m.Names(), ", "))
	}
	p, err := e.build()
	if err != nil {
		return nil, fmt.Errorf("building policy %q: %w", name, err)
	}
	return p, nil
}
