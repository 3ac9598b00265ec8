package remediation

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MatchKind says how a finding was matched to guidance.
type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchSubstring MatchKind = "substring"
	MatchGeneric   MatchKind = "generic"
)

// Catalog is an ordered set of templates with unique keys. Lookup walks it
// in insertion order, so results are reproducible.
type Catalog struct {
	templates []Template
	index     map[string]int
}

// NewCatalog builds a catalog from templates, in order.
func NewCatalog(templates ...Template) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int)}
	if err := c.Append(templates...); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultCatalog returns a catalog of the built-in templates.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(builtinTemplates()...)
	if err != nil {
		panic(fmt.Sprintf("remediation: invalid built-in catalog: %v", err))
	}
	return c
}

// Append adds templates after the existing ones. Nothing is added if any
// template is invalid or its key is already present.
func (c *Catalog) Append(templates ...Template) error {
	pending := make(map[string]struct{}, len(templates))
	for _, t := range templates {
		if err := t.validate(); err != nil {
			return err
		}
		if _, dup := c.index[t.Key]; dup {
			return fmt.Errorf("duplicate template key %q", t.Key)
		}
		if _, dup := pending[t.Key]; dup {
			return fmt.Errorf("duplicate template key %q", t.Key)
		}
		pending[t.Key] = struct{}{}
	}
	for _, t := range templates {
		c.index[t.Key] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return nil
}

// Len is the number of templates.
func (c *Catalog) Len() int { return len(c.templates) }

// Keys returns template keys in catalog order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.templates))
	for i, t := range c.templates {
		out[i] = t.Key
	}
	return out
}

// Lookup resolves alertType: an exact key match first, otherwise the first
// template in catalog order whose key contains alertType or is contained
// in it.
func (c *Catalog) Lookup(alertType string) (Template, MatchKind, bool) {
	if i, ok := c.index[alertType]; ok {
		return c.templates[i], MatchExact, true
	}
	if alertType == "" {
		return Template{}, "", false
	}
	for _, t := range c.templates {
		if strings.Contains(alertType, t.Key) || strings.Contains(t.Key, alertType) {
			return t, MatchSubstring, true
		}
	}
	return Template{}, "", false
}

type catalogFile struct {
	Templates []Template `yaml:"templates"`
}

// ParseTemplatesYAML reads a document of the form
//
//	templates:
//	  - key: Cross Site Scripting
//	    title: ...
func ParseTemplatesYAML(r io.Reader) ([]Template, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding templates: %w", err)
	}
	for i := range f.Templates {
		f.Templates[i].Difficulty = Difficulty(strings.ToUpper(string(f.Templates[i].Difficulty)))
	}
	return f.Templates, nil
}

// LoadTemplatesFile appends the templates in a YAML file to c.
func (c *Catalog) LoadTemplatesFile(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening template catalog: %w", err)
	}
	defer fh.Close()

	templates, err := ParseTemplatesYAML(fh)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Append(templates...); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
