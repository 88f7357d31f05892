package redact

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// Policy maps entity types to the fields that must be masked before an audit
// envelope for that type is stored. It is read-only once built.
type Policy struct {
	defaults FieldSet
	byType   map[string]FieldSet
}

// NewPolicy builds a policy. defaults apply to every entity type in addition to
// its own set.
func NewPolicy(defaults FieldSet, byType map[string]FieldSet) *Policy {
	p := &Policy{
		defaults: defaults,
		byType:   make(map[string]FieldSet, len(byType)),
	}
	for entityType, fields := range byType {
		p.byType[entityType] = defaults.Union(fields)
	}
	return p
}

// For returns the fields to mask for entityType. A nil policy masks nothing.
func (p *Policy) For(entityType string) FieldSet {
	if p == nil {
		return NewFieldSet()
	}
	if fields, ok := p.byType[entityType]; ok {
		return fields
	}
	return p.defaults
}

// EntityTypes lists the types with an explicit field set.
func (p *Policy) EntityTypes() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.byType))
	for t := range p.byType {
		out = append(out, t)
	}
	return out
}

type policyDocument struct {
	Default  []string            `yaml:"default"`
	Entities map[string][]string `yaml:"entities"`
}

// LoadPolicy reads a YAML policy:
//
//	default: [password]
//	entities:
//	  salary: [id, salaryData]
func LoadPolicy(r io.Reader) (*Policy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read redaction policy: %w", err)
	}
	var doc policyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode redaction policy: %w", err)
	}
	byType := make(map[string]FieldSet, len(doc.Entities))
	for entityType, names := range doc.Entities {
		if entityType == "" {
			return nil, fmt.Errorf("decode redaction policy: empty entity type")
		}
		byType[entityType] = NewFieldSet(names...)
	}
	return NewPolicy(NewFieldSet(doc.Default...), byType), nil
}

// LoadPolicyFile is LoadPolicy for a file path.
func LoadPolicyFile(path string) (*Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open redaction policy: %w", err)
	}
	defer f.Close()
	return LoadPolicy(f)
}
