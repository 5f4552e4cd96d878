// Package treecfg holds the configuration DTOs the matcher engine agrees
// with loaders and front-ends (spec §6.2), YAML loading (teacher-style
// file/directory loader), and the build-time compiler/validator that
// turns a DTO tree into an immutable tree.Node (spec §4.7, §7).
package treecfg

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// OperatorDto is the tagged-union wire shape of a WHERE/filter
// expression node (spec §6.2).
type OperatorDto struct {
	Type string `yaml:"type"`

	// AND / OR
	Operators []OperatorDto `yaml:"operators,omitempty"`

	// contain / equal / ge / gt / le / lt
	First  any `yaml:"first,omitempty"`
	Second any `yaml:"second,omitempty"`

	// regex
	Regex  string `yaml:"regex,omitempty"`
	Target string `yaml:"target,omitempty"`
}

// RegexSpec is an extractor's regex clause (spec §6.2).
type RegexSpec struct {
	Match         string `yaml:"match"`
	GroupMatchIdx int    `yaml:"group_match_idx"`
}

// ExtractorDto is a single WITH-clause entry (spec §6.2).
type ExtractorDto struct {
	From  string    `yaml:"from"`
	Regex RegexSpec `yaml:"regex"`
}

// withEntry is one (name, ExtractorDto) pair, order-preserving.
type withEntry struct {
	Name      string
	Extractor ExtractorDto
}

// WithDto is the ordered WITH map (spec §3.6: "ordered map of (var_name →
// Extractor)"). A plain Go map loses declaration order, so this type
// decodes the YAML mapping node directly to keep it.
type WithDto struct {
	entries []withEntry
}

// UnmarshalYAML preserves the mapping's declaration order.
func (w *WithDto) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("WITH must be a mapping, got %v", node.Kind)
	}
	w.entries = nil
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("WITH key: %w", err)
		}
		var ext ExtractorDto
		if err := node.Content[i+1].Decode(&ext); err != nil {
			return fmt.Errorf("WITH[%s]: %w", name, err)
		}
		w.entries = append(w.entries, withEntry{Name: name, Extractor: ext})
	}
	return nil
}

// Entries returns the (name, ExtractorDto) pairs in declaration order.
func (w WithDto) Entries() []withEntry { return w.entries }

// ConstraintDto is a rule's WHERE/WITH pair (spec §6.2).
type ConstraintDto struct {
	Where *OperatorDto `yaml:"WHERE"`
	With  WithDto       `yaml:"WITH"`
}

// ActionDto is a rule's action template (spec §3.7, §6.2). Payload is
// decoded as a raw yaml.Node so its structure (map key order, scalar tag)
// can be walked directly when compiling it into a tree.PayloadNode.
type ActionDto struct {
	ID      string    `yaml:"id"`
	Payload yaml.Node `yaml:"payload"`
}

// RuleDto is a single detection rule (spec §3.6, §6.2).
type RuleDto struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Continue    bool          `yaml:"continue"`
	Active      *bool         `yaml:"active"`
	Constraint  ConstraintDto `yaml:"constraint"`
	Actions     []ActionDto   `yaml:"actions"`
}

func (r RuleDto) active() bool {
	if r.Active == nil {
		return true
	}
	return *r.Active
}

// MatcherConfigDto is the tagged union of a Filter or Ruleset processing
// tree node (spec §3.8, §6.2).
type MatcherConfigDto struct {
	Type        string             `yaml:"type"`
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Active      *bool              `yaml:"active"`
	Filter      *OperatorDto       `yaml:"filter"`
	Nodes       []MatcherConfigDto `yaml:"nodes"`
	Rules       []RuleDto          `yaml:"rules"`
}

func (m MatcherConfigDto) active() bool {
	if m.Active == nil {
		return true
	}
	return *m.Active
}

// RulesConfig is the top-level YAML document: an ordered list of
// sibling processing-tree nodes living under the engine's implicit root
// filter (spec §3.8: "Root is always a filter (possibly implicit...)").
type RulesConfig struct {
	Nodes []MatcherConfigDto `yaml:"nodes"`
}
