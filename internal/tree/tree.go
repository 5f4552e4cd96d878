// Package tree implements the immutable filter/ruleset processing tree
// (spec §3.6-§3.8): the structure a configuration loader compiles once and
// the matcher evaluates, read-only, per event.
package tree

import (
	"fmt"

	"github.com/danielsvitols/tornado/internal/extractor"
	"github.com/danielsvitols/tornado/internal/interpolate"
	"github.com/danielsvitols/tornado/internal/operator"
	"github.com/danielsvitols/tornado/internal/value"
)

// NamedExtractor pairs a WITH-clause variable name with its compiled
// extractor, preserving declaration order (spec §3.6: "ordered map").
type NamedExtractor struct {
	Name      string
	Extractor extractor.Extractor
}

// ActionTemplate is a compiled action: an id plus a payload tree whose
// string leaves are compiled interpolator templates (spec §3.7).
type ActionTemplate struct {
	ID      string
	Payload PayloadNode
}

// PayloadKind discriminates PayloadNode's variants.
type PayloadKind int

const (
	PayloadNull PayloadKind = iota
	PayloadBool
	PayloadNumber
	PayloadString
	PayloadArray
	PayloadMap
)

// PayloadNode mirrors value.Value's shape, except String leaves carry a
// compiled interpolate.Template instead of a literal (spec §3.7: "every
// String leaf is a compiled Interpolator"). Map keys are always literal.
type PayloadNode struct {
	Kind PayloadKind

	Bool   bool
	Number value.Value // carries the literal Number value (kind, int shape)
	Tpl    interpolate.Template

	Array []PayloadNode

	MapKeys []string // stable declaration order
	Map     map[string]PayloadNode
}

// Render walks the payload tree, interpolating every String leaf. Any
// chunk failure aborts the entire render (spec §4.5/§4.6: the action is
// dropped as a whole, never partially rendered).
func (p PayloadNode) Render(renderTpl func(interpolate.Template) (value.Value, error)) (value.Value, error) {
	switch p.Kind {
	case PayloadNull:
		return value.Null, nil
	case PayloadBool:
		return value.Bool(p.Bool), nil
	case PayloadNumber:
		return p.Number, nil
	case PayloadString:
		return renderTpl(p.Tpl)
	case PayloadArray:
		out := make([]value.Value, len(p.Array))
		for i, elem := range p.Array {
			v, err := elem.Render(renderTpl)
			if err != nil {
				return value.Value{}, err
			}
			out[i] = v
		}
		return value.Array(out), nil
	case PayloadMap:
		out := make(map[string]value.Value, len(p.Map))
		for _, k := range p.MapKeys {
			v, err := p.Map[k].Render(renderTpl)
			if err != nil {
				return value.Value{}, err
			}
			out[k] = v
		}
		return value.Map(out), nil
	default:
		return value.Value{}, fmt.Errorf("unknown payload node kind %d", p.Kind)
	}
}

// Rule is the compiled (WHERE, WITH, actions) triple plus metadata
// (spec §3.6).
type Rule struct {
	Name              string
	Description       string
	ContinueOnMatch   bool
	Active            bool
	Where             *operator.Operator // nil means "always true"
	With              []NamedExtractor
	Actions           []ActionTemplate
}

// NodeKind discriminates a processing-tree node's variant.
type NodeKind int

const (
	NodeFilter NodeKind = iota
	NodeRuleset
)

// Node is either a Filter (gates a list of children) or a Ruleset (a leaf
// holding an ordered rule list) (spec §3.8).
type Node struct {
	Kind        NodeKind
	Name        string
	Description string
	Active      bool

	// Filter fields.
	Filter   *operator.Operator // nil means implicit filter: matches all
	Children []Node

	// Ruleset fields.
	Rules []Rule
}

// ErrorKind enumerates the fatal, build-time configuration error classes
// (spec §7).
type ErrorKind int

const (
	InvalidName ErrorKind = iota
	InvalidRegex
	InvalidAccessor
	UnknownVariableReference
	MissingField
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidName:
		return "InvalidName"
	case InvalidRegex:
		return "InvalidRegex"
	case InvalidAccessor:
		return "InvalidAccessor"
	case UnknownVariableReference:
		return "UnknownVariableReference"
	case MissingField:
		return "MissingField"
	default:
		return "Unknown"
	}
}

// BuildError identifies a single offending node by path, as spec §7
// requires: "Build-time errors surface as a single structured error
// identifying the offending node path. The tree is not partially loaded;
// the whole load fails."
type BuildError struct {
	Kind   ErrorKind
	Path   []string
	Detail string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s at %v: %s", e.Kind, e.Path, e.Detail)
}
