// Package accessor compiles and evaluates the ${...} expressions used to
// reference event fields and previously-extracted ruleset variables
// (spec §3.3, §4.2).
package accessor

import (
	"fmt"
	"strings"

	"github.com/danielsvitols/tornado/internal/event"
	"github.com/danielsvitols/tornado/internal/value"
)

// Kind discriminates the compiled Accessor variants.
type Kind int

const (
	KindConstant Kind = iota
	KindEvent
	KindEventField
	KindExtractedVar
)

// Accessor is a compiled reference, ready to be resolved against an event
// and a ruleset's variable environment.
type Accessor struct {
	kind Kind

	constant value.Value

	path []string // EventField path segments

	// ExtractedVar: ruleName is empty when the DSL wrote a bare
	// "_variables.NAME" (current rule); otherwise it names an earlier
	// rule in the same ruleset ("_variables.RULE_NAME.NAME").
	ruleName string
	varName  string
}

// Constant wraps a literal value as an Accessor.
func Constant(v value.Value) Accessor { return Accessor{kind: KindConstant, constant: v} }

// WholeEvent is the Accessor that resolves to the entire event.
var WholeEvent = Accessor{kind: KindEvent}

// Kind reports the accessor's variant.
func (a Accessor) Kind() Kind { return a.kind }

// Path returns the EventField path (nil for other kinds).
func (a Accessor) Path() []string { return a.path }

// RuleName returns the referenced rule name for an ExtractedVar accessor
// ("" means "the current rule").
func (a Accessor) RuleName() string { return a.ruleName }

// VarName returns the referenced variable name for an ExtractedVar accessor.
func (a Accessor) VarName() string { return a.varName }

// Env is the per-ruleset variable environment: rule name -> variable name
// -> value, populated in rule-declaration order as rules match
// successfully (spec §4.6, design note "variable environment").
type Env struct {
	vars map[string]map[string]value.Value
}

// NewEnv returns an empty environment, ready for one ruleset evaluation.
func NewEnv() *Env {
	return &Env{vars: make(map[string]map[string]value.Value)}
}

// Set publishes a variable produced by ruleName.
func (e *Env) Set(ruleName, varName string, v value.Value) {
	bucket, ok := e.vars[ruleName]
	if !ok {
		bucket = make(map[string]value.Value)
		e.vars[ruleName] = bucket
	}
	bucket[varName] = v
}

// Get looks up a variable published by ruleName.
func (e *Env) Get(ruleName, varName string) (value.Value, bool) {
	bucket, ok := e.vars[ruleName]
	if !ok {
		return value.Value{}, false
	}
	v, ok := bucket[varName]
	return v, ok
}

// Snapshot returns the environment flattened as "rule.var" -> Value pairs,
// for inclusion in a ProcessedNode's extracted_vars (spec §6.1).
func (e *Env) Snapshot() map[string]value.Value {
	out := make(map[string]value.Value)
	for rule, bucket := range e.vars {
		for name, v := range bucket {
			out[rule+"."+name] = v
		}
	}
	return out
}

// Resolve evaluates the accessor against an event and ruleset
// environment. currentRule names the rule this accessor was compiled
// inside (used to resolve a bare "_variables.NAME" reference). ok is
// false on "missing" (spec §4.1).
func (a Accessor) Resolve(ev event.Event, env *Env, currentRule string) (value.Value, bool) {
	switch a.kind {
	case KindConstant:
		return a.constant, true
	case KindEvent:
		return ev.AsValue(), true
	case KindEventField:
		return resolvePath(ev.AsValue(), a.path)
	case KindExtractedVar:
		ruleName := a.ruleName
		if ruleName == "" {
			ruleName = currentRule
		}
		if env == nil {
			return value.Value{}, false
		}
		return env.Get(ruleName, a.varName)
	default:
		return value.Value{}, false
	}
}

func resolvePath(root value.Value, path []string) (value.Value, bool) {
	cur := root
	for _, seg := range path {
		if !cur.IsMap() {
			return value.Value{}, false
		}
		next, ok := cur.Get(seg)
		if !ok {
			return value.Value{}, false
		}
		cur = next
	}
	return cur, true
}

// ParseError reports a malformed ${...} expression (spec §7:
// InvalidAccessor).
type ParseError struct {
	Expr   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid accessor %q: %s", e.Expr, e.Reason)
}

// IsAccessorSyntax reports whether s is a whole "${...}" expression (used
// by callers deciding whether an operand/from field is a bare literal or
// an accessor to compile).
func IsAccessorSyntax(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") && len(s) >= 3
}

// Parse compiles a whole "${...}" expression into an Accessor. It is used
// for operator operands and extractor sources, which accept exactly one
// accessor (spec design note: "The operand form rejects multi-accessor
// templates at build time").
func Parse(expr string) (Accessor, error) {
	if !IsAccessorSyntax(expr) {
		return Accessor{}, &ParseError{Expr: expr, Reason: "must be of the form ${...}"}
	}
	inner := expr[2 : len(expr)-1]
	return parseInner(expr, inner)
}

func parseInner(original, inner string) (Accessor, error) {
	segments, err := splitPath(inner)
	if err != nil {
		return Accessor{}, &ParseError{Expr: original, Reason: err.Error()}
	}
	if len(segments) == 0 {
		return Accessor{}, &ParseError{Expr: original, Reason: "empty accessor body"}
	}

	switch segments[0] {
	case "event":
		if len(segments) == 1 {
			return WholeEvent, nil
		}
		return Accessor{kind: KindEventField, path: segments[1:]}, nil
	case "_variables":
		switch len(segments) {
		case 2:
			return Accessor{kind: KindExtractedVar, varName: segments[1]}, nil
		case 3:
			return Accessor{kind: KindExtractedVar, ruleName: segments[1], varName: segments[2]}, nil
		default:
			return Accessor{}, &ParseError{
				Expr:   original,
				Reason: "_variables accessor must be _variables.NAME or _variables.RULE.NAME",
			}
		}
	default:
		return Accessor{}, &ParseError{
			Expr:   original,
			Reason: fmt.Sprintf("unknown accessor root %q (expected event or _variables)", segments[0]),
		}
	}
}

// splitPath splits a dot-separated accessor path, honoring double-quoted
// segments that may themselves contain literal dots (spec §4.2). A quote
// character is not permitted inside a quoted segment.
func splitPath(s string) ([]string, error) {
	var segments []string
	var cur strings.Builder
	inQuotes := false

	flush := func() {
		segments = append(segments, cur.String())
		cur.Reset()
	}

	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"' && !inQuotes:
			inQuotes = true
			i++
		case c == '"' && inQuotes:
			inQuotes = false
			i++
		case c == '.' && !inQuotes:
			flush()
			i++
		default:
			cur.WriteByte(c)
			i++
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted segment")
	}
	flush()

	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("empty path segment")
		}
	}
	return segments, nil
}
