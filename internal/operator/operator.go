// Package operator implements the compiled boolean/comparison expression
// tree used in WHERE conditions and filter expressions (spec §3.4, §4.3).
package operator

import (
	"regexp"

	"github.com/danielsvitols/tornado/internal/accessor"
	"github.com/danielsvitols/tornado/internal/event"
	"github.com/danielsvitols/tornado/internal/value"
)

// Kind discriminates the operator tree's node variants.
type Kind int

const (
	KindAnd Kind = iota
	KindOr
	KindContain
	KindEqual
	KindGe
	KindGt
	KindLe
	KindLt
	KindRegex
)

// Operator is a compiled node of a WHERE/filter expression tree. Leaves
// carry accessors; And/Or carry child operators.
type Operator struct {
	kind     Kind
	children []Operator // And, Or

	a, b accessor.Accessor // Contain, Equal, Ge, Gt, Le, Lt

	target accessor.Accessor // Regex
	re     *regexp.Regexp    // Regex, compiled once at build time
}

// And builds a conjunction. An empty And is vacuously true.
func And(children ...Operator) Operator { return Operator{kind: KindAnd, children: children} }

// Or builds a disjunction. An empty Or is vacuously false.
func Or(children ...Operator) Operator { return Operator{kind: KindOr, children: children} }

// Contain builds a Contain(a, b) node (spec §4.3).
func Contain(a, b accessor.Accessor) Operator { return Operator{kind: KindContain, a: a, b: b} }

// Equal builds an Equal(a, b) node.
func Equal(a, b accessor.Accessor) Operator { return Operator{kind: KindEqual, a: a, b: b} }

// Ge builds a Ge(a, b) node.
func Ge(a, b accessor.Accessor) Operator { return Operator{kind: KindGe, a: a, b: b} }

// Gt builds a Gt(a, b) node.
func Gt(a, b accessor.Accessor) Operator { return Operator{kind: KindGt, a: a, b: b} }

// Le builds a Le(a, b) node.
func Le(a, b accessor.Accessor) Operator { return Operator{kind: KindLe, a: a, b: b} }

// Lt builds a Lt(a, b) node.
func Lt(a, b accessor.Accessor) Operator { return Operator{kind: KindLt, a: a, b: b} }

// Regex builds a Regex(re, target) node from an already-compiled pattern
// (compilation happens once, at build time, in the treecfg package).
func Regex(re *regexp.Regexp, target accessor.Accessor) Operator {
	return Operator{kind: KindRegex, re: re, target: target}
}

// Kind reports the node's variant.
func (o Operator) Kind() Kind { return o.kind }

// Children returns the And/Or child operators (nil for other kinds).
func (o Operator) Children() []Operator { return o.children }

// Operands returns the two accessor operands of a comparison node (the
// zero Accessor pair for And/Or/Regex).
func (o Operator) Operands() (a, b accessor.Accessor) { return o.a, o.b }

// Target returns the Regex node's target accessor.
func (o Operator) Target() accessor.Accessor { return o.target }

// Walk calls visit once for every accessor reachable from this operator
// tree (used by the config loader to validate _variables references at
// build time).
func (o Operator) Walk(visit func(accessor.Accessor)) {
	switch o.kind {
	case KindAnd, KindOr:
		for _, c := range o.children {
			c.Walk(visit)
		}
	case KindRegex:
		visit(o.target)
	default:
		visit(o.a)
		visit(o.b)
	}
}

// Eval evaluates the operator against an event and ruleset environment,
// implementing spec §4.3's short-circuit and missing-operand semantics.
func (o Operator) Eval(ev event.Event, env *accessor.Env, currentRule string) bool {
	switch o.kind {
	case KindAnd:
		for _, c := range o.children {
			if !c.Eval(ev, env, currentRule) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range o.children {
			if c.Eval(ev, env, currentRule) {
				return true
			}
		}
		return false
	case KindContain:
		av, aok := o.a.Resolve(ev, env, currentRule)
		bv, bok := o.b.Resolve(ev, env, currentRule)
		if !aok || !bok {
			return false
		}
		return value.Contain(av, bv)
	case KindEqual:
		av, aok := o.a.Resolve(ev, env, currentRule)
		bv, bok := o.b.Resolve(ev, env, currentRule)
		if !aok || !bok {
			return false
		}
		return value.Equal(av, bv)
	case KindGe, KindGt, KindLe, KindLt:
		av, aok := o.a.Resolve(ev, env, currentRule)
		bv, bok := o.b.Resolve(ev, env, currentRule)
		if !aok || !bok {
			return false
		}
		ord := value.Compare(av, bv)
		if ord == value.Unordered {
			return false
		}
		switch o.kind {
		case KindGe:
			return ord == value.Greater || ord == value.Equal_
		case KindGt:
			return ord == value.Greater
		case KindLe:
			return ord == value.Less || ord == value.Equal_
		case KindLt:
			return ord == value.Less
		}
		return false
	case KindRegex:
		tv, ok := o.target.Resolve(ev, env, currentRule)
		if !ok || !tv.IsString() {
			return false
		}
		return o.re.MatchString(tv.StringValue())
	default:
		return false
	}
}
