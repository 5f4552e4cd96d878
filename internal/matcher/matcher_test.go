package matcher

import (
	"regexp"
	"testing"

	"github.com/danielsvitols/tornado/internal/accessor"
	"github.com/danielsvitols/tornado/internal/event"
	"github.com/danielsvitols/tornado/internal/extractor"
	"github.com/danielsvitols/tornado/internal/interpolate"
	"github.com/danielsvitols/tornado/internal/operator"
	"github.com/danielsvitols/tornado/internal/tree"
	"github.com/danielsvitols/tornado/internal/value"
)

func mustAccessor(t *testing.T, expr string) accessor.Accessor {
	t.Helper()
	a, err := accessor.Parse(expr)
	if err != nil {
		t.Fatalf("parse %q: %v", expr, err)
	}
	return a
}

func mustTemplate(t *testing.T, s string) interpolate.Template {
	t.Helper()
	tpl, err := interpolate.Compile(s)
	if err != nil {
		t.Fatalf("compile template %q: %v", s, err)
	}
	return tpl
}

func newEvent(typ string, body string) event.Event {
	return event.New(typ, 1, map[string]value.Value{
		"body": value.String(body),
	})
}

// S1 — basic AND/OR match.
func TestS1BasicAndOrMatch(t *testing.T) {
	where := operator.And(
		operator.Equal(mustAccessor(t, "${event.type}"), accessor.Constant(value.String("email"))),
		operator.Or(
			operator.Equal(mustAccessor(t, "${event.payload.body}"), accessor.Constant(value.String("something"))),
			operator.Equal(mustAccessor(t, "${event.payload.body}"), accessor.Constant(value.String("other"))),
		),
	)
	rule := tree.Rule{
		Name:   "r1",
		Active: true,
		Where:  &where,
		Actions: []tree.ActionTemplate{
			{ID: "A", Payload: tree.PayloadNode{
				Kind:    tree.PayloadMap,
				MapKeys: []string{"x"},
				Map: map[string]tree.PayloadNode{
					"x": {Kind: tree.PayloadString, Tpl: mustTemplate(t, "${event.type}")},
				},
			}},
		},
	}
	root := tree.Node{
		Kind: tree.NodeFilter, Name: "root", Active: true,
		Children: []tree.Node{{Kind: tree.NodeRuleset, Name: "r", Rules: []tree.Rule{rule}}},
	}

	ev := newEvent("email", "other")
	result := Match(ev, root, Full)

	rs := result.Nodes[0]
	if len(rs.Rules) != 1 || rs.Rules[0].Status != Matched {
		t.Fatalf("expected rule Matched, got %+v", rs.Rules)
	}
	actions := rs.Rules[0].Actions
	if len(actions) != 1 || actions[0].ID != "A" {
		t.Fatalf("expected one action A, got %+v", actions)
	}
	x, ok := actions[0].Payload.Get("x")
	if !ok || x.StringValue() != "email" {
		t.Fatalf("expected payload x=email, got %+v", actions[0].Payload)
	}
}

// S2 — WHERE false.
func TestS2WhereFalseNotMatched(t *testing.T) {
	where := operator.Equal(mustAccessor(t, "${event.type}"), accessor.Constant(value.String("email")))
	rule := tree.Rule{Name: "r1", Active: true, Where: &where}
	root := tree.Node{
		Kind: tree.NodeFilter, Name: "root", Active: true,
		Children: []tree.Node{{Kind: tree.NodeRuleset, Name: "r", Rules: []tree.Rule{rule}}},
	}

	ev := newEvent("trap", "other")
	result := Match(ev, root, Full)

	rs := result.Nodes[0]
	if rs.Rules[0].Status != NotMatched {
		t.Fatalf("expected NotMatched, got %v", rs.Rules[0].Status)
	}
	if len(rs.Rules[0].Actions) != 0 {
		t.Fatalf("expected no actions, got %+v", rs.Rules[0].Actions)
	}
}

func s3Rule(t *testing.T) tree.Rule {
	where := operator.Equal(mustAccessor(t, "${event.type}"), accessor.Constant(value.String("email")))
	re := regexp.MustCompile(`([0-9]+)\sDegrees`)
	return tree.Rule{
		Name:   "r1",
		Active: true,
		Where:  &where,
		With: []tree.NamedExtractor{
			{Name: "temp", Extractor: extractor.New(mustAccessor(t, "${event.payload.body}"), re, 1)},
		},
		Actions: []tree.ActionTemplate{
			{ID: "L", Payload: tree.PayloadNode{
				Kind:    tree.PayloadMap,
				MapKeys: []string{"t"},
				Map: map[string]tree.PayloadNode{
					"t": {Kind: tree.PayloadString, Tpl: mustTemplate(t, "${_variables.temp}")},
				},
			}},
		},
	}
}

// S3 — extractor success.
func TestS3ExtractorSuccess(t *testing.T) {
	root := tree.Node{
		Kind: tree.NodeFilter, Name: "root", Active: true,
		Children: []tree.Node{{Kind: tree.NodeRuleset, Name: "r", Rules: []tree.Rule{s3Rule(t)}}},
	}

	ev := newEvent("email", "It is 42 Degrees now")
	result := Match(ev, root, Full)

	rs := result.Nodes[0]
	if rs.Rules[0].Status != Matched {
		t.Fatalf("expected Matched, got %v", rs.Rules[0].Status)
	}
	if got, ok := rs.ExtractedVars["r1.temp"]; !ok || got.StringValue() != "42" {
		t.Fatalf("expected extracted_vars.r1.temp = 42, got %+v", rs.ExtractedVars)
	}
	t2, ok := rs.Rules[0].Actions[0].Payload.Get("t")
	if !ok || t2.StringValue() != "42" {
		t.Fatalf("expected action payload t=42, got %+v", rs.Rules[0].Actions)
	}
}

// S4 — extractor failure.
func TestS4ExtractorFailurePartiallyMatched(t *testing.T) {
	root := tree.Node{
		Kind: tree.NodeFilter, Name: "root", Active: true,
		Children: []tree.Node{{Kind: tree.NodeRuleset, Name: "r", Rules: []tree.Rule{s3Rule(t)}}},
	}

	ev := newEvent("email", "no match")
	result := Match(ev, root, Full)

	rs := result.Nodes[0]
	if rs.Rules[0].Status != PartiallyMatched {
		t.Fatalf("expected PartiallyMatched, got %v", rs.Rules[0].Status)
	}
	if len(rs.Rules[0].Actions) != 0 {
		t.Fatalf("expected no actions, got %+v", rs.Rules[0].Actions)
	}
	if _, ok := rs.ExtractedVars["r1.temp"]; ok {
		t.Fatalf("expected temp not extracted, got %+v", rs.ExtractedVars)
	}
}

// S5 — continue_on_match:false stops the ruleset.
func TestS5ContinueFalseStopsRuleset(t *testing.T) {
	trueOp := operator.And()
	a := tree.Rule{Name: "a", Active: true, Where: &trueOp, ContinueOnMatch: false}
	b := tree.Rule{Name: "b", Active: true, Where: &trueOp}
	root := tree.Node{
		Kind: tree.NodeFilter, Name: "root", Active: true,
		Children: []tree.Node{{Kind: tree.NodeRuleset, Name: "r", Rules: []tree.Rule{a, b}}},
	}

	ev := newEvent("email", "x")
	result := Match(ev, root, Full)

	rs := result.Nodes[0]
	if rs.Rules[0].Status != Matched {
		t.Fatalf("expected a Matched, got %v", rs.Rules[0].Status)
	}
	if rs.Rules[1].Status != NotProcessed {
		t.Fatalf("expected b NotProcessed, got %v", rs.Rules[1].Status)
	}
}

// S6 — filter gates subtree.
func TestS6FilterGatesSubtree(t *testing.T) {
	trueOp := operator.And()
	rule := tree.Rule{Name: "always", Active: true, Where: &trueOp}
	filterExpr := operator.Equal(mustAccessor(t, "${event.type}"), accessor.Constant(value.String("email")))
	root := tree.Node{
		Kind: tree.NodeFilter, Name: "F", Active: true, Filter: &filterExpr,
		Children: []tree.Node{{Kind: tree.NodeRuleset, Name: "r", Rules: []tree.Rule{rule}}},
	}

	ev := newEvent("trap", "x")
	result := Match(ev, root, Full)

	if result.FilterStatus != FilterNotMatched {
		t.Fatalf("expected filter NotMatched, got %v", result.FilterStatus)
	}
	if len(result.Nodes) != 0 {
		t.Fatalf("expected no descended children, got %+v", result.Nodes)
	}
}

// Invariant 3 — inactivity short-circuits the whole subtree.
func TestInactiveFilterReportsInactiveOnly(t *testing.T) {
	root := tree.Node{
		Kind: tree.NodeFilter, Name: "F", Active: false,
		Children: []tree.Node{{Kind: tree.NodeRuleset, Name: "r"}},
	}
	result := Match(newEvent("email", "x"), root, Full)
	if result.FilterStatus != FilterInactive {
		t.Fatalf("expected Inactive, got %v", result.FilterStatus)
	}
	if len(result.Nodes) != 0 {
		t.Fatalf("expected no children beyond the filter record, got %+v", result.Nodes)
	}
}

// Invariant 6 — non-scalar interpolation drops the action with a message.
func TestNonScalarPayloadDropsActionWithMessage(t *testing.T) {
	trueOp := operator.And()
	rule := tree.Rule{
		Name: "r1", Active: true, Where: &trueOp,
		Actions: []tree.ActionTemplate{
			{ID: "bad", Payload: tree.PayloadNode{Kind: tree.PayloadString, Tpl: mustTemplate(t, "${event.payload}x")}},
		},
	}
	root := tree.Node{
		Kind: tree.NodeFilter, Name: "root", Active: true,
		Children: []tree.Node{{Kind: tree.NodeRuleset, Name: "r", Rules: []tree.Rule{rule}}},
	}

	result := Match(newEvent("email", "x"), root, Full)
	rs := result.Nodes[0]
	if rs.Rules[0].Status != Matched {
		t.Fatalf("expected Matched (action rendering failures don't demote status), got %v", rs.Rules[0].Status)
	}
	if len(rs.Rules[0].Actions) != 0 {
		t.Fatalf("expected dropped action, got %+v", rs.Rules[0].Actions)
	}
	if rs.Rules[0].Message == "" {
		t.Fatalf("expected a non-empty message")
	}
}

// Invariant 7 — bare accessor payload preserves the native value type.
func TestBareAccessorPreservesMapType(t *testing.T) {
	trueOp := operator.And()
	rule := tree.Rule{
		Name: "r1", Active: true, Where: &trueOp,
		Actions: []tree.ActionTemplate{
			{ID: "whole", Payload: tree.PayloadNode{Kind: tree.PayloadString, Tpl: mustTemplate(t, "${event}")}},
		},
	}
	root := tree.Node{
		Kind: tree.NodeFilter, Name: "root", Active: true,
		Children: []tree.Node{{Kind: tree.NodeRuleset, Name: "r", Rules: []tree.Rule{rule}}},
	}

	result := Match(newEvent("email", "x"), root, Full)
	payload := result.Nodes[0].Rules[0].Actions[0].Payload
	if !payload.IsMap() {
		t.Fatalf("expected event payload to stay a map, got kind %v", payload.Kind())
	}
}

func TestSkipActionsModeEmitsNoActions(t *testing.T) {
	root := tree.Node{
		Kind: tree.NodeFilter, Name: "root", Active: true,
		Children: []tree.Node{{Kind: tree.NodeRuleset, Name: "r", Rules: []tree.Rule{s3Rule(t)}}},
	}
	result := Match(newEvent("email", "It is 42 Degrees now"), root, SkipActions)
	rs := result.Nodes[0]
	if rs.Rules[0].Status != Matched {
		t.Fatalf("expected Matched, got %v", rs.Rules[0].Status)
	}
	if len(rs.Rules[0].Actions) != 0 {
		t.Fatalf("expected no actions in SkipActions mode, got %+v", rs.Rules[0].Actions)
	}
}
