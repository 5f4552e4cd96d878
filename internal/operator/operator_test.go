package operator

import (
	"regexp"
	"testing"

	"github.com/danielsvitols/tornado/internal/accessor"
	"github.com/danielsvitols/tornado/internal/event"
	"github.com/danielsvitols/tornado/internal/value"
)

func mustAcc(t *testing.T, s string) accessor.Accessor {
	t.Helper()
	a, err := accessor.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestS1BasicAndOr(t *testing.T) {
	ev := event.New("email", 1, map[string]value.Value{"body": value.String("other")})

	op := And(
		Equal(mustAcc(t, "${event.type}"), accessor.Constant(value.String("email"))),
		Or(
			Equal(mustAcc(t, "${event.payload.body}"), accessor.Constant(value.String("something"))),
			Equal(mustAcc(t, "${event.payload.body}"), accessor.Constant(value.String("other"))),
		),
	)

	if !op.Eval(ev, nil, "") {
		t.Fatal("expected match")
	}
}

func TestS2WhereFalse(t *testing.T) {
	ev := event.New("trap", 1, map[string]value.Value{"body": value.String("other")})
	op := Equal(mustAcc(t, "${event.type}"), accessor.Constant(value.String("email")))
	if op.Eval(ev, nil, "") {
		t.Fatal("expected no match")
	}
}

func TestMissingOperandIsFalse(t *testing.T) {
	ev := event.New("email", 1, map[string]value.Value{})
	op := Equal(mustAcc(t, "${event.payload.nope}"), accessor.Constant(value.String("x")))
	if op.Eval(ev, nil, "") {
		t.Fatal("expected false on missing operand")
	}
}

func TestGeCrossTypeFalse(t *testing.T) {
	ev := event.New("email", 1, nil)
	op := Ge(accessor.Constant(value.Int(1)), accessor.Constant(value.String("1")))
	if op.Eval(ev, nil, "") {
		t.Fatal("expected false on cross-type ordering")
	}
}

func TestRegexOperator(t *testing.T) {
	ev := event.New("email", 1, map[string]value.Value{"body": value.String("temp 42c")})
	re := regexp.MustCompile(`[0-9]+c`)
	op := Regex(re, mustAcc(t, "${event.payload.body}"))
	if !op.Eval(ev, nil, "") {
		t.Fatal("expected regex match")
	}
}

func TestRegexOperatorMissingTargetIsFalse(t *testing.T) {
	ev := event.New("email", 1, map[string]value.Value{})
	re := regexp.MustCompile(`.*`)
	op := Regex(re, mustAcc(t, "${event.payload.body}"))
	if op.Eval(ev, nil, "") {
		t.Fatal("expected false on missing target")
	}
}

func TestAndShortCircuits(t *testing.T) {
	ev := event.New("email", 1, nil)
	// The second child has no compiled regex and would panic if it were
	// evaluated, so this only passes if And stops at the first false child.
	op := And(
		Equal(accessor.Constant(value.Bool(false)), accessor.Constant(value.Bool(true))),
		Regex(nil, accessor.Constant(value.String("x"))),
	)
	if op.Eval(ev, nil, "") {
		t.Fatal("expected false")
	}
}
