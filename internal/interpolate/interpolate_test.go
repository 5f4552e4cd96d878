package interpolate

import (
	"testing"

	"github.com/danielsvitols/tornado/internal/accessor"
	"github.com/danielsvitols/tornado/internal/event"
	"github.com/danielsvitols/tornado/internal/value"
)

func testEvent() event.Event {
	return event.New("email", 1, map[string]value.Value{
		"body": value.String("It is 42 Degrees now"),
	})
}

func TestRenderLiteralAndAccessor(t *testing.T) {
	tpl, err := Compile("type=${event.type}!")
	if err != nil {
		t.Fatal(err)
	}
	v, err := tpl.Render(testEvent(), nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.StringValue() != "type=email!" {
		t.Fatalf("got %v", v)
	}
}

func TestRenderBareAccessorPreservesType(t *testing.T) {
	tpl, err := Compile("${event}")
	if err != nil {
		t.Fatal(err)
	}
	v, err := tpl.Render(testEvent(), nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsMap() {
		t.Fatalf("expected map value preserved, got kind %v", v.Kind())
	}
}

func TestRenderFailsOnMapInNonBareTemplate(t *testing.T) {
	tpl, err := Compile("x=${event}")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tpl.Render(testEvent(), nil, ""); err == nil {
		t.Fatal("expected error for non-scalar in mixed template")
	}
}

func TestRenderFailsOnMissing(t *testing.T) {
	tpl, err := Compile("${event.payload.nope}")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tpl.Render(testEvent(), nil, ""); err == nil {
		t.Fatal("expected error for missing accessor")
	}
}

func TestRenderNumberPreservesIntegerShape(t *testing.T) {
	env := accessor.NewEnv()
	env.Set("r", "n", value.Int(42))
	tpl, err := Compile("n=${_variables.n}")
	if err != nil {
		t.Fatal(err)
	}
	v, err := tpl.Render(testEvent(), env, "r")
	if err != nil {
		t.Fatal(err)
	}
	if v.StringValue() != "n=42" {
		t.Fatalf("got %v", v)
	}
}
