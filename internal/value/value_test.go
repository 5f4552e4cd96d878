package value

import "testing"

func TestEqualNumericIgnoresIntFloatTag(t *testing.T) {
	if !Equal(Int(1), Float(1.0)) {
		t.Fatal("expected 1 == 1.0")
	}
}

func TestEqualNullIsTrue(t *testing.T) {
	if !Equal(Null, Null) {
		t.Fatal("expected Null == Null")
	}
}

func TestEqualBoolNeverCoercesToNumber(t *testing.T) {
	if Equal(Bool(true), Int(1)) {
		t.Fatal("bool must not equal number")
	}
}

func TestCompareCrossTypeUnordered(t *testing.T) {
	if Compare(Int(1), String("1")) != Unordered {
		t.Fatal("expected cross-type comparison to be unordered")
	}
	if Compare(Null, Null) != Unordered {
		t.Fatal("expected Null to be unorderable even against itself")
	}
}

func TestCompareArraysPrefix(t *testing.T) {
	short := Array([]Value{Int(1), Int(2)})
	long := Array([]Value{Int(1), Int(2), Int(3)})
	if Compare(short, long) != Less {
		t.Fatal("expected shorter prefix array to be less")
	}
}

func TestCompareBool(t *testing.T) {
	if Compare(Bool(false), Bool(true)) != Less {
		t.Fatal("expected false < true")
	}
}

func TestContainString(t *testing.T) {
	if !Contain(String("hello world"), String("wor")) {
		t.Fatal("expected substring match")
	}
}

func TestContainArrayMembership(t *testing.T) {
	arr := Array([]Value{Int(1), String("x")})
	if !Contain(arr, String("x")) {
		t.Fatal("expected array membership")
	}
	if Contain(arr, Int(2)) {
		t.Fatal("did not expect membership")
	}
}

func TestContainMapKeyPresence(t *testing.T) {
	m := Map(map[string]Value{"a": Int(1)})
	if !Contain(m, String("a")) {
		t.Fatal("expected key presence")
	}
	if Contain(m, String("b")) {
		t.Fatal("did not expect key presence")
	}
}

func TestContainDefaultFalse(t *testing.T) {
	if Contain(Int(1), Int(1)) {
		t.Fatal("numbers are not containers")
	}
}

func TestFormatNumberPreservesIntegerShape(t *testing.T) {
	if got := FormatNumber(Int(42)); got != "42" {
		t.Fatalf("expected 42, got %s", got)
	}
	if got := FormatNumber(Float(42.5)); got != "42.5" {
		t.Fatalf("expected 42.5, got %s", got)
	}
}
