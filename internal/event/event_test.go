package event

import "testing"

func TestEscapeToken(t *testing.T) {
	cases := map[string]string{
		"plain":      "plain",
		"a/b":        "a~1b",
		"a~b":        "a~0b",
		"a~b/c":      "a~0b~1c",
	}
	for in, want := range cases {
		if got := EscapeToken(in); got != want {
			t.Errorf("EscapeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("/sca", "check", "id"); got != "/sca/check/id" {
		t.Errorf("Join = %q", got)
	}
	if got := Join("/sca", "a/b"); got != "/sca/a~1b" {
		t.Errorf("Join escaping = %q", got)
	}
}

func TestDocument_ExistsAndTypedGets(t *testing.T) {
	doc, err := Parse([]byte(`{"sca":{"check":{"id":42,"title":"t","result":"passed"},"policies":["A","B"],"first_scan":true}}`))
	if err != nil {
		t.Fatal(err)
	}
	if !doc.Exists("/sca/check/id") {
		t.Error("expected /sca/check/id to exist")
	}
	if doc.Exists("/sca/missing") {
		t.Error("did not expect /sca/missing to exist")
	}
	if !doc.IsInt("/sca/check/id") {
		t.Error("expected check/id to be int")
	}
	if !doc.IsString("/sca/check/title") {
		t.Error("expected check/title to be string")
	}
	if !doc.IsArray("/sca/policies") {
		t.Error("expected policies to be array")
	}
	if !doc.IsBool("/sca/first_scan") {
		t.Error("expected first_scan to be bool")
	}
	if v, ok := doc.GetInt("/sca/check/id"); !ok || v != 42 {
		t.Errorf("GetInt = %v, %v", v, ok)
	}
	if v, ok := doc.GetString("/sca/check/result"); !ok || v != "passed" {
		t.Errorf("GetString = %v, %v", v, ok)
	}
	if _, ok := doc.GetString("/sca/missing"); ok {
		t.Error("expected GetString on missing path to report absent")
	}
}

func TestDocument_SetCreatesIntermediates(t *testing.T) {
	doc := New()
	doc.SetString("/sca/check/result", "passed")
	v, ok := doc.GetString("/sca/check/result")
	if !ok || v != "passed" {
		t.Fatalf("SetString round-trip failed: %v, %v", v, ok)
	}
}

func TestDocument_SetArrayAndAppend(t *testing.T) {
	doc := New()
	doc.SetArray("/sca/check/file")
	doc.AppendString("a", "/sca/check/file")
	doc.AppendString("b", "/sca/check/file")
	arr, ok := doc.GetArray("/sca/check/file")
	if !ok || len(arr) != 2 || arr[0] != "a" || arr[1] != "b" {
		t.Fatalf("unexpected array: %v, %v", arr, ok)
	}
}

func TestDocument_SetCopiesSubtree(t *testing.T) {
	doc, err := Parse([]byte(`{"check":{"id":42,"nested":{"a":1}}}`))
	if err != nil {
		t.Fatal(err)
	}
	doc.Set("/sca/check", "/check")
	v, ok := doc.GetInt("/sca/check/id")
	if !ok || v != 42 {
		t.Fatalf("copied subtree missing id: %v, %v", v, ok)
	}
	// Mutating the original must not affect the copy.
	doc.SetInt("/check/id", 99)
	v, ok = doc.GetInt("/sca/check/id")
	if !ok || v != 42 {
		t.Fatalf("copy was not deep: %v, %v", v, ok)
	}
}

func TestDocument_StrFallsBackToEmptyObject(t *testing.T) {
	doc := New()
	if got := doc.Str("/missing"); got != "{}" {
		t.Errorf("Str on missing path = %q, want {}", got)
	}
}

func TestDocument_StrSerializesSubtree(t *testing.T) {
	doc, err := Parse([]byte(`{"a":{"b":1}}`))
	if err != nil {
		t.Fatal(err)
	}
	got := doc.Str("/a")
	want := `{"b":1}`
	if got != want {
		t.Errorf("Str = %q, want %q", got, want)
	}
}
