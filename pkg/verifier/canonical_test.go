package verifier_test

import (
	"testing"

	"github.com/koh0920/syncarchive/pkg/verifier"
)

func TestCanonicalJSONKeyOrderIndependent(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": 2, "c": 3}
	b := map[string]interface{}{"c": 3, "a": 2, "b": 1}

	ja, err := verifier.CanonicalJSON(a)
	if err != nil {
		t.Fatalf("CanonicalJSON a: %v", err)
	}
	jb, err := verifier.CanonicalJSON(b)
	if err != nil {
		t.Fatalf("CanonicalJSON b: %v", err)
	}
	if string(ja) != string(jb) {
		t.Fatalf("key-order should not affect output: %q != %q", ja, jb)
	}
	if string(ja) != `{"a":2,"b":1,"c":3}` {
		t.Fatalf("unexpected canonical form: %q", ja)
	}
}

func TestCanonicalJSONNested(t *testing.T) {
	doc := map[string]interface{}{
		"outer": map[string]interface{}{"z": 1, "y": 2},
		"list":  []interface{}{"x", "y"},
	}
	got, err := verifier.CanonicalJSON(doc)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	want := `{"list":["x","y"],"outer":{"y":2,"z":1}}`
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCanonicalJSONStringSlice(t *testing.T) {
	got, err := verifier.CanonicalJSON(map[string]interface{}{"hosts": []string{"a.com", "b.com"}})
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	want := `{"hosts":["a.com","b.com"]}`
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
