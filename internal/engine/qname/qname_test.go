package qname

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	cases := map[string]Name{
		"":           "",
		"  pkg.mod ": "pkg.mod",
		"a..b":       "a.b",
		".a.":        "a",
		"os.path":    "os.path",
	}
	for in, want := range cases {
		if got := Parse(in); got != want {
			t.Errorf("Parse(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStrip(t *testing.T) {
	n := Name("pkg.sub.mod")

	got, ok := n.Strip(1)
	if !ok || got != "pkg.sub" {
		t.Fatalf("Strip(1) = %q, %v", got, ok)
	}
	got, ok = n.Strip(3)
	if !ok || got != "" {
		t.Fatalf("Strip(3) = %q, %v", got, ok)
	}
	if _, ok := n.Strip(4); ok {
		t.Fatal("Strip(4) should fail on a three segment name")
	}
}

func TestHasPrefixIsSegmentAware(t *testing.T) {
	if !Name("pkg.a").HasPrefix("pkg") {
		t.Error("pkg.a should have prefix pkg")
	}
	if Name("pkga").HasPrefix("pkg") {
		t.Error("pkga must not match prefix pkg")
	}
	if !Name("pkg").HasPrefix("pkg") {
		t.Error("a name is its own prefix")
	}
}

func TestAccessors(t *testing.T) {
	n := Name("a.b.c")
	if n.Len() != 3 || n.Root() != "a" || n.Last() != "c" || n.Parent() != "a.b" {
		t.Fatalf("unexpected accessors for %q", n)
	}
	if n.Trim(2) != "a.b" || n.Trim(0) != n {
		t.Fatalf("unexpected Trim results for %q", n)
	}
	if got := n.Ancestors(); !reflect.DeepEqual(got, []Name{"a", "a.b"}) {
		t.Fatalf("Ancestors() = %v", got)
	}
	if Name("").Child("x.y") != "x.y" || Name("p").Child("") != "p" {
		t.Fatal("Child should handle empty sides")
	}
}
