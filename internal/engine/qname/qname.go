// Package qname models dotted module names as comparable values so they can
// be used directly as map keys.
package qname

import "strings"

// Name is a fully qualified, dot-separated module name such as "pkg.sub.mod".
// The zero value is the empty name.
type Name string

const sep = "."

// Parse normalises a dotted string into a Name. Surrounding whitespace and
// empty segments ("a..b", ".a") are dropped.
func Parse(s string) Name {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "..") && !strings.HasPrefix(s, sep) && !strings.HasSuffix(s, sep) {
		return Name(s)
	}
	return Join(strings.Split(s, sep)...)
}

// Join builds a Name from segments, skipping empty ones.
func Join(segments ...string) Name {
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		out = append(out, seg)
	}
	return Name(strings.Join(out, sep))
}

func (n Name) String() string { return string(n) }

func (n Name) IsZero() bool { return n == "" }

// Segments returns a fresh slice of the name's parts.
func (n Name) Segments() []string {
	if n == "" {
		return nil
	}
	return strings.Split(string(n), sep)
}

func (n Name) Len() int {
	if n == "" {
		return 0
	}
	return strings.Count(string(n), sep) + 1
}

// Root returns the first segment.
func (n Name) Root() Name {
	if i := strings.Index(string(n), sep); i >= 0 {
		return n[:i]
	}
	return n
}

// Last returns the final segment.
func (n Name) Last() string {
	if i := strings.LastIndex(string(n), sep); i >= 0 {
		return string(n[i+1:])
	}
	return string(n)
}

// Parent drops the last segment. The parent of a single-segment name is "".
func (n Name) Parent() Name {
	if i := strings.LastIndex(string(n), sep); i >= 0 {
		return n[:i]
	}
	return ""
}

// Strip removes count trailing segments. ok is false when count exceeds the
// number of segments.
func (n Name) Strip(count int) (Name, bool) {
	if count < 0 {
		return n, false
	}
	segs := n.Segments()
	if count > len(segs) {
		return "", false
	}
	return Name(strings.Join(segs[:len(segs)-count], sep)), true
}

// Trim keeps at most depth leading segments. depth <= 0 returns n unchanged.
func (n Name) Trim(depth int) Name {
	if depth <= 0 {
		return n
	}
	segs := n.Segments()
	if len(segs) <= depth {
		return n
	}
	return Name(strings.Join(segs[:depth], sep))
}

// Child appends one or more dotted segments.
func (n Name) Child(rest string) Name {
	r := Parse(rest)
	switch {
	case r == "":
		return n
	case n == "":
		return r
	}
	return n + sep + r
}

// HasPrefix reports whether prefix equals n or is one of its ancestors.
// Matching is segment-aware: "pkg" is a prefix of "pkg.a" but not of "pkga".
func (n Name) HasPrefix(prefix Name) bool {
	if prefix == "" {
		return true
	}
	if n == prefix {
		return true
	}
	return strings.HasPrefix(string(n), string(prefix)+sep)
}

// Ancestors returns every proper prefix, shortest first: "a.b.c" yields
// ["a", "a.b"].
func (n Name) Ancestors() []Name {
	segs := n.Segments()
	if len(segs) < 2 {
		return nil
	}
	out := make([]Name, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, Name(strings.Join(segs[:i], sep)))
	}
	return out
}
