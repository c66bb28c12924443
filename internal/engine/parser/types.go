// # internal/engine/parser/types.go
package parser

import "strings"

// Wildcard is the symbol recorded for "from X import *".
const Wildcard = "*"

// RawImport is one import declaration exactly as written in a source unit,
// before any resolution. Multi-target statements ("import a, b" or
// "from x import a, b") produce one RawImport per target.
type RawImport struct {
	// Name is the dotted module for "import X", the imported name for the
	// from-form, Wildcard for star imports, or the literal (or expression
	// text) passed to a dynamic import call.
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
	// From is the module part of a from-import with leading dots removed.
	// It is empty for "from . import x".
	From   string `json:"from,omitempty"`
	IsFrom bool   `json:"is_from,omitempty"`
	// Level counts leading dots of a relative from-import; 0 is absolute.
	Level       int    `json:"level,omitempty"`
	Wildcard    bool   `json:"wildcard,omitempty"`
	Dynamic     bool   `json:"dynamic,omitempty"`
	Literal     bool   `json:"literal,omitempty"` // dynamic import with a plain string argument
	Conditional bool   `json:"conditional,omitempty"`
	Line        int    `json:"line"`
	Text        string `json:"text,omitempty"`
}

func (r RawImport) IsRelative() bool { return r.Level > 0 }

// Module returns the dotted text the import names before resolution, e.g.
// "..pkg.mod" for "from ..pkg import mod".
func (r RawImport) Module() string {
	if !r.IsFrom {
		return r.Name
	}
	return strings.Repeat(".", r.Level) + r.From
}

// Display renders the import compactly for diagnostics.
func (r RawImport) Display() string {
	if r.Text != "" {
		return r.Text
	}
	switch {
	case r.Dynamic:
		return "import_module(" + r.Name + ")"
	case r.IsFrom:
		return "from " + r.Module() + " import " + r.Name
	}
	return "import " + r.Name
}
