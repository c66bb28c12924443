// # internal/engine/resolver/resolver.go
package resolver

import (
	"fmt"
	"strings"

	"snakr/internal/engine/parser"
	"snakr/internal/engine/qname"

	"github.com/gobwas/glob"
)

// Kind classifies a module node.
type Kind string

const (
	KindInternal   Kind = "internal"
	KindExternal   Kind = "external"
	KindUnresolved Kind = "unresolved"
)

// Origin refines external modules.
type Origin string

const (
	OriginNone       Origin = ""
	OriginStdlib     Origin = "stdlib"
	OriginThirdParty Origin = "third_party"
)

const (
	dynamicPrefix = "<dynamic:"
	relativeSep   = ":"
)

// Target is the outcome of resolving one RawImport.
type Target struct {
	Name   qname.Name
	Kind   Kind
	Origin Origin
	// Symbols lists names imported from Name by a from-import that did not
	// name a submodule. Wildcard imports record parser.Wildcard.
	Symbols []string
	// Reason explains an unresolved target.
	Reason string
	// Ignored targets matched an ignore pattern and produce no edge.
	Ignored bool
}

func (t Target) IsUnresolved() bool { return t.Kind == KindUnresolved }

type Options struct {
	// ExternalDepth trims external targets to their leading segments.
	// Zero keeps the full name.
	ExternalDepth int
	// ClassifyStdlib tags external targets with their Origin.
	ClassifyStdlib bool
	// IgnoreModules are dot-separated globs. A module matching a pattern,
	// or descending from one that does, is ignored.
	IgnoreModules []string
}

// Resolver maps RawImports to graph targets against a fixed set of known
// internal modules. It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	known  *KnownModules
	opts   Options
	ignore []glob.Glob
}

func New(known *KnownModules, opts Options) (*Resolver, error) {
	if known == nil {
		known = NewKnownModules()
	}
	r := &Resolver{known: known, opts: opts}
	for _, pattern := range opts.IgnoreModules {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		r.ignore = append(r.ignore, g)
	}
	return r, nil
}

func (r *Resolver) Known() *KnownModules { return r.known }

// IsIgnored reports whether name or one of its ancestors matches an ignore
// pattern.
func (r *Resolver) IsIgnored(name qname.Name) bool {
	if len(r.ignore) == 0 || name.IsZero() {
		return false
	}
	candidates := append(name.Ancestors(), name)
	for _, g := range r.ignore {
		for _, c := range candidates {
			if g.Match(c.String()) {
				return true
			}
		}
	}
	return false
}

// Resolve maps raw, found in importer, to its target module.
func (r *Resolver) Resolve(raw parser.RawImport, importer qname.Name) Target {
	switch {
	case raw.Dynamic:
		return r.resolveDynamic(raw)
	case raw.IsRelative():
		base, reason, ok := r.relativeBase(importer, raw.Level)
		if !ok {
			return unresolved(relativeText(importer, raw), reason)
		}
		return r.resolveFrom(base.Child(raw.From), raw)
	case raw.IsFrom:
		return r.resolveFrom(qname.Parse(raw.From), raw)
	}
	return r.classify(qname.Parse(raw.Name), nil)
}

// relativeBase anchors a relative import. A package unit is its own anchor;
// any other unit is anchored at its parent package. Each dot past the first
// climbs one package.
func (r *Resolver) relativeBase(importer qname.Name, level int) (qname.Name, string, bool) {
	pkg := importer.Parent()
	if r.known.IsUnit(importer) && r.known.IsPackage(importer) {
		pkg = importer
	}
	if level > pkg.Len() {
		return "", fmt.Sprintf("relative import of level %d exceeds package depth %d of %q", level, pkg.Len(), importer), false
	}
	base, _ := pkg.Strip(level - 1)
	return base, "", true
}

func (r *Resolver) resolveFrom(module qname.Name, raw parser.RawImport) Target {
	if raw.Wildcard {
		return r.classify(module, []string{parser.Wildcard})
	}
	if module.IsZero() {
		return unresolved(qname.Name(raw.Module()), "empty module name")
	}

	candidate := module.Child(raw.Name)
	switch {
	case r.known.Contains(candidate):
		return r.classify(candidate, nil)
	case r.known.Contains(module) && !r.known.IsUnit(module):
		// Namespace package: no initialiser could define the name.
		return r.classify(candidate, nil)
	}
	return r.classify(module, []string{raw.Name})
}

func (r *Resolver) classify(name qname.Name, symbols []string) Target {
	if name.IsZero() {
		return unresolved(name, "empty module name")
	}
	if r.IsIgnored(name) {
		return Target{Name: name, Ignored: true}
	}
	if r.known.Contains(name) {
		return Target{Name: name, Kind: KindInternal, Symbols: symbols}
	}
	if r.known.OwnsRoot(name) {
		t := unresolved(name, fmt.Sprintf("module %q not found under internal package %q", name, name.Root()))
		t.Symbols = symbols
		return t
	}
	return r.external(name, symbols)
}

func (r *Resolver) external(name qname.Name, symbols []string) Target {
	if trimmed := name.Trim(r.opts.ExternalDepth); trimmed != name {
		name = trimmed
		symbols = nil
	}
	t := Target{Name: name, Kind: KindExternal, Symbols: symbols}
	if r.opts.ClassifyStdlib {
		t.Origin = OriginThirdParty
		if IsStdlib(name) {
			t.Origin = OriginStdlib
		}
	}
	return t
}

func (r *Resolver) resolveDynamic(raw parser.RawImport) Target {
	if !raw.Literal {
		return unresolved(qname.Name(dynamicPrefix+raw.Name+">"), "import target computed at runtime")
	}
	if strings.HasPrefix(raw.Name, ".") {
		return unresolved(qname.Name(dynamicPrefix+raw.Name+">"), "relative dynamic import depends on the runtime package argument")
	}
	name := qname.Parse(raw.Name)
	if r.IsIgnored(name) {
		return Target{Name: name, Ignored: true}
	}
	if r.known.Contains(name) {
		return Target{Name: name, Kind: KindInternal}
	}
	return unresolved(name, "dynamic import of a module outside the crawled tree")
}

// IsRelativeName reports whether name is a placeholder for a relative import
// that climbed past the top of its package.
func IsRelativeName(name qname.Name) bool {
	return !IsDynamicName(name) && strings.Contains(string(name), relativeSep)
}

// IsDynamicName reports whether name is a placeholder for a computed import.
func IsDynamicName(name qname.Name) bool {
	return strings.HasPrefix(string(name), dynamicPrefix)
}

func unresolved(name qname.Name, reason string) Target {
	return Target{Name: name, Kind: KindUnresolved, Reason: reason}
}

// relativeText names an unresolvable relative import by its importer and
// how it was written, e.g. "pkg.a:...b" for "from ... import b" in pkg.a.
// The same text means different things in different packages, so each
// importer gets its own node.
func relativeText(importer qname.Name, raw parser.RawImport) qname.Name {
	text := raw.Module()
	if raw.From == "" && !raw.Wildcard {
		text += raw.Name
	}
	return qname.Name(importer.String() + relativeSep + text)
}
