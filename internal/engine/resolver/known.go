package resolver

import (
	"sort"

	"snakr/internal/engine/qname"
)

// KnownModules is the set of internal module names discovered before
// resolution starts. It is built once and then only read, so it can be
// shared between concurrent resolvers.
type KnownModules struct {
	units      map[qname.Name]bool // name -> is package (__init__ unit)
	namespaces map[qname.Name]bool // ancestors of units that have no unit of their own
	roots      map[qname.Name]bool
}

func NewKnownModules() *KnownModules {
	return &KnownModules{
		units:      make(map[qname.Name]bool),
		namespaces: make(map[qname.Name]bool),
		roots:      make(map[qname.Name]bool),
	}
}

// Add registers a parsed unit. isPackage marks package initialisers, whose
// relative imports are anchored at the package itself.
func (k *KnownModules) Add(name qname.Name, isPackage bool) {
	if name.IsZero() {
		return
	}
	k.units[name] = k.units[name] || isPackage
	delete(k.namespaces, name)
	k.roots[name.Root()] = true
	for _, anc := range name.Ancestors() {
		if _, ok := k.units[anc]; !ok {
			k.namespaces[anc] = true
		}
	}
}

// Contains reports whether name is a unit or a namespace package of the
// crawled tree.
func (k *KnownModules) Contains(name qname.Name) bool {
	if _, ok := k.units[name]; ok {
		return true
	}
	return k.namespaces[name]
}

// IsUnit reports whether name has a source unit of its own.
func (k *KnownModules) IsUnit(name qname.Name) bool {
	_, ok := k.units[name]
	return ok
}

// IsPackage reports whether name is a package, either with an __init__
// unit or implied by units beneath it.
func (k *KnownModules) IsPackage(name qname.Name) bool {
	return k.units[name] || k.namespaces[name]
}

// OwnsRoot reports whether name's top-level segment belongs to the crawl.
func (k *KnownModules) OwnsRoot(name qname.Name) bool {
	return k.roots[name.Root()]
}

// Len returns the number of units.
func (k *KnownModules) Len() int {
	return len(k.units)
}

// Names returns unit names in lexical order.
func (k *KnownModules) Names() []qname.Name {
	out := make([]qname.Name, 0, len(k.units))
	for name := range k.units {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
