package discovery

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"snakr/internal/engine/qname"
)

const (
	pythonExt    = ".py"
	packageInit  = "__init__"
	sourceLayout = "src"
)

// ModuleName derives the qualified name of the file at path, relative to
// root. Directories without an __init__.py are namespace packages and still
// contribute a segment; a top-level src/ that is not itself a package is
// treated as a source layout and dropped. When root is itself a package its
// enclosing package names are prepended. ok is false when a segment is not
// importable (hidden dirs, __pycache__, names with dashes, non-.py files).
func ModuleName(root, path string) (name qname.Name, isPackage bool, ok bool) {
	return moduleName(root, PackagePrefix(root), path)
}

// PackagePrefix returns the package segments root lives in. It is empty
// unless root holds an __init__.py; otherwise it climbs while each parent
// directory is a package too, so crawling pkg/sub yields names under
// "pkg.sub".
func PackagePrefix(root string) []string {
	var prefix []string
	dir := filepath.Clean(root)
	for fileExists(filepath.Join(dir, packageInit+pythonExt)) {
		base := filepath.Base(dir)
		if !isIdentifier(base) {
			return nil
		}
		prefix = append([]string{base}, prefix...)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return prefix
}

func moduleName(root string, prefix []string, path string) (name qname.Name, isPackage bool, ok bool) {
	if !strings.HasSuffix(path, pythonExt) {
		return "", false, false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false, false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(prefix) == 0 && len(parts) > 1 && parts[0] == sourceLayout && !fileExists(filepath.Join(root, sourceLayout, packageInit+pythonExt)) {
		parts = parts[1:]
	}

	last := len(parts) - 1
	parts[last] = strings.TrimSuffix(parts[last], pythonExt)
	if parts[last] == packageInit {
		parts = parts[:last]
		isPackage = true
	}
	for _, p := range parts {
		if !isIdentifier(p) {
			return "", false, false
		}
	}
	parts = append(append([]string(nil), prefix...), parts...)
	if len(parts) == 0 {
		// root/__init__.py of a root that is not a package has no name.
		return "", false, false
	}
	return qname.Join(parts...), isPackage, true
}

func isIdentifier(s string) bool {
	if s == "" || s == "__pycache__" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
