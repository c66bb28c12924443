// # internal/engine/resolver/stdlib.go
package resolver

import (
	_ "embed"
	"strings"

	"snakr/internal/engine/qname"
)

//go:embed stdlib/python.txt
var pythonStdlibData string

var pythonStdlib = map[string]bool{}

func init() {
	for _, line := range strings.Split(pythonStdlibData, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pythonStdlib[line] = true
	}
}

// IsStdlib reports whether name's top-level package ships with Python.
func IsStdlib(name qname.Name) bool {
	return pythonStdlib[string(name.Root())]
}
