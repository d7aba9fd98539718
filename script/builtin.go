package script

import (
	"embed"
	"path"
	"sort"
	"strings"

	"github.com/wippyai/scopeheap/errors"
)

//go:embed scenarios/*.hcl
var scenarios embed.FS

// BuiltinNames lists the bundled scenarios.
func BuiltinNames() []string {
	entries, _ := scenarios.ReadDir("scenarios")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".hcl"))
	}
	sort.Strings(names)
	return names
}

// Builtin parses a bundled scenario by name ("a", "b", "c", "leak").
func Builtin(name string) (*Script, error) {
	file := path.Join("scenarios", name+".hcl")
	src, err := scenarios.ReadFile(file)
	if err != nil {
		return nil, errors.NotFound(errors.PhaseScript, nil, "no builtin scenario "+name)
	}
	return Parse(src, file)
}
