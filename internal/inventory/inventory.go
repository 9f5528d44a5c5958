// Package inventory decides which packages a script run depends on.
package inventory

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhsmit/hal/internal/freeze"
	"github.com/jhsmit/hal/internal/parser"
)

// ToolkitNames are never reported as dependencies.
var ToolkitNames = []string{"hal", "builtins"}

// Namespace maps each name bound by a script's imports to the module it came
// from. Values are dotted module paths, optionally suffixed with #member for
// `from a import b` bindings.
type Namespace map[string]string

// NamespaceFromFacts builds the namespace of one or more parsed scripts.
// Imports that bind no name (dynamic imports) are keyed by their module path.
func NamespaceFromFacts(facts ...*parser.FileFacts) Namespace {
	ns := make(Namespace)
	for _, f := range facts {
		if f == nil {
			continue
		}
		bound := make(map[string]bool, len(f.ImportAliases))
		for alias, target := range f.ImportAliases {
			ns[alias] = target
			bound[ModuleOf(target)] = true
		}
		for _, module := range f.Imports {
			if !bound[module] {
				if _, taken := ns[module]; !taken {
					ns[module] = module
				}
			}
		}
	}
	return ns
}

// ModuleOf strips the member part of a namespace value.
func ModuleOf(target string) string {
	module, _, _ := strings.Cut(target, "#")
	return strings.TrimSpace(module)
}

// TopLevel returns the first dotted component of a module path.
func TopLevel(module string) string {
	module = ModuleOf(module)
	if idx := strings.Index(module, "."); idx != -1 {
		return module[:idx]
	}
	return module
}

// Options controls which names Collect keeps.
type Options struct {
	// EditableDir holds editable installs, one subdirectory per package.
	EditableDir string
	// LocalDir, when set, drops imported names that resolve to a module or
	// package next to the script. Explicit and editable names are kept.
	LocalDir string
	// Stdlib lists interpreter builtin and standard library names.
	Stdlib *Stdlib
}

// Collect returns the sorted set of interesting package names: the top-level
// modules of ns, extra and the editable installs, minus builtins, the
// standard library and the toolkit itself.
func Collect(ns Namespace, extra []string, opts Options) []string {
	combined := make(map[string]bool)
	for _, target := range ns {
		name := TopLevel(target)
		if name == "" || isLocalModule(opts.LocalDir, name) {
			continue
		}
		combined[name] = true
	}
	for _, name := range extra {
		if name = strings.TrimSpace(name); name != "" {
			combined[name] = true
		}
	}
	for _, name := range EditablePackages(opts.EditableDir) {
		combined[name] = true
	}

	for _, name := range ToolkitNames {
		delete(combined, name)
	}
	stdlib := opts.Stdlib
	if stdlib == nil {
		stdlib = FallbackStdlib()
	}
	for name := range combined {
		if stdlib.Contains(name) {
			delete(combined, name)
		}
	}

	out := make([]string, 0, len(combined))
	for name := range combined {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// EditablePackages lists the subdirectory names of dir. A missing directory
// is empty.
func EditablePackages(dir string) []string {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	return names
}

func isLocalModule(dir, name string) bool {
	if dir == "" {
		return false
	}
	if info, err := os.Stat(filepath.Join(dir, name+".py")); err == nil && info.Mode().IsRegular() {
		return true
	}
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.IsDir()
}

// Version looks up name in freeze output. Import names and distribution
// names are compared after normalization, so this is best effort.
func Version(name, freezeText string) (string, bool) {
	version, ok := freeze.Versions(freezeText)[freeze.NormalizeName(name)]
	if !ok || version == "" {
		return "", false
	}
	return version, true
}
