// Package ignore decides which files under a script directory are archived
// with a snapshot. Rules use .gitignore syntax with doublestar globs.
package ignore

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultRules keep interpreter caches, virtual environments, VCS metadata and
// earlier snapshot output out of the archive. User rules are applied after
// them, so a negated user rule can bring a path back.
var DefaultRules = []string{
	".git/",
	".venv/",
	"venv/",
	"__pycache__/",
	"*.py[cod]",
	".ipynb_checkpoints/",
	".mypy_cache/",
	".pytest_cache/",
	".ruff_cache/",
	"/output/",
}

// Rule is one compiled exclusion line.
type Rule struct {
	Glob    string // doublestar pattern, relative to the script directory
	Negated bool
	DirOnly bool
}

// Matcher applies rules in order; the last matching rule decides.
type Matcher struct {
	rules []Rule
}

// NewMatcher compiles DefaultRules followed by userRules. Blank lines,
// comments and invalid globs are dropped.
func NewMatcher(userRules []string) *Matcher {
	lines := make([]string, 0, len(DefaultRules)+len(userRules))
	lines = append(lines, DefaultRules...)
	lines = append(lines, userRules...)

	m := &Matcher{rules: make([]Rule, 0, len(lines))}
	for _, line := range lines {
		if r, ok := ParseRule(line); ok {
			m.rules = append(m.rules, r)
		}
	}
	return m
}

// Rules returns the compiled rules in evaluation order.
func (m *Matcher) Rules() []Rule {
	return append([]Rule(nil), m.rules...)
}

// ParseRule compiles a single rule line. Patterns without an inner slash
// match at any depth, as in .gitignore.
func ParseRule(line string) (Rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Rule{}, false
	}

	r := Rule{}
	if rest, ok := strings.CutPrefix(line, "!"); ok {
		r.Negated = true
		line = rest
	}
	if rest, ok := strings.CutSuffix(line, "/"); ok {
		r.DirOnly = true
		line = rest
	}
	anchored := strings.Contains(line, "/")
	line = normalizePath(line)
	if line == "" {
		return Rule{}, false
	}
	if !anchored && !strings.HasPrefix(line, "**/") {
		line = "**/" + line
	}
	if !doublestar.ValidatePattern(line) {
		return Rule{}, false
	}
	r.Glob = line
	return r, true
}

// ShouldIgnore reports whether relPath is excluded. A rule matching any
// parent directory also covers everything below it.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = normalizePath(relPath)
	if relPath == "" {
		return false
	}
	ignored := false
	for _, r := range m.rules {
		if r.matches(relPath, isDir) {
			ignored = !r.Negated
		}
	}
	return ignored
}

func (r Rule) matches(relPath string, isDir bool) bool {
	if (isDir || !r.DirOnly) && match(r.Glob, relPath) {
		return true
	}
	for dir := parentDir(relPath); dir != ""; dir = parentDir(dir) {
		if match(r.Glob, dir) {
			return true
		}
	}
	return false
}

func match(glob, path string) bool {
	ok, err := doublestar.Match(glob, path)
	return err == nil && ok
}

func parentDir(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

func normalizePath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	return strings.Trim(path, "/")
}
