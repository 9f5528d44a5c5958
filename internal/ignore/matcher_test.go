package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatcher_DefaultAndUserOverrides(t *testing.T) {
	m := NewMatcher([]string{
		"scratch/**",
		"!scratch/keep/file.py",
		"*.tmp",
	})

	cases := []struct {
		path    string
		isDir   bool
		ignored bool
	}{
		{path: ".git/config", isDir: false, ignored: true},
		{path: "__pycache__/run.cpython-312.pyc", isDir: false, ignored: true},
		{path: "lib/__pycache__/util.cpython-312.pyc", isDir: false, ignored: true},
		{path: "lib/stale.pyc", isDir: false, ignored: true},
		{path: ".ipynb_checkpoints/nb-checkpoint.py", isDir: false, ignored: true},
		{path: ".venv/lib/site.py", isDir: false, ignored: true},
		{path: "output", isDir: true, ignored: true},
		{path: "output/_rpr.zip", isDir: false, ignored: true},
		{path: "lib/output", isDir: true, ignored: false},
		{path: "lib/output/helper.py", isDir: false, ignored: false},
		{path: "scratch/lib/a.py", isDir: false, ignored: true},
		{path: "scratch/keep/file.py", isDir: false, ignored: false},
		{path: "nested/cache.tmp", isDir: false, ignored: true},
		{path: "run.py", isDir: false, ignored: false},
	}

	for _, tc := range cases {
		got := m.ShouldIgnore(tc.path, tc.isDir)
		if got != tc.ignored {
			t.Fatalf("path %s: expected ignored=%v, got %v", tc.path, tc.ignored, got)
		}
	}
}

func TestMatcher_NegatedDirectoryRule(t *testing.T) {
	m := NewMatcher([]string{
		"build/",
		"!build/include/",
	})

	if !m.ShouldIgnore("build/out/file.py", false) {
		t.Fatalf("expected build/out/file.py to be ignored")
	}
	if m.ShouldIgnore("build/include/file.py", false) {
		t.Fatalf("expected build/include/file.py to be included")
	}
}

func TestMatcher_DoublestarPatterns(t *testing.T) {
	m := NewMatcher([]string{
		"data/**/raw/",
		"**/notebooks/*.py",
		"figures/**/*.{png,svg}",
		"tmp_?.py",
	})

	cases := []struct {
		path    string
		isDir   bool
		ignored bool
	}{
		{path: "data/raw", isDir: true, ignored: true},
		{path: "data/a/b/raw/load.py", isDir: false, ignored: true},
		{path: "data/a/raw.py", isDir: false, ignored: false},
		{path: "lib/data/raw/load.py", isDir: false, ignored: false},
		{path: "notebooks/explore.py", isDir: false, ignored: true},
		{path: "deep/x/notebooks/explore.py", isDir: false, ignored: true},
		{path: "deep/x/notebooks/sub/explore.py", isDir: false, ignored: false},
		{path: "figures/fig1/plot.svg", isDir: false, ignored: true},
		{path: "figures/plot.png", isDir: false, ignored: true},
		{path: "figures/plot.py", isDir: false, ignored: false},
		{path: "lib/tmp_1.py", isDir: false, ignored: true},
		{path: "lib/tmp_10.py", isDir: false, ignored: false},
	}

	for _, tc := range cases {
		got := m.ShouldIgnore(tc.path, tc.isDir)
		if got != tc.ignored {
			t.Fatalf("path %s: expected ignored=%v, got %v", tc.path, tc.ignored, got)
		}
	}
}

func TestParseRule(t *testing.T) {
	cases := []struct {
		line string
		want Rule
		ok   bool
	}{
		{line: "*.log", want: Rule{Glob: "**/*.log"}, ok: true},
		{line: "/output/", want: Rule{Glob: "output", DirOnly: true}, ok: true},
		{line: "!lib/keep.py", want: Rule{Glob: "lib/keep.py", Negated: true}, ok: true},
		{line: "**/cache/", want: Rule{Glob: "**/cache", DirOnly: true}, ok: true},
		{line: "  # comment", ok: false},
		{line: "[unclosed", ok: false},
		{line: "/", ok: false},
	}
	for _, tc := range cases {
		got, ok := ParseRule(tc.line)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%q: expected (%+v, %v), got (%+v, %v)", tc.line, tc.want, tc.ok, got, ok)
		}
	}
}

func TestMatcher_SkipsInvalidRules(t *testing.T) {
	m := NewMatcher([]string{"[bad", "*.csv"})
	if got := len(m.Rules()); got != len(DefaultRules)+1 {
		t.Fatalf("expected invalid rule to be dropped, got %d rules", got)
	}
	if !m.ShouldIgnore("table.csv", false) {
		t.Fatalf("expected table.csv to be ignored")
	}
}

func TestLoadRulesSkipsCommentsAndMissingFile(t *testing.T) {
	dir := t.TempDir()
	rules, err := LoadRules(dir)
	if err != nil || rules != nil {
		t.Fatalf("expected no rules for missing file, got %v (%v)", rules, err)
	}

	content := "# scratch files\n\nscratch/\n  *.bak  \n"
	if err := os.WriteFile(filepath.Join(dir, RulesFile), []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	rules, err = LoadRules(dir)
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	if len(rules) != 2 || rules[0] != "scratch/" || rules[1] != "*.bak" {
		t.Fatalf("unexpected rules %v", rules)
	}
}
