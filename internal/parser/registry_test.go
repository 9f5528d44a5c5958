package parser

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type mockParser struct {
	lang string
	exts []string
}

func (m mockParser) Language() string {
	return m.lang
}

func (m mockParser) Extensions() []string {
	return m.exts
}

func (m mockParser) Parse(filename string, content []byte) (*FileFacts, error) {
	return &FileFacts{
		Path:     filename,
		Language: m.lang,
		Imports:  []string{" b ", "a", "b", ""},
		PathKeys: []string{"raw", "raw"},
	}, nil
}

func TestRegistryGetParserForFile(t *testing.T) {
	r := NewRegistry()
	r.Register(mockParser{lang: "mock", exts: []string{".mock"}})

	p, ok := r.GetParserForFile("demo.MOCK")
	if !ok {
		t.Fatalf("expected parser for .MOCK extension")
	}
	if p.Language() != "mock" {
		t.Fatalf("expected language mock, got %s", p.Language())
	}
	if _, ok := r.GetParserForFile("demo.txt"); ok {
		t.Fatalf("did not expect parser for .txt")
	}
}

func TestParseFileNormalizesFacts(t *testing.T) {
	root := t.TempDir()
	r := NewRegistry()
	r.Register(mockParser{lang: "mock", exts: []string{".mock"}})

	path := filepath.Join(root, "script.mock")
	mustWriteFile(t, path, "content")

	facts, err := r.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if !reflect.DeepEqual(facts.Imports, []string{"a", "b"}) {
		t.Fatalf("expected deduped sorted imports, got %v", facts.Imports)
	}
	if !reflect.DeepEqual(facts.PathKeys, []string{"raw"}) {
		t.Fatalf("expected deduped path keys, got %v", facts.PathKeys)
	}
	if len(facts.Hash) != 16 {
		t.Fatalf("expected short hash, got %q", facts.Hash)
	}

	unsupported := filepath.Join(root, "notes.txt")
	mustWriteFile(t, unsupported, "x")
	facts, err = r.ParseFile(unsupported)
	if err != nil || facts != nil {
		t.Fatalf("expected unsupported file to be skipped, got %#v (%v)", facts, err)
	}
}

func TestCollectSourcesRespectsIgnoreRules(t *testing.T) {
	root := t.TempDir()
	r := NewRegistry()
	r.Register(mockParser{lang: "mock", exts: []string{".mock"}})

	mustWriteFile(t, filepath.Join(root, "keep.mock"), "ok")
	mustWriteFile(t, filepath.Join(root, "notes.txt"), "ok")
	mustWriteFile(t, filepath.Join(root, "skip", "ignored.mock"), "x")
	mustWriteFile(t, filepath.Join(root, "skip", "include.mock"), "y")
	mustWriteFile(t, filepath.Join(root, "__pycache__", "cached.mock"), "z")
	mustWriteFile(t, filepath.Join(root, "output", "old.mock"), "z")

	files, issues, err := r.CollectSources(root, []string{
		"skip/*",
		"!skip/include.mock",
	})
	if err != nil {
		t.Fatalf("CollectSources failed: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues %v", issues)
	}

	got := make([]string, 0, len(files))
	for _, file := range files {
		got = append(got, file.RelPath)
	}
	want := []string{"keep.mock", "skip/include.mock"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
