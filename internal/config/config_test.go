package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func TestParseExpandsPathsRelativeToRoot(t *testing.T) {
	root := t.TempDir()
	cfg, err := Parse([]byte(`author: Test Author
paths:
  raw: data/raw
  abs: /srv/shared
clusters:
  default:
    address: 127.0.0.1:8786
    n_workers: 4
    threads_per_worker: 2
    memory_limit: 4GB
packages: [numpy, scipy]
`), root)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if cfg.Root != root {
		t.Fatalf("expected root %q, got %q", root, cfg.Root)
	}
	if cfg.Author != "Test Author" {
		t.Fatalf("unexpected author %q", cfg.Author)
	}
	raw, ok := cfg.Paths.Get("raw")
	if !ok || raw != filepath.Join(root, "data", "raw") {
		t.Fatalf("expected raw path under root, got %q (ok=%v)", raw, ok)
	}
	abs, _ := cfg.Paths.Get("abs")
	if abs != filepath.Clean("/srv/shared") {
		t.Fatalf("expected absolute path untouched, got %q", abs)
	}

	want := Cluster{Address: "127.0.0.1:8786", NWorkers: 4, ThreadsPerWorker: 2, MemoryLimit: "4GB"}
	if got := cfg.Clusters["default"]; got != want {
		t.Fatalf("expected cluster %#v, got %#v", want, got)
	}
	if !reflect.DeepEqual(cfg.Packages, []string{"numpy", "scipy"}) {
		t.Fatalf("unexpected packages %v", cfg.Packages)
	}
}

func TestParseRejectsReservedPathKey(t *testing.T) {
	_, err := Parse([]byte("paths:\n  _root_data: /tmp/x\n"), t.TempDir())
	if err == nil {
		t.Fatalf("expected reserved key error")
	}
	if errors.Cause(err) != ErrReservedKey {
		t.Fatalf("expected ErrReservedKey, got %v", err)
	}
}

func TestParseWithoutPathsSection(t *testing.T) {
	cfg, err := Parse([]byte("author: someone\n"), t.TempDir())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Paths == nil || cfg.Paths.Len() != 0 {
		t.Fatalf("expected empty path mapping, got %#v", cfg.Paths)
	}
	if cfg.Clusters == nil {
		t.Fatalf("expected initialized cluster registry")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := New(root)
	cfg.Author = "A"
	if err := cfg.Paths.Set("raw", filepath.Join(root, "raw")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	cfg.Clusters["local"] = Cluster{Address: "localhost:8786", NWorkers: 2}

	out := filepath.Join(root, "out.yaml")
	if err := cfg.WriteYAML(out); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	loaded, err := Parse(data, root)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Paths.Snapshot(), cfg.Paths.Snapshot()) {
		t.Fatalf("paths differ: %v vs %v", loaded.Paths.Snapshot(), cfg.Paths.Snapshot())
	}
	if loaded.Clusters["local"] != cfg.Clusters["local"] {
		t.Fatalf("cluster differs: %#v", loaded.Clusters["local"])
	}
}

func TestUpdateOverlaysFields(t *testing.T) {
	root := t.TempDir()
	base := New(root)
	base.Author = "old"
	_ = base.Paths.Set("keep", filepath.Join(root, "keep"))

	overlay, err := Parse([]byte("author: new\npaths:\n  added: extra\npackages: [polars]\n"), root)
	if err != nil {
		t.Fatalf("parse overlay failed: %v", err)
	}
	if err := base.Update(overlay); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if base.Author != "new" {
		t.Fatalf("expected author override, got %q", base.Author)
	}
	if got := base.Paths.Keys(); !reflect.DeepEqual(got, []string{"added", "keep"}) {
		t.Fatalf("unexpected keys %v", got)
	}
	if !reflect.DeepEqual(base.Packages, []string{"polars"}) {
		t.Fatalf("unexpected packages %v", base.Packages)
	}
}

func TestUpdateOnLiteralConfig(t *testing.T) {
	root := t.TempDir()
	base := &Config{Root: root}

	overlay, err := Parse([]byte("paths:\n  raw: data_raw\nclusters:\n  local:\n    address: 127.0.0.1:8786\n"), root)
	if err != nil {
		t.Fatalf("parse overlay failed: %v", err)
	}
	if err := base.Update(overlay); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if got, ok := base.Paths.Get("raw"); !ok || got != filepath.Join(root, "data_raw") {
		t.Fatalf("expected raw path, got %q (%v)", got, ok)
	}
	if base.Clusters["local"].Address != "127.0.0.1:8786" {
		t.Fatalf("expected local cluster, got %#v", base.Clusters)
	}

	var zero TrackedPaths
	if err := zero.Set("raw", "/raw"); err != nil || zero.Len() != 1 {
		t.Fatalf("expected zero TrackedPaths to accept Set, got len=%d err=%v", zero.Len(), err)
	}
	zero.Get("raw")
	if got := zero.UsedKeys(); !reflect.DeepEqual(got, []string{"raw"}) {
		t.Fatalf("expected raw to be marked, got %v", got)
	}
}

func TestProdOutputPath(t *testing.T) {
	root := t.TempDir()
	cfg := New(root)

	if _, err := cfg.ProdOutputPath("fit"); errors.Cause(err) != ErrProdOutputMissing {
		t.Fatalf("expected ErrProdOutputMissing, got %v", err)
	}

	want := filepath.Join(root, "ava", "prod", "fit", "output")
	if err := os.MkdirAll(want, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	got, err := cfg.ProdOutputPath("fit")
	if err != nil || got != want {
		t.Fatalf("expected %q, got %q (%v)", want, got, err)
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	for _, marker := range RootMarkers {
		mustWriteFile(t, filepath.Join(root, marker), "")
	}
	nested := filepath.Join(root, "ava", "analysis")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	got, err := FindRoot(RootOptions{WorkingDir: nested})
	if err != nil || got != root {
		t.Fatalf("expected %q from working dir, got %q (%v)", root, got, err)
	}

	got, err = FindRoot(RootOptions{VirtualEnv: filepath.Join(root, ".venv"), WorkingDir: t.TempDir()})
	if err != nil || got != root {
		t.Fatalf("expected %q from virtualenv, got %q (%v)", root, got, err)
	}

	other := t.TempDir()
	got, err = FindRoot(RootOptions{Override: other, WorkingDir: nested})
	if err != nil || got != other {
		t.Fatalf("expected override %q, got %q (%v)", other, got, err)
	}
}

func TestFindRootFailsWithoutMarkers(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, ConfigFile), "")

	_, err := FindRoot(RootOptions{WorkingDir: dir})
	if errors.Cause(err) != ErrRootNotFound {
		t.Fatalf("expected ErrRootNotFound, got %v", err)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}
