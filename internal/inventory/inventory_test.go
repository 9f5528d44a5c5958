package inventory

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jhsmit/hal/internal/command"
	"github.com/jhsmit/hal/internal/parser"
	"github.com/pkg/errors"
)

func TestCollectOnlyStdlibAndToolkitIsEmpty(t *testing.T) {
	ns := Namespace{
		"os":   "os",
		"Path": "pathlib#Path",
		"cfg":  "hal.config#cfg",
		"hal":  "hal",
		"json": "json",
	}
	got := Collect(ns, nil, Options{Stdlib: NewStdlib("os", "pathlib", "json")})
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestCollectReportsExternalModuleOnce(t *testing.T) {
	ns := Namespace{
		"foo":    "foo",
		"bar":    "foo.sub#bar",
		"helper": "foo.helpers",
		"os":     "os",
	}
	got := Collect(ns, []string{"foo"}, Options{Stdlib: NewStdlib("os")})
	if !reflect.DeepEqual(got, []string{"foo"}) {
		t.Fatalf("expected [foo], got %v", got)
	}
}

func TestCollectMergesExtraAndEditable(t *testing.T) {
	root := t.TempDir()
	editable := filepath.Join(root, "editable")
	for _, dir := range []string{"smitfit", "pyhdx", ".hidden"} {
		if err := os.MkdirAll(filepath.Join(editable, dir), 0755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(editable, "README.md"), []byte("x"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got := Collect(Namespace{"np": "numpy"}, []string{" polars ", ""}, Options{
		EditableDir: editable,
		Stdlib:      NewStdlib(),
	})
	want := []string{"numpy", "polars", "pyhdx", "smitfit"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCollectDropsLocalModules(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "helpers.py"), []byte(""), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "plots"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	ns := Namespace{"helpers": "helpers", "plot": "plots.main#plot", "np": "numpy"}
	got := Collect(ns, nil, Options{LocalDir: dir, Stdlib: NewStdlib()})
	if !reflect.DeepEqual(got, []string{"numpy"}) {
		t.Fatalf("expected [numpy], got %v", got)
	}
}

func TestCollectKeepsExplicitAndEditableNamesShadowedLocally(t *testing.T) {
	local := t.TempDir()
	editable := t.TempDir()
	for _, dir := range []string{filepath.Join(local, "foo"), filepath.Join(local, "bar"), filepath.Join(editable, "bar")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
	}

	got := Collect(Namespace{"foo": "foo"}, []string{"foo"}, Options{
		LocalDir:    local,
		EditableDir: editable,
		Stdlib:      NewStdlib(),
	})
	if !reflect.DeepEqual(got, []string{"bar", "foo"}) {
		t.Fatalf("expected [bar foo], got %v", got)
	}

	got = Collect(Namespace{"foo": "foo"}, nil, Options{LocalDir: local, Stdlib: NewStdlib()})
	if len(got) != 0 {
		t.Fatalf("expected imported local module to be dropped, got %v", got)
	}
}

func TestCollectWithoutStdlibUsesFallback(t *testing.T) {
	got := Collect(Namespace{"os": "os", "sys": "sys", "np": "numpy"}, nil, Options{})
	if !reflect.DeepEqual(got, []string{"numpy"}) {
		t.Fatalf("expected [numpy], got %v", got)
	}
}

func TestNamespaceFromFacts(t *testing.T) {
	facts := &parser.FileFacts{
		Imports:       []string{"numpy", "polars.selectors", "smitfit", "util"},
		ImportAliases: map[string]string{"np": "numpy", "polars": "polars.selectors", "foo": "util#foo"},
	}
	ns := NamespaceFromFacts(facts, nil)
	want := Namespace{
		"np":      "numpy",
		"polars":  "polars.selectors",
		"foo":     "util#foo",
		"smitfit": "smitfit",
	}
	if !reflect.DeepEqual(ns, want) {
		t.Fatalf("expected %v, got %v", want, ns)
	}
}

func TestTopLevel(t *testing.T) {
	cases := map[string]string{
		"numpy":          "numpy",
		"scipy.optimize": "scipy",
		"util#foo":       "util",
		"a.b.c#member":   "a",
		"":               "",
	}
	for in, want := range cases {
		if got := TopLevel(in); got != want {
			t.Fatalf("TopLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVersionLooksUpFreezeText(t *testing.T) {
	text := "numpy==1.26.4\nscikit_learn==1.4.0\n"
	if v, ok := Version("numpy", text); !ok || v != "1.26.4" {
		t.Fatalf("expected numpy version, got %q %v", v, ok)
	}
	if v, ok := Version("Scikit-Learn", text); !ok || v != "1.4.0" {
		t.Fatalf("expected normalized lookup, got %q %v", v, ok)
	}
	if _, ok := Version("missing", text); ok {
		t.Fatalf("expected missing package to be absent")
	}
}

func TestInterpreterStdlibFromPython(t *testing.T) {
	stdlibDir := t.TempDir()
	for _, name := range []string{"os.py", "json", "typing.py", "__pycache__"} {
		path := filepath.Join(stdlibDir, name)
		if strings.HasSuffix(name, ".py") {
			if err := os.WriteFile(path, nil, 0644); err != nil {
				t.Fatalf("write failed: %v", err)
			}
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
	}

	interp := NewInterpreter("fake-python", nil)
	interp.Run = func(ctx context.Context, spec command.Spec) (command.Result, error) {
		if spec.Name != "fake-python" || spec.Args[0] != "-c" {
			t.Fatalf("unexpected invocation %s", spec)
		}
		return command.Result{Stdout: stdlibDir + "\nsys _io\nzoneinfo\n"}, nil
	}

	stdlib := interp.Stdlib(context.Background())
	for _, name := range []string{"os", "json", "typing", "sys", "_io", "zoneinfo"} {
		if !stdlib.Contains(name) {
			t.Fatalf("expected %s in stdlib", name)
		}
	}
	if stdlib.Contains("numpy") {
		t.Fatalf("did not expect numpy in stdlib")
	}
}

func TestInterpreterStdlibFallsBack(t *testing.T) {
	interp := NewInterpreter("", nil)
	interp.Run = func(ctx context.Context, spec command.Spec) (command.Result, error) {
		return command.Result{ExitCode: -1}, errors.New("executable file not found")
	}
	stdlib := interp.Stdlib(context.Background())
	if !stdlib.Contains("os") || !stdlib.Contains("collections") {
		t.Fatalf("expected fallback stdlib names")
	}
	if interp.Python != DefaultPython {
		t.Fatalf("expected default python, got %q", interp.Python)
	}
}

func TestInterpreterDescribeAndModuleVersions(t *testing.T) {
	interp := NewInterpreter("py", nil)
	interp.Run = func(ctx context.Context, spec command.Spec) (command.Result, error) {
		if len(spec.Args) > 2 {
			return command.Result{Stdout: "numpy==1.26.4\nbroken==\n"}, nil
		}
		return command.Result{Stdout: "CPython\n3.12.1\nGCC 12.2.0\n"}, nil
	}

	info, err := interp.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if info.Implementation != "CPython" || info.Version != "3.12.1" || info.Compiler != "GCC 12.2.0" {
		t.Fatalf("unexpected info %#v", info)
	}

	versions := interp.ModuleVersions(context.Background(), []string{"numpy", "broken"})
	if !reflect.DeepEqual(versions, map[string]string{"numpy": "1.26.4"}) {
		t.Fatalf("unexpected versions %v", versions)
	}
	if got := interp.ModuleVersions(context.Background(), nil); len(got) != 0 {
		t.Fatalf("expected no versions for no names, got %v", got)
	}
}
