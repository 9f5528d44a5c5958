package inventory

import (
	"context"
	"strings"

	"github.com/jhsmit/hal/internal/command"
	"github.com/jhsmit/hal/internal/logging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultPython is used when no interpreter is configured.
const DefaultPython = "python3"

const stdlibScript = `import sys, sysconfig
print(sysconfig.get_paths()["stdlib"])
print(" ".join(sys.builtin_module_names))
print(" ".join(sorted(getattr(sys, "stdlib_module_names", ()))))`

const infoScript = `import platform
print(platform.python_implementation())
print(platform.python_version())
print(platform.python_compiler())`

const versionScript = `import importlib, sys
for name in sys.argv[1:]:
    try:
        v = getattr(importlib.import_module(name), "__version__", None)
    except Exception:
        continue
    if isinstance(v, str) and v:
        print(name + "==" + v)`

// Info describes the interpreter a script runs under.
type Info struct {
	Implementation string
	Version        string
	Compiler       string
}

// Interpreter queries a Python executable.
type Interpreter struct {
	Python string
	Dir    string
	Run    command.Runner
	Log    logrus.FieldLogger
}

func NewInterpreter(python string, log logrus.FieldLogger) *Interpreter {
	if python == "" {
		python = DefaultPython
	}
	return &Interpreter{Python: python, Run: command.Run, Log: logging.OrDiscard(log)}
}

func (i *Interpreter) output(ctx context.Context, script string, args ...string) (string, error) {
	return command.Output(ctx, i.Run, command.Spec{
		Name: i.Python,
		Args: append([]string{"-c", script}, args...),
		Dir:  i.Dir,
	})
}

func (i *Interpreter) log() logrus.FieldLogger {
	return logging.OrDiscard(i.Log)
}

// Stdlib discovers builtin and standard library module names. It never
// fails: without a working interpreter the compiled-in list is returned.
func (i *Interpreter) Stdlib(ctx context.Context) *Stdlib {
	out, err := i.output(ctx, stdlibScript)
	if err != nil {
		i.log().WithError(err).Debug("python unavailable, using built-in stdlib list")
		return FallbackStdlib()
	}
	lines := strings.Split(out, "\n")
	stdlib := NewStdlib()
	if len(lines) > 0 {
		if err := stdlib.AddDir(strings.TrimSpace(lines[0])); err != nil {
			i.log().WithError(err).Debug("cannot list stdlib directory")
		}
	}
	for _, line := range lines[1:] {
		stdlib.Add(strings.Fields(line)...)
	}
	if stdlib.Len() == 0 {
		return FallbackStdlib()
	}
	return stdlib
}

// Describe reports the interpreter implementation and version.
func (i *Interpreter) Describe(ctx context.Context) (Info, error) {
	out, err := i.output(ctx, infoScript)
	if err != nil {
		return Info{}, errors.Wrap(err, "failed to query python")
	}
	lines := strings.Split(out, "\n")
	for len(lines) < 3 {
		lines = append(lines, "")
	}
	return Info{
		Implementation: strings.TrimSpace(lines[0]),
		Version:        strings.TrimSpace(lines[1]),
		Compiler:       strings.TrimSpace(lines[2]),
	}, nil
}

// ModuleVersions imports each module and reads its __version__. Modules
// that fail to import or carry no version are left out.
func (i *Interpreter) ModuleVersions(ctx context.Context, names []string) map[string]string {
	versions := make(map[string]string)
	if len(names) == 0 {
		return versions
	}
	out, err := i.output(ctx, versionScript, names...)
	if err != nil {
		i.log().WithError(err).Debug("cannot introspect module versions")
		return versions
	}
	for _, line := range strings.Split(out, "\n") {
		name, version, ok := strings.Cut(strings.TrimSpace(line), "==")
		if ok && name != "" && version != "" {
			versions[name] = version
		}
	}
	return versions
}
