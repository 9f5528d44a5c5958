// Package freeze records the installed dependency set of the project
// environment.
package freeze

import (
	"context"
	"strings"

	"github.com/jhsmit/hal/internal/command"
)

// EditablePrefix marks editable installs in freeze output. Their paths are
// specific to one machine and are dropped.
const EditablePrefix = "-e"

// DefaultCommand lists installed packages without color codes.
var DefaultCommand = []string{"uv", "pip", "freeze", "--no-color"}

// Result holds the captured freeze output.
type Result struct {
	Stdout string
	Stderr string
}

// Provider invokes the freeze command.
type Provider struct {
	Command []string
	Dir     string
	Env     []string
	Run     command.Runner
}

// NewProvider returns a provider running DefaultCommand in dir.
func NewProvider(dir string) *Provider {
	return &Provider{
		Command: append([]string(nil), DefaultCommand...),
		Dir:     dir,
		Run:     command.Run,
	}
}

// Freeze runs the command. It never fails: a missing binary or non-zero exit
// leaves whatever was captured and puts the failure text in Stderr.
func (p *Provider) Freeze(ctx context.Context) Result {
	cmdline := p.Command
	if len(cmdline) == 0 {
		cmdline = DefaultCommand
	}
	run := p.Run
	if run == nil {
		run = command.Run
	}

	spec := command.Spec{
		Name: cmdline[0],
		Args: cmdline[1:],
		Dir:  p.Dir,
		Env:  append([]string{"NO_COLOR=1"}, p.Env...),
	}
	result, err := run(ctx, spec)
	stderr := result.Stderr
	if err != nil && strings.TrimSpace(stderr) == "" {
		stderr = err.Error() + "\n"
	}
	return Result{
		Stdout: FilterEditable(result.Stdout),
		Stderr: stderr,
	}
}

// FilterEditable drops editable install lines.
func FilterEditable(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, EditablePrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Versions parses name==version lines into a map keyed by normalized name.
func Versions(text string) map[string]string {
	versions := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		name, version, ok := strings.Cut(line, "==")
		if !ok || name == "" {
			continue
		}
		versions[NormalizeName(name)] = strings.TrimSpace(version)
	}
	return versions
}

// NormalizeName folds a distribution or import name so that scikit_learn,
// Scikit-Learn and scikit.learn compare equal.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "-", ".", "-").Replace(name)
}
