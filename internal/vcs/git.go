// Package vcs inspects the git working tree a script runs in.
package vcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhsmit/hal/internal/command"
	"github.com/pkg/errors"
)

// Counts summarizes porcelain status lines per category.
type Counts struct {
	Untracked int `json:"untracked"`
	Modified  int `json:"modified"`
	Added     int `json:"added"`
	Deleted   int `json:"deleted"`
	Renamed   int `json:"renamed"`
}

func (c Counts) String() string {
	return fmt.Sprintf("There are %d untracked, %d modified, %d added, %d deleted, and %d renamed files in the git repository.",
		c.Untracked, c.Modified, c.Added, c.Deleted, c.Renamed)
}

// Probe runs git commands in a directory.
type Probe struct {
	Run command.Runner
}

// NewProbe returns a probe that shells out to git.
func NewProbe() *Probe {
	return &Probe{Run: command.Run}
}

func (p *Probe) runner() command.Runner {
	if p == nil || p.Run == nil {
		return command.Run
	}
	return p.Run
}

func statusSpec(dir string) command.Spec {
	return command.Spec{Name: "git", Args: []string{"status", "--porcelain"}, Dir: dir}
}

// IsRepository reports whether a status command succeeds in dir. Every
// failure, including git not being installed, yields false.
func (p *Probe) IsRepository(ctx context.Context, dir string) bool {
	_, err := p.runner()(ctx, statusSpec(dir))
	return err == nil
}

// StatusLines returns the non-empty porcelain status lines for dir.
func (p *Probe) StatusLines(ctx context.Context, dir string) ([]string, error) {
	result, err := p.runner()(ctx, statusSpec(dir))
	if err != nil {
		return nil, errors.Wrap(err, "git status")
	}
	lines := make([]string, 0)
	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Head returns the commit hash checked out in dir.
func (p *Probe) Head(ctx context.Context, dir string) (string, error) {
	return command.Output(ctx, p.runner(), command.Spec{Name: "git", Args: []string{"rev-parse", "HEAD"}, Dir: dir})
}

// Branch returns the current branch name in dir.
func (p *Probe) Branch(ctx context.Context, dir string) (string, error) {
	return command.Output(ctx, p.runner(), command.Spec{Name: "git", Args: []string{"rev-parse", "--abbrev-ref", "HEAD"}, Dir: dir})
}

// Count classifies porcelain lines.
func Count(lines []string) Counts {
	var c Counts
	for _, line := range lines {
		code := line
		if len(code) > 2 {
			code = code[:2]
		}
		switch {
		case strings.HasPrefix(line, "??"):
			c.Untracked++
			continue
		case strings.HasPrefix(line, "A "):
			c.Added++
		case strings.HasPrefix(line, "R "):
			c.Renamed++
		}
		if strings.Contains(code, "M") {
			c.Modified++
		}
		if strings.Contains(code, "D") {
			c.Deleted++
		}
	}
	return c
}
