// Package watermark renders the human readable summary of a script run:
// who ran it, when, where and with which package versions.
package watermark

import (
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	packagesHeader   = "Packages:"
	additionalHeader = "Additional version information:"
	uncleanHeader    = "Git repository is unclean:"
	unknownVersion   = "n/a"
)

// Machine describes the host.
type Machine struct {
	OS           string
	Release      string
	Machine      string
	CPUCores     int
	Architecture string
}

// HostMachine inspects the current host.
func HostMachine() Machine {
	release, machine := uname()
	if machine == "" {
		machine = runtime.GOARCH
	}
	return Machine{
		OS:           runtime.GOOS,
		Release:      release,
		Machine:      machine,
		CPUCores:     runtime.NumCPU(),
		Architecture: strconv.Itoa(strconv.IntSize) + "bit",
	}
}

// Facts are the gathered values a watermark is rendered from.
type Facts struct {
	RunID          string
	Now            time.Time
	Implementation string
	PythonVersion  string
	Compiler       string
	Machine        Machine
	GitHash        string
	GitBranch      string
	// Packages is the sorted interesting package set.
	Packages []string
	// Versions maps package names to versions. Missing entries render n/a.
	Versions map[string]string
	// Additional holds versions introspected for explicitly requested packages.
	Additional map[string]string
	// StatusLines are the porcelain lines of a dirty repository.
	StatusLines []string
}

// NewRunID returns a fresh identifier for one run.
func NewRunID() string {
	return uuid.NewString()
}

// Render formats facts as the watermark text.
func Render(f Facts, opts Options) string {
	sections := make([]string, 0, 10)
	add := func(lines ...string) {
		if len(lines) > 0 {
			sections = append(sections, strings.Join(lines, "\n"))
		}
	}

	if opts.Author != "" {
		add("Author: " + opts.Author)
	}
	if f.RunID != "" {
		add("Run ID: " + f.RunID)
	}

	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	var clock []string
	if opts.Updated {
		clock = append(clock, "Last updated: "+now.Format("2006-01-02T15:04:05.000000-07:00"))
	}
	if opts.CurrentDate {
		clock = append(clock, "Current date: "+now.Format("2006-01-02"))
	}
	if opts.CurrentTime {
		clock = append(clock, "Current time: "+now.Format("15:04:05"))
	}
	if opts.Timezone {
		zone, _ := now.Zone()
		clock = append(clock, "Timezone: "+zone)
	}
	add(clock...)

	if opts.Python {
		add(aligned([][2]string{
			{"Python implementation", orUnknown(f.Implementation)},
			{"Python version", orUnknown(f.PythonVersion)},
			{"Compiler", orUnknown(f.Compiler)},
		})...)
	}
	if opts.Machine {
		m := f.Machine
		add(aligned([][2]string{
			{"OS", orUnknown(m.OS)},
			{"Release", orUnknown(m.Release)},
			{"Machine", orUnknown(m.Machine)},
			{"CPU cores", strconv.Itoa(m.CPUCores)},
			{"Architecture", orUnknown(m.Architecture)},
		})...)
	}
	if opts.GitHash {
		add("Git hash: " + orUnknown(f.GitHash))
	}
	if opts.GitBranch {
		add("Git branch: " + orUnknown(f.GitBranch))
	}

	if len(f.Packages) > 0 {
		rows := make([][2]string, 0, len(f.Packages))
		for _, name := range f.Packages {
			rows = append(rows, [2]string{name, orUnknown(f.Versions[name])})
		}
		add(append([]string{packagesHeader}, aligned(rows)...)...)
	}

	if len(f.Additional) > 0 {
		names := make([]string, 0, len(f.Additional))
		for name := range f.Additional {
			names = append(names, name)
		}
		sort.Strings(names)
		lines := []string{additionalHeader}
		for _, name := range names {
			lines = append(lines, name+"=="+f.Additional[name])
		}
		add(lines...)
	}

	if len(f.StatusLines) > 0 {
		add(append([]string{uncleanHeader}, f.StatusLines...)...)
	}

	return strings.Join(sections, "\n\n") + "\n"
}

// ParsePackages reads the package names back out of a rendered watermark.
func ParsePackages(text string) []string {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if line == packagesHeader {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}
	names := make([]string, 0)
	for _, line := range lines[start:] {
		if strings.TrimSpace(line) == "" {
			break
		}
		name, _, _ := strings.Cut(line, ":")
		names = append(names, strings.TrimSpace(name))
	}
	return names
}

func aligned(rows [][2]string) []string {
	width := 0
	for _, row := range rows {
		if len(row[0]) > width {
			width = len(row[0])
		}
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%-*s: %s", width, row[0], row[1]))
	}
	return lines
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return unknownVersion
	}
	return value
}
