package cli

import (
	"fmt"
	"strings"

	"github.com/jhsmit/hal/internal/command"
)

type SnapshotSummary struct {
	Mode       string `json:"mode"`
	RootPath   string `json:"root_path"`
	Script     string `json:"script"`
	OutputDir  string `json:"output_dir"`
	Primary    string `json:"primary_archive"`
	DataSource string `json:"data_sources_archive"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
}

type DoctorSummary struct {
	Mode          string                        `json:"mode"`
	RootPath      string                        `json:"root_path,omitempty"`
	ConfigFile    string                        `json:"config_file,omitempty"`
	Healthy       bool                          `json:"healthy"`
	GitRepository bool                          `json:"git_repository"`
	Paths         int                           `json:"paths"`
	MissingPaths  []string                      `json:"missing_paths,omitempty"`
	Clusters      []string                      `json:"clusters,omitempty"`
	Tools         map[string]command.Capability `json:"tools"`
	Missing       []string                      `json:"missing,omitempty"`
	Suggestions   []string                      `json:"suggestions,omitempty"`
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}
