package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhsmit/hal/internal/command"
	"github.com/jhsmit/hal/internal/config"
	"github.com/jhsmit/hal/internal/fileutil"
	"github.com/jhsmit/hal/internal/vcs"
	"github.com/spf13/cobra"
)

// lookPath is swapped in tests.
var lookPath = command.ProbeTools

func RunDoctor(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	summary := DoctorSummary{
		Mode:  "doctor",
		Tools: lookPath(),
	}

	root, rootErr := config.FindRoot(config.RootOptionsFromEnv(s.Root))
	if rootErr != nil {
		summary.Missing = append(summary.Missing, "project root")
		summary.Suggestions = append(summary.Suggestions, "run hal init in the project directory")
	} else {
		summary.RootPath = root
		summary.ConfigFile = filepath.Join(root, config.ConfigFile)
		cfg, err := config.Load(root)
		if err != nil {
			summary.Missing = append(summary.Missing, "valid "+config.ConfigFile)
			summary.Suggestions = append(summary.Suggestions, "fix "+summary.ConfigFile+": "+err.Error())
		} else {
			paths := cfg.Paths.Snapshot()
			summary.Paths = len(paths)
			for key, path := range paths {
				if _, err := os.Stat(path); err != nil {
					summary.MissingPaths = append(summary.MissingPaths, key)
				}
			}
			sort.Strings(summary.MissingPaths)
			for name := range cfg.Clusters {
				summary.Clusters = append(summary.Clusters, name)
			}
			sort.Strings(summary.Clusters)
		}
		if summary.Tools["git"].Available {
			summary.GitRepository = vcs.NewProbe().IsRepository(context.Background(), root)
		}
	}

	if !summary.Tools["git"].Available {
		summary.Missing = append(summary.Missing, "git")
	} else if summary.RootPath != "" && !summary.GitRepository {
		summary.Suggestions = append(summary.Suggestions, "run git init so snapshots record the commit")
	}
	if !summary.Tools["freeze"].Available {
		summary.Missing = append(summary.Missing, "uv")
		summary.Suggestions = append(summary.Suggestions, "install uv to record dependency freezes")
	}
	if !summary.Tools["python"].Available {
		summary.Missing = append(summary.Missing, "python")
	}

	summary.Missing = fileutil.DedupeStrings(summary.Missing)
	sort.Strings(summary.Missing)
	summary.Suggestions = fileutil.DedupeStrings(summary.Suggestions)
	sort.Strings(summary.Suggestions)
	summary.Healthy = len(summary.Missing) == 0

	if asJSON {
		return fileutil.PrintJSON(summary)
	}

	status := "issues"
	if summary.Healthy {
		status = "ok"
	}
	fmt.Printf("doctor: %s\n", status)
	if summary.RootPath != "" {
		fmt.Printf("root: %s git=%t\n", summary.RootPath, summary.GitRepository)
		fmt.Printf("config: paths=%d missing_paths=%d clusters=%d\n", summary.Paths, len(summary.MissingPaths), len(summary.Clusters))
	}
	if len(summary.MissingPaths) > 0 {
		fmt.Printf("missing data paths: %s\n", SummarizePaths(summary.MissingPaths, 5))
	}
	roles := make([]string, 0, len(summary.Tools))
	for role := range summary.Tools {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	tools := make([]string, 0, len(roles))
	for _, role := range roles {
		tools = append(tools, fmt.Sprintf("%s=%t", summary.Tools[role].Tool, summary.Tools[role].Available))
	}
	fmt.Printf("tools: %s\n", strings.Join(tools, " "))
	if len(summary.Missing) > 0 {
		fmt.Printf("missing (%d): %s\n", len(summary.Missing), strings.Join(summary.Missing, ", "))
	}
	for _, suggestion := range summary.Suggestions {
		fmt.Printf("next: %s\n", suggestion)
	}
	return nil
}
