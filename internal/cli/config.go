package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jhsmit/hal/internal/fileutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// RunConfigShow prints the resolved configuration as YAML.
func RunConfigShow(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	if asJSON {
		return fileutil.PrintJSON(map[string]any{
			"root":     p.cfg.Root,
			"author":   p.cfg.Author,
			"python":   p.cfg.Python,
			"paths":    p.cfg.Paths.Snapshot(),
			"clusters": p.cfg.Clusters,
			"packages": p.cfg.Packages,
		})
	}
	data, err := yaml.Marshal(p.cfg)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	_, err = os.Stdout.Write(data)
	return err
}

// RunConfigRoot prints the project root.
func RunConfigRoot(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	fmt.Println(p.cfg.Root)
	return nil
}

// RunConfigPaths prints the configured data paths, one key per line.
func RunConfigPaths(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	paths := p.cfg.Paths.Snapshot()
	if asJSON {
		return fileutil.PrintJSON(paths)
	}
	keys := make([]string, 0, len(paths))
	for key := range paths {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		marker := ""
		if _, err := os.Stat(paths[key]); err != nil {
			marker = " (missing)"
		}
		fmt.Printf("%s: %s%s\n", key, filepath.ToSlash(paths[key]), marker)
	}
	return nil
}
