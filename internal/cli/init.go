package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhsmit/hal/internal/config"
	"github.com/jhsmit/hal/internal/fileutil"
	"github.com/jhsmit/hal/internal/ignore"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultIgnoreRules = `# Paths excluded from the scripts archived with each snapshot.
# Syntax follows .gitignore.
*.ipynb
`

// RunInit prepares the current directory as a hal project. Existing files
// are left alone.
func RunInit(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	author, err := OptionalStringFlag(cmd, "author")
	if err != nil {
		return err
	}

	cfg := config.New("")
	cfg.Author = author
	cfg.Clusters[DefaultClusterName] = config.Cluster{Address: "127.0.0.1:8786", NWorkers: 2, ThreadsPerWorker: 2}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}

	written := make([]string, 0, 2)
	for _, file := range []struct {
		name string
		data []byte
	}{
		{config.ConfigFile, data},
		{ignore.RulesFile, []byte(defaultIgnoreRules)},
	} {
		ok, err := fileutil.WriteIfMissing(filepath.Join(rootPath, file.name), file.data, 0644)
		if err != nil {
			return err
		}
		if ok {
			written = append(written, file.name)
		}
	}
	for _, dir := range []string{config.DataDirName, config.ToolboxDirName} {
		if err := os.MkdirAll(filepath.Join(rootPath, dir), 0755); err != nil {
			return errors.Wrapf(err, "failed to create %s", dir)
		}
	}

	if len(written) > 0 {
		fmt.Printf("Wrote %s\n", SummarizePaths(written, 5))
	}
	fmt.Printf("Initialized hal project at %s\n", rootPath)
	if _, err := os.Stat(filepath.Join(rootPath, "pyproject.toml")); os.IsNotExist(err) {
		fmt.Println("next: run uv init to create pyproject.toml")
	}
	return nil
}
