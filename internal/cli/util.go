package cli

import (
	"io"
	"os"

	"github.com/jhsmit/hal/internal/config"
	"github.com/jhsmit/hal/internal/logging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables bound to global flags.
const EnvPrefix = "HAL"

// settings are the global options, resolved flag > environment > default.
type settings struct {
	Root    string
	Python  string
	Verbose bool
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for _, name := range []string{"root", "python", "verbose"} {
		if cmd == nil {
			break
		}
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := v.BindPFlag(name, flag); err != nil {
				return settings{}, errors.Wrapf(err, "failed to bind --%s", name)
			}
		}
	}
	return settings{
		Root:    v.GetString("root"),
		Python:  v.GetString("python"),
		Verbose: v.GetBool("verbose"),
	}, nil
}

// project is the resolved root, its configuration and the logger.
type project struct {
	settings settings
	cfg      *config.Config
	log      *logrus.Logger
}

func (p *project) python() string {
	if p.settings.Python != "" {
		return p.settings.Python
	}
	return p.cfg.Python
}

func loadProject(cmd *cobra.Command) (*project, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	root, err := config.FindRoot(config.RootOptionsFromEnv(s.Root))
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return &project{settings: s, cfg: cfg, log: logging.New(stderr(cmd), s.Verbose)}, nil
}

func resolveWorkingDirectory() (string, error) {
	rootPath, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve working directory")
	}
	return rootPath, nil
}

func stderr(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stderr
	}
	return cmd.ErrOrStderr()
}
