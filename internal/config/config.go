// Package config loads the project-wide hal configuration.
//
// A project is a directory holding the marker files in RootMarkers. Its
// config.yaml declares named data paths, compute clusters and extra packages
// to record in reproducibility snapshots.
package config

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFile is the project configuration file name, relative to the root.
	ConfigFile = "config.yaml"
	// ToolboxDirName is the general-purpose code directory archived with every snapshot.
	ToolboxDirName = "ava"
	// DataDirName is the project data directory.
	DataDirName = "data"
	// EditableDirName holds packages installed in editable mode.
	EditableDirName = "editable"
	// LockFile is the project dependency lockfile.
	LockFile = "uv.lock"
)

// ErrProdOutputMissing is returned by ProdOutputPath when the directory does not exist.
var ErrProdOutputMissing = errors.New("prod output path does not exist")

// Cluster describes a named compute cluster.
type Cluster struct {
	Address          string `yaml:"address"`
	NWorkers         int    `yaml:"n_workers,omitempty"`
	ThreadsPerWorker int    `yaml:"threads_per_worker,omitempty"`
	MemoryLimit      string `yaml:"memory_limit,omitempty"`
}

// Config models <root>/config.yaml.
type Config struct {
	Root     string             `yaml:"root,omitempty"`
	Author   string             `yaml:"author,omitempty"`
	Python   string             `yaml:"python,omitempty"`
	Paths    *TrackedPaths      `yaml:"paths,omitempty"`
	Clusters map[string]Cluster `yaml:"clusters,omitempty"`
	Packages []string           `yaml:"packages,omitempty"`
}

// New returns an empty configuration rooted at root.
func New(root string) *Config {
	paths, _ := NewTrackedPaths(nil)
	return &Config{
		Root:     root,
		Paths:    paths,
		Clusters: make(map[string]Cluster),
	}
}

// Load reads <root>/config.yaml. Paths in the file are expanded and made
// absolute relative to root.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	cfg, err := Parse(data, root)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

// Parse decodes configuration YAML. root is used when the document does not
// set one.
func Parse(data []byte, root string) (*Config, error) {
	cfg := New(root)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(root); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize(defaultRoot string) error {
	if c.Root == "" {
		c.Root = defaultRoot
	}
	root, err := expandPath(c.Root, defaultRoot)
	if err != nil {
		return err
	}
	c.Root = root

	if c.Paths == nil {
		c.Paths, _ = NewTrackedPaths(nil)
	}
	for key, value := range c.Paths.values {
		expanded, err := expandPath(value, c.Root)
		if err != nil {
			return errors.Wrapf(err, "path %q", key)
		}
		c.Paths.values[key] = expanded
	}
	if c.Clusters == nil {
		c.Clusters = make(map[string]Cluster)
	}
	return nil
}

func expandPath(value, base string) (string, error) {
	expanded, err := homedir.Expand(value)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(expanded) && base != "" {
		expanded = filepath.Join(base, expanded)
	}
	return filepath.Clean(expanded), nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return os.WriteFile(path, data, 0644)
}

// Update overlays the fields set in other onto c.
func (c *Config) Update(other *Config) error {
	if other == nil {
		return nil
	}
	if other.Root != "" {
		c.Root = other.Root
	}
	if other.Author != "" {
		c.Author = other.Author
	}
	if other.Python != "" {
		c.Python = other.Python
	}
	if c.Paths == nil {
		c.Paths, _ = NewTrackedPaths(nil)
	}
	if c.Clusters == nil {
		c.Clusters = make(map[string]Cluster)
	}
	if other.Paths != nil {
		for key, value := range other.Paths.values {
			if err := c.Paths.Set(key, value); err != nil {
				return err
			}
		}
	}
	for name, cluster := range other.Clusters {
		c.Clusters[name] = cluster
	}
	if len(other.Packages) > 0 {
		c.Packages = append([]string(nil), other.Packages...)
	}
	return c.normalize(c.Root)
}

// ToolboxDir returns the shared toolbox directory.
func (c *Config) ToolboxDir() string {
	return filepath.Join(c.Root, ToolboxDirName)
}

// DataDir returns the project data directory.
func (c *Config) DataDir() string {
	return filepath.Join(c.Root, DataDirName)
}

// EditableDir returns the editable installs directory.
func (c *Config) EditableDir() string {
	return filepath.Join(c.Root, EditableDirName)
}

// LockFilePath returns the root lockfile path.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Root, LockFile)
}

// ProdOutputPath returns the output directory of a production script folder.
func (c *Config) ProdOutputPath(scriptFolder string) (string, error) {
	path := filepath.Join(c.ToolboxDir(), "prod", scriptFolder, "output")
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return "", errors.Wrap(ErrProdOutputMissing, path)
	}
	return path, nil
}
