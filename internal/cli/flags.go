package cli

import (
	"strings"

	"github.com/jhsmit/hal/internal/watermark"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read --%s flag", name)
	}
	return strings.TrimSpace(value), nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string, defaultValue bool) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return defaultValue, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, errors.Wrapf(err, "failed to read --%s flag", name)
	}
	return value, nil
}

func OptionalStringSliceFlag(cmd *cobra.Command, name string) ([]string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return nil, nil
	}
	values, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read --%s flag", name)
	}
	return values, nil
}

// ParseDataFlags reads repeated --data key=path flags.
func ParseDataFlags(cmd *cobra.Command) (map[string]string, error) {
	raw, err := OptionalStringSliceFlag(cmd, "data")
	if err != nil {
		return nil, err
	}
	paths := make(map[string]string, len(raw))
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, errors.Errorf("invalid --data value %q (expected key=path)", item)
		}
		paths[key] = value
	}
	return paths, nil
}

// watermarkToggles maps --no-* flags to watermark sections.
var watermarkToggles = []struct {
	flag  string
	usage string
	field func(*watermark.Overrides) **bool
}{
	{"no-time", "Omit the current time", func(o *watermark.Overrides) **bool { return &o.CurrentTime }},
	{"no-date", "Omit the current date", func(o *watermark.Overrides) **bool { return &o.CurrentDate }},
	{"no-timezone", "Omit the timezone", func(o *watermark.Overrides) **bool { return &o.Timezone }},
	{"no-updated", "Omit the last-updated stamp", func(o *watermark.Overrides) **bool { return &o.Updated }},
	{"no-python", "Omit the Python version", func(o *watermark.Overrides) **bool { return &o.Python }},
	{"no-machine", "Omit machine information", func(o *watermark.Overrides) **bool { return &o.Machine }},
	{"no-git-hash", "Omit the git commit hash", func(o *watermark.Overrides) **bool { return &o.GitHash }},
	{"no-git-branch", "Omit the git branch", func(o *watermark.Overrides) **bool { return &o.GitBranch }},
}

func addSnapshotFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("package", "p", nil, "Extra package to record (repeatable)")
	cmd.Flags().StringSlice("data", nil, "Extra data directory to list as key=path (repeatable)")
	cmd.Flags().String("author", "", "Watermark author (default: config author)")
	for _, toggle := range watermarkToggles {
		cmd.Flags().Bool(toggle.flag, false, toggle.usage)
	}
	cmd.Flags().Bool("json", false, "Print machine-readable run summary")
}

// ParseWatermarkOverrides turns --author and the --no-* flags into overrides.
// Flags left unset keep the defaults.
func ParseWatermarkOverrides(cmd *cobra.Command) (watermark.Overrides, error) {
	var overrides watermark.Overrides
	author, err := OptionalStringFlag(cmd, "author")
	if err != nil {
		return overrides, err
	}
	if author != "" {
		overrides.Author = &author
	}
	for _, toggle := range watermarkToggles {
		if cmd == nil || !cmd.Flags().Changed(toggle.flag) {
			continue
		}
		off, err := OptionalBoolFlag(cmd, toggle.flag, false)
		if err != nil {
			return overrides, err
		}
		*toggle.field(&overrides) = watermark.Bool(!off)
	}
	return overrides, nil
}
