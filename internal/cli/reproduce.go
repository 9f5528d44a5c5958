package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/jhsmit/hal/internal/command"
	"github.com/jhsmit/hal/internal/fileutil"
	"github.com/jhsmit/hal/internal/inventory"
	"github.com/jhsmit/hal/internal/snapshot"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ExitError carries the exit code of a script run through hal run.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("script exited with status %d", e.Code)
}

// newGuard registers a snapshot for script using the command's flags.
func newGuard(cmd *cobra.Command, p *project, script string, hook bool) (*snapshot.Guard, error) {
	packages, err := OptionalStringSliceFlag(cmd, "package")
	if err != nil {
		return nil, err
	}
	dataPaths, err := ParseDataFlags(cmd)
	if err != nil {
		return nil, err
	}
	overrides, err := ParseWatermarkOverrides(cmd)
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(script); err != nil || info.IsDir() {
		return nil, errors.Errorf("script %s not found", script)
	}

	extra := fileutil.DedupeStrings(append(append([]string(nil), p.cfg.Packages...), packages...))
	return snapshot.Register(snapshot.Request{
		ScriptPath: script,
		Packages:   extra,
		DataPaths:  dataPaths,
		Overrides:  overrides,
		Hook:       hook,
	}, snapshot.Deps{
		Config:      p.cfg,
		Interpreter: inventory.NewInterpreter(p.python(), p.log),
		Log:         p.log,
	})
}

// RunReproduce takes a snapshot of a script without running it.
func RunReproduce(cmd *cobra.Command, args []string) error {
	start := time.Now()
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}

	guard, err := newGuard(cmd, p, args[0], false)
	if err != nil {
		return err
	}
	if err := guard.Run(context.Background()); err != nil {
		return err
	}

	return printSnapshotSummary(newSnapshotSummary("reproduce", p, args[0], guard, start, 0), asJSON)
}

// RunScript runs a script with the project interpreter and snapshots it
// afterwards, recording its stderr when it fails.
func RunScript(cmd *cobra.Command, args []string) error {
	start := time.Now()
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}

	script, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	guard, err := newGuard(cmd, p, script, true)
	if err != nil {
		return err
	}
	defer guard.Close()

	python := p.python()
	if python == "" {
		python = inventory.DefaultPython
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var captured bytes.Buffer
	runErr := command.Stream(ctx, command.Spec{
		Name: python,
		Args: append([]string{script}, args[1:]...),
	}, stdout(cmd), io.MultiWriter(stderr(cmd), &captured))

	code := command.ExitCode(runErr)
	if runErr != nil {
		rec := snapshot.ErrorRecord{Trace: captured.String()}
		if code < 0 {
			rec = snapshot.ErrorRecord{Kind: "exec", Message: runErr.Error()}
		}
		guard.RecordError(rec)
	}
	if err := guard.Run(context.Background()); err != nil {
		return err
	}

	if err := printSnapshotSummary(newSnapshotSummary("run", p, script, guard, start, code), asJSON); err != nil {
		return err
	}
	if code != 0 {
		if code < 0 {
			code = 1
		}
		return &ExitError{Code: code}
	}
	return nil
}

func newSnapshotSummary(mode string, p *project, script string, guard *snapshot.Guard, start time.Time, code int) SnapshotSummary {
	stem := strings.TrimSuffix(filepath.Base(script), filepath.Ext(script))
	return SnapshotSummary{
		Mode:       mode,
		RootPath:   p.cfg.Root,
		Script:     script,
		OutputDir:  guard.OutputDir(),
		Primary:    filepath.Join(guard.OutputDir(), snapshot.PrimaryArchive),
		DataSource: filepath.Join(guard.OutputDir(), stem+snapshot.DataSourceSuffix),
		ExitCode:   code,
		DurationMS: time.Since(start).Milliseconds(),
	}
}

func printSnapshotSummary(summary SnapshotSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(summary)
	}
	fmt.Printf("Snapshot written to %s\n", summary.OutputDir)
	return nil
}

func stdout(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}
