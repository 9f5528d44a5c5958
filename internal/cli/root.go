package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hal",
		Short: "Record reproducibility snapshots of research scripts",
		Long: `hal records what a Python research script ran with: its source files,
imported package versions, the dependency freeze, git state and listings of
the data directories it read.

Archives are written to an output/ directory next to the script.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("root", "", "Project root (env HAL_ROOT; default: search upward for config.yaml)")
	rootCmd.PersistentFlags().String("python", "", "Python interpreter (env HAL_PYTHON; default: config python or python3)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging (env HAL_VERBOSE)")

	// Snapshot Commands
	reproduceCmd := &cobra.Command{
		Use:   "reproduce <script.py>",
		Short: "Snapshot a script's environment without running it",
		Args:  cobra.ExactArgs(1),
		RunE:  RunReproduce,
	}
	addSnapshotFlags(reproduceCmd)

	runCmd := &cobra.Command{
		Use:   "run <script.py> [-- args...]",
		Short: "Run a script and snapshot its environment when it exits",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunScript,
	}
	runCmd.Flags().SetInterspersed(false)
	addSnapshotFlags(runCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create config.yaml and .halignore in the current directory",
		RunE:  RunInit,
	}
	initCmd.Flags().String("author", "", "Author recorded in watermarks")

	// Inspect Commands
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved project configuration",
	}
	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE:  RunConfigShow,
	}
	configShowCmd.Flags().Bool("json", false, "Print machine-readable configuration")
	configPathsCmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the configured data paths",
		RunE:  RunConfigPaths,
	}
	configPathsCmd.Flags().Bool("json", false, "Print machine-readable paths")
	configRootCmd := &cobra.Command{
		Use:   "root",
		Short: "Print the project root",
		RunE:  RunConfigRoot,
	}
	configCmd.AddCommand(configShowCmd, configPathsCmd, configRootCmd)

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the project setup and external tools",
		RunE:  RunDoctor,
	}
	doctorCmd.Flags().Bool("json", false, "Print machine-readable doctor output")

	// Cluster Commands
	clusterCmd := &cobra.Command{
		Use:   "cluster",
		Short: "Connect to or start the Dask clusters in config.yaml",
	}
	clusterConnectCmd := &cobra.Command{
		Use:   "connect [name]",
		Short: "Find a reachable cluster (the named one, or the first that answers)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunClusterConnect,
	}
	clusterConnectCmd.Flags().Bool("json", false, "Print machine-readable endpoint")
	clusterStartCmd := &cobra.Command{
		Use:   "start [name]",
		Short: "Start a local scheduler and workers and block until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunClusterStart,
	}
	clusterCmd.AddCommand(clusterConnectCmd, clusterStartCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hal %s\n", version)
		},
	}

	rootCmd.AddCommand(
		reproduceCmd,
		runCmd,
		initCmd,
		configCmd,
		doctorCmd,
		clusterCmd,
		versionCmd,
	)

	return rootCmd
}
