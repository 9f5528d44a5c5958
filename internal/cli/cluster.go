package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jhsmit/hal/internal/cluster"
	"github.com/jhsmit/hal/internal/fileutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// DefaultClusterName is started when no name is given.
const DefaultClusterName = "default"

// RunClusterConnect reports the first reachable cluster, or the named one.
func RunClusterConnect(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	endpoint, err := cluster.Connect(context.Background(), p.cfg.Clusters, name, nil)
	if err != nil {
		return err
	}
	if asJSON {
		return fileutil.PrintJSON(endpoint)
	}
	fmt.Printf("Connected to %s at %s\n", endpoint.Name, endpoint.Address)
	return nil
}

// RunClusterStart starts a local scheduler and workers and blocks until
// interrupted.
func RunClusterStart(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	name := DefaultClusterName
	if len(args) > 0 {
		name = args[0]
	}
	c, ok := p.cfg.Clusters[name]
	if !ok {
		return errors.Wrap(cluster.ErrUnknownCluster, name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	launcher := cluster.NewLauncher(p.log)
	launcher.Output = stderr(cmd)
	p.log.WithField("address", c.Address).Infof("Starting cluster %s", name)
	return launcher.Run(ctx, c)
}
