// Package cluster finds and starts the Dask clusters declared in config.yaml.
package cluster

import (
	"context"
	"io"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jhsmit/hal/internal/command"
	"github.com/jhsmit/hal/internal/config"
	"github.com/jhsmit/hal/internal/logging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	NamedTimeout = 5 * time.Second
	ProbeTimeout = 1 * time.Second
)

var (
	ErrNoCluster      = errors.New("no reachable cluster")
	ErrUnknownCluster = errors.New("unknown cluster")
)

// Dialer opens a connection. net.Dialer.DialContext satisfies it.
type Dialer func(ctx context.Context, network, address string) (net.Conn, error)

// Endpoint is a reachable cluster.
type Endpoint struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// HostPort strips a scheme such as tcp:// from a scheduler address.
func HostPort(address string) string {
	if _, rest, ok := strings.Cut(address, "://"); ok {
		return rest
	}
	return address
}

// Connect checks that a scheduler accepts connections. With a name only that
// cluster is tried; otherwise every registered cluster is tried in name
// order and the first reachable one wins.
func Connect(ctx context.Context, registry map[string]config.Cluster, name string, dial Dialer) (Endpoint, error) {
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	if name != "" {
		c, ok := registry[name]
		if !ok {
			return Endpoint{}, errors.Wrap(ErrUnknownCluster, name)
		}
		if err := reach(ctx, dial, c.Address, NamedTimeout); err != nil {
			return Endpoint{}, errors.Wrapf(err, "cluster %s", name)
		}
		return Endpoint{Name: name, Address: c.Address}, nil
	}

	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := reach(ctx, dial, registry[n].Address, ProbeTimeout); err != nil {
			continue
		}
		return Endpoint{Name: n, Address: registry[n].Address}, nil
	}
	return Endpoint{}, ErrNoCluster
}

func reach(ctx context.Context, dial Dialer, address string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := dial(ctx, "tcp", HostPort(address))
	if err != nil {
		return err
	}
	return conn.Close()
}

// Process runs one long-lived command until it exits or ctx is done.
type Process func(ctx context.Context, spec command.Spec) error

// Launcher starts a local scheduler and its workers.
type Launcher struct {
	Dask   string
	Start  Process
	Log    logrus.FieldLogger
	Output io.Writer
}

func NewLauncher(log logrus.FieldLogger) *Launcher {
	return &Launcher{Dask: "dask", Log: logging.OrDiscard(log), Output: os.Stderr}
}

func isLocalHost(host string) bool {
	switch host {
	case "", "127.0.0.1", "localhost", "::1":
		return true
	}
	return false
}

// Specs returns the scheduler and worker commands for c.
func (l *Launcher) Specs(c config.Cluster) ([]command.Spec, error) {
	host, port, err := net.SplitHostPort(HostPort(c.Address))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid cluster address %q", c.Address)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return nil, errors.Errorf("invalid scheduler port %q", port)
	}
	dask := l.Dask
	if dask == "" {
		dask = "dask"
	}
	schedulerArgs := []string{"scheduler", "--port", port}
	if host != "" {
		schedulerArgs = append(schedulerArgs, "--host", host)
	}
	specs := []command.Spec{{Name: dask, Args: schedulerArgs}}

	workers := c.NWorkers
	if workers <= 0 {
		workers = 1
	}
	scheduler := "tcp://" + net.JoinHostPort(hostOrLoopback(host), port)
	for i := 0; i < workers; i++ {
		args := []string{"worker", scheduler, "--name", "worker-" + strconv.Itoa(i)}
		if c.ThreadsPerWorker > 0 {
			args = append(args, "--nthreads", strconv.Itoa(c.ThreadsPerWorker))
		}
		if c.MemoryLimit != "" {
			args = append(args, "--memory-limit", c.MemoryLimit)
		}
		specs = append(specs, command.Spec{Name: dask, Args: args})
	}
	return specs, nil
}

func hostOrLoopback(host string) string {
	if host == "" {
		return "127.0.0.1"
	}
	return host
}

// Run starts the cluster and blocks until ctx is cancelled or a process
// exits. Cancellation is a clean shutdown.
func (l *Launcher) Run(ctx context.Context, c config.Cluster) error {
	log := logging.OrDiscard(l.Log)
	specs, err := l.Specs(c)
	if err != nil {
		return err
	}
	host, _, _ := net.SplitHostPort(HostPort(c.Address))
	if !isLocalHost(host) {
		log.WithField("address", c.Address).Warn("Starting local cluster but specified IP is not local")
	}

	start := l.Start
	if start == nil {
		out := l.Output
		start = func(ctx context.Context, spec command.Spec) error {
			return command.Stream(ctx, spec, out, out)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			log.WithField("cmd", spec.String()).Debug("starting")
			err := start(gctx, spec)
			if gctx.Err() != nil {
				return nil
			}
			if err == nil {
				err = errors.Errorf("%s exited", spec)
			}
			return err
		})
	}
	err = g.Wait()
	if ctx.Err() != nil {
		log.Info("Interrupted")
		return nil
	}
	return err
}
