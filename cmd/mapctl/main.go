// Command mapctl administers a process-map deployment: schema migrations,
// sample data, row shifts, audit history, outbox flushes and dev tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"example.com/processmap/internal/app"
	"example.com/processmap/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

type cli struct {
	actor string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "mapctl",
		Short:        "Administer process-map workflows",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.actor, "actor", "", "Actor recorded in the audit log (default: DEFAULT_ACTOR)")

	root.AddCommand(
		c.migrateCmd(),
		c.seedCmd(),
		c.shiftCmd(),
		c.auditCmd(),
		c.publishCmd(),
		c.tokenCmd(),
	)
	return root
}

// runtime loads configuration and wires the service for one command.
func (c *cli) runtime(ctx context.Context) (config.Config, *app.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		return cfg, nil, err
	}
	rt, err := app.New(ctx, cfg, logger)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, rt, nil
}

func (c *cli) actorOr(cfg config.Config) string {
	if c.actor != "" {
		return c.actor
	}
	return cfg.DefaultActor
}

func requirePostgres(cfg config.Config, command string) error {
	if !cfg.UsesPostgres() {
		return fmt.Errorf("%s needs POSTGRES_URL", command)
	}
	return nil
}
