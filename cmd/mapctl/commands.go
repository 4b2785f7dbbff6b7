package main

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"example.com/processmap/internal/app"
	"example.com/processmap/internal/auth"
	"example.com/processmap/internal/config"
	"example.com/processmap/internal/domain"
	"example.com/processmap/internal/outbox"
	"example.com/processmap/internal/persistence"
	"example.com/processmap/internal/persistence/postgres"
	"example.com/processmap/internal/seed"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := requirePostgres(cfg, "migrate"); err != nil {
				return err
			}
			pool, err := pgxpool.New(cmd.Context(), cfg.PostgresURL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			applied, err := postgres.Migrate(cmd.Context(), pool)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, version := range applied {
				fmt.Fprintf(out, "applied %s\n", version)
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema up to date")
			}
			return nil
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	var (
		workflowID int64
		name       string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the sample underwriting workflow",
		Long: `Creates a workflow (or reuses --workflow) and loads the sample swimlanes and
activities. Cells that are already occupied are skipped, so seeding twice is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, rt, err := c.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if workflowID == 0 {
				wf, err := rt.Service.CreateWorkflow(ctx, name, "Sample insurance underwriting process")
				if err != nil {
					return err
				}
				workflowID = wf.ID
			}
			report, err := seed.Load(ctx, rt.Service, workflowID, c.actorOr(cfg))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "workflow %d: %d swimlanes, %d activities inserted, %d skipped\n",
				workflowID, report.Swimlanes, report.Inserted, report.Skipped)
			return nil
		},
	}
	cmd.Flags().Int64Var(&workflowID, "workflow", 0, "Existing workflow to seed (default: create one)")
	cmd.Flags().StringVar(&name, "name", "Insurance Underwriting", "Name of the workflow to create")
	return cmd
}

func (c *cli) shiftCmd() *cobra.Command {
	var (
		workflowID int64
		row        string
		from       int
	)
	cmd := &cobra.Command{
		Use:   "shift",
		Short: "Shift a row right from a column, repointing links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, rt, err := c.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			outcome, err := rt.Service.ShiftRow(ctx, domain.ShiftRowInput{
				WorkflowID: workflowID,
				Row:        row,
				FromColumn: from,
				Actor:      c.actorOr(cfg),
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "shifted %d activities in row %s\n", outcome.Count(), outcome.Row)
			for _, rel := range outcome.Relocations {
				fmt.Fprintf(out, "  %d: %s -> %s\n", rel.ActivityID, rel.From, rel.To)
			}
			if len(outcome.Relinked) > 0 {
				fmt.Fprintf(out, "relinked activities: %v\n", outcome.Relinked)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&workflowID, "workflow", 0, "Workflow ID")
	cmd.Flags().StringVar(&row, "row", "", "Row letter")
	cmd.Flags().IntVar(&from, "from", 0, "First column to move")
	_ = cmd.MarkFlagRequired("workflow")
	_ = cmd.MarkFlagRequired("row")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func (c *cli) auditCmd() *cobra.Command {
	var (
		activityID int64
		limit      int
		cursor     string
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print an activity's audit history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, rt, err := c.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			after, err := persistence.DecodeCursor(cursor)
			if err != nil {
				return fmt.Errorf("invalid cursor: %w", err)
			}
			entries, next, err := rt.Service.AuditTrail(ctx, activityID, after, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-15s %-12s %s", e.ChangedAt.Format(time.RFC3339), e.Action, e.Actor, deref(e.Field))
				if e.OldValue != nil || e.NewValue != nil {
					fmt.Fprintf(out, " %q -> %q", deref(e.OldValue), deref(e.NewValue))
				}
				fmt.Fprintln(out)
			}
			if next != nil {
				fmt.Fprintf(out, "next cursor: %s\n", persistence.EncodeCursor(next))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&activityID, "activity", 0, "Activity ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Entries per page")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")
	_ = cmd.MarkFlagRequired("activity")
	return cmd
}

func (c *cli) publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish one batch of pending outbox events to Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := requirePostgres(cfg, "publish"); err != nil {
				return err
			}
			if !cfg.PublishesEvents() {
				return fmt.Errorf("publish needs KAFKA_BROKERS")
			}
			logger, err := app.NewLogger(cfg)
			if err != nil {
				return err
			}
			pool, err := app.OpenPool(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, outbox.WithProducerLogger(logger))
			defer producer.Close()
			registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
			dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
				outbox.WithLogger(logger))
			if err := dispatcher.RunOnce(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "outbox batch dispatched")
			return nil
		},
	}
}

func (c *cli) tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token that attributes API changes to a subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := auth.Issue(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Actor name placed in the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
