package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/peternagy/consultadmin/internal/config"
	"github.com/peternagy/consultadmin/internal/connection"
	"github.com/peternagy/consultadmin/internal/core"
	"github.com/peternagy/consultadmin/internal/debug"
	"github.com/peternagy/consultadmin/internal/maintenance"
	"github.com/peternagy/consultadmin/internal/operation"
	"github.com/peternagy/consultadmin/internal/performance"
	"github.com/peternagy/consultadmin/internal/types"
)

// Maintainer is the maintenance call surface used by the commands.
type Maintainer interface {
	Initialize(ctx context.Context) types.OperationResult[types.ConnectionStatus]
	GetConnectionStatus() types.ConnectionStatus
	GetDatabaseStats(ctx context.Context) types.OperationResult[*types.DatabaseStats]
	GetCollectionStats(ctx context.Context, name string) types.OperationResult[*types.CollectionStats]
	CreateIndexes(ctx context.Context) []types.IndexResult
	DropAllIndexes(ctx context.Context) types.OperationResult[[]types.DropIndexResult]
	BackupDatabase(ctx context.Context) types.OperationResult[types.Backup]
	RestoreDatabase(ctx context.Context, backup types.Backup) types.OperationResult[[]types.RestoreResult]
	CleanupOldData(ctx context.Context) types.OperationResult[[]types.CleanupResult]
	HealthCheck(ctx context.Context) types.HealthReport
}

// serviceFactory builds the Maintainer and a function releasing it.
type serviceFactory func(ctx context.Context, log zerolog.Logger) (Maintainer, func(), error)

var errNotConfirmed = errors.New("destructive command needs --yes")

// commandError is returned after the result has been printed, so cobra only
// sets the exit status.
type commandError struct{ msg string }

func (e *commandError) Error() string { return e.msg }

type cli struct {
	factory serviceFactory
	svc     Maintainer
	release func()
	log     zerolog.Logger

	logLevel string
}

// newRootCmd builds the command tree. The returned function releases the
// store connection once the command has finished.
func newRootCmd(factory serviceFactory) (*cobra.Command, func()) {
	c := &cli{factory: factory, release: func() {}}

	root := &cobra.Command{
		Use:           "maintenance",
		Short:         "Maintain the consultadmin store",
		Version:       Version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.log = debug.New(debug.Options{
				Level:   c.logLevel,
				Pretty:  true,
				Service: "consultadmin-maintenance",
				Out:     cmd.ErrOrStderr(),
			})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		c.statusCmd(),
		c.statsCmd(),
		c.indexesCmd(),
		c.backupCmd(),
		c.restoreCmd(),
		c.cleanupCmd(),
		c.healthCmd(),
	)
	return root, func() { c.release() }
}

// service lazily builds the Maintainer so flag errors never touch the store.
func (c *cli) service(ctx context.Context) (Maintainer, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	svc, release, err := c.factory(ctx, c.log)
	if err != nil {
		return nil, err
	}
	c.svc, c.release = svc, release
	return svc, nil
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Connect and print the connection status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			res := svc.Initialize(cmd.Context())
			if !res.Success {
				return printFailure(cmd.OutOrStdout(), types.OperationResult[types.ConnectionStatus]{
					Success: false,
					Data:    svc.GetConnectionStatus(),
					Error:   res.Error,
					Message: res.Message,
				})
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [collection]",
		Short: "Print database statistics, or one collection's statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return printResult(cmd.OutOrStdout(), svc.GetCollectionStats(cmd.Context(), args[0]))
			}
			return printResult(cmd.OutOrStdout(), svc.GetDatabaseStats(cmd.Context()))
		},
	}
}

func (c *cli) indexesCmd() *cobra.Command {
	indexes := &cobra.Command{
		Use:   "indexes",
		Short: "Manage the declared indexes",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create the declared indexes of every entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			results := svc.CreateIndexes(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			for _, r := range results {
				if r.Status == types.StatusError {
					return &commandError{msg: "some indexes could not be created"}
				}
			}
			return nil
		},
	}

	var yes bool
	drop := &cobra.Command{
		Use:   "drop",
		Short: "Drop every non-_id index of every collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNotConfirmed
			}
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			res := svc.DropAllIndexes(cmd.Context())
			if err := printResult(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			for _, r := range res.Data {
				if r.Status == types.StatusError {
					return &commandError{msg: "some indexes could not be dropped"}
				}
			}
			return nil
		},
	}
	drop.Flags().BoolVar(&yes, "yes", false, "confirm dropping indexes")

	indexes.AddCommand(create, drop)
	return indexes
}

func (c *cli) backupCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write every user collection to an archive file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			res := svc.BackupDatabase(cmd.Context())
			if !res.Success {
				return printFailure(cmd.OutOrStdout(), res)
			}
			manifest, err := maintenance.SaveArchive(out, res.Data)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), types.Succeeded(manifest))
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "archive file to create")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (c *cli) restoreCmd() *cobra.Command {
	var (
		in  string
		yes bool
	)
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace collections with the contents of an archive file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNotConfirmed
			}
			backup, err := maintenance.LoadArchive(in)
			if err != nil {
				return err
			}
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			res := svc.RestoreDatabase(cmd.Context(), backup)
			if err := printResult(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			for _, r := range res.Data {
				if r.Status == types.StatusError {
					return &commandError{msg: "some collections could not be restored"}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "archive file to restore")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm replacing collection contents")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func (c *cli) cleanupCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete archived content and closed leads past their retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNotConfirmed
			}
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			res := svc.CleanupOldData(cmd.Context())
			if err := printResult(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			for _, r := range res.Data {
				if r.Error != "" {
					return &commandError{msg: "cleanup finished with errors"}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting data")
	return cmd
}

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Connect, then report statistics and re-create indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			// the report itself shows whether the connection came up
			svc.Initialize(cmd.Context())
			report := svc.HealthCheck(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Connected || report.Error != "" {
				return &commandError{msg: "store is unhealthy"}
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult[T any](w io.Writer, res types.OperationResult[T]) error {
	if !res.Success {
		return printFailure(w, res)
	}
	return printJSON(w, res)
}

func printFailure[T any](w io.Writer, res types.OperationResult[T]) error {
	if err := printJSON(w, res); err != nil {
		return err
	}
	return &commandError{msg: fmt.Sprintf("%s: %s", res.Error, res.Message)}
}

// connectService wires the maintenance service from the environment.
func connectService(ctx context.Context, log zerolog.Logger) (Maintainer, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	manager := connection.NewManager(connection.Config{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
	}, debug.For(log, debug.CategoryConnection))

	runner := operation.NewRunner(manager, debug.For(log, debug.CategoryOperation), cfg.Mongo.MaintenanceTimeout)
	svc := maintenance.NewService(manager, runner, core.NewGate(), performance.NewCollector(), debug.For(log, debug.CategoryMaintenance), maintenance.Options{
		LeaseTTL: cfg.Mongo.MaintenanceTimeout,
		Drain:    cfg.Mongo.RequestTimeout,
	})

	release := func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Mongo.ConnectTimeout)
		defer cancel()
		if err := manager.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("failed to close store connection")
		}
	}
	return svc, release, nil
}
