package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	bulkapp "github.com/marv/gateway/internal/application/bulk"
	"github.com/marv/gateway/internal/infrastructure/config"
	"github.com/marv/gateway/internal/infrastructure/logger"
	"github.com/marv/gateway/internal/infrastructure/persistence"
)

func (a *app) openDatabase(sqlitePath string) (*persistence.Database, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if sqlitePath != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.Path = sqlitePath
	}

	gormLog := logger.NewGormLogger(a.log(), logger.MapGormLogLevel(a.v.GetString("log-level")))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (a *app) newMigrateCommand() *cobra.Command {
	var sqlitePath string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the bulk run database",
	}
	cmd.PersistentFlags().StringVar(&sqlitePath, "sqlite", "", "Use this sqlite file instead of the configured database")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the bulk run tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDatabase(sqlitePath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := db.Migrate(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			a.log().Info("Migration completed", zap.String("driver", db.Driver()))
			return a.print(cmd.OutOrStdout(), map[string]string{"status": "migrated", "driver": db.Driver()}, func(w io.Writer) {
				fmt.Fprintf(w, "migrated (%s)\n", db.Driver())
			})
		},
	}

	recoverRuns := &cobra.Command{
		Use:   "recover",
		Short: "Mark bulk runs left unfinished by a crashed gateway as failed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDatabase(sqlitePath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			service := bulkapp.NewService(nil, persistence.NewGormBulkRunRepository(db.DB), bulkapp.Config{},
				bulkapp.WithLogger(a.log()))
			n, err := service.RecoverInterrupted(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]int{"recovered": n}, func(w io.Writer) {
				fmt.Fprintf(w, "recovered %d run(s)\n", n)
			})
		},
	}

	cmd.AddCommand(migrate, recoverRuns)
	return cmd
}
