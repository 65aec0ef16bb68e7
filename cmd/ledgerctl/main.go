package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/richardliu001/school-rewards/internal/config"
	"github.com/richardliu001/school-rewards/internal/db"
	"github.com/richardliu001/school-rewards/internal/logger"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/richardliu001/school-rewards/internal/repo"
	"github.com/richardliu001/school-rewards/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Operator tools for the school rewards ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config.yaml")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(seedConfigCmd)

	reconcileCmd.Flags().IntSliceP("student", "s", nil, "Student id to reconcile (repeatable)")
	_ = reconcileCmd.MarkFlagRequired("student")
	seedConfigCmd.Flags().IntP("church", "", 0, "Church id to seed")
	_ = seedConfigCmd.MarkFlagRequired("church")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env is what every subcommand needs.
type env struct {
	cfg  *config.Config
	log  *zap.SugaredLogger
	gdb  *gorm.DB
	repo *repo.Repository
}

func setup() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	gdb, err := db.Open(cfg.Postgres)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, gdb: gdb, repo: repo.NewRepository(gdb, nil, nil, log)}, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the ledger tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		if err := db.Migrate(e.gdb); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrated", len(model.All()), "tables")
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute wallet balances from the transaction log",
	Long: `Recompute each student's points and cash balance from wallet_transactions
and compare it with the cached balance on the wallet row. Exits non-zero
when any wallet has drifted.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ids, _ := cmd.Flags().GetIntSlice("student")
	e, err := setup()
	if err != nil {
		return err
	}
	ledger := service.NewLedger(e.repo, e.log, nil)
	enc := json.NewEncoder(cmd.OutOrStdout())
	drifted := 0
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("invalid student id %d", id)
		}
		rec, err := ledger.Reconcile(context.Background(), uint64(id))
		if err != nil {
			return fmt.Errorf("student %d: %w", id, err)
		}
		if !rec.Consistent {
			drifted++
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	if drifted > 0 {
		return fmt.Errorf("%d of %d wallets drifted from the ledger", drifted, len(ids))
	}
	return nil
}

var seedConfigCmd = &cobra.Command{
	Use:   "seed-config",
	Short: "Store the configured points defaults for a church",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		church, _ := cmd.Flags().GetInt("church")
		if church <= 0 {
			return fmt.Errorf("invalid church id %d", church)
		}
		e, err := setup()
		if err != nil {
			return err
		}
		configs := service.NewPointsConfigs(e.repo, e.cfg.Points.Defaults, e.log)
		cfg, err := configs.Get(context.Background(), uint64(church))
		if err != nil {
			return err
		}
		saved, err := configs.Upsert(context.Background(), *cfg)
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(saved)
	},
}
