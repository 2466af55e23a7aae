package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-desk-lookup/app/entity"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/repository"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/service"
	"github.com/vibast-solutions/ms-go-desk-lookup/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the plan index exports",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild [raw_plan_export.csv]",
	Short: "Rebuild the grouped plan-index and letters exports",
	Long:  `Rebuild the grouped plan-index export and the letters export, either from a raw (email, title) CSV export given as argument or from the warehouse when DATA_SOURCE=warehouse.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, dataCfg := newCSVStoreForIndexCommands()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		var (
			rows     []entity.RawPlanRow
			hasEmail bool
			err      error
		)
		switch {
		case len(args) == 1:
			rows, hasEmail, err = store.LoadRawPlanRows(ctx, args[0])
			if err != nil {
				return err
			}
		case dataCfg.Source == config.SourceWarehouse:
			db, err := openWarehouse(dataCfg.MySQLDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			rows, hasEmail, err = repository.NewWarehouseRepository(db).PlanRows(ctx)
			if err != nil {
				return err
			}
		default:
			return errors.New("provide a raw plan export path or set DATA_SOURCE=warehouse")
		}

		index := service.BuildPlanIndex(rows, hasEmail)

		if hasEmail {
			if err = store.WritePlanIndex(index); err != nil {
				return err
			}
		}
		if err = store.WriteLetters(index.Letters); err != nil {
			return err
		}

		fmt.Printf("entries: %d\n", len(index.Entries))
		fmt.Printf("titles: %d\n", len(index.Titles))
		fmt.Printf("letters: %d\n", len(index.Letters))
		fmt.Printf("rejected_titles: %d\n", index.RejectedTitles)
		fmt.Printf("rejected_emails: %d\n", index.RejectedEmails)
		return nil
	},
}

var (
	splitMaxMB     int64
	splitChunkRows int
)

var indexSplitUsersCmd = &cobra.Command{
	Use:   "split-users <user_export.csv>",
	Short: "Split a user export into size-capped numbered parts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _ := newCSVStoreForIndexCommands()

		parts, err := store.SplitUserExport(args[0], splitMaxMB*1024*1024, splitChunkRows)
		if err != nil {
			return err
		}

		fmt.Printf("parts written: %d\n", parts)
		return nil
	},
}

func init() {
	indexSplitUsersCmd.Flags().Int64Var(&splitMaxMB, "max-mb", 100, "maximum size of one part in MB")
	indexSplitUsersCmd.Flags().IntVar(&splitChunkRows, "rows", 7000000, "initial rows per part")

	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexSplitUsersCmd)
	rootCmd.AddCommand(indexCmd)
}

// newCSVStoreForIndexCommands reads only the data-layer environment so the
// index commands work without the full serve configuration.
func newCSVStoreForIndexCommands() (*repository.CSVStore, config.DataConfig) {
	_ = godotenv.Load()

	dataCfg := config.DataConfig{
		Source:           envOrDefault("DATA_SOURCE", config.SourceCSV),
		Dir:              envOrDefault("DATA_DIR", "data"),
		PlanExportFile:   envOrDefault("PLAN_EXPORT_FILE", "grouped_by_email.csv"),
		LettersFile:      envOrDefault("LETTERS_FILE", "letters.csv"),
		UserExportPrefix: envOrDefault("USER_EXPORT_PREFIX", "user_part"),
		MySQLDSN:         os.Getenv("MYSQL_DSN"),
	}

	return repository.NewCSVStore(dataCfg), dataCfg
}

func openWarehouse(dsn string) (*sql.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
