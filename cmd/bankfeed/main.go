package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"

	"github.com/rfigueroa/bankfeed/pkg/balance"
	"github.com/rfigueroa/bankfeed/pkg/config"
	"github.com/rfigueroa/bankfeed/pkg/dedup"
	"github.com/rfigueroa/bankfeed/pkg/export"
	"github.com/rfigueroa/bankfeed/pkg/ingest"
	"github.com/rfigueroa/bankfeed/pkg/mapping"
	"github.com/rfigueroa/bankfeed/pkg/models"
	"github.com/rfigueroa/bankfeed/pkg/store"
)

var (
	cliFilters filters
	cfgFile    string
	debugDump  bool
)

var rootCmd = &cobra.Command{
	Use:   "bankfeed",
	Short: "Canonical bank statement ingestion",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

func newLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "bankfeed",
		Level:           log.InfoLevel,
	})
}

// setup resolves config, opens the store and loads the institutions file
// into a fresh registry.
func setup(cmd *cobra.Command, logger *log.Logger) (*config.Config, *store.BoltStore, *mapping.Registry, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}

	st, err := store.OpenBolt(cfg.DatabasePath())
	if err != nil {
		return nil, nil, nil, err
	}

	registry := mapping.NewRegistry(logger)
	count, err := mapping.LoadFile(cfg.InstitutionsFile, registry)
	if err != nil {
		_ = st.Close()
		return nil, nil, nil, err
	}
	logger.Debug("loaded institutions", "file", cfg.InstitutionsFile, "count", count)
	return cfg, st, registry, nil
}

var importCmd = &cobra.Command{
	Use:   "import [flags] <statement_path>",
	Short: "Import bank statements into an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		accountID, _ := cmd.Flags().GetString("account")
		institutionID, _ := cmd.Flags().GetString("institution")
		if accountID == "" || institutionID == "" {
			return fmt.Errorf("--account and --institution are required")
		}

		_, st, registry, err := setup(cmd, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		pipeline := ingest.New(registry, logger)
		engine := dedup.New(st, logger)

		matches, err := filepath.Glob(args[0])
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return fmt.Errorf("no files found matching pattern %s", args[0])
		}

		for _, match := range matches {
			data, err := os.ReadFile(match)
			if err != nil {
				logger.Warn("failed to read file", "error", err, "file", match)
				continue
			}

			report, err := pipeline.IngestBytes(data, filepath.Base(match), accountID, institutionID)
			if err != nil {
				return err
			}

			commit, err := engine.Commit(cmd.Context(), accountID, report.Accepted)
			if err != nil {
				return err
			}

			fmt.Printf("%s\n", match)
			renderReport(report, commit, cliFilters.toFilterFunc())
			if debugDump {
				pp.Println(report, commit)
			}
		}
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <account_id>",
	Short: "Running and total balance for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfg, st, _, err := setup(cmd, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		netOfTax, _ := cmd.Flags().GetBool("net-of-tax")
		opts := balance.Options{NetOfTax: netOfTax || cfg.NetOfTax}

		report, err := balance.New(st).Aggregate(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}

		for _, point := range report.ByDate {
			fmt.Printf("%s  %12s\n", point.Date.UTC().Format("2006-01-02"), point.Running.StringFixed(2))
		}
		fmt.Printf("\nBalance for %s: %s\n", args[0], report.Total.StringFixed(2))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <account_id>",
	Short: "Export an account's transactions as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		_, st, _, err := setup(cmd, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		txns, err := balance.New(st).Transactions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return export.WriteCSV(os.Stdout, txns, cliFilters.toFilterFunc())
	},
}

var institutionsCmd = &cobra.Command{
	Use:   "institutions",
	Short: "List configured institutions and their mappings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()

		_, st, registry, err := setup(cmd, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		for _, inst := range registry.List() {
			fmt.Printf("%s  %s\n", inst.ID, inst.Name)
			for _, rule := range inst.Mappings {
				fmt.Printf("  %-8s %q -> %q\n", rule.Kind, rule.SourceField, rule.TargetField)
			}
		}
		return nil
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List registered accounts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()

		_, st, _, err := setup(cmd, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.Find(cmd.Context(), store.CollectionAccounts, "", nil)
		if err != nil {
			return err
		}
		for _, record := range records {
			var account models.Account
			if err := json.Unmarshal(record.Value, &account); err != nil {
				logger.Warn("corrupt account record", "key", record.Key, "err", err)
				continue
			}
			fmt.Printf("%s  %-25s %s\n", account.ID, account.Name, account.AccountType)
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", ".", "Directory holding the database file")
	rootCmd.PersistentFlags().String("institutions", "institutions.yaml", "Institutions mapping file")
	rootCmd.PersistentFlags().BoolVar(&debugDump, "debug", false, "Dump raw reports after each import")

	// Filter flags (global)
	rootCmd.PersistentFlags().StringVar(&cliFilters.startDate, "start", "", "Start date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&cliFilters.endDate, "end", "", "End date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().Float64Var(&cliFilters.minAmount, "min", 0, "Minimum amount")
	rootCmd.PersistentFlags().Float64Var(&cliFilters.maxAmount, "max", 0, "Maximum amount")
	rootCmd.PersistentFlags().StringVar(&cliFilters.merchant, "merchant", "", "Filter by merchant or description (case insensitive)")

	importCmd.Flags().String("account", "", "Target account id")
	importCmd.Flags().String("institution", "", "Institution id whose mapping applies")

	balanceCmd.Flags().Bool("net-of-tax", false, "Subtract tax from amounts")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(institutionsCmd)
	rootCmd.AddCommand(accountsCmd)
}

func main() {
	_ = gotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
