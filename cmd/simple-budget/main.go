package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/oldrooster/simple-budget/internal/config"
	"github.com/oldrooster/simple-budget/internal/database"
	"github.com/oldrooster/simple-budget/internal/database/repository"
	"github.com/oldrooster/simple-budget/internal/logger"
	"github.com/oldrooster/simple-budget/internal/rules"
	"github.com/oldrooster/simple-budget/internal/service"
)

type app struct {
	db         *sql.DB
	staging    *repository.StagingRepo
	accounts   *repository.AccountRepo
	ruleRepo   *repository.RuleRepo
	importer   *service.Importer
	reconciler *service.Reconciler
}

func main() {
	_ = godotenv.Load()
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	var a app

	rootCmd := &cobra.Command{
		Use:          "simple-budget",
		Short:        "Bank export import, reconciliation and rule-based categorisation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
				return fmt.Errorf("mkdir db dir: %w", err)
			}
			db, err := database.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := database.RunMigrationsWithDB(db); err != nil {
				_ = db.Close()
				return fmt.Errorf("migrate: %w", err)
			}

			staging := repository.NewStagingRepo(db)
			accounts := repository.NewAccountRepo(db)
			payees := repository.NewPayeeRepo(db)
			transactions := repository.NewTransactionRepo(db)
			runs := repository.NewImportRunRepo(db)

			reconciler := &service.Reconciler{Transactions: transactions, Staging: staging, Log: log}
			a = app{
				db:       db,
				staging:  staging,
				accounts: accounts,
				ruleRepo: repository.NewRuleRepo(db),
				importer: &service.Importer{
					Staging:    staging,
					Runs:       runs,
					Resolver:   &service.Resolver{Accounts: accounts, Payees: payees, Staging: staging, Log: log},
					Reconciler: reconciler,
					Log:        log,
					KeepFiles:  cfg.Import.KeepFiles,
				},
				reconciler: reconciler,
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.db != nil {
				_ = a.db.Close()
			}
		},
	}

	rootCmd.AddCommand(
		importCmd(&a, cfg),
		stagingCmd(&a),
		accountsCmd(&a),
		ruleCmd(&a),
		resetCmd(&a),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func importCmd(a *app, cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import [files...]",
		Short: "Import export files and reconcile the batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				entries, err := os.ReadDir(cfg.Import.Dir)
				if err != nil {
					return fmt.Errorf("read imports dir: %w", err)
				}
				for _, e := range entries {
					if !e.IsDir() {
						paths = append(paths, filepath.Join(cfg.Import.Dir, e.Name()))
					}
				}
				sort.Strings(paths)
			}
			if len(paths) == 0 {
				return fmt.Errorf("nothing to import")
			}
			return a.importer.ImportFiles(cmd.Context(), paths)
		},
	}
}

func stagingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staging",
		Short: "Review and resolve held staged rows",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List unresolved staged rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.reconciler.ReviewRows(cmd.Context())
			if err != nil {
				return err
			}
			for _, row := range rows {
				date := ""
				if row.Date != nil {
					date = row.Date.Format("2006-01-02")
				}
				fmt.Printf("%6d  %-20s %-10s %10.2f  %-20s dup=%d\n",
					row.ID, row.AccountName, date, row.Amount, row.Payee, row.ConsecutiveDuplicates)
			}
			return nil
		},
	})

	var commitAll bool
	commit := &cobra.Command{
		Use:   "commit [ids...]",
		Short: "Force-commit staged rows into the ledger, bypassing the duplicate check",
		RunE: func(cmd *cobra.Command, args []string) error {
			if commitAll {
				return a.reconciler.CommitAll(cmd.Context())
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return a.reconciler.CommitStaged(cmd.Context(), ids)
		},
	}
	commit.Flags().BoolVar(&commitAll, "all", false, "commit every remaining staged row")
	cmd.AddCommand(commit)

	var deleteAll bool
	del := &cobra.Command{
		Use:   "delete [ids...]",
		Short: "Force-delete staged rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deleteAll {
				return a.reconciler.DeleteAllStaged(cmd.Context())
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return a.reconciler.DeleteStaged(cmd.Context(), ids)
		},
	}
	del.Flags().BoolVar(&deleteAll, "all", false, "delete every remaining staged row")
	cmd.AddCommand(del)

	cmd.AddCommand(&cobra.Command{
		Use:   "inspect <id>",
		Short: "Show ledger entries similar to a held staged row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			similar, err := a.reconciler.SimilarLedger(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, t := range similar {
				fmt.Printf("%6d  %s %10.2f  %-20s %s\n",
					t.ID, t.Date.Format("2006-01-02"), t.Amount, t.Payee, t.Particulars)
			}
			return nil
		},
	})

	return cmd
}

func accountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "Show the account summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := a.accounts.Summary(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range summaries {
				fmt.Printf("%-24s %-16s opening %10s  balance %10s\n",
					s.AccountName, s.AccountNumber,
					decimal.NewFromFloat(s.OpeningBalance).StringFixed(2),
					decimal.NewFromFloat(s.Balance).StringFixed(2))
			}
			return nil
		},
	}
}

func ruleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Inspect, preview and apply categorisation rules",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a rule with its conditions and actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			rule, err := a.ruleRepo.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("rule %d: %s\n", rule.ID, rule.Name)
			if rule.Description != "" {
				fmt.Printf("  %s\n", rule.Description)
			}
			for i, c := range rule.Conditions {
				join := "AND"
				if c.OrPrev {
					join = "OR"
				}
				if i == 0 {
					join = "   "
				}
				fmt.Printf("  %s %s %s %q\n", join, c.Field, c.Operator, c.Value)
			}
			for _, act := range rule.Actions {
				sub := ""
				if act.SubcategoryID != nil {
					sub = fmt.Sprintf(" / subcategory %d", *act.SubcategoryID)
				}
				fmt.Printf("  -> category %d%s\n", act.CategoryID, sub)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "preview <id>",
		Short: "Preview ledger rows a rule would match (capped)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			rule, err := a.ruleRepo.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			matches, err := rules.Match(cmd.Context(), a.db, rule.Conditions)
			if err != nil {
				return err
			}
			for _, m := range matches {
				fmt.Printf("%6d  %-20s %s %10.2f  %s\n",
					m.Transaction.ID, m.AccountName,
					m.Transaction.Date.Format("2006-01-02"),
					m.Transaction.Amount, m.Transaction.Payee)
			}
			fmt.Printf("%d row(s); preview is capped at %d\n", len(matches), rules.PreviewLimit)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "apply <id>",
		Short: "Apply a rule's category actions to every matching ledger row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			rule, err := a.ruleRepo.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			n, err := rules.Apply(cmd.Context(), a.db, rule)
			if err != nil {
				return err
			}
			fmt.Printf("categorised %d transaction(s)\n", n)
			return nil
		},
	})

	return cmd
}

func resetCmd(a *app) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe all imported data, keeping the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("refusing to wipe data without --yes")
			}
			m := &service.MaintenanceService{DB: a.db}
			return m.Reset(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm the wipe")
	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no ids given (use --all for every row)")
	}
	ids := make([]int64, 0, len(args))
	for _, raw := range strings.Split(strings.Join(args, ","), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
