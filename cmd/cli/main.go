package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jakechorley/thesis-allocator/internal/config"
	"github.com/jakechorley/thesis-allocator/pkg/core/services"
	"github.com/jakechorley/thesis-allocator/pkg/core/validation"
	"github.com/jakechorley/thesis-allocator/pkg/postgres"
	"github.com/jakechorley/thesis-allocator/pkg/utils/logging"
)

// App holds the application dependencies
type App struct {
	cfg      *config.Config
	database *postgres.DB
	logger   *zap.Logger
	ctx      context.Context
}

var (
	configPath string
	verbose    bool
	app        *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "allocator",
		Short: "Thesis Allocator CLI - Assign students to thesis topics",
		Long:  `A CLI tool for allocating students to thesis topics under coach and department capacity constraints, using exact or approximate optimization.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.database != nil {
					app.database.Close()
				}
				if app.logger != nil {
					app.logger.Sync()
				}
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to allocator.yaml (default: search cwd then home)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug output on the console")

	// Add all commands
	rootCmd.AddCommand(allocateCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(saveConfigCmd())
	rootCmd.AddCommand(listRunsCmd())
	rootCmd.AddCommand(showRunCmd())
	rootCmd.AddCommand(interactiveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, and the optional run store
func initApp() error {
	var err error
	app = &App{
		ctx: context.Background(),
	}

	app.logger, err = logging.InitLogger("allocator", verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Starting application")

	app.logger.Info("Loading configuration")
	if configPath != "" {
		app.cfg, err = config.LoadFromPath(configPath)
	} else {
		app.cfg, err = config.Load()
	}
	if err != nil {
		// No config file means defaults; an invalid file is an error.
		if errors.Is(err, config.ErrNotFound) {
			app.logger.Warn("No config file found, using defaults")
			app.cfg = config.Default()
		} else {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	app.logger.Debug("Configuration loaded successfully",
		zap.String("algorithm", app.cfg.Solver.Algorithm),
		zap.String("backend", app.cfg.Solver.Backend))

	if app.cfg.DatabaseURL != "" {
		app.logger.Info("Connecting to run store")
		app.database, err = postgres.NewDB(app.ctx, app.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := app.database.RunMigrations(app.ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		app.logger.Debug("Run store initialized successfully")
	}

	return nil
}

// Command definitions

func allocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate <students.csv> <capacities.csv>",
		Short: "Allocate students to topics and write the results",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, _ := cmd.Flags().GetString("overrides")
			out, _ := cmd.Flags().GetString("out")
			summary, _ := cmd.Flags().GetString("summary")
			skipValidation, _ := cmd.Flags().GetBool("skip-validation")
			store, _ := cmd.Flags().GetBool("store")
			algorithm, _ := cmd.Flags().GetString("algorithm")

			cfg := *app.cfg
			if algorithm != "" {
				cfg.Solver.Algorithm = algorithm
				if err := config.Validate(&cfg); err != nil {
					return err
				}
			}

			params := services.AllocateParams{
				StudentsPath:   args[0],
				CapacitiesPath: args[1],
				OverridesPath:  overrides,
				OutPath:        out,
				SummaryPath:    summary,
				SkipValidation: skipValidation,
			}
			if store {
				if app.database == nil {
					return fmt.Errorf("--store requires database_url in the config")
				}
				params.Store = app.database
			}

			result, err := services.Allocate(app.ctx, &cfg, app.logger, params)
			if err != nil {
				return err
			}

			// Display results
			fmt.Printf("\n✓ Allocation finished!\n\n")
			fmt.Printf("Algorithm: %s\n", result.Diagnostics.Algorithm)
			fmt.Printf("Status:    %s\n", result.Diagnostics.Status)
			fmt.Printf("Objective: %.0f\n", result.Diagnostics.ObjectiveValue)
			fmt.Printf("Assigned:  %d students\n", len(result.Rows))

			if len(result.Diagnostics.UnassignableStudents) > 0 {
				fmt.Printf("\n⚠️  %d students have no admissible topic:\n", len(result.Diagnostics.UnassignableStudents))
				for _, id := range result.Diagnostics.UnassignableStudents {
					fmt.Printf("  ✗ %s\n", id)
				}
			}
			if len(result.Diagnostics.UnassignedAfterSolve) > 0 {
				fmt.Printf("\n⚠️  %d students left unassigned by the solver:\n", len(result.Diagnostics.UnassignedAfterSolve))
				for _, id := range result.Diagnostics.UnassignedAfterSolve {
					fmt.Printf("  ✗ %s\n", id)
				}
			}
			if result.RunID != "" {
				fmt.Printf("\nRun stored with ID: %s\n", result.RunID)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().String("overrides", "", "Path to overrides.csv")
	cmd.Flags().String("out", "allocation.csv", "Path for the allocation CSV")
	cmd.Flags().String("summary", "summary.txt", "Path for the summary report")
	cmd.Flags().Bool("skip-validation", false, "Skip input validation before solving")
	cmd.Flags().Bool("store", false, "Persist the run to the database")
	cmd.Flags().String("algorithm", "", "Override the configured algorithm (ilp, flow, hybrid)")

	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <students.csv> <capacities.csv>",
		Short: "Validate the input files without solving",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, _ := cmd.Flags().GetString("overrides")

			ok, findings, err := services.ValidateInputs(app.logger, args[0], args[1], overrides)
			if err != nil {
				return err
			}

			if len(findings) == 0 {
				fmt.Println("\n✓ All validations passed")
				return nil
			}

			fmt.Printf("\nFound %d issue(s):\n\n", len(findings))
			for _, f := range findings {
				marker := "⚠️ "
				if f.Severity == validation.SeverityError {
					marker = "✗"
				}
				fmt.Printf("  %s %s\n", marker, f.String())
			}
			fmt.Println()

			if !ok {
				return fmt.Errorf("input validation failed")
			}
			return nil
		},
	}

	cmd.Flags().String("overrides", "", "Path to overrides.csv")

	return cmd
}

func saveConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "saveConfig [path]",
		Short: "Write the active configuration to a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "allocator.yaml"
			if len(args) > 0 {
				path = args[0]
			}

			if err := app.cfg.Save(path); err != nil {
				return err
			}

			app.logger.Info("Configuration written", zap.String("path", path))
			fmt.Printf("\n✓ Configuration written to %s\n\n", path)
			return nil
		},
	}
}

func listRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listRuns",
		Short: "List stored allocation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.database == nil {
				return fmt.Errorf("listRuns requires database_url in the config")
			}

			runs, err := app.database.ListRuns(app.ctx)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			app.logger.Info("Runs fetched successfully", zap.Int("count", len(runs)))

			fmt.Printf("\nFound %d run(s):\n\n", len(runs))
			for _, r := range runs {
				fmt.Printf("- %s  %s  %-8s %-10s obj=%.0f assigned=%d unassigned=%d\n",
					r.ID,
					r.CreatedAt.Format("2006-01-02 15:04"),
					r.Algorithm,
					r.Status,
					r.Objective,
					r.AssignedCount,
					r.UnassignedCount,
				)
			}
			fmt.Println()

			return nil
		},
	}
}

func showRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "showRun <run_id>",
		Short: "Show the assignment rows of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.database == nil {
				return fmt.Errorf("showRun requires database_url in the config")
			}

			rows, err := app.database.GetRunRows(app.ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch run rows: %w", err)
			}

			app.logger.Info("Run rows fetched successfully", zap.Int("count", len(rows)))

			fmt.Printf("\nRun %s has %d assignment(s):\n\n", args[0], len(rows))
			for _, r := range rows {
				fmt.Printf("- %s -> %s (coach %s, dept %s, rank=%d, cost=%d)\n",
					r.StudentID, r.TopicID, r.CoachID, r.DepartmentID, r.PreferenceRank, r.EffectiveCost)
			}
			fmt.Println()

			return nil
		},
	}
}

func interactiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session (load config once, run multiple commands)",
		Long: `Start an interactive session where you can run multiple commands without reloading
configuration or reconnecting to the database. The session keeps running until you
type 'exit' or 'quit'.

Type 'help' to see available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("\n🚀 Starting interactive session...")
			fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to leave")

			// Get all sibling commands (excluding interactive itself)
			rootCmd := cmd.Parent()
			commands := make(map[string]*cobra.Command)
			for _, subCmd := range rootCmd.Commands() {
				if subCmd.Name() != "interactive" && subCmd.Name() != "completion" && subCmd.Name() != "help" {
					commands[subCmd.Name()] = subCmd
				}
			}

			scanner := bufio.NewScanner(os.Stdin)

			for {
				fmt.Print("> ")

				if !scanner.Scan() {
					break
				}

				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}

				parts := strings.Fields(line)
				cmdName := parts[0]
				cmdArgs := parts[1:]

				if cmdName == "exit" || cmdName == "quit" {
					fmt.Println("👋 Goodbye!")
					return nil
				}

				if cmdName == "help" {
					printInteractiveHelp(commands)
					continue
				}

				targetCmd, exists := commands[cmdName]
				if !exists {
					fmt.Printf("❌ Unknown command: %s (type 'help' for available commands)\n\n", cmdName)
					continue
				}

				// Reset command flags and args
				targetCmd.Flags().VisitAll(func(flag *pflag.Flag) {
					flag.Changed = false
					flag.Value.Set(flag.DefValue)
				})

				// Execute the command's RunE directly, bypassing the full Execute() flow
				// This avoids re-running PersistentPreRunE which would call initApp() again
				if err := targetCmd.ParseFlags(cmdArgs); err != nil {
					fmt.Printf("❌ Error parsing flags: %v\n\n", err)
					continue
				}

				cmdArgs = targetCmd.Flags().Args()

				if err := targetCmd.Args(targetCmd, cmdArgs); err != nil {
					fmt.Printf("❌ Error: %v\n\n", err)
					continue
				}

				if targetCmd.RunE != nil {
					if err := targetCmd.RunE(targetCmd, cmdArgs); err != nil {
						fmt.Printf("❌ Error: %v\n\n", err)
					}
				} else if targetCmd.Run != nil {
					targetCmd.Run(targetCmd, cmdArgs)
				}
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}

			return nil
		},
	}

	return cmd
}

func printInteractiveHelp(commands map[string]*cobra.Command) {
	fmt.Println("\nAvailable commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}

	for _, name := range names {
		cmd := commands[name]
		fmt.Printf("  %-40s %s\n", cmd.Use, cmd.Short)
	}

	fmt.Println("\n  help                           Show this help message")
	fmt.Println("  exit, quit                     Exit the interactive session")
}
