package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/schema-shift/internal/orchestrator"
)

var upCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "up",
	Short: "Apply pending migrations",
	Long: `Apply all pending migrations in ascending version order. The run stops
at the first failure; migrations applied before it stay applied.`,
	RunE: runUp,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	upCmd.Flags().Bool("dry-run", false, "show what would be applied without executing")
	upCmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	upCmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if cmd.Flags().Changed("lock-timeout") {
		cfg.LockTimeout, _ = cmd.Flags().GetDuration("lock-timeout")
	}

	if cmd.Flags().Changed("statement-timeout") {
		cfg.StatementTimeout, _ = cmd.Flags().GetDuration("statement-timeout")
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	pool, err := connectDB(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	o := newOrchestrator(pool, cfg, out, orchestrator.WithDryRun(dryRun))

	pending, err := o.Pending(ctx)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		fmt.Fprintln(out, "Nothing to apply: all migrations are up to date.")

		return nil
	}

	if dryRun {
		fmt.Fprintln(out, "--- DRY RUN (no changes will be made) ---")
	}

	if err := o.ApplyAll(ctx); err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintf(out, "Dry run complete: %d migration(s) would be applied.\n", len(pending))
	} else {
		fmt.Fprintf(out, "Apply complete: %d migration(s) applied.\n", len(pending))
	}

	return nil
}
