package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var downCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "down <version>",
	Short: "Roll back applied migrations",
	Long: `Roll back every applied migration above the target version, newest
first, leaving the target itself applied. With --only, roll back exactly
the named version instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runDown,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	downCmd.Flags().Bool("only", false, "roll back exactly the named version")
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	target := args[0]
	only, _ := cmd.Flags().GetBool("only")

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	pool, err := connectDB(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	o := newOrchestrator(pool, cfg, out)

	if only {
		if err := o.RollbackOne(ctx, target); err != nil {
			return err
		}

		fmt.Fprintf(out, "Rolled back migration %s.\n", target)

		return nil
	}

	if err := o.RollbackToVersion(ctx, target); err != nil {
		return err
	}

	fmt.Fprintf(out, "Rolled back to version %s.\n", target)

	return nil
}
