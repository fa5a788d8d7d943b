package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "validate",
	Short: "Check applied migrations against their files on disk",
	Long: `Recompute the checksum of every applied migration's current definition
file and report drift. Findings are advisory: the command exits zero even
when issues are found. Only infrastructure failures exit non-zero.`,
	RunE: runValidate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	pool, err := connectDB(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	issues, err := newOrchestrator(pool, cfg, out).ValidateIntegrity(ctx)
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		fmt.Fprintln(out, "Integrity OK: all applied migrations match their files.")

		return nil
	}

	fmt.Fprintf(out, "Found %d integrity issue(s):\n", len(issues))

	for _, issue := range issues {
		fmt.Fprintf(out, "  %s\n", issue)
	}

	return nil
}
