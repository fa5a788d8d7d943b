package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aqasim81/schema-shift/internal/orchestrator"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show migration status",
	Long: `Display available, applied, and pending migration counts along with
the applied and pending lists.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	statusCmd.Flags().String("format", "", "output format (text, json)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	format := cfg.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	pool, err := connectDB(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	st, err := newOrchestrator(pool, cfg, out).Status(ctx)
	if err != nil {
		return err
	}

	if format == "json" {
		return printStatusJSON(out, st)
	}

	printStatusText(out, st)

	return nil
}

func printStatusText(out io.Writer, st orchestrator.Status) {
	fmt.Fprintf(out, "Available: %d  Applied: %d  Pending: %d\n",
		st.AvailableCount, st.AppliedCount, st.PendingCount)

	if len(st.Applied) > 0 {
		fmt.Fprintln(out, "\nApplied:")

		for _, rec := range st.Applied {
			fmt.Fprintf(out, "  %s_%s  (applied %s)\n",
				rec.Version, rec.Name, rec.AppliedAt.Format("2006-01-02 15:04:05"))
		}
	}

	if len(st.Pending) > 0 {
		fmt.Fprintln(out, "\nPending:")

		for _, m := range st.Pending {
			fmt.Fprintf(out, "  %s_%s\n", m.Version, m.Name)
		}
	}
}

// statusJSON is the wire shape for --format json.
type statusJSON struct {
	Available int      `json:"available"`
	Applied   int      `json:"applied"`
	Pending   int      `json:"pending"`
	AppliedV  []string `json:"applied_versions"`
	PendingV  []string `json:"pending_versions"`
}

func printStatusJSON(out io.Writer, st orchestrator.Status) error {
	payload := statusJSON{
		Available: st.AvailableCount,
		Applied:   st.AppliedCount,
		Pending:   st.PendingCount,
		AppliedV:  make([]string, 0, len(st.Applied)),
		PendingV:  make([]string, 0, len(st.Pending)),
	}

	for _, rec := range st.Applied {
		payload.AppliedV = append(payload.AppliedV, rec.Version)
	}

	for _, m := range st.Pending {
		payload.PendingV = append(payload.PendingV, m.Version)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}

	return nil
}
