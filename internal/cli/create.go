package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aqasim81/schema-shift/internal/migration"
)

var createCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "create <name>",
	Short: "Create a new migration file",
	Long: `Create a scaffold migration file with the next version number, a
forward section, and a rollback marker. The name is slugified for the
filename.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern
	rootCmd.AddCommand(createCmd)
}

// runCreate needs no database: the next version comes from the files on disk.
func runCreate(cmd *cobra.Command, args []string) error {
	cfg := AppConfig
	name := strings.Join(args, " ")

	path, err := createMigration(commandContext(cmd), cfg.MigrationsDir, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)

	return nil
}

func createMigration(_ context.Context, dir, name string) (string, error) {
	existing, err := migration.LoadFromDir(dir)
	if err != nil {
		return "", fmt.Errorf("discovering migrations: %w", err)
	}

	return migration.Scaffold(dir, migration.NextVersion(existing), name)
}
