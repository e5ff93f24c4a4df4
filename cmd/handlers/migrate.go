package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/persistence"
)

// NewMigrateCmd creates the migrate command for database migrations
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage the report database schema.

Subcommands:
  up       Apply all pending migrations
  status   Show migration status

Applied migrations are tracked in the schema_migrations table.

Examples:
  profici migrate up
  profici migrate status`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(cmd.Context())
		},
	})

	return cmd
}

func openMigrator() (*persistence.MigrationManager, func(), error) {
	db, err := getDatabase(config.Get(), true)
	if err != nil {
		return nil, nil, err
	}
	return persistence.NewMigrationManager(db), func() { _ = db.Close() }, nil
}

func runMigrateUp(ctx context.Context) error {
	migrator, closeDB, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("✅ All migrations applied successfully")
	return nil
}

func runMigrateStatus(ctx context.Context) error {
	migrator, closeDB, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeDB()

	status, err := migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if len(status) == 0 {
		fmt.Println("No migrations found")
		return nil
	}

	fmt.Println(renderMigrationStatus(status))
	return nil
}

func renderMigrationStatus(status []persistence.MigrationStatus) string {
	rows := make([][]string, 0, len(status))
	pending := 0
	for _, m := range status {
		state, at := okStyle.Render("applied"), m.AppliedAt.Format("2006-01-02 15:04")
		if !m.Applied {
			state, at = failedStyle.Render("pending"), ""
			pending++
		}
		rows = append(rows, []string{strconv.Itoa(m.Version), state, m.Description, at})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("VERSION", "STATUS", "DESCRIPTION", "APPLIED AT").
		Rows(rows...)

	out := fmt.Sprintf("%s\n%s\nApplied: %d | Pending: %d | Total: %d",
		titleStyle.Render("Migration status"), t.String(), len(status)-pending, pending, len(status))
	if pending > 0 {
		out += "\n" + mutedStyle.Render("Run 'profici migrate up' to apply pending migrations")
	}
	return out
}
