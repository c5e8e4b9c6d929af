package testutils

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	competitionmigrations "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories/migrations"
	competitionscheduler "github.com/beatclash/beatclash/app/modules/competition/infrastructure/scheduler"
)

// competitionTables lists the application tables, children first.
var competitionTables = []string{
	"criteria_scores",
	"submission_judgments",
	"song_creator_picks",
	"submission_votes",
	"round1_assignments",
	"submission_groups",
	"competition_submissions",
	"competitions",
}

// RunMigrations applies River's schema and the competition migrations.
func RunMigrations(ctx context.Context, db *bun.DB, dsn string) error {
	if _, err := competitionscheduler.MigrateRiver(ctx, dsn); err != nil {
		return err
	}

	migrator := migrate.NewMigrator(db, competitionmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migration tables: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run competition migrations: %w", err)
	}
	if group.IsZero() {
		log.Println("No competition migrations to run")
	} else {
		log.Printf("Ran competition migrations group #%d", group.ID)
	}
	return nil
}

// CleanupDatabase truncates every competition table.
func CleanupDatabase(ctx context.Context, db *bun.DB) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(competitionTables, ", "))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// CleanupRiverJobs deletes all jobs from the River queue.
func CleanupRiverJobs(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM river_job"); err != nil {
		return fmt.Errorf("failed to cleanup river jobs: %w", err)
	}
	return nil
}
