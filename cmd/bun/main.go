package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/beatclash/beatclash/app"
	competitionmigrations "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories/migrations"
	competitionscheduler "github.com/beatclash/beatclash/app/modules/competition/infrastructure/scheduler"
	"github.com/beatclash/beatclash/config"
	bcjwt "github.com/beatclash/beatclash/pkg/jwt"
	"github.com/google/uuid"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load configuration for database connection ONLY
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := app.OpenDB(cfg.Postgres.DSN)
	defer db.Close()

	migrators := map[string]*migrate.Migrator{
		"competition": migrate.NewMigrator(db, competitionmigrations.Migrations),
	}

	cliApp := &cli.App{
		Name: "bun",
		Commands: []*cli.Command{
			newDBCommand(cfg, migrators),
			newTokenCommand(cfg),
		},
	}

	if err := cliApp.Run(append([]string{os.Args[0]}, flag.Args()...)); err != nil {
		log.Fatal(err)
	}
}

func newDBCommand(cfg *config.Config, migrators map[string]*migrate.Migrator) *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					for moduleName, migrator := range migrators {
						fmt.Printf("Initializing migrations for module: %s\n", moduleName)
						if err := migrator.Init(c.Context); err != nil {
							return fmt.Errorf("init %s: %w", moduleName, err)
						}
					}
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database, River's job tables included",
				Action: func(c *cli.Context) error {
					versions, err := competitionscheduler.MigrateRiver(c.Context, cfg.Postgres.DSN)
					if err != nil {
						return err
					}
					if len(versions) == 0 {
						fmt.Println("No new River migrations to run")
					} else {
						fmt.Printf("Applied River migrations: %v\n", versions)
					}

					for moduleName, migrator := range migrators {
						fmt.Printf("Running migrations for module: %s\n", moduleName)
						group, err := migrator.Migrate(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", moduleName)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", moduleName, group)
						}
					}
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: func(c *cli.Context) error {
					for moduleName, migrator := range migrators {
						fmt.Printf("Rolling back migrations for module: %s\n", moduleName)
						group, err := migrator.Rollback(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", moduleName)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", moduleName, group)
						}
					}
					return nil
				},
			},
			{
				Name:      "create_sql",
				Usage:     "create up and down SQL migrations",
				ArgsUsage: "<module> <name...>",
				Action: func(c *cli.Context) error {
					moduleName := c.Args().First()
					migrator, ok := migrators[moduleName]
					if !ok {
						return fmt.Errorf("invalid module name: %s", moduleName)
					}

					name := strings.Join(c.Args().Tail(), "_")
					files, err := migrator.CreateSQLMigrations(c.Context, name)
					if err != nil {
						return err
					}
					for _, mf := range files {
						fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
					}
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					for moduleName, migrator := range migrators {
						ms, err := migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", moduleName)
						fmt.Printf("  %s\n", ms)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					}
					return nil
				},
			},
		},
	}
}

func newTokenCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue an API bearer token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Usage: "user id (random when empty)"},
			&cli.StringFlag{Name: "role", Value: string(bcjwt.RoleAdmin), Usage: "admin, judge, creator or voter"},
			&cli.DurationFlag{Name: "ttl", Usage: "token lifetime (config default when zero)"},
		},
		Action: func(c *cli.Context) error {
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("jwt secret is not configured")
			}
			role, err := bcjwt.ParseRole(c.String("role"))
			if err != nil {
				return err
			}
			userID := uuid.New()
			if v := c.String("user"); v != "" {
				if userID, err = uuid.Parse(v); err != nil {
					return fmt.Errorf("invalid user id: %w", err)
				}
			}

			ttl := c.Duration("ttl")
			if ttl <= 0 {
				ttl = cfg.JWT.DefaultTTL
			}
			token, err := bcjwt.NewService(cfg.JWT.Secret, cfg.JWT.DefaultTTL).GenerateToken(userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "user=%s role=%s expires=%s\n", userID, role, time.Now().Add(ttl).Format(time.RFC3339))
			fmt.Println(token)
			return nil
		},
	}
}
