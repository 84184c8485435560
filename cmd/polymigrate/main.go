package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"polymigrate/internal/config"
	"polymigrate/internal/migration/model"
	"polymigrate/internal/svc"
	pkgerrors "polymigrate/pkg/errors"
	"polymigrate/pkg/utils/logger"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: %v\n", err)
		if code := pkgerrors.GetCode(err); code != pkgerrors.InternalServerError {
			fmt.Fprintf(os.Stderr, "code: %d\n", code)
		}
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "polymigrate",
		Usage: "migrate Polygon problems into the judge database and test-case storage",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: config.DefaultConfigPath, Usage: "path to config file"},
			&cli.StringFlag{Name: "env", Value: config.DefaultEnvFile, Usage: "path to .env file"},
			&cli.BoolFlag{Name: "json", Usage: "print reports as JSON"},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			previewCommand(),
			purgeCommand(),
			clearCacheCommand(),
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Usage:     "migrate one problem",
		ArgsUsage: "<problem-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "problem", Usage: "upsert the problem row, statement and tags"},
			&cli.BoolFlag{Name: "storage", Usage: "upload test cases and checker to storage"},
			&cli.BoolFlag{Name: "test-cases", Usage: "write sample and test rows"},
			&cli.BoolFlag{Name: "refresh", Usage: "update the Polygon working copy first"},
			&cli.StringFlag{Name: "difficulty", Usage: "easy, medium or hard"},
			&cli.StringSliceFlag{Name: "tag", Usage: "tag to attach (repeatable)"},
			&cli.StringFlag{Name: "new-tag", Usage: "additional tag, created when missing"},
			&cli.StringFlag{Name: "testset", Usage: "Polygon testset (default from config)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ref, err := refArg(cmd)
			if err != nil {
				return err
			}
			return withServices(ctx, cmd, func(sc *svc.ServiceContext) error {
				report, err := sc.Migration.Migrate(ctx, model.MigrationRequest{
					ExternalRef:        ref,
					Difficulty:         cmd.String("difficulty"),
					Tags:               cmd.StringSlice("tag"),
					NewTag:             cmd.String("new-tag"),
					Testset:            cmd.String("testset"),
					MigrateProblem:     cmd.Bool("problem"),
					MigrateToStorage:   cmd.Bool("storage"),
					MigrateTestCases:   cmd.Bool("test-cases"),
					RefreshWorkingCopy: cmd.Bool("refresh"),
				})
				if report != nil {
					if perr := printMigrationReport(cmd, report); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "show a problem without writing anything",
		ArgsUsage: "<problem-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "testset", Usage: "Polygon testset (default from config)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ref, err := refArg(cmd)
			if err != nil {
				return err
			}
			return withServices(ctx, cmd, func(sc *svc.ServiceContext) error {
				report, err := sc.Migration.Preview(ctx, ref, cmd.String("testset"))
				if err != nil {
					return err
				}
				return printPreview(cmd, report)
			})
		},
	}
}

func purgeCommand() *cli.Command {
	return &cli.Command{
		Name:      "purge",
		Usage:     "delete every stored object of a migrated problem",
		ArgsUsage: "<problem-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ref, err := refArg(cmd)
			if err != nil {
				return err
			}
			return withServices(ctx, cmd, func(sc *svc.ServiceContext) error {
				id, err := sc.Migration.PurgeStorage(ctx, ref)
				if err != nil {
					return err
				}
				color.Green("purged storage of problem %s (id %d)", ref, id)
				return nil
			})
		},
	}
}

func clearCacheCommand() *cli.Command {
	return &cli.Command{
		Name:      "clear-cache",
		Usage:     "drop cached test cases of a problem",
		ArgsUsage: "<problem-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ref, err := refArg(cmd)
			if err != nil {
				return err
			}
			return withServices(ctx, cmd, func(sc *svc.ServiceContext) error {
				if err := sc.Migration.InvalidateCache(ctx, ref); err != nil {
					return err
				}
				color.Green("cleared cached test cases of problem %s", ref)
				return nil
			})
		},
	}
}

func refArg(cmd *cli.Command) (string, error) {
	ref := strings.TrimSpace(cmd.Args().First())
	if ref == "" {
		return "", fmt.Errorf("%s: problem id argument is required", cmd.Name)
	}
	return ref, nil
}

// withServices loads config, initializes logging and the service context, then runs fn.
func withServices(ctx context.Context, cmd *cli.Command, fn func(sc *svc.ServiceContext) error) error {
	appCfg, err := config.Load(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return err
	}
	if err := logger.Init(appCfg.Logger); err != nil {
		return fmt.Errorf("init logger failed: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	sc, err := svc.NewServiceContext(ctx, appCfg)
	if err != nil {
		return err
	}
	defer sc.Close()
	return fn(sc)
}
