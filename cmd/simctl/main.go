package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"simcheck/internal/app"
	"simcheck/internal/config"
	"simcheck/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(buildDeps).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// buildDeps loads the env file named by --env and wires every component.
// Logs go to stderr so command output stays clean.
func buildDeps(ctx context.Context, cmd *cli.Command) (app.Deps, error) {
	if err := godotenv.Load(cmd.String("env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return app.Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	level := cfg.LogLevel
	if !cmd.Bool("verbose") {
		level = "warn"
	}
	return app.BuildWith(ctx, cfg, logger.NewWithFormat(level, "text", os.Stderr))
}

func idsFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "ids",
		Usage: "treat arguments as stored document ids instead of file paths",
	}
}

type depsBuilder func(ctx context.Context, cmd *cli.Command) (app.Deps, error)

func newCommand(build depsBuilder) *cli.Command {
	c := &commands{build: build}
	return &cli.Command{
		Name:  "simctl",
		Usage: "document similarity checks from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment file path",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "owner",
				Usage: "owner scope for documents, jobs and reports",
				Value: "cli",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log at the configured LOG_LEVEL instead of warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "register documents",
				ArgsUsage: "<file...>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "title",
						Usage: "title for a single uploaded file",
					},
				},
				Action: c.upload,
			},
			{
				Name:      "compare",
				Usage:     "compare every pair of documents",
				ArgsUsage: "<file...>",
				Flags: []cli.Flag{
					idsFlag(),
					&cli.FloatFlag{
						Name:  "threshold",
						Usage: "hide pairs scoring below this percentage",
					},
				},
				Action: c.compare,
			},
			{
				Name:      "web",
				Usage:     "check documents against web content",
				ArgsUsage: "<file...>",
				Flags: []cli.Flag{
					idsFlag(),
					&cli.FloatFlag{
						Name:  "threshold",
						Usage: "hide documents scoring below this percentage",
					},
				},
				Action: c.web,
			},
			{
				Name:  "documents",
				Usage: "manage registered documents",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list documents of the owner",
						Action: c.listDocuments,
					},
					{
						Name:      "delete",
						Usage:     "delete a document and its content",
						ArgsUsage: "<id>",
						Action:    c.deleteDocument,
					},
				},
			},
			{
				Name:  "reports",
				Usage: "manage generated reports",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list reports of the owner, newest first",
						Action: c.listReports,
					},
					{
						Name:      "show",
						Usage:     "print a report",
						ArgsUsage: "<filename>",
						Action:    c.showReport,
					},
					{
						Name:      "delete",
						Usage:     "delete a report",
						ArgsUsage: "<filename>",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "yes",
								Usage: "confirm deletion",
							},
						},
						Action: c.deleteReport,
					},
				},
			},
		},
	}
}
