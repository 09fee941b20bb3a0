package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/pbarbosa/tenantvault/cmd/app/commands"
	"github.com/pbarbosa/tenantvault/internal/app"
	"github.com/pbarbosa/tenantvault/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "clean-expired-sessions",
			Usage: "Delete sessions that expired before the retention window",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:    "retention",
					Aliases: []string{"r"},
					Value:   24 * time.Hour,
					Usage:   "Keep expired sessions younger than this duration (e.g., 24h)",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				sessionUseCase, err := container.SessionUseCase()
				if err != nil {
					return err
				}

				return commands.RunCleanExpiredSessions(
					ctx,
					sessionUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.Duration("retention"),
					cmd.String("format"),
				)
			},
		},
	}
}
