package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/pbarbosa/tenantvault/cmd/app/commands"
	"github.com/pbarbosa/tenantvault/internal/app"
	"github.com/pbarbosa/tenantvault/internal/config"
)

func getBrokerCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-role",
			Usage: "Register a dynamic credential role for a tenant domain",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "domain-id",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Tenant domain the role belongs to",
				},
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Role name, unique within the domain",
				},
				&cli.StringFlag{
					Name:     "backend",
					Aliases:  []string{"b"},
					Required: true,
					Usage:    "Backend type: 'postgres' or 'mysql'",
				},
				&cli.StringFlag{
					Name:     "connection-string",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Privileged connection string for the backend",
				},
				&cli.DurationFlag{
					Name:  "default-ttl",
					Usage: "Default lease lifetime (e.g., 1h); zero uses the service default",
				},
				&cli.DurationFlag{
					Name:  "max-ttl",
					Usage: "Maximum lease lifetime (e.g., 24h); zero uses the service default",
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

				brokerUseCase, err := container.BrokerUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateRole(
					ctx,
					brokerUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("domain-id"),
					cmd.String("name"),
					cmd.String("backend"),
					cmd.String("connection-string"),
					cmd.Duration("default-ttl"),
					cmd.Duration("max-ttl"),
					cmd.String("format"),
				)
			},
		},
	}
}
