package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/pbarbosa/tenantvault/cmd/app/commands"
	"github.com/pbarbosa/tenantvault/internal/app"
	"github.com/pbarbosa/tenantvault/internal/config"
)

func getDomainCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-domain",
			Usage: "Onboard a new tenant domain",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Unique domain identifier (e.g., 'alpha')",
				},
				&cli.StringFlag{
					Name:    "description",
					Aliases: []string{"d"},
					Usage:   "Human-readable description",
				},
				&cli.StringFlag{
					Name:     "namespace",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Workload namespace the domain is bound to",
				},
				&cli.StringSliceFlag{
					Name:    "prefix",
					Aliases: []string{"p"},
					Usage:   "Secret path prefix the domain may touch (repeatable)",
				},
				&cli.StringSliceFlag{
					Name:    "deny",
					Usage:   "Deny pattern layered over the allow fragments (repeatable)",
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

				policyUseCase, err := container.PolicyUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateDomain(
					ctx,
					policyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("description"),
					cmd.String("namespace"),
					cmd.StringSlice("prefix"),
					cmd.StringSlice("deny"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "update-domain",
			Usage: "Update a tenant domain's description, prefixes and deny patterns",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Domain identifier",
				},
				&cli.StringFlag{
					Name:    "description",
					Aliases: []string{"d"},
					Usage:   "Human-readable description",
				},
				&cli.StringSliceFlag{
					Name:    "prefix",
					Aliases: []string{"p"},
					Usage:   "Secret path prefix the domain may touch (repeatable)",
				},
				&cli.StringSliceFlag{
					Name:  "deny",
					Usage: "Deny pattern layered over the allow fragments (repeatable)",
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

				policyUseCase, err := container.PolicyUseCase()
				if err != nil {
					return err
				}

				return commands.RunUpdateDomain(
					ctx,
					policyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("description"),
					cmd.StringSlice("prefix"),
					cmd.StringSlice("deny"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "offboard-domain",
			Usage: "Remove a tenant domain, revoking its leases and purging its secrets",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Domain identifier",
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

				policyUseCase, err := container.PolicyUseCase()
				if err != nil {
					return err
				}
				brokerUseCase, err := container.BrokerUseCase()
				if err != nil {
					return err
				}
				kvUseCase, err := container.KVUseCase()
				if err != nil {
					return err
				}

				return commands.RunOffboardDomain(
					ctx,
					policyUseCase,
					brokerUseCase,
					kvUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
	}
}
