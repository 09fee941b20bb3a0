package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/pbarbosa/tenantvault/cmd/app/commands"
	"github.com/pbarbosa/tenantvault/internal/app"
	"github.com/pbarbosa/tenantvault/internal/config"
)

func getIdentityCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-trust-domain",
			Usage: "Register an external identity provider",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "issuer",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Issuer URL of the identity provider",
				},
				&cli.StringFlag{
					Name:     "mode",
					Aliases:  []string{"m"},
					Required: true,
					Usage:    "Verification mode: 'offline' or 'live'",
				},
				&cli.StringFlag{
					Name:    "keys",
					Aliases: []string{"k"},
					Usage:   "JSON object mapping key IDs to PEM public keys (offline mode)",
				},
				&cli.StringFlag{
					Name:  "review-url",
					Usage: "Verification endpoint URL (live mode)",
				},
				&cli.StringSliceFlag{
					Name:    "audience",
					Aliases: []string{"a"},
					Usage:   "Accepted audience value (repeatable)",
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

				identityUseCase, err := container.IdentityUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateTrustDomain(
					ctx,
					identityUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("issuer"),
					cmd.String("mode"),
					cmd.String("keys"),
					cmd.String("review-url"),
					cmd.StringSlice("audience"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "create-binding",
			Usage: "Bind an issuer's claim shape to a tenant domain",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "issuer",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Issuer URL of a registered trust domain",
				},
				&cli.StringFlag{
					Name:     "domain-id",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Tenant domain the binding resolves to",
				},
				&cli.StringSliceFlag{
					Name:    "audience",
					Aliases: []string{"a"},
					Usage:   "Required audience value (repeatable)",
				},
				&cli.StringFlag{
					Name:     "subject-pattern",
					Aliases:  []string{"s"},
					Required: true,
					Usage:    "Glob pattern the assertion subject must match",
				},
				&cli.StringFlag{
					Name:    "claims",
					Aliases: []string{"c"},
					Usage:   "JSON object of claim names to required values",
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

				identityUseCase, err := container.IdentityUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateBinding(
					ctx,
					identityUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("issuer"),
					cmd.String("domain-id"),
					cmd.StringSlice("audience"),
					cmd.String("subject-pattern"),
					cmd.String("claims"),
					cmd.String("format"),
				)
			},
		},
	}
}
