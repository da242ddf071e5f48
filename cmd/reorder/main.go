package main

import (
	"os"

	"github.com/andresuchdata/autopo-reorder/internal/config"
	"github.com/andresuchdata/autopo-reorder/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg := config.Load()
	logger.Configure(os.Stderr, cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)

	app := &cli.App{
		Name:  "reorder",
		Usage: "Compute reorder suggestions and draft purchase orders from a snapshot",
		Flags: sourceFlags(cfg),
		Commands: []*cli.Command{
			{
				Name:  "suggest",
				Usage: "Print ranked reorder suggestions",
				Flags: append(paramFlags(cfg), outputFlags()...),
				Action: func(c *cli.Context) error {
					return runSuggest(c, cfg)
				},
			},
			{
				Name:  "explain",
				Usage: "Show the calculation trace for one product",
				Flags: append(paramFlags(cfg), &cli.Int64Flag{
					Name:     "product-id",
					Usage:    "Product to explain",
					Required: true,
				}),
				Action: func(c *cli.Context) error {
					return runExplain(c, cfg)
				},
			},
			{
				Name:  "draft",
				Usage: "Group suggestions for selected products into draft purchase orders",
				Flags: append(append(paramFlags(cfg), outputFlags()...),
					&cli.StringFlag{
						Name:     "product-ids",
						Usage:    "Comma-separated product ids to include",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "auto-number",
						Usage: "Assign PO numbers instead of placeholders",
					},
					&cli.BoolFlag{
						Name:  "persist",
						Usage: "Save drafts to the database (requires --db-url)",
					},
				),
				Action: func(c *cli.Context) error {
					return runDraft(c, cfg)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("reorder failed")
	}
}

func sourceFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Snapshot CSV file",
		},
		&cli.StringFlag{
			Name:  "drive-file-id",
			Usage: "Google Drive file id of a snapshot CSV",
		},
		&cli.StringFlag{
			Name:  "drive-path",
			Usage: "Google Drive path of a snapshot CSV, e.g. exports/reorder/snapshot.csv",
		},
		&cli.StringFlag{
			Name:    "drive-credentials",
			Usage:   "Service account JSON for Google Drive",
			Value:   cfg.Drive.CredentialsJSON,
			EnvVars: []string{"GOOGLE_DRIVE_CREDENTIALS_JSON"},
		},
		&cli.StringFlag{
			Name:    "db-url",
			Usage:   "Database connection string",
			Value:   cfg.Database.URL,
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.Int64Flag{
			Name:  "organization-id",
			Usage: "Organization scope (database source only)",
		},
		&cli.Int64Flag{
			Name:  "location-id",
			Usage: "Location scope (database source only)",
		},
	}
}

func paramFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "Velocity strategy: latest or conservative",
			Value: cfg.Reorder.DefaultStrategy,
		},
		&cli.IntFlag{
			Name:  "horizon-days",
			Usage: "Override the coverage horizon in days",
		},
		&cli.BoolFlag{
			Name:  "include-zero-velocity",
			Usage: "Keep products without sales velocity",
			Value: cfg.Reorder.IncludeZeroVelocity,
		},
		&cli.BoolFlag{
			Name:  "exclude-no-supplier",
			Usage: "Drop products without an active supplier",
			Value: cfg.Reorder.ExcludeNoSupplier,
		},
		&cli.Float64Flag{
			Name:  "min-days-cover",
			Usage: "Only keep products with at least this many days of cover",
		},
		&cli.Float64Flag{
			Name:  "max-days-cover",
			Usage: "Only keep products with at most this many days of cover",
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: table, csv or json",
			Value:   "table",
		},
		&cli.StringFlag{
			Name:  "upload-key",
			Usage: "Also upload the CSV report to object storage under this key",
		},
	}
}
