package main

import (
	"context"
	"os"

	"github.com/martinsuchenak/geotoolkit/cmd/ranges"
	"github.com/martinsuchenak/geotoolkit/cmd/server"
	"github.com/martinsuchenak/geotoolkit/internal/log"
	"github.com/paularlott/cli"
	"github.com/paularlott/cli/env"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load .env file if it exists
	env.Load()

	log.Configure("info", "console")

	rootCmd := &cli.Command{
		Name:        "geotoolkit",
		Version:     version,
		Usage:       "IPv4 range validation and inventory",
		Description: "Validate IPv4 ranges, keep an inventory of known ranges and audit it over HTTP, MCP or the CLI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:         "log-level",
				Usage:        "Log level (trace, debug, info, warn, error)",
				DefaultValue: "info",
				EnvVars:      []string{"GEO_LOG_LEVEL"},
				Global:       true,
			},
			&cli.StringFlag{
				Name:         "log-format",
				Usage:        "Log format (console, json)",
				DefaultValue: "console",
				EnvVars:      []string{"GEO_LOG_FORMAT"},
				Global:       true,
			},
		},
		PreRun: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.Configure(cmd.GetString("log-level"), cmd.GetString("log-format"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			server.Command(),
			{
				Name:        "range",
				Usage:       "IP range commands",
				Description: "Validate range files and manage the known range inventory",
				Commands:    ranges.Commands(),
			},
		},
	}

	if err := rootCmd.Execute(context.Background()); err != nil {
		log.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
