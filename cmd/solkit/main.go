package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "solkit",
		Usage: "Solana agent tools CLI",
		Description: `A command-line tool for the solkit agent tools.

Run tools locally against the configured wallet, call a running tool server,
serve the tools over MCP, and inspect the invocation log and event stream.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			// Tool server commands (HTTP API)
			toolsCommands(),
			// Local tool commands (use the configured wallet directly)
			{
				Name:  "treasury",
				Usage: "Squads multisig treasury commands",
				Subcommands: []*cli.Command{
					treasuryTransferCommand(),
				},
			},
			{
				Name:  "token",
				Usage: "Token commands",
				Subcommands: []*cli.Command{
					deployTokenCommand(),
				},
			},
			{
				Name:  "liquidity",
				Usage: "Sanctum liquidity commands",
				Subcommands: []*cli.Command{
					addLiquidityCommand(),
				},
			},
			{
				Name:  "mcp",
				Usage: "Model Context Protocol commands",
				Subcommands: []*cli.Command{
					mcpServeCommand(),
				},
			},
			{
				Name:  "chat",
				Usage: "Chat transcript commands",
				Subcommands: []*cli.Command{
					chatRenderCommand(),
				},
			},
			{
				Name:  "db",
				Usage: "Database inspection commands",
				Subcommands: []*cli.Command{
					listInvocationsCommand(),
					listMessagesCommand(),
				},
			},
			{
				Name:  "nats",
				Usage: "NATS tool event streaming commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
				},
			},
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Tool server URL",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}
