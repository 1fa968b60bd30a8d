package main

import (
	"github.com/urfave/cli/v2"

	mcpserver "github.com/brojonat/solkit/service/mcp"
)

func mcpServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the tools over MCP on stdin and stdout",
		Description: `Expose every tool to an MCP client. Logs go to stderr.

Example client configuration:
  {"command": "solkit", "args": ["mcp", "serve"]}`,
		Action: func(c *cli.Context) error {
			registry, err := localRegistry()
			if err != nil {
				return err
			}
			return mcpserver.ServeStdio(registry, cliLogger("info"))
		},
	}
}
