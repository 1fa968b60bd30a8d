package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/solkit/client"
	"github.com/brojonat/solkit/service/config"
	"github.com/brojonat/solkit/service/toolkit"
)

var jqFlag = &cli.StringFlag{
	Name:  "jq",
	Usage: "jq filter applied to the tool result, eg '.txId'",
}

func toolsCommands() *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "Call tools on a running tool server",
		Subcommands: []*cli.Command{
			listToolsCommand(),
			callToolCommand(),
			startExecutionCommand(),
			getExecutionCommand(),
		},
	}
}

func listToolsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List the tools the server exposes",
		Action: func(c *cli.Context) error {
			tools, err := newClient(c).ListTools(c.Context)
			if err != nil {
				return fmt.Errorf("failed to list tools: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, tools)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPARAMS")
			for _, t := range tools {
				params := ""
				for i, p := range t.Params {
					if i > 0 {
						params += ", "
					}
					params += p.Name
					if p.Required {
						params += "*"
					}
				}
				fmt.Fprintf(w, "%s\t%s\n", t.Name, params)
			}
			return w.Flush()
		},
	}
}

func callToolCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "Run a tool synchronously on the server",
		ArgsUsage: "TOOL_NAME",
		Description: `Send a JSON input to a tool and print its result envelope.

Example:
  solkit tools call deploy_token --input '{"name":"Test","uri":"https://x/t.json","symbol":"TST"}' --jq .mint`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Tool input as JSON; '-' reads stdin",
				Value:   "{}",
			},
			jqFlag,
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: tool name")
			}
			input, err := readInputFlag(c)
			if err != nil {
				return err
			}

			env, err := newClient(c).CallTool(c.Context, c.Args().First(), input)
			if err != nil {
				return err
			}
			return printEnvelope(c, env.Raw)
		},
	}
}

func startExecutionCommand() *cli.Command {
	return &cli.Command{
		Name:      "async",
		Usage:     "Start a durable tool execution",
		ArgsUsage: "TOOL_NAME",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Tool input as JSON; '-' reads stdin",
				Value:   "{}",
			},
			&cli.BoolFlag{
				Name:    "wait",
				Aliases: []string{"w"},
				Usage:   "Block until the execution finishes",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait with --wait",
				Value: 5 * time.Minute,
			},
			jqFlag,
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: tool name")
			}
			input, err := readInputFlag(c)
			if err != nil {
				return err
			}

			cl := newClient(c)
			id, err := cl.StartToolExecution(c.Context, c.Args().First(), input)
			if err != nil {
				return err
			}
			if !c.Bool("wait") {
				fmt.Fprintln(c.App.Writer, id)
				return nil
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()
			exec, err := cl.AwaitExecution(ctx, id, time.Second)
			if err != nil {
				return err
			}
			return printExecution(c, exec)
		},
	}
}

func getExecutionCommand() *cli.Command {
	return &cli.Command{
		Name:      "execution",
		Aliases:   []string{"exec"},
		Usage:     "Show a durable tool execution",
		ArgsUsage: "WORKFLOW_ID",
		Flags:     []cli.Flag{jqFlag},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: workflow id")
			}
			exec, err := newClient(c).GetExecution(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			return printExecution(c, exec)
		},
	}
}

func treasuryTransferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Transfer SOL or SPL tokens out of the Squads vault",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Usage: "Recipient address", Required: true},
			&cli.Float64Flag{Name: "amount", Usage: "Amount in SOL or whole tokens", Required: true},
			&cli.StringFlag{Name: "mint", Usage: "SPL token mint; omit for SOL"},
			&cli.IntFlag{Name: "vault-index", Usage: "Vault index", Value: 0},
			jqFlag,
		},
		Action: func(c *cli.Context) error {
			input := map[string]any{
				"to":         c.String("to"),
				"amount":     c.Float64("amount"),
				"vaultIndex": c.Int("vault-index"),
			}
			if mint := c.String("mint"); mint != "" {
				input["mint"] = mint
			}
			return runLocalTool(c, "multisig_transfer_from_treasury", input)
		},
	}
}

func deployTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "deploy",
		Usage: "Create a fungible token with Metaplex metadata",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Token name", Required: true},
			&cli.StringFlag{Name: "symbol", Usage: "Token symbol", Required: true},
			&cli.StringFlag{Name: "uri", Usage: "Metadata JSON url", Required: true},
			&cli.IntFlag{Name: "decimals", Usage: "Decimals", Value: 9},
			&cli.Float64Flag{Name: "initial-supply", Usage: "Whole tokens minted to the wallet"},
			jqFlag,
		},
		Action: func(c *cli.Context) error {
			input := map[string]any{
				"name":     c.String("name"),
				"symbol":   c.String("symbol"),
				"uri":      c.String("uri"),
				"decimals": c.Int("decimals"),
			}
			if c.IsSet("initial-supply") {
				input["initialSupply"] = c.Float64("initial-supply")
			}
			return runLocalTool(c, "deploy_token", input)
		},
	}
}

func addLiquidityCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add liquidity to the Sanctum Infinity pool",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "lst-mint", Usage: "LST mint address", Required: true},
			&cli.StringFlag{Name: "amount", Usage: "LST amount in base units", Required: true},
			&cli.StringFlag{Name: "quoted-amount", Usage: "Quoted LP amount in base units", Required: true},
			&cli.Uint64Flag{Name: "priority-fee", Usage: "Max compute unit price in micro-lamports", Value: 5000},
			jqFlag,
		},
		Action: func(c *cli.Context) error {
			return runLocalTool(c, "sanctum_add_liquidity", map[string]any{
				"lstMint":      c.String("lst-mint"),
				"amount":       c.String("amount"),
				"quotedAmount": c.String("quoted-amount"),
				"priorityFee":  c.Uint64("priority-fee"),
			})
		},
	}
}

// runLocalTool runs a tool in-process with the wallet from the environment.
func runLocalTool(c *cli.Context, name string, input map[string]any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	registry, err := localRegistry()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	inv := registry.Invoke(ctx, name, string(raw))
	return printEnvelope(c, []byte(inv.Output))
}

// localRegistry builds the tool registry from environment configuration.
func localRegistry() (*toolkit.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := cliLogger(cfg.LogLevel)

	a, err := toolkit.NewAgentFromConfig(cfg, nil, logger)
	if err != nil {
		return nil, err
	}
	return toolkit.NewAgentRegistry(a, logger, toolkit.WithTimeout(cfg.ToolTimeout))
}

func newClient(c *cli.Context) *client.Client {
	return client.NewClient(c.String("server-url"), nil, cliLogger("error"))
}

// cliLogger logs to stderr so stdout stays parseable.
func cliLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func readInputFlag(c *cli.Context) (string, error) {
	input := c.String("input")
	if input == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		input = string(bytes.TrimSpace(b))
	}
	if !json.Valid([]byte(input)) {
		return "", fmt.Errorf("--input must be valid JSON")
	}
	return input, nil
}

// printEnvelope prints a tool result and returns an error when the tool failed.
func printEnvelope(c *cli.Context, raw []byte) error {
	if filter := c.String("jq"); filter != "" {
		if err := runJQ(c.App.Writer, filter, raw); err != nil {
			return err
		}
	} else {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			fmt.Fprintln(c.App.Writer, string(raw))
		} else if err := outputJSON(c.App.Writer, v); err != nil {
			return err
		}
	}

	env, err := toolkit.ParseEnvelope(string(raw))
	if err != nil {
		return fmt.Errorf("tool returned a malformed result: %w", err)
	}
	if env.Status != toolkit.StatusSuccess {
		return fmt.Errorf("tool failed (%s): %s", env.Code, env.Message)
	}
	return nil
}

func printExecution(c *cli.Context, exec *client.Execution) error {
	if filter := c.String("jq"); filter != "" {
		raw, err := json.Marshal(exec)
		if err != nil {
			return err
		}
		return runJQ(c.App.Writer, filter, raw)
	}
	return outputJSON(c.App.Writer, exec)
}

// runJQ applies filter to the JSON document raw and prints each result.
func runJQ(w io.Writer, filter string, raw []byte) error {
	query, err := gojq.Parse(filter)
	if err != nil {
		return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("result is not JSON: %w", err)
	}

	iter := code.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq filter error: %w", err)
		}
		if s, isString := v.(string); isString {
			fmt.Fprintln(w, s)
			continue
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
	}
}

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
