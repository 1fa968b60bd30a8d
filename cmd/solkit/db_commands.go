package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/solkit/service/db"
)

func listInvocationsCommand() *cli.Command {
	return &cli.Command{
		Name:    "invocations",
		Usage:   "List recorded tool invocations",
		Aliases: []string{"inv"},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "tool",
				Aliases: []string{"t"},
				Usage:   "Filter by tool name",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of rows",
				Value:   50,
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			invocations, err := store.ListInvocations(c.Context, db.ListInvocationsParams{
				Tool:  c.String("tool"),
				Limit: int32(c.Int("limit")),
			})
			if err != nil {
				return fmt.Errorf("failed to list invocations: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, invocations)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTOOL\tSTATUS\tCODE\tTX\tDURATION\tSTARTED")
			for _, inv := range invocations {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\t%s\n",
					inv.ID,
					inv.Tool,
					inv.Status,
					formatOptional(inv.Code),
					formatOptional(inv.TxID),
					inv.Duration.Round(time.Millisecond),
					inv.StartedAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d invocations\n", len(invocations))
			return nil
		},
	}
}

func listMessagesCommand() *cli.Command {
	return &cli.Command{
		Name:      "messages",
		Usage:     "Show a chat transcript",
		ArgsUsage: "CHAT_ID",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Most recent messages to show",
				Value:   200,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: chat id")
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			messages, err := store.ListMessages(c.Context, c.Args().First(), int32(c.Int("limit")))
			if err != nil {
				return fmt.Errorf("failed to list messages: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, messages)
			}
			for _, m := range messages {
				fmt.Fprintf(c.App.Writer, "[%s] %s: %s\n", m.CreatedAt.Format(time.RFC3339), m.Role, m.Content)
			}
			return nil
		},
	}
}

func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := db.NewStore(pool, nil)
	closer := func() { pool.Close() }

	return store, closer, nil
}

func formatOptional(s *string) string {
	if s != nil && *s != "" {
		return *s
	}
	return "-"
}
