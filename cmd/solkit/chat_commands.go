package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/solkit/service/chatui"
)

func chatRenderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render a transcript as an HTML message list",
		ArgsUsage: "MESSAGES_FILE",
		Description: `Read a JSON array of {"id","role","content"} messages and print the
message list HTML. Use '-' to read from stdin.

Example:
  solkit chat render --status streaming transcript.json > chat.html`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "chat-id",
				Usage: "Chat identifier",
				Value: "local",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Request status: idle, submitted or streaming",
				Value: string(chatui.StatusIdle),
			},
			&cli.BoolFlag{
				Name:  "readonly",
				Usage: "Render without message actions",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: messages file")
			}

			status := chatui.Status(c.String("status"))
			if !status.Valid() {
				return fmt.Errorf("invalid status %q: must be idle, submitted or streaming", status)
			}

			messages, err := readMessages(c.Args().First())
			if err != nil {
				return err
			}

			renderer, err := chatui.NewRenderer()
			if err != nil {
				return err
			}
			html, err := renderer.Render(chatui.BuildView(chatui.Props{
				ChatID:     c.String("chat-id"),
				Status:     status,
				Messages:   messages,
				IsReadonly: c.Bool("readonly"),
			}))
			if err != nil {
				return fmt.Errorf("failed to render: %w", err)
			}
			_, err = c.App.Writer.Write(html)
			return err
		},
	}
}

func readMessages(path string) ([]chatui.Message, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open messages file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var messages []chatui.Message
	if err := json.NewDecoder(r).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	for i, m := range messages {
		if m.Role != chatui.RoleUser && m.Role != chatui.RoleAssistant {
			return nil, fmt.Errorf("message %d: role must be 'user' or 'assistant', got %q", i, m.Role)
		}
		if m.ID == "" {
			messages[i].ID = fmt.Sprintf("m%d", i+1)
		}
	}
	return messages, nil
}
