package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"

	natspkg "github.com/brojonat/solkit/service/nats"
)

// subscribeCommand streams tool events from JetStream.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to tool invocation events",
		ArgsUsage: "[tool_name]",
		Description: `Stream tool events published to NATS JetStream.

Events are published to the subject tools.{tool_name}. Without an argument
every tool is streamed.

Example:
  solkit nats subscribe deploy_token --json`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Replay the retained history instead of only new events",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Stop after this long; 0 runs until interrupted",
			},
		},
		Action: func(c *cli.Context) error {
			subject := natspkg.StreamSubjects
			if c.NArg() == 1 {
				subject = natspkg.SubjectPrefix + c.Args().First()
			}

			nc, js, err := natspkg.Connect(c.String("nats-url"), "solkit-cli")
			if err != nil {
				return err
			}
			defer nc.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout := c.Duration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			deliver := jetstream.DeliverNewPolicy
			if c.Bool("all") {
				deliver = jetstream.DeliverAllPolicy
			}
			cons, err := js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, jetstream.ConsumerConfig{
				FilterSubject:     subject,
				AckPolicy:         jetstream.AckExplicitPolicy,
				DeliverPolicy:     deliver,
				InactiveThreshold: time.Minute,
			})
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}

			jsonOutput := c.Bool("json")
			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "📡 Subscribing to: %s\n\n", subject)
			}

			cc, err := cons.Consume(func(msg jetstream.Msg) {
				defer msg.Ack()

				var event natspkg.ToolEvent
				if err := json.Unmarshal(msg.Data(), &event); err != nil {
					fmt.Fprintf(os.Stderr, "skipping malformed event: %v\n", err)
					return
				}
				if jsonOutput {
					outputJSON(c.App.Writer, event)
					return
				}
				fmt.Fprintf(c.App.Writer, "%s  %-32s %-7s %-24s %s\n",
					event.StartedAt.Format(time.RFC3339),
					event.Tool,
					event.Status,
					event.Code,
					event.TxID,
				)
			})
			if err != nil {
				return fmt.Errorf("failed to consume: %w", err)
			}
			defer cc.Stop()

			<-ctx.Done()
			return nil
		},
	}
}
