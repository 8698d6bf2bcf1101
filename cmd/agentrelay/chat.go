package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newChatCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Hold a multi-turn conversation, one message per line",
		Long: `Reads messages from stdin and answers each one within the same session.
The agent that answered last keeps the conversation on the next turn.

Commands: /reset clears the session, /exit quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := openStore(v)
			if err != nil {
				return err
			}
			defer closeStore()

			a, err := newApp(cmd.Context(), v, store)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			sessionID := v.GetString("session")
			out := cmd.OutOrStdout()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")

				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}

				line := strings.TrimSpace(scanner.Text())

				switch line {
				case "":
					continue
				case "/exit", "/quit":
					return nil
				case "/reset":
					if err := a.relay.Reset(ctx, sessionID); err != nil {
						return err
					}

					fmt.Fprintln(out, "session cleared")

					continue
				}

				res, err := a.relay.Chat(ctx, sessionID, line)
				if err != nil {
					return err
				}

				if res.Err != nil {
					fmt.Fprintf(out, "error: %s\n", res.ErrorMessage())
					continue
				}

				fmt.Fprintf(out, "%s: %s\n", res.Agent, res.Output)
			}
		},
	}

	flags := cmd.Flags()
	flags.String("session", "default", "Session id")
	flags.String("store", "memory", "Session store (memory, redis, sqlite, postgres)")
	flags.String("redis-addr", "localhost:6379", "Redis address for --store redis")
	flags.String("redis-password", "", "Redis password for --store redis")
	flags.Duration("session-ttl", 0, "Expiry of redis sessions, 0 keeps them forever")
	flags.String("dsn", "agentrelay.db", "Data source name for --store sqlite or postgres")

	return cmd
}
