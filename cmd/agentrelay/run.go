package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/agentrelay/runner"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [message]",
		Short: "Process a single message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), v, nil)
			if err != nil {
				return err
			}
			defer a.close()

			res := a.relay.Process(cmd.Context(), strings.Join(args, " "), func(o *runner.ProcessOptions) {
				o.StartingAgent = v.GetString("agent")
			})

			if v.GetBool("json") {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				if err := enc.Encode(res); err != nil {
					return err
				}

				return res.Err
			}

			if res.Err != nil {
				return res.Err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Output)

			return nil
		},
	}

	cmd.Flags().String("agent", "", "Starting agent (defaults to the configured default)")
	cmd.Flags().Bool("json", false, "Print the full run result as JSON")

	return cmd
}
