package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newAgentsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the configured agents and their tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), v, nil)
			if err != nil {
				return err
			}
			defer a.close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "AGENT\tPROVIDER\tMODEL\tTOOLS")

			for _, name := range a.relay.Agents().Names() {
				ag, _ := a.relay.Agents().Get(name)

				tools := ag.Tools()
				names := make([]string, 0, len(tools))
				for _, t := range tools {
					names = append(names, t.Name())
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, orDefault(ag.Provider()), orDefault(ag.Model()), strings.Join(names, ","))
			}

			return w.Flush()
		},
	}
}

func orDefault(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
