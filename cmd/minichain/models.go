package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/martinemde/minichain/unifiedllm"
)

func NewModelsCmd(options *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List known models and their aliases",
		Long:  "List known models and their aliases. --provider limits the list to one provider.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODEL\tALIASES\tCONTEXT")
			for _, m := range unifiedllm.ListModels(options.Provider) {
				marker := ""
				if unifiedllm.DefaultModel(m.Provider) == m.ID {
					marker = " (default)"
				}
				fmt.Fprintf(w, "%s\t%s%s\t%s\t%d\n", m.Provider, m.ID, marker, strings.Join(m.Aliases, ","), m.ContextWindow)
			}
			return w.Flush()
		},
	}
}
