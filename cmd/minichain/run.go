package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func NewRunCmd(options *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [prompt]",
		Short: "Answer a single prompt",
		Long:  "Answer a single prompt. Without arguments the prompt is read from stdin.",
		Example: `  minichain run "What's the weather in Beijing?"
  echo "Summarize README.md" | minichain run --files-root .`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if prompt == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read prompt: %w", err)
				}
				prompt = strings.TrimSpace(string(data))
			}
			if prompt == "" {
				return fmt.Errorf("prompt is empty")
			}

			s, err := newSession(cmd, options)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.agent.Run(cmd.Context(), prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Generation)
			if options.ShowUsage {
				printUsage(cmd.ErrOrStderr(), res)
			}
			return nil
		},
	}
}
