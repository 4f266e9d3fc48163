package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

func NewChatCmd(options *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask prompts interactively",
		Long: "Ask prompts interactively. Every line is an independent run: " +
			"the agent does not remember earlier lines.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, options)
			if err != nil {
				return err
			}
			defer s.Close()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Chatting with %s. Type 'exit' to quit.\n", s.agent.Name())
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						return nil
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}

				line = strings.TrimSpace(line)
				switch line {
				case "":
					continue
				case "exit", "quit":
					return nil
				}

				res, err := s.agent.Run(cmd.Context(), line)
				if err != nil {
					if cmd.Context().Err() != nil {
						return err
					}
					slog.Error("run failed", "error", err)
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
					continue
				}
				fmt.Fprintln(out, res.Generation)
				if options.ShowUsage {
					printUsage(cmd.ErrOrStderr(), res)
				}
			}
		},
	}
}
