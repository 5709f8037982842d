package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCorrectCmd(c *cli) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:     "correct <text>",
		Short:   "Correct a single utterance and print the result",
		Example: "  rtscorrect correct --llm-correct --llm-model ./model.gguf \"えーと今日は天気がいいですね\"",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(c.cfg, c.log, c.backend)
			if err != nil {
				return err
			}
			defer a.Close()
			a.svc.WaitInitialized(cmd.Context())

			out := a.svc.Correct(cmd.Context(), strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), out.Text)
			if verbose {
				reason := out.Reason
				if out.Applied {
					reason = "applied"
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s generated=%d stop=%s took=%s\n",
					reason, out.Result.Generated, out.Result.Stop, out.Duration)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print outcome details to stderr")
	return cmd
}
