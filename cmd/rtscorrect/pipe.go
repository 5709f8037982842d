package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"rtscorrect/internal/pipeline"
)

func newPipeCmd(c *cli) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:     "pipe",
		Short:   "Correct utterances read line by line from stdin",
		Example: "  stt-engine | rtscorrect pipe --llm-correct --llm-model qwen2.5-1.5b-instruct-q4_k_m",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(c.cfg, c.log, c.backend)
			if err != nil {
				return err
			}
			defer a.Close()
			// the first utterance should not race the model load
			a.svc.WaitInitialized(cmd.Context())

			opts := []pipeline.Option{pipeline.WithLogger(c.log)}
			if jsonOut {
				opts = append(opts, pipeline.WithJSON())
			}
			err = pipeline.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a.svc, opts...)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit one JSON object per utterance")
	return cmd
}
