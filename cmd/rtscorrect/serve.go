package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"rtscorrect/internal/httpapi"
	"rtscorrect/internal/pipeline"
)

const shutdownGrace = 5 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr    string
		stdin   bool
		jsonOut bool
		cors    string
	)
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the HTTP API",
		Example: "  rtscorrect serve --llm-correct --llm-model ~/models/qwen.gguf\n  stt | rtscorrect serve --stdin --llm-correct",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.cfg.Addr = addr
			}
			if cmd.Flags().Changed("cors-origins") {
				c.cfg.CORS.Enabled = true
				c.cfg.CORS.Origins = splitCSV(cors)
			}
			a, err := newApp(c.cfg, c.log, c.backend)
			if err != nil {
				return err
			}
			defer a.Close()

			var opts []pipeline.Option
			if jsonOut {
				opts = append(opts, pipeline.WithJSON())
			}
			return serve(cmd.Context(), a, stdin, cmd.InOrStdin(), cmd.OutOrStdout(), opts...)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8080 (overrides config)")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "Also correct utterances read from stdin")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "With --stdin, emit one JSON object per utterance")
	cmd.Flags().StringVar(&cors, "cors-origins", "", "Comma-separated allowed CORS origins (enables CORS)")
	return cmd
}

// serve runs the HTTP server, and the stdin pipeline when requested, until
// ctx is done or either fails. stdin EOF ends the pipeline but not the server.
func serve(ctx context.Context, a *app, withStdin bool, in io.Reader, out io.Writer, opts ...pipeline.Option) error {
	cfg := a.cfg
	httpapi.SetLogger(a.log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, nil, nil)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(a.api()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", cfg.Addr).Bool("llm", cfg.LLM.Enabled).Msg("rtscorrect listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			a.log.Warn().Err(err).Msg("graceful shutdown")
		}
		return nil
	})
	if withStdin {
		g.Go(func() error {
			errc := make(chan error, 1)
			go func() {
				a.svc.WaitInitialized(gctx)
				errc <- pipeline.Run(gctx, in, out, a.svc, append(opts, pipeline.WithLogger(a.log))...)
			}()
			select {
			case err := <-errc:
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				a.log.Info().Msg("stdin closed; HTTP server keeps running")
				return nil
			case <-gctx.Done():
				// a read blocked on stdin cannot be interrupted; leave it behind
				return nil
			}
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
