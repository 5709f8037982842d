package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rtscorrect/internal/config"
	"rtscorrect/internal/llm"
	"rtscorrect/internal/logging"
)

// cli carries state shared by the command tree once PersistentPreRunE ran.
type cli struct {
	configPath string
	cfg        config.Config
	log        zerolog.Logger
	// backend overrides the native backend; tests inject llmtest.
	backend llm.Backend
}

func newRootCmd() *cobra.Command { return newRootCmdWith(nil) }

// newRootCmdWith builds the command tree around the given backend.
func newRootCmdWith(backend llm.Backend) *cobra.Command {
	c := &cli{backend: backend}
	root := &cobra.Command{
		Use:           "rtscorrect",
		Short:         "On-device LLM correction for speech-to-text output",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", os.Getenv("RTSCORRECT_CONFIG"), "Config file (.yaml, .yml, .json, .toml)")
	pf.String("log-level", "", "Log level: debug|info|warn|error (overrides config)")
	pf.Bool("llm-correct", false, "Enable LLM correction of final utterances")
	pf.Bool("no-llm", false, "Disable LLM correction (wins over --llm-correct)")
	pf.String("llm-model", "", "GGUF model file, directory, or model id inside llm.models_dir")
	pf.Int("llm-threads", 0, "CPU threads for inference")
	pf.Int("llm-context", 0, "Context window in tokens")
	pf.String("llm-system-prompt-file", "", "File whose contents replace the built-in system prompt")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if c.configPath != "" {
			loaded, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if err := applyFlags(cmd, &cfg); err != nil {
			return err
		}
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		c.cfg, c.log = cfg, log
		return nil
	}

	root.AddCommand(newServeCmd(c), newPipeCmd(c), newCorrectCmd(c), newModelsCmd(c))
	return root
}

// applyFlags overrides config values with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	if fs.Changed("log-level") {
		v, _ := fs.GetString("log-level")
		cfg.LogLevel = strings.ToLower(v)
	}
	if fs.Changed("llm-correct") {
		v, _ := fs.GetBool("llm-correct")
		cfg.LLM.Enabled = v
	}
	if v, _ := fs.GetBool("no-llm"); v {
		cfg.LLM.Enabled = false
	}
	if fs.Changed("llm-model") {
		cfg.LLM.ModelPath, _ = fs.GetString("llm-model")
	}
	if fs.Changed("llm-threads") {
		n, _ := fs.GetInt("llm-threads")
		if n <= 0 {
			return fmt.Errorf("--llm-threads must be > 0, got %d", n)
		}
		cfg.LLM.Threads = n
	}
	if fs.Changed("llm-context") {
		n, _ := fs.GetInt("llm-context")
		if n <= 0 {
			return fmt.Errorf("--llm-context must be > 0, got %d", n)
		}
		cfg.LLM.ContextSize = n
	}
	if fs.Changed("llm-system-prompt-file") {
		cfg.LLM.SystemPromptFile, _ = fs.GetString("llm-system-prompt-file")
	}
	return nil
}

// splitCSV splits a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
