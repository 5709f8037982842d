package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rtscorrect/internal/manager"
	"rtscorrect/internal/registry"
)

func newModelsCmd(c *cli) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List GGUF models and check the configured one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = c.cfg.LLM.ModelsDir
			}
			w := cmd.OutOrStdout()
			if dir != "" {
				models, err := registry.NewGGUFScanner().Scan(dir)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tQUANT\tSIZE_MB\tPATH")
				for _, m := range models {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.ID, m.Quant, m.SizeBytes>>20, m.Path)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			if c.cfg.LLM.ModelPath == "" && dir == "" {
				return fmt.Errorf("no models directory: set llm.models_dir or --dir")
			}
			path, err := registry.Resolve(c.cfg.LLM.ModelPath, dir)
			if err != nil {
				fmt.Fprintf(w, "configured model: unresolved (%v)\n", err)
				return nil
			}
			rep := manager.CheckModel(path)
			fmt.Fprintf(w, "configured model: %s (found=%t native_backend=%t)\n", rep.ModelPath, rep.ModelFound, rep.NativeBackend)
			if rep.Error != "" {
				fmt.Fprintf(w, "  problem: %s\n", rep.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to scan (defaults to llm.models_dir)")
	return cmd
}
