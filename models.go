package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"voxd/config"
	"voxd/transcriber"
)

func newModelsCmd(g *globalFlags) *cobra.Command {
	var model string
	var all bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List endpoint models, or ask the endpoint to fetch them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.config, config.Overrides{})
			if err != nil {
				return err
			}
			client := transcriber.NewClient(cfg)
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var pull []string
			switch {
			case all:
				pull = config.Models
			case model != "":
				if err := config.ValidateModel(model, config.Models); err != nil {
					return err
				}
				pull = []string{model}
			}
			if len(pull) > 0 {
				for _, m := range pull {
					id := cfg.APIModel(m)
					fmt.Fprintf(out, "Fetching %s...\n", id)
					if err := transcriber.Pull(ctx, client, id); err != nil {
						return err
					}
				}
				fmt.Fprintln(out, "Done.")
				return nil
			}

			ids, err := transcriber.Models(ctx, client)
			if err != nil {
				return err
			}
			printModels(out, cfg, ids)
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "fetch one model")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every supported model")
	return cmd
}

// printModels marks each supported model as available on the endpoint
// or not, then lists any other ids the endpoint serves.
func printModels(w io.Writer, cfg config.Config, ids []string) {
	fmt.Fprintf(w, "Endpoint: %s\n\n", cfg.APIURL)
	known := make(map[string]bool)
	for _, m := range config.Models {
		id := cfg.APIModel(m)
		known[id] = true
		mark := " "
		if slices.Contains(ids, id) {
			mark = "*"
		}
		fmt.Fprintf(w, "  [%s] %s\n", mark, m)
	}
	var other []string
	for _, id := range ids {
		if !known[id] {
			other = append(other, id)
		}
	}
	if len(other) > 0 {
		slices.Sort(other)
		fmt.Fprintln(w, "\nOther models:")
		for _, id := range other {
			fmt.Fprintf(w, "  %s\n", id)
		}
	}
	fmt.Fprintln(w, "\n[*] available; fetch with: voxd models --model <name>")
}
