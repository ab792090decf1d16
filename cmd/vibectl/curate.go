package main

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vibe/internal/ai"
	"vibe/internal/modules/activity"
	"vibe/internal/modules/curation"
	"vibe/internal/modules/venue"
)

type curateOptions struct {
	input     string
	buckets   []string
	avoidFood bool
	noModel   bool
	strict    bool
	verbose   bool
}

func newCurateCmd() *cobra.Command {
	opts := &curateOptions{}
	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Curate five venues from a JSON candidate list",
		Long: `Curate reads a JSON array of venue candidates and prints the curation.

Examples:
  # Heuristic curation from a file
  vibectl curate --input items.json --no-model

  # Prefer culture and trails, skip restaurants
  vibectl curate --input items.json --buckets culture,trails --avoid-food

  # Read from stdin
  cat items.json | vibectl curate --input -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCurate(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "candidate JSON file, - for stdin")
	cmd.Flags().StringSliceVar(&opts.buckets, "buckets", nil, "target categories")
	cmd.Flags().BoolVar(&opts.avoidFood, "avoid-food", false, "exclude food venues")
	cmd.Flags().BoolVar(&opts.noModel, "no-model", false, "skip the model and use the heuristic")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "return nothing rather than fewer than five venues")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func runCurate(cmd *cobra.Command, opts *curateOptions) error {
	items, err := readCandidates(cmd.InOrStdin(), opts.input)
	if err != nil {
		return err
	}
	spec, err := filterSpec(opts.buckets, opts.avoidFood)
	if err != nil {
		return err
	}

	var gen ai.Generator
	var engineCfg curation.Config
	logger := zap.NewNop()
	if !opts.noModel {
		cfg, l, err := loadRuntime(opts.verbose)
		if err != nil {
			return err
		}
		logger = l
		engineCfg = curation.Config{
			ModelTimeout:        cfg.Curation.ModelTimeout,
			RetryBackoff:        cfg.Curation.RetryBackoff,
			MaxPromptCandidates: cfg.Curation.MaxPromptCandidates,
		}
		if cfg.AI.GeminiKey != "" {
			g, err := ai.NewGeminiProvider(cmd.Context(), cfg.AI.GeminiKey, cfg.AI.Model)
			if err != nil {
				return err
			}
			defer g.Close()
			gen = g
		}
	}

	engine := curation.NewEngine(gen, engineCfg, logger)
	cur := engine.Curate(cmd.Context(), items, spec, curation.Constraints{AllowShort: !opts.strict, DisableModel: opts.noModel})
	return printJSON(cmd, cur)
}

func readCandidates(stdin io.Reader, path string) ([]venue.Candidate, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var items []venue.Candidate
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return items, nil
}

func filterSpec(buckets []string, avoidFood bool) (activity.FilterSpec, error) {
	spec := activity.FilterSpec{AvoidFood: avoidFood}
	for _, b := range buckets {
		c, err := activity.ParseCategory(b)
		if err != nil {
			return spec, err
		}
		spec.Buckets = append(spec.Buckets, c)
	}
	return spec, nil
}
