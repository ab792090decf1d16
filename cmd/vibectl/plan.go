package main

import (
	"github.com/spf13/cobra"

	"vibe/internal/modules/planner"
	"vibe/internal/modules/taxonomy"
	"vibe/internal/types"
)

type planOptions struct {
	taxonomy string
	intents  []string
	lat, lon float64
	radiusKm float64
	region   string
}

func newPlanCmd() *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the provider queries planned for intents",
		Long: `Plan resolves intents from a taxonomy file and prints the provider queries
the executor would run, highest priority first within each intent.

Examples:
  vibectl plan --taxonomy taxonomy.json --intent ridge_hike --lat 45.64 --lon 25.59`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.taxonomy, "taxonomy", "", "taxonomy JSON file")
	cmd.Flags().StringSliceVar(&opts.intents, "intent", nil, "intent ids")
	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "search centre latitude")
	cmd.Flags().Float64Var(&opts.lon, "lon", 0, "search centre longitude")
	cmd.Flags().Float64Var(&opts.radiusKm, "radius-km", 25, "search radius")
	cmd.Flags().StringVar(&opts.region, "region", "", "region label for text queries")
	_ = cmd.MarkFlagRequired("taxonomy")
	_ = cmd.MarkFlagRequired("intent")
	return cmd
}

func runPlan(cmd *cobra.Command, opts *planOptions) error {
	tax, err := taxonomy.LoadFile(opts.taxonomy)
	if err != nil {
		return err
	}
	intents, err := tax.Resolve(opts.intents...)
	if err != nil {
		return err
	}
	queries := planner.New(tax).Plan(intents, planner.Area{
		Center:       types.Point{Lat: opts.lat, Lon: opts.lon},
		RadiusMeters: int(opts.radiusKm * 1000),
		Label:        opts.region,
	})
	return printJSON(cmd, queries)
}
