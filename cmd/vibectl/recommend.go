package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vibe/internal/app"
	"vibe/internal/service"
)

type recommendOptions struct {
	vibe      string
	intents   []string
	uid       string
	lat, lon  float64
	radiusKm  float64
	region    string
	buckets   []string
	avoidFood bool
	verbose   bool
}

func newRecommendCmd() *cobra.Command {
	opts := &recommendOptions{}
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Run the full pipeline for a vibe",
		Long: `Recommend proposes intents for a vibe, queries the enabled providers under
the configured budget, scores venues against current weather and prints the
curation.

Examples:
  vibectl recommend --vibe "slow rainy afternoon" --lat 45.64 --lon 25.59 --region Brasov`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecommend(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.vibe, "vibe", "", "free-text mood")
	cmd.Flags().StringSliceVar(&opts.intents, "intent", nil, "explicit intent ids instead of a vibe")
	cmd.Flags().StringVar(&opts.uid, "uid", "", "caller id charged for model use")
	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&opts.lon, "lon", 0, "longitude")
	cmd.Flags().Float64Var(&opts.radiusKm, "radius-km", 25, "search radius")
	cmd.Flags().StringVar(&opts.region, "region", "", "region label")
	cmd.Flags().StringSliceVar(&opts.buckets, "buckets", nil, "target categories")
	cmd.Flags().BoolVar(&opts.avoidFood, "avoid-food", false, "exclude food venues")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func runRecommend(cmd *cobra.Command, opts *recommendOptions) error {
	if opts.vibe == "" && len(opts.intents) == 0 {
		return fmt.Errorf("one of --vibe or --intent is required")
	}
	spec, err := filterSpec(opts.buckets, opts.avoidFood)
	if err != nil {
		return err
	}
	cfg, logger, err := loadRuntime(opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.Build(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Recommender.Recommend(cmd.Context(), service.Request{
		UID:       opts.uid,
		Vibe:      opts.vibe,
		IntentIDs: opts.intents,
		Lat:       opts.lat,
		Lon:       opts.lon,
		RadiusKm:  opts.radiusKm,
		Region:    opts.region,
		Filter:    spec,
	})
	if err != nil {
		return err
	}
	logger.Debug("done", zap.String("request_id", resp.RequestID))
	return printJSON(cmd, resp)
}
