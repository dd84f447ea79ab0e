package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/sunclock/internal/daylight"
)

// DaylightOptions holds flags for the daylight command.
type DaylightOptions struct {
	Lat   float64
	Lon   float64
	Hours int
}

type daylightResult struct {
	Lat     float64          `json:"lat"`
	Lon     float64          `json:"lon"`
	From    string           `json:"from"`
	Events  []daylight.Event `json:"events"`
	Sunrise string           `json:"reference_sunrise,omitempty"`
	Sunset  string           `json:"reference_sunset,omitempty"`
}

// NewDaylightCommand creates the daylight command.
func NewDaylightCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DaylightOptions{}

	cmd := &cobra.Command{
		Use:   "daylight",
		Short: "Predict sunset, dusk, dawn and sunrise at a point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaylight(cmd, rootOpts, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Float64Var(&opts.Lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&opts.Lon, "lon", 0, "longitude in degrees, east positive")
	cmd.Flags().IntVar(&opts.Hours, "hours", 24, "hours to scan")
	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lon")

	return cmd
}

func runDaylight(cmd *cobra.Command, rootOpts *RootOptions, opts *DaylightOptions, w io.Writer) error {
	from, err := rootOpts.instant()
	if err != nil {
		return err
	}
	events, err := daylight.Predict(cmd.Context(), daylight.Request{
		Lat:     opts.Lat,
		Lon:     opts.Lon,
		From:    from,
		Horizon: time.Duration(opts.Hours) * time.Hour,
	})
	if err != nil {
		return err
	}

	res := daylightResult{Lat: opts.Lat, Lon: opts.Lon, From: from.Format(time.RFC3339), Events: events}
	rise, set := daylight.Reference(opts.Lat, opts.Lon, from)
	if !rise.IsZero() {
		res.Sunrise = rise.UTC().Format(time.RFC3339)
	}
	if !set.IsZero() {
		res.Sunset = set.UTC().Format(time.RFC3339)
	}

	return newFormatter(rootOpts, w).Emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "%d events at %.4f°, %.4f° from %s\n", len(events), res.Lat, res.Lon, res.From)
		for _, e := range events {
			fmt.Fprintf(w, "  %-8s %s  (%s -> %s)\n", e.Kind, e.Time.UTC().Format(time.RFC3339), e.From, e.To)
		}
		if res.Sunrise != "" || res.Sunset != "" {
			fmt.Fprintf(w, "reference sunrise=%s sunset=%s\n", res.Sunrise, res.Sunset)
		}
	})
}
