package cli

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/sunclock/internal/solar"
)

// SunOptions holds flags for the sun command.
type SunOptions struct {
	Lat float64
	Lon float64
}

type sunResult struct {
	T              string      `json:"t"`
	JulianDay      float64     `json:"julian_day"`
	Century        float64     `json:"century"`
	RightAscension float64     `json:"right_ascension_deg"`
	Declination    float64     `json:"declination_deg"`
	SiderealTime   float64     `json:"sidereal_time_deg"`
	Subsolar       solar.Point `json:"subsolar"`
	Elevation      *float64    `json:"elevation_deg,omitempty"`
	Illumination   string      `json:"illumination,omitempty"`
}

// NewSunCommand creates the sun command.
func NewSunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SunOptions{}

	cmd := &cobra.Command{
		Use:   "sun",
		Short: "Print the solar position for an instant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			observer := cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")
			return runSun(rootOpts, opts, observer, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Float64Var(&opts.Lat, "lat", 0, "observer latitude in degrees")
	cmd.Flags().Float64Var(&opts.Lon, "lon", 0, "observer longitude in degrees, east positive")

	return cmd
}

func runSun(rootOpts *RootOptions, opts *SunOptions, observer bool, w io.Writer) error {
	t, err := rootOpts.instant()
	if err != nil {
		return err
	}
	if observer && (opts.Lat < -90 || opts.Lat > 90 || opts.Lon < -180 || opts.Lon > 180) {
		return fmt.Errorf("observer %v, %v outside the valid range", opts.Lat, opts.Lon)
	}

	p := solar.SunAt(t)
	res := sunResult{
		T:              t.Format(time.RFC3339),
		JulianDay:      p.JulianDay,
		Century:        p.Century,
		RightAscension: p.RightAscension,
		Declination:    p.Declination * 180 / math.Pi,
		SiderealTime:   p.SiderealTime,
		Subsolar:       solar.Subsolar(t),
	}
	if observer {
		el := solar.Elevation(t, opts.Lat, opts.Lon)
		res.Elevation = &el
		res.Illumination = solar.ClassifyAt(t, opts.Lat, opts.Lon).String()
	}

	return newFormatter(rootOpts, w).Emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "time            %s\n", res.T)
		fmt.Fprintf(w, "julian day      %.1f (T=%.8f)\n", res.JulianDay, res.Century)
		fmt.Fprintf(w, "right ascension %.4f°\n", res.RightAscension)
		fmt.Fprintf(w, "declination     %.4f°\n", res.Declination)
		fmt.Fprintf(w, "sidereal time   %.4f°\n", res.SiderealTime)
		fmt.Fprintf(w, "sub-solar point %.2f°, %.2f°\n", res.Subsolar.Lat, res.Subsolar.Lon)
		if res.Elevation != nil {
			fmt.Fprintf(w, "elevation       %.2f° (%s)\n", *res.Elevation, res.Illumination)
		}
	})
}
