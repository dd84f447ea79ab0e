package cli

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/mooncaker816/learnmeeus/v3/solstice"
	"github.com/spf13/cobra"

	"github.com/star/sunclock/internal/solar"
)

// SeasonsOptions holds flags for the seasons command.
type SeasonsOptions struct {
	Year int
}

type seasonEvent struct {
	Name        string      `json:"name"`
	T           string      `json:"t"`
	Subsolar    solar.Point `json:"subsolar"`
	DayFraction float64     `json:"day_fraction"`
}

// unixEpochJD is the Julian Day of 1970-01-01T00:00:00Z.
const unixEpochJD = 2440587.5

// jdeToTime converts a Julian Ephemeris Day to UTC, ignoring ΔT.
func jdeToTime(jde float64) time.Time {
	ms := math.Round((jde - unixEpochJD) * 86400e3)
	return time.UnixMilli(int64(ms)).UTC()
}

// NewSeasonsCommand creates the seasons command.
func NewSeasonsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeasonsOptions{}

	cmd := &cobra.Command{
		Use:   "seasons",
		Short: "List equinoxes and solstices with the mask's lit fraction at each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeasons(rootOpts, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.Year, "year", time.Now().UTC().Year(), "calendar year")

	return cmd
}

func runSeasons(rootOpts *RootOptions, opts *SeasonsOptions, w io.Writer) error {
	if opts.Year < -1000 || opts.Year > 3000 {
		return fmt.Errorf("--year %d outside -1000..3000", opts.Year)
	}

	events := []struct {
		name string
		jde  float64
	}{
		{"march equinox", solstice.March(opts.Year)},
		{"june solstice", solstice.June(opts.Year)},
		{"september equinox", solstice.September(opts.Year)},
		{"december solstice", solstice.December(opts.Year)},
	}

	out := make([]seasonEvent, 0, len(events))
	for _, e := range events {
		t := jdeToTime(e.jde)
		mask := solar.ComputeMask(t, 360, 180)
		lit := float64(mask.Counts()[solar.Day]) / float64(mask.Width*mask.Height)
		out = append(out, seasonEvent{
			Name:        e.name,
			T:           t.Format(time.RFC3339),
			Subsolar:    solar.Subsolar(t),
			DayFraction: lit,
		})
	}

	return newFormatter(rootOpts, w).Emit(out, func(w io.Writer) {
		for _, e := range out {
			fmt.Fprintf(w, "%-18s %s  sub-solar %6.2f°,%7.2f°  lit %.1f%%\n",
				e.Name, e.T, e.Subsolar.Lat, e.Subsolar.Lon, 100*e.DayFraction)
		}
	})
}
