package cli

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/sunclock/internal/solar"
)

// MaskOptions holds flags for the mask command.
type MaskOptions struct {
	Width   int
	Height  int
	Workers int
	Output  string
}

type maskResult struct {
	T             string `json:"t"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Day           int    `json:"day"`
	CivilNight    int    `json:"civil_night"`
	TwilightNight int    `json:"twilight_night"`
	Output        string `json:"output,omitempty"`
}

// NewMaskCommand creates the mask command.
func NewMaskCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MaskOptions{}

	cmd := &cobra.Command{
		Use:   "mask",
		Short: "Compute the day/night mask for an instant",
		Long: `Compute the day/night mask for an instant.

With --output the mask is written as an 8-bit gray PNG (0x00 day, 0x80
civil night, 0xFF twilight night). Without it a text rendering is
printed: ' ' day, '-' civil night, '#' twilight night.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMask(rootOpts, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.Width, "width", 72, "mask width in pixels")
	cmd.Flags().IntVar(&opts.Height, "height", 36, "mask height in pixels")
	cmd.Flags().IntVar(&opts.Workers, "workers", runtime.NumCPU(), "goroutines computing rows")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write a PNG to this path")

	return cmd
}

func runMask(rootOpts *RootOptions, opts *MaskOptions, w io.Writer) error {
	if opts.Width < 1 || opts.Height < 1 {
		return fmt.Errorf("--width and --height must be positive, got %dx%d", opts.Width, opts.Height)
	}
	t, err := rootOpts.instant()
	if err != nil {
		return err
	}

	mask := solar.ComputeMaskConcurrent(t, opts.Width, opts.Height, opts.Workers)
	counts := mask.Counts()
	res := maskResult{
		T:             t.Format(time.RFC3339),
		Width:         mask.Width,
		Height:        mask.Height,
		Day:           counts[solar.Day],
		CivilNight:    counts[solar.CivilNight],
		TwilightNight: counts[solar.TwilightNight],
		Output:        opts.Output,
	}

	if opts.Output != "" {
		img := &image.Gray{Pix: mask.Bytes(), Stride: mask.Width, Rect: image.Rect(0, 0, mask.Width, mask.Height)}
		if err := writePNG(opts.Output, img); err != nil {
			return err
		}
	}

	return newFormatter(rootOpts, w).Emit(res, func(w io.Writer) {
		if opts.Output == "" {
			io.WriteString(w, maskText(mask))
		}
		fmt.Fprintf(w, "%s  day=%d civil=%d twilight=%d\n", res.T, res.Day, res.CivilNight, res.TwilightNight)
	})
}

// maskText renders one character per cell.
func maskText(m *solar.Mask) string {
	var b strings.Builder
	b.Grow((m.Width + 1) * m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			switch m.At(x, y) {
			case solar.Day:
				b.WriteByte(' ')
			case solar.CivilNight:
				b.WriteByte('-')
			default:
				b.WriteByte('#')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
