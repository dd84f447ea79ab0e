package cli

import (
	"context"
	"fmt"
	"image"
	"io"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/sunclock/internal/composite"
	"github.com/star/sunclock/internal/imagery"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	Day          string
	Night        string
	Clouds       string
	Opacity      float64
	Width        int
	Height       int
	Interpolator string
	Workers      int
	Output       string
}

type renderResult struct {
	T      string `json:"t"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Clouds bool   `json:"clouds"`
	Output string `json:"output"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the composite day/night map to a PNG",
		Long: `Render the composite day/night map to a PNG.

--day and --night accept file paths or http(s) URLs and must have the
same size. Without them generated plates are used. --clouds adds a cloud
layer whose brightness becomes its alpha.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), rootOpts, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Day, "day", "", "day image path or URL")
	cmd.Flags().StringVar(&opts.Night, "night", "", "night image path or URL")
	cmd.Flags().StringVar(&opts.Clouds, "clouds", "", "cloud image path or URL")
	cmd.Flags().Float64Var(&opts.Opacity, "opacity", 0.4, "cloud opacity in [0, 1]")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "output width (default: source width)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "output height (default: source height)")
	cmd.Flags().StringVar(&opts.Interpolator, "interp", imagery.DefaultInterpolator, fmt.Sprintf("scaling interpolator %v", imagery.InterpolatorNames()))
	cmd.Flags().IntVar(&opts.Workers, "workers", runtime.NumCPU(), "goroutines computing mask rows")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "PNG output path")
	cmd.MarkFlagRequired("output")

	return cmd
}

func runRender(ctx context.Context, rootOpts *RootOptions, opts *RenderOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if (opts.Day == "") != (opts.Night == "") {
		return fmt.Errorf("--day and --night must be given together")
	}
	t, err := rootOpts.instant()
	if err != nil {
		return err
	}
	interp, err := imagery.ParseInterpolator(opts.Interpolator)
	if err != nil {
		return err
	}

	var day, night image.Image
	if opts.Day == "" {
		day, night = imagery.Plates(720, 360)
	} else {
		if day, err = imagery.Load(ctx, opts.Day); err != nil {
			return err
		}
		if night, err = imagery.Load(ctx, opts.Night); err != nil {
			return err
		}
	}

	world, err := composite.NewWorld(day, night,
		composite.WithTime(t),
		composite.WithWorkers(opts.Workers),
		composite.WithInterpolator(interp),
	)
	if err != nil {
		return err
	}

	var layer composite.Renderer = world
	if opts.Clouds != "" {
		clouds, err := imagery.Load(ctx, opts.Clouds)
		if err != nil {
			return err
		}
		overlay, err := composite.NewOverlay(clouds, opts.Opacity)
		if err != nil {
			return err
		}
		layer = composite.Stack(world, overlay)
	}

	width, height := world.Size()
	if opts.Width > 0 {
		width = opts.Width
	}
	if opts.Height > 0 {
		height = opts.Height
	}
	img, err := layer.Render(width, height)
	if err != nil {
		return err
	}
	if err := writePNG(opts.Output, img); err != nil {
		return err
	}

	res := renderResult{
		T:      t.Format(time.RFC3339),
		Width:  width,
		Height: height,
		Clouds: opts.Clouds != "",
		Output: opts.Output,
	}
	return newFormatter(rootOpts, w).Emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "wrote %s (%dx%d) for %s\n", res.Output, res.Width, res.Height, res.T)
	})
}
