// Package cli implements the sunmask command line tool.
package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
	Time   string // RFC 3339 instant; empty means now
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sunmask CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sunmask",
		Short: "sunmask - day/night terminator tools",
		Long:  "Compute solar positions, day/night masks and composite world maps from the command line.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := opts.instant(); err != nil {
				return err
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Time, "time", "t", "", "instant in RFC 3339 (default: now)")

	// Add subcommands
	cmd.AddCommand(NewMaskCommand(opts))
	cmd.AddCommand(NewSunCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewSeasonsCommand(opts))
	cmd.AddCommand(NewDaylightCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// instant parses the --time flag.
func (o *RootOptions) instant() (time.Time, error) {
	if o.Time == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, o.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --time %q: must be RFC 3339", o.Time)
	}
	return t.UTC(), nil
}
