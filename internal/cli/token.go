package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/sunclock/internal/auth"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	Secret  string
	Issuer  string
	Subject string
	TTL     time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an HS256 JWT accepted by the sunclock server",
		Long: `Issue an HS256 JWT accepted by the sunclock server.

The secret defaults to $SUNCLOCK_AUTH_JWT_SECRET and the issuer to
$SUNCLOCK_AUTH_JWT_ISSUER, matching the server's configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(rootOpts, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Secret, "secret", os.Getenv("SUNCLOCK_AUTH_JWT_SECRET"), "HMAC secret")
	cmd.Flags().StringVar(&opts.Issuer, "issuer", os.Getenv("SUNCLOCK_AUTH_JWT_ISSUER"), "iss claim")
	cmd.Flags().StringVar(&opts.Subject, "subject", "viewer", "sub claim")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}

func runToken(rootOpts *RootOptions, opts *TokenOptions, w io.Writer) error {
	token, err := auth.IssueToken(auth.Config{JWTSecret: opts.Secret, JWTIssuer: opts.Issuer}, opts.Subject, opts.TTL)
	if err != nil {
		return err
	}
	res := map[string]string{"token": token, "expires_in": opts.TTL.String()}
	return newFormatter(rootOpts, w).Emit(res, func(w io.Writer) {
		fmt.Fprintln(w, token)
	})
}
