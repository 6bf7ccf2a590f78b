package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fastertools/ftl-sso/internal/sso"
)

func newTokenCmd() *cobra.Command {
	var (
		forceRefresh bool
		allowLogin   bool
		output       string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for the current profile",
		Long: `Print an access token for the current profile.

The cached token is refreshed when it is about to expire. Without --login the
command fails when a new device authorization would be needed, so it is safe
to call from scripts:

  curl -H "Authorization: Bearer $(ftl-sso token)" ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := OutputFormat("")
			if output != "" {
				var err error
				if format, err = ParseOutputFormat(output); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var opts []sso.Option
			if allowLogin {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, loginTimeout)
				defer cancel()
				// instructions go to stderr so stdout stays the token
				opts = append(opts,
					sso.WithLoginCallback(newTerminalCallback(errOutput, true)),
					sso.WithSleeper(sso.CancellableSleeper{}),
				)
			}

			s, err := openSession(ctx, opts...)
			if err != nil {
				return err
			}
			defer s.close()

			var token *sso.AccessToken
			if forceRefresh {
				token, err = refreshCached(ctx, s)
			} else {
				token, err = s.tokenSource(ctx, allowLogin).AccessToken()
			}
			if err != nil {
				if errors.Is(err, sso.ErrLoginRequired) {
					return fmt.Errorf("%w; run 'ftl-sso login' or pass --login", err)
				}
				return err
			}

			if format == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
				return nil
			}

			return NewKeyValueBuilder("").
				Add("access_token", token.AccessToken).
				Add("expires_at", token.ExpiresAt.UTC().Format(time.RFC3339)).
				Add("start_url", token.StartURL).
				Add("region", token.Region).
				Write(NewDataWriter(cmd.OutOrStdout(), format))
		},
	}

	cmd.Flags().BoolVar(&forceRefresh, "refresh", false, "Refresh the token even if it is still valid")
	cmd.Flags().BoolVar(&allowLogin, "login", false, "Start a device authorization when no usable token exists")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format (table, json, yaml); default prints the raw token")

	return cmd
}

// refreshCached exchanges the cached token's refresh token for a new one
func refreshCached(ctx context.Context, s *session) (*sso.AccessToken, error) {
	current, err := s.provider.CachedToken()
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w for %s", sso.ErrLoginRequired, s.profile.StartURL)
	}
	return s.provider.RefreshToken(ctx, current)
}
