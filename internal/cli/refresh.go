package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastertools/ftl-sso/internal/sso"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the cached access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			token, err := refreshCached(ctx, s)
			if err != nil {
				switch {
				case errors.Is(err, sso.ErrLoginRequired):
					return fmt.Errorf("not logged in; run 'ftl-sso login' first")
				case errors.Is(err, sso.ErrInvalidRequest):
					return fmt.Errorf("the cached token cannot be refreshed; run 'ftl-sso login --force'")
				}
				return fmt.Errorf("refresh failed: %w", err)
			}

			Success("Token refreshed")
			printTokenValidity(token)
			return nil
		},
	}
}
