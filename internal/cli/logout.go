package cli

import (
	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout from the current profile",
		Long:  "Remove the cached access token. The client registration is kept for the next login.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.provider.Invalidate(); err != nil {
				return err
			}

			Success("Logged out from %s", s.profile.StartURL)
			return nil
		},
	}
}
