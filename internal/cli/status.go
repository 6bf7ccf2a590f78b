package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fastertools/ftl-sso/internal/config"
	"github.com/fastertools/ftl-sso/internal/sso"
)

func newStatusCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the login status of the current profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			token, err := s.provider.CachedToken()
			if err != nil {
				return err
			}

			now := time.Now()
			kv := NewKeyValueBuilder("SSO Status").
				Add("Profile", s.profile.Name).
				Add("Start URL", s.profile.StartURL).
				Add("Region", s.profile.Region).
				Add("Cache", s.cache.Name()).
				Add("Cache Key", fmt.Sprint(s.provider.Key())).
				Add("Status", tokenStatus(token, now))
			if path, err := config.Path(); err == nil {
				kv.Add("Config", path)
			}

			if token != nil {
				kv.Add("Expires", token.ExpiresAt.Local().Format(time.RFC1123)).
					Add("Refreshable", token.HasRefreshToken()).
					AddIf(token.HasCreationTime(), "Session Age", token.SessionAge(now).Round(time.Second).String())
				if claims, err := sso.InspectToken(token.AccessToken); err == nil {
					kv.AddIf(claims.DisplayName() != "", "User", claims.DisplayName())
				}
			}

			return kv.Write(NewDataWriter(cmd.OutOrStdout(), format))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")

	return cmd
}

func tokenStatus(token *sso.AccessToken, now time.Time) string {
	switch {
	case token == nil:
		return "Not logged in"
	case !token.IsExpired(now):
		return "Logged in"
	case token.HasRefreshToken():
		return "Expired (refreshable)"
	default:
		return "Expired"
	}
}
