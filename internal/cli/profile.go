package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/fastertools/ftl-sso/internal/config"
)

// askOne is replaced in tests
var askOne = survey.AskOne

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"profiles"},
		Short:   "Manage SSO connection profiles",
	}

	cmd.AddCommand(
		newProfileAddCmd(),
		newProfileListCmd(),
		newProfileUseCmd(),
		newProfileRemoveCmd(),
	)

	return cmd
}

func newProfileAddCmd() *cobra.Command {
	var (
		startURL   string
		region     string
		scopes     []string
		clientName string
	)

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add or update a profile",
		Long: `Add a connection profile. Values not given as flags are prompted for.

Profiles without scopes share the legacy ~/.aws/sso/cache layout with other
SSO tools. Profiles with scopes get their own cache entries.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) > 0 {
				name = args[0]
			}

			if name == "" {
				if err := askOne(&survey.Input{Message: "Profile name:", Default: "default"}, &name, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}
			if startURL == "" {
				if err := askOne(&survey.Input{Message: "SSO start URL:"}, &startURL, survey.WithValidator(validateStartURLAnswer)); err != nil {
					return err
				}
			}
			if region == "" {
				if err := askOne(&survey.Input{Message: "SSO region:", Default: "us-east-1"}, &region, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}

			profile, err := config.NewProfile(name, startURL, region, scopes)
			if err != nil {
				return err
			}
			profile.ClientName = clientName

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.AddProfile(profile); err != nil {
				return err
			}

			Success("Profile %s saved", profile.Name)
			if cfg.GetCurrentProfile() == profile.Name {
				Info("Using profile %s", profile.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startURL, "start-url", "", "SSO start URL, e.g. https://my-org.awsapps.com/start")
	cmd.Flags().StringVar(&region, "region", "", "AWS region of the SSO instance")
	cmd.Flags().StringSliceVar(&scopes, "scopes", nil, "OAuth scopes to request (comma separated)")
	cmd.Flags().StringVar(&clientName, "client-name", "", "Client name used when registering with SSO")

	return cmd
}

func validateStartURLAnswer(ans interface{}) error {
	s, ok := ans.(string)
	if !ok {
		return fmt.Errorf("unexpected answer type %T", ans)
	}
	return config.ValidateStartURL(s)
}

func newProfileListCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			profiles := cfg.ListProfiles()
			if len(profiles) == 0 && format == OutputFormatTable {
				Info("No profiles configured. Run 'ftl-sso profile add' to create one.")
				return nil
			}

			current := cfg.GetCurrentProfile()
			table := NewTableBuilder("CURRENT", "NAME", "START URL", "REGION", "SCOPES")
			for _, p := range profiles {
				marker := ""
				if p.Name == current {
					marker = "*"
				}
				table.AddRow(marker, p.Name, p.StartURL, p.Region, strings.Join(p.Scopes, ","))
			}
			return table.Write(NewDataWriter(cmd.OutOrStdout(), format))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")

	return cmd
}

func newProfileUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Select the current profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.SetCurrentProfile(args[0]); err != nil {
				return err
			}
			Success("Using profile %s", args[0])
			return nil
		},
	}
}

func newProfileRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a profile",
		Long:    "Remove a profile from the config. Cached tokens are not deleted; run 'ftl-sso logout' first to remove them.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, ok := cfg.GetProfile(name); !ok {
				return fmt.Errorf("profile %q not found", name)
			}

			if !yes {
				confirm := false
				prompt := &survey.Confirm{Message: fmt.Sprintf("Remove profile %s?", name)}
				if err := askOne(prompt, &confirm); err != nil {
					return err
				}
				if !confirm {
					Info("Cancelled")
					return nil
				}
			}

			if err := cfg.RemoveProfile(name); err != nil {
				return err
			}
			Success("Profile %s removed", name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")

	return cmd
}
