package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/fastertools/ftl-sso/internal/sso"
)

// loginTimeout bounds a whole device authorization, approval included
const loginTimeout = 10 * time.Minute

// openBrowser is replaced in tests
var openBrowser = browser.OpenURL

func newLoginCmd() *cobra.Command {
	var (
		noBrowser bool
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to the SSO portal of the current profile",
		Long: `Login with the OAuth device authorization flow.

A verification URL and user code are printed and the browser is opened.
The command waits until the request is approved in the browser, then
stores the access token in the cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, loginTimeout)
			defer cancel()

			callback := newTerminalCallback(colorOutput, !noBrowser)
			s, err := openSession(ctx,
				sso.WithLoginCallback(callback),
				sso.WithSleeper(sso.CancellableSleeper{}),
			)
			if err != nil {
				return err
			}
			defer s.close()

			if force {
				if err := s.provider.Invalidate(); err != nil {
					return err
				}
			}

			token, err := s.tokenSource(ctx, true).AccessToken()
			callback.stop()
			if err != nil {
				if sso.IsCancellation(err) || errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("login cancelled: %w", err)
				}
				return fmt.Errorf("login failed: %w", err)
			}

			if callback.prompted {
				Success("Successfully logged in to %s", s.profile.StartURL)
			} else {
				Success("Already logged in to %s", s.profile.StartURL)
			}
			printTokenValidity(token)
			if !callback.prompted {
				_, _ = fmt.Fprintf(colorOutput, "\nUse %s to force re-authentication\n", color.CyanString("ftl-sso login --force"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically")
	cmd.Flags().BoolVar(&force, "force", false, "Force re-authentication even if already logged in")

	return cmd
}

func printTokenValidity(token *sso.AccessToken) {
	if claims, err := sso.InspectToken(token.AccessToken); err == nil {
		if name := claims.DisplayName(); name != "" {
			_, _ = fmt.Fprintf(colorOutput, "   Logged in as: %s\n", color.CyanString(name))
		}
	}
	if duration := time.Until(token.ExpiresAt); duration > 0 {
		_, _ = fmt.Fprintf(colorOutput, "   Access token valid for %dh %dm\n",
			int(duration.Hours()),
			int(duration.Minutes())%60)
	}
}

// terminalCallback reports login progress on the terminal
type terminalCallback struct {
	out         io.Writer
	openBrowser bool
	spinner     *spinner.Spinner
	prompted    bool
}

var _ sso.LoginCallback = (*terminalCallback)(nil)

func newTerminalCallback(out io.Writer, open bool) *terminalCallback {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	sp.Suffix = " Waiting for approval in the browser..."
	return &terminalCallback{out: out, openBrowser: open, spinner: sp}
}

func (c *terminalCallback) OnWaitingForApproval(prompt sso.ApprovalPrompt) {
	c.prompted = true

	url := prompt.VerificationURIComplete
	if url == "" {
		url = prompt.VerificationURI
	}

	_, _ = fmt.Fprintln(c.out, "🌐 To complete login, visit:")
	_, _ = fmt.Fprintln(c.out, color.CyanString("   %s", url))
	_, _ = fmt.Fprintln(c.out)
	_, _ = fmt.Fprintln(c.out, "📋 Or manually enter code:")
	_, _ = fmt.Fprintln(c.out, color.YellowString("   %s", prompt.UserCode))
	_, _ = fmt.Fprintln(c.out)

	if c.openBrowser {
		_, _ = fmt.Fprintln(c.out, "🚀 Opening browser...")
		if err := openBrowser(url); err != nil {
			Warn("Could not open browser: %v", err)
		}
	}

	c.spinner.Start()
}

func (c *terminalCallback) OnApproved() {
	c.stop()
}

func (c *terminalCallback) OnFailed(err error) {
	c.stop()
	Debug("Login failed: %v", err)
}

func (c *terminalCallback) stop() {
	c.spinner.Stop()
}
