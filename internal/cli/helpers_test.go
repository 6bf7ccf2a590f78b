package cli

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	awsssooidc "github.com/aws/aws-sdk-go-v2/service/ssooidc"
	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastertools/ftl-sso/internal/config"
	"github.com/fastertools/ftl-sso/internal/sso"
	"github.com/fastertools/ftl-sso/internal/sso/ssooidc"
)

// testEnv is an isolated config home, cache dir and captured output
type testEnv struct {
	ConfigHome string
	CacheDir   string
	Stdout     *bytes.Buffer
	Messages   *bytes.Buffer
}

// setupTestEnv points config and cache at temp dirs and captures output.
// Everything is restored when the test ends.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		ConfigHome: t.TempDir(),
		CacheDir:   t.TempDir(),
		Stdout:     &bytes.Buffer{},
		Messages:   &bytes.Buffer{},
	}

	t.Setenv("XDG_CONFIG_HOME", env.ConfigHome)
	awsDir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(awsDir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(awsDir, "credentials"))

	_, err := config.Reload()
	require.NoError(t, err)

	oldColorOutput, oldErrOutput, oldNoColor := colorOutput, errOutput, color.NoColor
	oldAskOne, oldOpenBrowser, oldNewOIDCClient := askOne, openBrowser, newOIDCClient
	colorOutput = env.Messages
	errOutput = env.Messages
	color.NoColor = true
	openBrowser = func(string) error { return nil }

	viper.Reset()
	verbose, noColor, cfgFile = false, false, ""

	t.Cleanup(func() {
		colorOutput, errOutput, color.NoColor = oldColorOutput, oldErrOutput, oldNoColor
		askOne, openBrowser, newOIDCClient = oldAskOne, oldOpenBrowser, oldNewOIDCClient
		viper.Reset()
		_, _ = config.Reload()
	})

	return env
}

// useOIDCEndpoint sends OIDC calls to url without SDK retries
func useOIDCEndpoint(url string) {
	newOIDCClient = func(ctx context.Context, region, _ string) (sso.OIDCClient, error) {
		return ssooidc.New(ctx, region, url, func(o *awsssooidc.Options) {
			o.RetryMaxAttempts = 1
		})
	}
}

// addTestProfile stores a profile and makes it current
func addTestProfile(t *testing.T, name string, scopes ...string) config.Profile {
	t.Helper()

	p, err := config.NewProfile(name, "https://"+name+".awsapps.com/start", "us-east-1", scopes)
	require.NoError(t, err)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, cfg.AddProfile(p))
	require.NoError(t, cfg.SetCurrentProfile(name))

	return p
}

// run executes a fresh root command with args and returns what it wrote to stdout
func (env *testEnv) run(args ...string) (string, error) {
	env.Stdout.Reset()
	cmd := newRootCmd()
	cmd.SetOut(env.Stdout)
	cmd.SetErr(env.Messages)
	cmd.SetArgs(append(args, "--cache-dir", env.CacheDir))
	err := cmd.ExecuteContext(context.Background())
	return env.Stdout.String(), err
}

// MockSurveyAskOne mocks survey.AskOne for testing interactive prompts
func MockSurveyAskOne(response interface{}) func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
	return MockSurveyAskSequence(response)
}

// MockSurveyAskSequence answers consecutive prompts in order
func MockSurveyAskSequence(responses ...interface{}) func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
	i := 0
	return func(p survey.Prompt, resp interface{}, opts ...survey.AskOpt) error {
		if i >= len(responses) {
			return fmt.Errorf("unexpected prompt %d", i+1)
		}
		response := responses[i]
		i++
		switch v := resp.(type) {
		case *string:
			*v = response.(string)
		case *bool:
			*v = response.(bool)
		case *int:
			*v = response.(int)
		}
		return nil
	}
}

// AssertCommandError checks that command fails with expected error
func (env *testEnv) AssertCommandError(t *testing.T, expectedErr string, args ...string) {
	t.Helper()
	_, err := env.run(args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), expectedErr)
}
