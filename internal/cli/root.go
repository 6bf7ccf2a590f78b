package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fastertools/ftl-sso/internal/logging"
)

var (
	// Version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"

	// Configuration
	cfgFile string
	verbose bool
	noColor bool

	// Colors
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)

	// For testing - allows redirecting output
	colorOutput io.Writer = os.Stdout
	errOutput   io.Writer = os.Stderr
)

// rootCmd represents the base command
var rootCmd = newRootCmd()

func init() {
	cobra.OnInitialize(initConfig)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ftl-sso",
		Short: "ftl-sso - SSO bearer tokens from the command line",
		Long: `ftl-sso obtains bearer tokens from an AWS IAM Identity Center (SSO)
portal using the OAuth device authorization flow, caches them, and keeps
them fresh with refresh tokens.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || viper.GetBool("no-color") {
				color.NoColor = true
			}
			logging.InitForCLI(logLevel(), errOutput)
		},
		SilenceUsage: true,
		Version:      versionString(),
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./ftl-sso.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.String("log-level", "warn", "log level: debug, info, warn or error (--verbose implies debug)")
	flags.String("profile", "", "connection profile (default is the current profile)")
	flags.String("cache", "", "cache backend: disk, keyring, memory or redis (default disk)")
	flags.String("cache-dir", "", "disk cache directory (default ~/.aws/sso/cache)")
	flags.String("redis-addr", "", "redis address for the redis cache backend")
	flags.String("metrics-file", "", "write session metrics to this Prometheus textfile")
	flags.String("oidc-endpoint", "", "override the SSO OIDC endpoint")
	_ = flags.MarkHidden("oidc-endpoint")

	for _, name := range []string{"verbose", "no-color", "log-level", "profile", "cache", "cache-dir", "redis-addr", "metrics-file", "oidc-endpoint"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	cmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newTokenCmd(),
		newRefreshCmd(),
		newStatusCmd(),
		newProfileCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate)
}

// SetVersion sets the version information
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
	rootCmd.Version = versionString()
}

// initConfig reads in .env, the config file and ENV variables if set
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		Warn("Failed to read .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("ftl-sso")
	}

	viper.SetEnvPrefix("FTL_SSO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		Debug("Using config file: %s", viper.ConfigFileUsed())
	}
}

// Helper functions for consistent output

// Success prints a success message
func Success(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(colorOutput, successColor.Sprintf("✓ "+format, args...))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(errOutput, errorColor.Sprintf("✗ "+format, args...))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(colorOutput, infoColor.Sprintf("ℹ "+format, args...))
}

// Warn prints a warning message
func Warn(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(errOutput, warnColor.Sprintf("⚠ "+format, args...))
}

// Debug prints a debug message if verbose mode is enabled
func Debug(format string, args ...interface{}) {
	if IsVerbose() {
		_, _ = fmt.Fprintln(errOutput, color.New(color.FgMagenta).Sprintf("» "+format, args...))
	}
}

// IsVerbose returns true if verbose mode is enabled
func IsVerbose() bool {
	return verbose || viper.GetBool("verbose")
}

// logLevel is debug with --verbose, otherwise --log-level
func logLevel() logging.LogLevel {
	if IsVerbose() {
		return logging.LevelDebug
	}
	return logging.ParseLevel(viper.GetString("log-level"))
}
