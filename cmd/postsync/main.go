package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/blackcoderx/postsync/pkg/core"
	"github.com/blackcoderx/postsync/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	cfgFile  string
	fs       = afero.NewOsFs()
	settings core.Settings
	logger   = zap.NewNop()
	rootCmd  = &cobra.Command{
		Use:   "postsync",
		Short: "Sync OpenAPI specs into Postman workspaces",
		Long: `postsync turns an OpenAPI or Swagger document into a Postman collection
plus one environment per deployment target, and creates or updates them in a
Postman workspace by name. Every sync writes a JSON summary for CI pipelines.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .postsync/config.json)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	// Load .env file if it exists (optional, warn if malformed)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load .env file: %v\n", err)
	}

	if err := core.Configure(viper.GetViper(), fs, cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup resolves settings and the logger before any subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	s, err := core.Load(viper.GetViper())
	if err != nil {
		return err
	}
	settings = s

	l, err := logging.New(logging.Config{Level: s.LogLevel, Format: s.LogFormat})
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
