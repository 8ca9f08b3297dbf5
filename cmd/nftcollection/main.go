package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-nftcollection/internal/config"
)

const programName = "nftcollection"

var globalFlags = struct {
	debug   bool
	envFile string
}{}

// Set by the root command before any subcommand runs.
var (
	cfg    config.Config
	logger *slog.Logger
)

// newLogger builds the JSON logger on stderr, leaving stdout for command
// output. --debug wins over LOG_LEVEL.
func newLogger(cfg config.Config) *slog.Logger {
	return newLoggerTo(os.Stderr, cfg)
}

func newLoggerTo(w io.Writer, cfg config.Config) *slog.Logger {
	level := cfg.Level()
	if globalFlags.debug {
		level = slog.LevelDebug
	}
	l := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: globalFlags.debug,
		Level:     level,
	})).With("component", programName)
	slog.SetDefault(l)
	return l
}

// loadConfig reads .env (or --env-file) and the environment.
func loadConfig() (config.Config, error) {
	var files []string
	if globalFlags.envFile != "" {
		files = append(files, globalFlags.envFile)
	}
	if err := config.LoadDotEnv(files...); err != nil {
		return config.Config{}, err
	}
	return config.Load()
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Deploy and mint TON NFT collections with on-chain metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = loadConfig(); err != nil {
				return err
			}
			logger = newLogger(cfg)
			return nil
		},
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&globalFlags.envFile, "env-file", "", "dotenv file to load (default .env)")

	rootCmd.AddCommand(deployCommand())
	rootCmd.AddCommand(addressCommand())
	rootCmd.AddCommand(mintCommand())
	rootCmd.AddCommand(infoCommand())
	rootCmd.AddCommand(serveCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
