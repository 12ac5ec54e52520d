package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fgeck/arkki/internal/models"
	"github.com/fgeck/arkki/internal/services/dispatcher"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time.
var Version = "dev"

const envPrefix = "ARKKI"

// settings holds the persistent flags, merged with ARKKI_* environment
// variables.
var settings = viper.New()

var rootCmd = &cobra.Command{
	Use:   "arkki [command]",
	Short: "Back up a directory tree to a compressed, optionally encrypted archive",
	Long: `arkki keeps a small configuration per profile (root directory, output
directory, compression, encryption recipient, exclude patterns) and runs
tar, optionally piped through gpg, to write a backup archive.

Without a command, arkki runs "backup". With --interactive it reads
commands from standard input, one per line.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	RunE:    runRoot,
	Version: Version,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "profile name or path to a configuration file")
	flags.BoolP("verbose", "v", false, "enable verbose (debug) output")
	flags.BoolP("quiet", "q", false, "enable quiet mode (errors only)")
	flags.Bool("json", false, "output logs in JSON format")
	rootCmd.Flags().BoolP("interactive", "i", false, "read commands from standard input")

	settings.SetEnvPrefix(envPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	_ = settings.BindPFlags(flags)
	_ = settings.BindPFlag("interactive", rootCmd.Flags().Lookup("interactive"))
	_ = settings.BindEnv("home", "HOME")

	for _, c := range dispatcher.Commands {
		if c.InteractiveOnly {
			continue
		}
		rootCmd.AddCommand(newVerbCommand(c))
	}
}

func setupLogging() {
	// Logs go to stderr; stdout carries command output.
	if settings.GetBool("json") {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	switch {
	case settings.GetBool("quiet"):
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case settings.GetBool("verbose"):
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func request() models.Request {
	return models.Request{
		ConfigName:  settings.GetString("config"),
		Verbose:     settings.GetBool("verbose"),
		Interactive: settings.GetBool("interactive"),
	}
}

// environment reads the values the configuration defaults depend on.
func environment() (models.Environment, error) {
	home := settings.GetString("home")
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return models.Environment{}, fmt.Errorf("determining home directory: %w", err)
		}
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(home, ".config")
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return models.Environment{
		Home:      home,
		ConfigDir: filepath.Join(configDir, "arkki"),
		Hostname:  hostname,
		Version:   Version,
	}, nil
}

func newDispatcher() (*dispatcher.Impl, error) {
	env, err := environment()
	if err != nil {
		return nil, err
	}
	return dispatcher.New(log.Logger, env, os.Stdout), nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	d, err := newDispatcher()
	if err != nil {
		return err
	}

	req := request()
	if req.Interactive {
		return d.Interactive(cmd.Context(), req, os.Stdin)
	}
	return d.Dispatch(cmd.Context(), req, args)
}

// Execute runs the root command with SIGTERM cancelling the context. SIGINT
// is handled per command by the dispatcher.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("arkki failed")
	}
	return err
}
