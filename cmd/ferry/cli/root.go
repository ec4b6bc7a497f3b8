// Package cli implements the ferry command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/ferry"
	"github.com/meigma/ferry/cmd/ferry/cli/config"
)

// Build information set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	cfg     = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "ferry",
	Short: "Download and upload files over HTTP and OCI registries",
	Long: `Ferry moves single files between the local filesystem and remote
endpoints. Plain http:// and https:// URLs are fetched with GET and sent with
PUT; oci://host/repository:tag references store the file as a single-layer
OCI artifact.

Settings are read from $XDG_CONFIG_HOME/ferry/config.yaml and FERRY_*
environment variables; flags take precedence over both.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/ferry/config.yaml)")
	flags.Bool("insecure", false, "Allow plain HTTP connections to OCI registries")
	flags.BoolP("verbose", "v", false, "Enable verbose debug logging")
	flags.String("progress", config.ProgressAuto, "Progress output: auto, tty, or plain")

	for _, name := range []string{"insecure", "verbose", "progress"} {
		//nolint:errcheck // the flag is registered above
		viper.BindPFlag(name, flags.Lookup(name))
	}

	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix("FERRY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	rootCmd.Version = version
}

// initConfig points viper at the config file. A missing default file is not
// an error; the file named by --config must exist.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		return
	}
	dir, err := config.Dir()
	if err != nil {
		return
	}
	viper.AddConfigPath(dir)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
}

// loadConfig reads the config file and decodes the effective settings.
func loadConfig(_ *cobra.Command, _ []string) error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	return err
}

// newClient creates a ferry client with configured options. Callbacks run
// on the client's own loop.
func newClient(opts ...ferry.ClientOption) (*ferry.Client, error) {
	base := []ferry.ClientOption{
		ferry.WithInsecure(cfg.Insecure),
		ferry.WithUserAgent(cfg.UserAgent),
		ferry.WithProgressStep(cfg.Transfer.ProgressStep),
	}
	if cfg.Verbose {
		base = append(base, ferry.WithLogger(
			slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
		))
	}
	return ferry.NewClient(append(base, opts...)...)
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// await drives the client's loop until every transfer has delivered its
// terminal callback. When ctx is canceled first, the transfers are canceled
// and still drained so their OnFailed callbacks run.
func await(ctx context.Context, client *ferry.Client, transfers ...*ferry.Transfer) {
	if client.Wait(ctx) == nil {
		return
	}
	for _, t := range transfers {
		t.Cancel()
	}
	//nolint:errcheck // a background context never expires
	client.Wait(context.Background())
}

// formatError converts ferry errors to user-friendly messages.
func formatError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ferry.ErrInvalidArgument):
		return fmt.Sprintf("Error: invalid argument: %v", err)
	case errors.Is(err, ferry.ErrNotInitialized):
		return "Error: transfer engine not initialized"
	case errors.Is(err, ferry.ErrUnauthorized):
		return "Error: authentication failed (check your credentials)"
	case errors.Is(err, ferry.ErrNotFound):
		return fmt.Sprintf("Error: not found: %v", err)
	case errors.Is(err, ferry.ErrUnsupportedScheme):
		return fmt.Sprintf("Error: unsupported URL scheme: %v", err)
	case errors.Is(err, ferry.ErrLocalIO):
		return fmt.Sprintf("Error: local file: %v", err)
	case errors.Is(err, ferry.ErrCanceled), errors.Is(err, context.Canceled):
		return "Error: operation canceled"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
