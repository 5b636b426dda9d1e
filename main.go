package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/strata/pkg/config"
	"github.com/chazu/strata/pkg/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Split composite walls into one wall per layer",
	Long: `strata reads a building model (a Lisp script, a YAML file or a SQLite
database) and explodes its composite walls into single-layer walls, keeping
corners closed by trimming each layer to its counterpart at every junction.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := config.New(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/strata/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(
		explodeCmd,
		junctionsCmd,
		layersCmd,
		purgeCmd,
		meshCmd,
		validateCmd,
	)
}

func newApp() *App {
	return NewApp(cfg, logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
