package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/logging"
)

var (
	// Global flags
	configPath string
	apiURL     string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront client: session, cart and orders against the shop API",
	Long: `storefront talks to the shop API on behalf of one user.

The credential obtained by login is persisted between runs (file, redis or
memory backend). The cart is always read back from the server after every
change, so what you see is what the server holds.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if apiURL != "" {
			cfg.APIURL = apiURL
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Logging.Development)
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "shop API base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		registerCmd,
		loginCmd,
		loginTokenCmd,
		logoutCmd,
		statusCmd,
		cartCmd,
		productsCmd,
		checkoutCmd,
		ordersCmd,
		paypalCmd,
		newsletterCmd,
		serveCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
