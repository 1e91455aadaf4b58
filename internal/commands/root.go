package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cryptomainly-portal",
	Short: "CryptoMainly portal backend",
	Long: `Backend API for the CryptoMainly community portal.

Serves the dashboard's market metrics by proxying third-party data
providers (Binance futures, CoinGecko, Alternative.me, CoinGlass) behind a
stale-serving in-memory cache with retries and mirror fallbacks, and
relays lead-capture form submissions to the operator's spreadsheet
backend.`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
