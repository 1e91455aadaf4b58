package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CryptoMainlyLee/cryptomainly-portal/internal/api"
	"github.com/CryptoMainlyLee/cryptomainly-portal/internal/metric"
	"github.com/CryptoMainlyLee/cryptomainly-portal/internal/subscribe"
	"github.com/CryptoMainlyLee/cryptomainly-portal/internal/upstream"
	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/config"
	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/logger"
)

var (
	serverPort int
	serverHost string
	logLevel   string
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the portal API server",
	Long: `Start the portal backend server.

This serves:
• The metric proxy (funding rate, open interest, long/short ratio,
  global stats, fear & greed, spot prices) with mirror fallbacks and a
  stale-serving cache
• The dashboard widgets (global bar, price board, sentiment, futures
  summary)
• The lead-capture and contact form endpoints

Examples:
  cryptomainly-portal server                    # Start with default settings
  cryptomainly-portal server --port 9090        # Start on custom port
  cryptomainly-portal server --log-level debug  # Enable debug logging`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port")
	serverCmd.Flags().StringVarP(&serverHost, "host", "H", "", "Server host")
	serverCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
}

func runServer(cmd *cobra.Command, args []string) error {
	// .env file is optional
	if err := config.LoadDotEnv(); err != nil {
		fmt.Printf("Note: .env file not loaded: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Command line flags override environment
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	log.Info("Starting CryptoMainly portal API")

	fetcher := upstream.NewFetcher(&cfg.Upstream, log)
	chain := upstream.NewChain(fetcher, log)
	registry := metric.NewRegistry(&cfg.Upstream)
	metrics := metric.NewService(registry, chain, &cfg.Cache, log)
	dashboard := metric.NewDashboard(fetcher, metrics, &cfg.Upstream, &cfg.Cache, log)
	relay := subscribe.NewRelay(&cfg.Subscribe, log)

	server := api.NewServer(cfg, log, metrics, dashboard, relay)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("HTTP server failed")
			return err
		}
		return nil
	case sig := <-interrupt:
		log.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
		return err
	}

	// Let in-flight lead forwards finish before exiting
	relay.Wait()

	log.Info("Shutdown complete")
	return nil
}
