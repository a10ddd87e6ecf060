package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/helioswap/routegraph/config"
	"github.com/helioswap/routegraph/ingest"
	"github.com/helioswap/routegraph/router"
	"github.com/helioswap/routegraph/rpc"
)

var log zerolog.Logger

func init() {
	// Initialize zerolog with console writer
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// Share the logger with the other packages
	rpc.SetLogger(log)
	config.SetLogger(log)
	ingest.SetLogger(log)
	router.SetLogger(log)
}

func main() {
	// Parse command line flags
	configServer := flag.String("config-server", "./server-config.toml", "config file for the http server")
	configChains := flag.String("config-chains", "./chains-config.toml", "config file for the chains")
	flag.Parse()

	log.Info().
		Str("server_config", *configServer).
		Str("chains_config", *configChains).
		Msg("Starting routegraph")

	// Load server configuration
	serverCfg, err := config.LoadServerConfig(configServer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load server config")
	}

	// Load chain configurations
	chainLoader := config.NewChainConfigLoader()
	chains, err := chainLoader.LoadFromFile(*configChains)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load chain config")
	}

	log.Info().Int("count", len(chains.Chains)).Msg("Loaded chains")

	// Build per-chain graphs, caches, builders and pathfinders
	registry, err := config.BuildRegistry(chains, serverCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build chain services")
	}

	// Start the background graph refresh
	updater := ingest.NewUpdater(registry, time.Duration(serverCfg.BuildTimeoutMinutes)*time.Minute)
	updater.Start(serverCfg.UpdateIntervalMinutes)

	// Create the HTTP server
	server := rpc.NewServer(buildServerConfig(serverCfg), registry, updater)

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	updater.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

// buildServerConfig converts the loaded config.ServerConfig to rpc.ServerConfig
func buildServerConfig(cfg *config.ServerConfig) *rpc.ServerConfig {
	serverConfig := &rpc.ServerConfig{
		Address:        cfg.Host + ":" + strconv.Itoa(cfg.Port),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  true,
	}

	// Set rate limiting if configured
	if cfg.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.RatePerMinute
	}
	if cfg.MaxConcurrentRequests > 0 {
		serverConfig.Burst = &cfg.MaxConcurrentRequests
	}

	return serverConfig
}
