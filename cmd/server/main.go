// Command server runs the inference HTTP service. Artifacts and the dataset
// are loaded once at startup; a load failure aborts with a diagnostic since
// serving without a valid model is never acceptable.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"incidentcast/internal/server"
	"incidentcast/pkg/log"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	flag.Parse()

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fallback := log.New(log.Config{})
		fallback.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	logger := log.New(cfg.Log)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-done
		logger.Info().Msg("shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := srv.Listen(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
