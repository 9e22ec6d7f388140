// Command nexus starts one Nexus database process: it loads nexus.yaml (or
// the built-in defaults), opens an engine.Engine against its data
// directory, and blocks until Ctrl+C or SIGTERM. It is not a CLI product:
// there is no subcommand tree and no query shell, matching the wiring
// shape of the teacher's cmd/warren/main.go without its cobra layer.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nexusdb/nexus/pkg/config"
	"github.com/nexusdb/nexus/pkg/engine"
	"github.com/nexusdb/nexus/pkg/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "nexus.yaml"
	if v := os.Getenv("NEXUS_CONFIG"); v != "" {
		cfgPath = v
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(underlyingErr(err)) {
			return err
		}
		cfg = config.Default()
	}

	eng, err := engine.Open(cfg)
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	logger := log.WithComponent("cmd/nexus")
	logger.Info().Str("data_dir", cfg.DataDir).Str("role", string(cfg.Replication.Role)).Msg("nexus is running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	if err := eng.Close(); err != nil {
		return fmt.Errorf("shutting down engine: %w", err)
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

// underlyingErr unwraps config.Load's fmt.Errorf("read config %s: %w", ...)
// wrapping so a missing config file can fall back to defaults instead of
// failing startup.
func underlyingErr(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return err
}
