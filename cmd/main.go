package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Koyo-os/docusurvey/pkg/config"
	"github.com/Koyo-os/docusurvey/pkg/logger"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "path to the YAML config file")
	pflag.Parse()

	cfg, err := config.Init(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error init config %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	if err = logger.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "error init logger: %v\n", err)
		os.Exit(1)
	}

	defer logger.Sync()

	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg, log); err != nil {
		log.Error("service stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	log.Info("service stopped")
}
