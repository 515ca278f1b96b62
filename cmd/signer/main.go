package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/mediavault/internal/buildinfo"
	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/signer"
)

func main() {
	buildinfo.PrintBuildData(os.Stderr)

	cfg, err := signer.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	srv := signer.NewServer(cfg, logger, signer.NewPresigner(cfg))
	if err := srv.Run(ctx); err != nil {
		logger.Error(ctx, err.Error())
		os.Exit(1)
	}
}
