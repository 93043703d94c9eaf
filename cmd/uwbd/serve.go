package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/config"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/logger"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/manager"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci/mock"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session manager against a mock UCI transport",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	transport := mock.New()
	mgr := manager.New(transport, logSink{}, permissiveOracle{}, cfg)
	defer mgr.Shutdown()

	log := logger.For("uwbd")
	log.Info("session manager started against mock transport")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
