package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/config"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/hub"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/server"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	fs := pflag.NewFlagSet("relayd", pflag.ExitOnError)
	config.RelayFlags(fs)
	fs.Parse(os.Args[1:])
	cfgFile, _ := fs.GetString("config")

	cfg, err := config.LoadRelay(cfgFile, fs)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	setupLogging(cfg.LogPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)

	h := hub.New()
	go h.Run(ctx)

	srv := server.New(h, cfg.Addr)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	log.Printf("byteracer relay started on %s", cfg.Addr)

	select {
	case <-sigCh:
		log.Println("Shutting down...")
		cancel()
	case err := <-serverErrCh:
		log.Printf("HTTP server error: %v", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("byteracer relay stopped")
}

func setupLogging(path string) {
	if path == "" {
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}))
}
