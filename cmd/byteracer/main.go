package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/agent"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/config"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/console"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/gamepad"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/relay"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/store"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/tray"
)

// Cross-platform signal handling: use os.Interrupt on all platforms
// On Windows: os.Interrupt is sent when Ctrl+C is pressed
// On Unix: os.Interrupt is equivalent to syscall.SIGINT
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

const reconnectInterval = 2 * time.Second

func main() {
	fs := pflag.NewFlagSet("byteracer", pflag.ExitOnError)
	config.AgentFlags(fs)
	fs.Parse(os.Args[1:])
	cfgFile, _ := fs.GetString("config")

	cfg, err := config.LoadAgent(cfgFile, fs)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	setupLogging(cfg.LogPath)

	interactive := console.IsInteractive()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)

	// Native Ctrl+C handler for Windows; no-op elsewhere.
	breakCh := make(chan struct{})
	console.InstallBreakHandler(breakCh)

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Fatalf("open mapping store: %v", err)
	}
	defer st.Close()

	poller := gamepad.NewPoller(clock.New(), cfg.RescanInterval, cfg.MaxDevices)
	diag := relay.NewDiagnosticsSink(100)
	ag := agent.New(cfg, clock.New(), poller, st, diag)

	agentDone := make(chan struct{})
	go func() {
		ag.Run(ctx)
		close(agentDone)
	}()

	// Keep a relay connection alive. Each attempt is a fresh client
	// instance; a dead one is never reused.
	go func() {
		if err := ag.Connect(ctx); err != nil {
			log.Printf("relay connect: %v", err)
		}
		t := time.NewTicker(reconnectInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if ag.RelayStatus() != relay.StatusClosed {
					continue
				}
				if err := ag.Connect(ctx); err != nil {
					log.Printf("relay connect: %v", err)
				}
			}
		}
	}()

	log.Printf("byteracer agent started, relay %s", cfg.RelayURL)

	// Channel for tray-triggered shutdown
	shutdownRequested := make(chan struct{})

	useTray := cfg.Tray && runtime.GOOS == "windows"
	if useTray {
		go func() {
			t := tray.New(ag, func() {
				if err := ag.Connect(ctx); err != nil {
					log.Printf("relay connect: %v", err)
				}
			}, func() {
				close(shutdownRequested)
			})
			t.Run(tray.GetIcon())
		}()
	} else if interactive {
		log.Println("Press Ctrl+C to exit")
	}

	select {
	case <-sigCh:
		log.Println("Shutting down...")
		cancel()
	case <-breakCh:
		log.Println("Shutting down...")
		cancel()
	case <-shutdownRequested:
		log.Println("Shutdown requested from tray")
		cancel()
	}

	<-agentDone
	ag.Close()
	log.Println("byteracer agent stopped")
}

// setupLogging mirrors log output into a size-rotated file when a path is
// configured; the console stays attached either way.
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
