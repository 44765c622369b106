package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/brunosmmm/barkak-domino/internal/randutil"
	"github.com/brunosmmm/barkak-domino/internal/server"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"barkak-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	Seed     int64  `short:"s" long:"seed" help:"Root RNG seed (0 = time-based)"`
	TestMode bool   `long:"test-mode" help:"Zero all CPU pacing delays"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := server.LoadFileConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		host, port, splitErr := net.SplitHostPort(CLI.Addr)
		if splitErr != nil {
			fmt.Printf("Invalid addr %q: %v\n", CLI.Addr, splitErr)
			ctx.Exit(1)
		}
		cfg.Server.Address = host
		cfg.Server.Port, err = strconv.Atoi(port)
		if err != nil {
			fmt.Printf("Invalid port in addr %q: %v\n", CLI.Addr, err)
			ctx.Exit(1)
		}
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.TestMode {
		cfg.Game.TestMode = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	seed := CLI.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	runtime := cfg.Runtime()
	logger.Info("Starting Barkak domino server",
		"addr", cfg.GetServerAddress(),
		"seed", seed,
		"test_mode", runtime.TestMode)

	clock := quartz.NewReal()
	registry := server.NewRegistry(runtime, clock, logger, seed)
	hub := server.NewHub(logger)
	service := server.NewService(registry, hub, runtime, clock, logger, randutil.New(seed))
	srv := server.NewServer(cfg, registry, hub, service, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, runCtx := errgroup.WithContext(runCtx)
	eg.Go(func() error {
		return service.RunLoops(runCtx)
	})
	eg.Go(func() error {
		return srv.Start(runCtx)
	})

	if err := eg.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
	logger.Info("Shutdown complete")
}
