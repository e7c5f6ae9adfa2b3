package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/heartportal/fleet-sentinel/pkg/httpapi"
	"github.com/heartportal/fleet-sentinel/pkg/logging"
	"github.com/heartportal/fleet-sentinel/pkg/sentinel"
)

type flagOptions struct {
	Config      string `long:"config" description:"path to sentinel configuration file" required:"true"`
	RunDuration int    `long:"run-duration" description:"stop after this many seconds (0 runs until signalled)"`
	LogLevel    string `long:"log-level" description:"override configured log level"`
	Check       bool   `long:"check" description:"validate configuration and exit"`
}

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	if opts.Check {
		if err := sentinel.ValidateConfigFile(opts.Config); err != nil {
			fmt.Printf("Configuration invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Configuration OK")
		return
	}

	config, err := sentinel.LoadConfigFromFile(opts.Config)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logLevel := config.Sentinel.LogLevel
	if opts.LogLevel != "" {
		logLevel = opts.LogLevel
	}

	logger, err := logging.NewZapLogger(logging.ZapConfig{
		Level:    logLevel,
		Encoding: config.Sentinel.LogEncoding,
	})
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	logger.Infof("Fleet sentinel starting, config: %s, services: %d", opts.Config, len(config.Services))

	runtime, err := sentinel.NewRuntime(config, logger)
	if err != nil {
		logger.Errorf("Failed to create runtime: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.RunDuration > 0 {
		duration := time.Duration(opts.RunDuration) * time.Second
		logger.Infof("Using RUN DURATION of %v", duration)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	statusServer := httpapi.NewServer(config.Sentinel.HTTPPort, runtime.Monitor, runtime.RecentAlerts, runtime.Metrics, logger)
	statusServer.Start()

	err = runtime.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	statusServer.Stop(shutdownCtx)

	if err != nil {
		logger.Errorf("Sentinel exited with error: %v", err)
		os.Exit(1)
	}

	logger.Infof("Fleet sentinel stopped")
}
