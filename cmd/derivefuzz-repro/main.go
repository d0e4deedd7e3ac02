package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"derivefuzz/internal/config"
	"derivefuzz/internal/dialect"
	"derivefuzz/internal/repro"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	targetName := flag.String("target", "", "target engine, e.g. mysql or postgres")
	file := flag.String("file", "", "reproduction .sql artifact")
	database := flag.String("database", "derivefuzz_repro", "database or schema created for the replay")
	flag.Parse()

	if *targetName == "" || *file == "" {
		fmt.Fprintln(os.Stderr, "target and file are required")
		flag.Usage()
		os.Exit(1)
	}
	target, err := dialect.Parse(*targetName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	endpoint, err := cfg.Target(target.String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	sum, err := repro.Run(ctx, repro.Options{
		File:             *file,
		Target:           target,
		Endpoint:         endpoint,
		Database:         *database,
		StatementTimeout: time.Duration(cfg.StatementTimeoutMs) * time.Millisecond,
	})
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "repro failed: %v\n", err)
		os.Exit(1)
	}
	if sum.Mismatches > 0 {
		os.Exit(2)
	}
}
