package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"derivefuzz/internal/config"
	"derivefuzz/internal/db"
	"derivefuzz/internal/dialect"
	"derivefuzz/internal/report"
	"derivefuzz/internal/runinfo"
	"derivefuzz/internal/runner"
	"derivefuzz/internal/uploader"
	"derivefuzz/internal/util"

	"github.com/urfave/cli"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type flags struct {
	configPath string
	debug      bool
	seed       int64
	workers    int
	iterations int
}

var opts flags

func main() {
	app := cli.NewApp()
	app.Name = "derivefuzz"
	app.Usage = "find logic bugs by comparing queries over a table and its derived table"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "config",
			Usage:       "path to config file",
			Value:       "config.yaml",
			Destination: &opts.configPath,
		},
		cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging",
			Destination: &opts.debug,
		},
		cli.Int64Flag{
			Name:        "seed",
			Usage:       "random seed, overrides the config file",
			Destination: &opts.seed,
		},
		cli.IntFlag{
			Name:        "workers",
			Usage:       "number of independent runners, overrides the config file",
			Destination: &opts.workers,
		},
		cli.IntFlag{
			Name:        "iterations",
			Usage:       "stop after this many iterations per worker (0 runs until interrupted)",
			Destination: &opts.iterations,
		},
	}
	for _, target := range dialect.All() {
		app.Commands = append(app.Commands, cli.Command{
			Name:     target.String(),
			Usage:    fmt.Sprintf("fuzz %s", target),
			HelpName: "derivefuzz " + target.String(),
			Action: func(c *cli.Context) error {
				return run(c, target)
			},
		})
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

func run(c *cli.Context, target dialect.Target) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if c.GlobalIsSet("seed") {
		cfg.Seed = opts.seed
	}
	if c.GlobalIsSet("workers") && opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	if c.GlobalIsSet("iterations") {
		cfg.Iterations = opts.iterations
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	closer, err := util.SetupLogging(util.LogOptions{
		File:       targetLogFile(cfg.Logging.LogFile, target),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		Verbose:    opts.debug || cfg.Logging.Verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %v", err)
	}
	defer util.CloseWithErr(closer, "log file")

	util.Infof("starting derivefuzz target=%s workers=%d seed=%d", target, cfg.Workers, cfg.Seed)
	if data, err := yaml.Marshal(&cfg); err == nil {
		util.Highlightf("config:\n%s", string(data))
	}

	endpoint, err := cfg.Target(target.String())
	if err != nil {
		return err
	}
	seeds, err := config.LoadSeeds(cfg.SeedDir, target.String())
	if err != nil {
		return err
	}
	outDir := filepath.Join(cfg.OutputDir, target.String())
	if cfg.CleanOutput {
		if err := report.CleanDir(outDir); err != nil {
			return fmt.Errorf("failed to clean %s: %v", outDir, err)
		}
	}
	up, err := uploader.New(context.Background(), cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to init uploader: %v", err)
	}
	writer := report.New(outDir, up)
	writer.Compress = cfg.Storage.Compress
	if info := runinfo.FromEnv(); info != nil {
		writer.Header = info.Lines()
		util.Infof("run id=%s ci provider=%s commit=%s", writer.RunID, info.Provider, info.Commit)
	}

	dbOpts := db.Options{
		Target:           target,
		Endpoint:         endpoint,
		StatementTimeout: time.Duration(cfg.StatementTimeoutMs) * time.Millisecond,
	}
	if cfg.MaxQPS > 0 {
		dbOpts.Limiter = ratelimit.New(cfg.MaxQPS)
	}
	open := db.NewOpener(dbOpts)

	stats := runner.NewStats()
	stop := stats.StartLogger(time.Duration(cfg.Logging.ReportIntervalSeconds) * time.Second)
	defer stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		r := runner.New(runner.Options{
			Config:  cfg,
			Target:  target,
			Seeds:   seeds,
			Open:    open,
			Writer:  writer,
			Stats:   stats,
			Worker:  w,
			Workers: cfg.Workers,
			Seed:    cfg.Seed + int64(w),
		})
		g.Go(func() error {
			return r.Run(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("run failed: %v", err)
	}
	if ctx.Err() != nil {
		util.Infof("interrupted, shutting down")
	}
	return nil
}

// targetLogFile places the log file in a per-target directory.
func targetLogFile(path string, target dialect.Target) string {
	if path == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(path), target.String(), filepath.Base(path))
}
