package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/loomtrace/loomtrace/internal/config"
	"github.com/loomtrace/loomtrace/internal/export"
	"github.com/loomtrace/loomtrace/internal/infra/buildinfo"
	"github.com/loomtrace/loomtrace/internal/infra/confloader"
	"github.com/loomtrace/loomtrace/internal/infra/shutdown"
	"github.com/loomtrace/loomtrace/internal/ingest"
	"github.com/loomtrace/loomtrace/internal/runtimelog"
	"github.com/loomtrace/loomtrace/internal/store"
	"github.com/loomtrace/loomtrace/internal/telemetry/logger"
	"github.com/loomtrace/loomtrace/internal/telemetry/metric"
)

func main() {
	app := &cli.App{
		Name:  "loomtrace",
		Usage: "interpret a runtime profiler event log into tracing spans and metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a loomtrace config file",
				EnvVars: []string{"LOOMTRACE_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print build information",
		Action: func(c *cli.Context) error {
			info := buildinfo.Get()
			fmt.Printf("loomtrace %s\n", buildinfo.String())
			fmt.Printf("  go: %s\n", info.GoVersion)
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run the interpreter once against a file or pipe path",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "export",
				Usage: "exporter to use: none, chrome-trace, otlp",
			},
			&cli.StringFlag{
				Name:  "metric-addr",
				Usage: "address to serve Prometheus metrics on (empty disables it)",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("run: a source path is required")
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if target := c.String("export"); target != "" {
		cfg.Export.Target = target
	}
	if addr := c.String("metric-addr"); addr != "" {
		cfg.Metric.Addr = addr
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("run: init logger: %w", err)
	}

	ctx := context.Background()
	shutdownHandler := shutdown.NewHandler(10 * time.Second)

	registry := metric.NewRegistry()
	if cfg.Metric.Addr != "" {
		srv := &http.Server{Addr: cfg.Metric.Addr, Handler: registry.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server exited", "error", err)
			}
		}()
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		})
	}

	if watchPath := c.String("config"); watchPath != "" {
		watcher, err := confloader.NewWatcher()
		if err == nil {
			if watchErr := watcher.Watch(watchPath); watchErr == nil {
				watcher.OnChange(func(path string) {
					log.Info("configuration file changed, new values take effect on next run", "path", path)
				})
				watcher.StartAsync()
				shutdownHandler.OnShutdown(func(context.Context) error { return watcher.Stop() })
			}
		}
	}

	spanExp, metricExp, err := buildExporters(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		if err := spanExp.Shutdown(ctx); err != nil {
			return err
		}
		return metricExp.Shutdown(ctx)
	})

	st := store.New(originTimestamp(cfg), store.NewSource(cfg.Ingest.RNGSeed, cfg.Ingest.RNGSeed^0x9e3779b97f4a7c15))
	if err := registry.RegisterCollector(metric.NewStoreCollector(st)); err != nil {
		log.Warn("failed to register store collector", "error", err)
	}

	return runWithRecovery(log, func() error {
		f, openErr := os.Open(path)
		if openErr != nil {
			return fmt.Errorf("open %s: %w", path, openErr)
		}
		defer f.Close()

		src := ingest.SourceForPath(path, f, cfg.EOFPolicy(), func() runtimelog.Decoder {
			return runtimelog.NewSimpleDecoder()
		})
		return ingest.Run(ctx, st, src, spanExp, metricExp, observerFunc(func(note string) {
			log.Info("ingestion note", "note", note)
		}))
	})
}

// observerFunc adapts a function to ingest.Observer.
type observerFunc func(note string)

func (f observerFunc) Observe(note string) { f(note) }

func buildExporters(ctx context.Context, cfg config.AppConfig, log logger.Logger) (export.SpanExporter, export.MetricExporter, error) {
	switch cfg.Export.Target {
	case "chrome-trace":
		out := os.Stdout
		if cfg.Export.ChromeTracePath != "" {
			f, err := os.Create(cfg.Export.ChromeTracePath)
			if err != nil {
				return nil, nil, fmt.Errorf("create chrome-trace output: %w", err)
			}
			out = f
		}
		w := export.NewChromeTraceWriter(out)
		return w, w, nil
	case "otlp":
		o, err := export.NewOTLP(ctx, export.OTLPConfig{
			Endpoint:    cfg.Export.OTLP.Endpoint,
			Insecure:    cfg.Export.OTLP.Insecure,
			ServiceName: cfg.Export.OTLP.ServiceName,
			Version:     buildinfo.Version,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init otlp exporter: %w", err)
		}
		return o, o, nil
	default:
		log.Debug("no exporter configured, discarding spans and metrics")
		return export.Discard{}, export.Discard{}, nil
	}
}

func originTimestamp(cfg config.AppConfig) uint64 {
	if cfg.Ingest.OriginTimestampOverride.IsZero() {
		return 0
	}
	return uint64(cfg.Ingest.OriginTimestampOverride.UnixNano())
}

// runWithRecovery runs fn and, if it panics with an invariant
// violation, logs a structured fatal error with build context instead
// of letting the runtime print a bare stack trace, then exits 1.
func runWithRecovery(log logger.Logger, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if iv, ok := r.(*store.InvariantViolation); ok {
				log.Error("invariant violation, aborting",
					"op", iv.Op, "serial", iv.Serial, "span_id", iv.SpanID, "detail", iv.Detail,
					"version", buildinfo.Version)
				os.Exit(1)
			}
			panic(r)
		}
	}()
	return fn()
}
