package main

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/pandemonium"
	"github.com/BaSui01/pandemonium/agent/conversation"
	"github.com/BaSui01/pandemonium/agent/persistence"
	"github.com/BaSui01/pandemonium/config"
	"github.com/BaSui01/pandemonium/internal/metrics"
	"github.com/BaSui01/pandemonium/internal/server"
	"github.com/BaSui01/pandemonium/internal/telemetry"
)

const (
	shutdownTimeout = 5 * time.Second
	tracerName      = "github.com/BaSui01/pandemonium"
)

// runConversation 组装会话并以批量或交互模式运行至结束
func runConversation(ctx context.Context, a *app, cfg *config.Config, topic string, interactive bool) error {
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting pandemonium",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.Bool("interactive", interactive))

	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, logger, telemetry.WithVersion(Version))
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	opts := []pandemonium.Option{
		pandemonium.WithLogger(logger),
		pandemonium.WithTracer(otelProviders.Tracer(tracerName)),
	}

	var metricsServer *server.Manager
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, pandemonium.WithRecorder(metrics.NewCollector(cfg.Metrics.Namespace, reg, logger)))
		serverCfg := server.DefaultConfig()
		serverCfg.Addr = cfg.Metrics.Addr
		serverCfg.ShutdownTimeout = shutdownTimeout
		metricsServer = server.NewManager(server.MetricsHandler(reg), serverCfg, logger)
	}
	opts = append(opts, a.sessionOpts...)

	session, err := pandemonium.New(ctx, cfg, topic, opts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()
	if metricsServer != nil {
		if err := metricsServer.Start(); err != nil {
			return err
		}
		g.Go(func() error { return metricsServer.WaitForShutdown(serveCtx) })
	}
	g.Go(func() error {
		defer stopServing()
		view := newView(a.stdout)
		var err error
		if interactive {
			err = runInteractive(gctx, a, session, view)
		} else {
			err = runBatch(gctx, session, view)
		}
		if err != nil {
			return err
		}
		view.summary(session.Costs())
		if cfg.Archive.Enabled && session.Status() == conversation.StatusConcluded {
			archive(ctx, cfg, session, view, logger)
		}
		return nil
	})
	return g.Wait()
}

func runBatch(ctx context.Context, s *pandemonium.Session, v *view) error {
	intro, err := s.Start(ctx)
	if err != nil {
		return err
	}
	v.intro(intro)

	for s.Status() != conversation.StatusConcluded {
		step, err := s.Advance(ctx)
		if err != nil {
			return err
		}
		v.step(step)
	}
	return nil
}

func runInteractive(ctx context.Context, a *app, s *pandemonium.Session, v *view) error {
	intro, err := s.Start(ctx)
	if err != nil {
		return err
	}
	v.intro(intro)

	lines := readLines(ctx, a.stdin)
	for s.Status() != conversation.StatusConcluded {
		v.prompt("Press Enter for next turn (or 'quit' to exit): ")
		select {
		case <-ctx.Done():
			return errInterrupted
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "quit", "exit", "q":
				return nil
			}
		}

		step, err := s.Advance(ctx)
		if err != nil {
			return err
		}
		v.step(step)
	}
	return nil
}

// readLines 在独立 goroutine 中读取输入，使等待输入时仍能响应中断
func readLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// archive 保存归档；失败只记录日志，不影响会话结果
func archive(ctx context.Context, cfg *config.Config, s *pandemonium.Session, v *view, logger *zap.Logger) {
	store, err := persistence.NewTranscriptStore(pandemonium.ArchiveStoreConfig(cfg.Archive), logger)
	if err != nil {
		logger.Warn("archive unavailable", zap.String("type", cfg.Archive.Type), zap.Error(err))
		v.note("Transcript not archived: " + err.Error())
		return
	}
	defer store.Close()

	t, err := s.Archive(ctx, store)
	if err != nil {
		logger.Warn("archive failed", zap.String("id", s.ID()), zap.Error(err))
		v.note("Transcript not archived: " + err.Error())
		return
	}
	v.note("Transcript archived as " + t.ID)
}
