// Command dockboardd serves the dock allocation board: a JSON API over the
// engine, Prometheus metrics, optional NATS snapshot replication between
// instances, and optional blob archiving.
//
// Configuration is environment driven:
//
//	DOCKCORE_LISTEN            listen address (default :8080)
//	DOCKCORE_STORAGE_DRIVER    memory|sqlite|postgres (default sqlite)
//	DOCKCORE_NATS_URL          enable snapshot replication when set
//	DOCKCORE_BROADCAST_SUBJECT override the replication subject
//	DOCKCORE_ARCHIVE           enable blob archiving when "true"
//	DOCKCORE_ARCHIVE_INTERVAL  periodic yard archive cadence (default 1h)
//	DOCKCORE_TRACE_LOG         JSON-lines trace output path
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dockcore/internal/adapters/archive"
	"dockcore/internal/blob"
	"dockcore/internal/core"
	"dockcore/internal/infra/broadcast"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(logger); err != nil {
		logger.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	listen := envDefault("DOCKCORE_LISTEN", ":8080")

	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()

	registry := prometheus.NewRegistry()
	recorder := core.NewPrometheusMetricsRecorder(registry)

	opts := []core.Option{core.WithLogger(logger), core.WithMetrics(recorder)}
	if path := os.Getenv("DOCKCORE_TRACE_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		opts = append(opts, core.WithTracer(core.NewJSONTracer(f)))
	}
	svc := core.NewService(store, opts...)
	registry.MustRegister(core.NewBoardCollector(svc))

	var archiver *archive.Archiver
	if os.Getenv("DOCKCORE_ARCHIVE") == "true" {
		blobStore, err := blob.Open(context.Background())
		if err != nil {
			return err
		}
		archiver = archive.New(blobStore)
		logger.Info("archiving enabled", "driver", blobStore.Driver())
	}

	publish := func() {}
	if url := os.Getenv("DOCKCORE_NATS_URL"); url != "" {
		origin := newOrigin()
		channel, err := broadcast.NewNATSChannel(broadcast.NATSConfig{
			URL:     url,
			Subject: os.Getenv("DOCKCORE_BROADCAST_SUBJECT"),
			Origin:  origin,
		})
		if err != nil {
			return err
		}
		defer func() { _ = channel.Close(context.Background()) }()

		unsub, err := channel.Subscribe(func(env broadcast.Envelope) {
			if _, err := svc.ApplySnapshot(context.Background(), env.Sides, env.Templates); err != nil {
				logger.Error("apply replicated snapshot", "origin", env.Origin, "error", err)
				return
			}
			logger.Debug("snapshot applied", "origin", env.Origin, "revision", env.Revision)
		})
		if err != nil {
			return err
		}
		defer unsub()

		var revision atomic.Uint64
		publish = func() {
			sides, templates, err := svc.Snapshot(context.Background())
			if err != nil {
				logger.Error("snapshot for publish", "error", err)
				return
			}
			env := broadcast.Envelope{
				Origin:    origin,
				Revision:  revision.Add(1),
				SentAt:    time.Now().UTC(),
				Sides:     sides,
				Templates: templates,
			}
			if err := channel.Publish(context.Background(), env); err != nil {
				logger.Error("publish snapshot", "error", err)
			}
		}
		logger.Info("replication enabled", "origin", origin)
	}

	srv := &server{svc: svc, archiver: archiver, logger: logger, publish: publish}
	httpSrv := &http.Server{Addr: listen, Handler: newMux(srv, registry)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if archiver != nil {
		go archiveLoop(ctx, logger, svc, archiver)
	}
	go alertLoop(ctx, logger, svc)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// alertLoop re-evaluates the SLA state every second so timer transitions
// surface in the log even when nobody is polling the board. Derivation is
// pure and cheap; the loop only logs when a count changes.
func alertLoop(ctx context.Context, logger *slog.Logger, svc *core.Service) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var lastWaitCrit, lastCutoffCrit int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sum, err := svc.Summary(ctx)
			if err != nil {
				logger.Error("summary", "error", err)
				continue
			}
			if sum.WaitCrit != lastWaitCrit || sum.CutoffCrit != lastCutoffCrit {
				logger.Warn("sla alert counts changed",
					"wait_warn", sum.WaitWarn, "wait_crit", sum.WaitCrit,
					"cutoff_warn", sum.CutoffWarn, "cutoff_crit", sum.CutoffCrit)
				lastWaitCrit, lastCutoffCrit = sum.WaitCrit, sum.CutoffCrit
			}
		}
	}
}

// archiveLoop writes a periodic yard snapshot until ctx is cancelled.
func archiveLoop(ctx context.Context, logger *slog.Logger, svc *core.Service, archiver *archive.Archiver) {
	interval := time.Hour
	if raw := os.Getenv("DOCKCORE_ARCHIVE_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			interval = d
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sides, templates, err := svc.Snapshot(ctx)
			if err != nil {
				logger.Error("snapshot for archive", "error", err)
				continue
			}
			info, err := archiver.ArchiveYard(ctx, sides, templates)
			if err != nil {
				logger.Error("archive yard", "error", err)
				continue
			}
			logger.Info("yard archived", "key", info.Key, "bytes", info.Size)
		}
	}
}

func newOrigin() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "dockboardd"
	}
	return "dockboardd-" + hex.EncodeToString(buf)
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
