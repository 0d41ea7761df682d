package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jusunglee/itrans/internal/catalog"
	"github.com/jusunglee/itrans/internal/db"
	"github.com/jusunglee/itrans/internal/db/postgres"
	"github.com/jusunglee/itrans/internal/db/sqlite"
	"github.com/jusunglee/itrans/internal/logger"
	"github.com/jusunglee/itrans/internal/metrics"
	"github.com/jusunglee/itrans/internal/source"
)

func main() {
	if err := mainE(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func mainE() error {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("itrans-worker")
	var (
		databaseURL = fs.StringLong("database-url", "sqlite://itrans.db", "PostgreSQL URL or sqlite:// path")
		sources     = fs.StringLong("sources", "DEFAULT", "Comma-separated name=location pairs to keep in sync")
		interval    = fs.DurationLong("interval", 1*time.Hour, "Polling interval")
		retention   = fs.DurationLong("retention", 30*24*time.Hour, "How long to keep table load history")
		metricsAddr = fs.StringLong("metrics-addr", ":9090", "Address for the Prometheus metrics server")
		once        = fs.BoolLong("once", "Run one refresh cycle and exit")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVars()); err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		return fmt.Errorf("parsing flags: %w", err)
	}

	if *databaseURL == "" {
		return errors.New("database-url is required")
	}
	refs, err := source.ParseRefs(*sources)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return errors.New("at least one source is required")
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	log := logger.New()

	repo, err := openRepository(ctx, *databaseURL)
	if err != nil {
		return err
	}
	defer repo.Close()

	w := &worker{
		repo:    repo,
		catalog: catalog.New(repo, log),
		client:  source.NewClient(),
		refs:    refs,
		log:     log,
	}

	if *once {
		w.refresh(ctx, *retention)
		return nil
	}

	metricsServer := &http.Server{Addr: *metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.InfoContext(ctx, "starting metrics server", "addr", *metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "metrics server error", "error", err)
		}
	}()
	defer metricsServer.Close()

	if pg, ok := repo.(*postgres.Repository); ok {
		go exportPoolStats(ctx, pg)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received signal, shutting down", "signal", sig)
		cancel(errors.New("signal received"))
	}()

	log.InfoContext(ctx, "worker starting", "interval", *interval, "sources", len(refs))
	w.refresh(ctx, *retention)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.refresh(ctx, *retention)
		case <-ctx.Done():
			log.Info("worker stopped")
			return nil
		}
	}
}

type worker struct {
	repo    db.Repository
	catalog *catalog.Catalog
	client  *source.Client
	refs    []source.Ref
	log     *slog.Logger
}

// refresh fetches every source and stores the ones whose content changed.
// One failing source does not stop the others.
func (w *worker) refresh(ctx context.Context, retention time.Duration) {
	cycleStart := time.Now()
	defer func() {
		metrics.RefreshCycleDuration.Observe(time.Since(cycleStart).Seconds())
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, ref := range w.refs {
		g.Go(func() error {
			w.sync(gctx, ref)
			return nil
		})
	}
	g.Wait()

	if retention > 0 {
		n, err := w.repo.DeleteOldTableLoads(ctx, time.Now().Add(-retention))
		if err != nil {
			w.log.ErrorContext(ctx, "pruning table load history", "error", err)
		} else if n > 0 {
			w.log.InfoContext(ctx, "pruned table load history", "deleted", n)
		}
	}

	w.log.InfoContext(ctx, "refresh complete", "duration", time.Since(cycleStart))
}

func (w *worker) sync(ctx context.Context, ref source.Ref) {
	log := w.log.With("table", ref.Name, "location", ref.Location)

	tsv, err := w.client.Fetch(ctx, ref.Location)
	if err != nil {
		log.WarnContext(ctx, "fetching table", "error", err)
		return
	}

	stored, err := w.repo.GetTable(ctx, ref.Name)
	switch {
	case err == nil && stored.Checksum == catalog.Checksum(tsv):
		log.DebugContext(ctx, "table unchanged")
		return
	case err != nil && !db.IsNotFound(err):
		log.ErrorContext(ctx, "reading stored table", "error", err)
		return
	}

	if _, err := w.catalog.Load(ctx, ref.Name, ref.Location, tsv); err != nil {
		log.WarnContext(ctx, "table rejected, keeping the stored version", "error", err)
		return
	}
	log.InfoContext(ctx, "stored updated table")
}

func openRepository(ctx context.Context, url string) (db.Repository, error) {
	if db.IsSQLite(url) {
		repo, err := sqlite.New(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("opening SQLite database: %w", err)
		}
		return repo, nil
	}
	repo, err := postgres.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return repo, nil
}

// exportPoolStats publishes pgxpool stats as Prometheus gauges until ctx ends.
func exportPoolStats(ctx context.Context, repo *postgres.Repository) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s := repo.PoolStats()
			metrics.DBPoolTotalConns.Set(float64(s.TotalConns()))
			metrics.DBPoolIdleConns.Set(float64(s.IdleConns()))
			metrics.DBPoolAcquiredConns.Set(float64(s.AcquiredConns()))
			metrics.DBPoolMaxConns.Set(float64(s.MaxConns()))
		case <-ctx.Done():
			return
		}
	}
}
