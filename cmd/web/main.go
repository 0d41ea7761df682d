package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/jusunglee/itrans/internal/catalog"
	"github.com/jusunglee/itrans/internal/db"
	"github.com/jusunglee/itrans/internal/db/postgres"
	"github.com/jusunglee/itrans/internal/db/sqlite"
	"github.com/jusunglee/itrans/internal/health"
	"github.com/jusunglee/itrans/internal/logger"
	"github.com/jusunglee/itrans/internal/metrics"
	"github.com/jusunglee/itrans/internal/tabledata"
	"github.com/jusunglee/itrans/internal/web"
)

func main() {
	if err := mainE(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
	slog.Info("exiting without error")
}

func mainE() error {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("itrans-web")

	var (
		port            = fs.Int64Long("port", 3000, "HTTP server port")
		healthPort      = fs.Int64Long("health-port", 3001, "Health check port")
		databaseURL     = fs.StringLong("database-url", "sqlite://itrans.db", "PostgreSQL URL or sqlite:// path")
		allowedOrigins  = fs.StringLong("allowed-origins", "", "Comma-separated list of allowed CORS origins")
		apiKey          = fs.StringLong("api-key", "", "API key required to upload or delete tables")
		convertLimit    = fs.Int64Long("convert-limit", 120, "Conversions per client per minute")
		refreshInterval = fs.DurationLong("refresh-interval", 30*time.Second, "How often to pick up tables stored by other processes")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVars()); err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		return fmt.Errorf("parsing flags: %w", err)
	}

	if *databaseURL == "" {
		return errors.New("database-url is required")
	}

	log := logger.New()

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	repo, err := openRepository(ctx, *databaseURL, log)
	if err != nil {
		return err
	}
	defer repo.Close()

	cat := catalog.New(repo, log)
	if err := cat.InstallDefault(); err != nil {
		return err
	}
	n, err := cat.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restoring stored tables: %w", err)
	}
	log.InfoContext(ctx, "catalog ready", "stored", n, "tables", cat.Names())

	origins := lo.Compact(lo.Map(strings.Split(*allowedOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	}))

	router := web.NewRouter(cat, log, web.Options{
		AllowedOrigins: origins,
		APIKey:         *apiKey,
		ConvertLimit:   int(*convertLimit),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/", router.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	healthServer := health.New(int(*healthPort), map[string]health.Check{
		"database": func(ctx context.Context) error {
			_, err := repo.GetTable(ctx, tabledata.DefaultName)
			if err != nil && !db.IsNotFound(err) {
				return err
			}
			return nil
		},
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case sig := <-sigChan:
			log.InfoContext(ctx, "received signal, shutting down gracefully", "signal", sig)
			cancel(errors.New("signal received"))
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.ErrorContext(ctx, "server shutdown error", "error", err)
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			log.ErrorContext(ctx, "health server shutdown error", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		log.InfoContext(ctx, "starting web server", "port", *port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(healthServer.Start)

	g.Go(func() error {
		ticker := time.NewTicker(*refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := cat.Refresh(gctx); err != nil {
					log.ErrorContext(gctx, "refreshing tables", "error", err)
				}
			case <-gctx.Done():
				return nil
			}
		}
	})

	if pg, ok := repo.(*postgres.Repository); ok {
		g.Go(func() error {
			exportPoolStats(gctx, pg)
			return nil
		})
	}

	return g.Wait()
}

func openRepository(ctx context.Context, url string, log *slog.Logger) (db.Repository, error) {
	if db.IsSQLite(url) {
		repo, err := sqlite.New(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("opening SQLite database: %w", err)
		}
		log.InfoContext(ctx, "using SQLite database", "path", strings.TrimPrefix(url, "sqlite://"))
		return repo, nil
	}

	repo, err := postgres.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("creating PostgreSQL connection: %w", err)
	}
	log.InfoContext(ctx, "connected to PostgreSQL database")
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
