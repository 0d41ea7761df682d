// e2e runs the HTTP service in-process against a temporary SQLite database and
// checks uploads, conversions, rejected uploads, and restarts end to end.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/jusunglee/itrans/internal/catalog"
	"github.com/jusunglee/itrans/internal/db/sqlite"
	"github.com/jusunglee/itrans/internal/logger"
	"github.com/jusunglee/itrans/internal/web"
)

const apiKey = "e2e-secret"

// A two-language table: a consonant run closes with the per-language
// end-word vowel, and vowels after a consonant use their dependent form.
const uploadTSV = "INPUT\tINPUT-TYPE\tCODE-NAME\t#deva\t#latn\n" +
	"k\tconsonant\tka\tu+0915\tk\n" +
	"a\tvowel\ta\tu+0905\ta\n" +
	"\tdependent-vowel\tdv-a\t\ta\n" +
	"i\tvowel\ti\tu+0907\ti\n" +
	"\tdependent-vowel\tdv-i\tu+093F\ti\n" +
	"\tcommand\tend-word-vowel\tu+094D\t\n" +
	"\tcommand\tconsonants-joiner\tu+094D\t\n"

// Same code name on two rows.
const badTSV = "INPUT\tINPUT-TYPE\tCODE-NAME\t#deva\nk\tconsonant\tka\tu+0915\nq\tconsonant\tka\tu+0958\n"

type vector struct {
	table    string
	language string
	format   string
	input    string
	want     string
}

var vectors = []vector{
	{"default", "#sanskrit", "HTML7", "kha", "&#x0916;"},
	{"default", "#sanskrit", "UNICODE-NAMES", "kSha", "{ka}{consonants-joiner}{ssa}{dv-a}"},
	{"default", "#bengali", "HTML7", "ka", "&#x0995;"},
	{"mini", "#deva", "HTML7", "ki", "&#x0915;&#x093F;"},
	{"mini", "#deva", "HTML7", "k", "&#x0915;&#x094D;"},
	{"mini", "#latn", "HTML7", "kki", "kki"},
	{"mini", "#deva", "UNICODE-NAMES", "kka", "{ka}{consonants-joiner}{ka}{dv-a}"},
}

func main() {
	if err := run(); err != nil {
		slog.Error("E2E FAILED", "error", err)
		os.Exit(1)
	}
	slog.Info("E2E PASSED")
}

func run() error {
	_ = godotenv.Load()

	log := logger.New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dir, err := os.MkdirTemp("", "itrans-e2e-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	dbURL := "sqlite://" + filepath.Join(dir, "itrans.db")

	log.Info("Phase 1: starting service", "database", dbURL)
	srv, closeSrv, err := start(ctx, dbURL, log)
	if err != nil {
		return err
	}

	log.Info("Phase 2: uploading table")
	if status, body := call(ctx, srv, http.MethodPut, "/api/v1/tables/mini", uploadTSV); status != http.StatusCreated {
		closeSrv()
		return fmt.Errorf("upload: status %d: %s", status, body)
	}

	log.Info("Phase 3: converting vectors")
	if err := convertAll(ctx, srv); err != nil {
		closeSrv()
		return err
	}

	log.Info("Phase 4: rejected upload keeps the live table")
	status, body := call(ctx, srv, http.MethodPut, "/api/v1/tables/mini", badTSV)
	if status != http.StatusUnprocessableEntity {
		closeSrv()
		return fmt.Errorf("bad upload: want 422, got %d: %s", status, body)
	}
	log.Info("bad upload rejected", "response", body)
	if err := convertAll(ctx, srv); err != nil {
		closeSrv()
		return err
	}
	closeSrv()

	log.Info("Phase 5: restarting against the same database")
	srv, closeSrv, err = start(ctx, dbURL, log)
	if err != nil {
		return err
	}
	defer closeSrv()
	if err := convertAll(ctx, srv); err != nil {
		return fmt.Errorf("after restart: %w", err)
	}

	status, body = call(ctx, srv, http.MethodGet, "/api/v1/tables/mini/loads", "")
	if status != http.StatusOK {
		return fmt.Errorf("load history: status %d: %s", status, body)
	}
	var history struct {
		Data []struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &history); err != nil {
		return fmt.Errorf("decoding load history: %w", err)
	}
	if len(history.Data) != 2 || history.Data[0].Status != "failed" || history.Data[1].Status != "ok" {
		return fmt.Errorf("unexpected load history: %s", body)
	}
	return nil
}

func start(ctx context.Context, dbURL string, log *slog.Logger) (*httptest.Server, func(), error) {
	repo, err := sqlite.New(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("creating temp SQLite: %w", err)
	}
	cat := catalog.New(repo, log)
	if err := cat.InstallDefault(); err != nil {
		repo.Close()
		return nil, nil, err
	}
	if _, err := cat.Restore(ctx); err != nil {
		repo.Close()
		return nil, nil, err
	}

	srv := httptest.NewServer(web.NewRouter(cat, log, web.Options{APIKey: apiKey}).Handler())
	return srv, func() {
		srv.Close()
		repo.Close()
	}, nil
}

func convertAll(ctx context.Context, srv *httptest.Server) error {
	for _, v := range vectors {
		req, _ := json.Marshal(map[string]string{
			"text":     v.input,
			"table":    v.table,
			"language": v.language,
			"format":   v.format,
		})
		status, body := call(ctx, srv, http.MethodPost, "/api/v1/convert", string(req))
		if status != http.StatusOK {
			return fmt.Errorf("convert %q on %s: status %d: %s", v.input, v.table, status, body)
		}
		var resp struct {
			Output string `json:"output"`
		}
		if err := json.Unmarshal([]byte(body), &resp); err != nil {
			return fmt.Errorf("decoding convert response: %w", err)
		}
		if resp.Output != v.want {
			return fmt.Errorf("convert %q on %s %s: got %q, want %q", v.input, v.table, v.language, resp.Output, v.want)
		}
	}
	return nil
}

func call(ctx context.Context, srv *httptest.Server, method, path, body string) (int, string) {
	req, err := http.NewRequestWithContext(ctx, method, srv.URL+path, bytes.NewBufferString(body))
	if err != nil {
		return 0, err.Error()
	}
	req.Header.Set("X-API-Key", apiKey)
	resp, err := srv.Client().Do(req)
	if err != nil {
		return 0, err.Error()
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}
