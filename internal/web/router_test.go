package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/jusunglee/itrans/internal/catalog"
	"github.com/jusunglee/itrans/internal/db/sqlite"
)

const smallTSV = "INPUT\tINPUT-TYPE\tCODE-NAME\t#x\nk\tconsonant\tka\tK\n"

const badTSV = "INPUT\tINPUT-TYPE\tCODE-NAME\t#x\nk\t\tka\tK\nq\t\tka\tQ\n"

func newTestHandler(t *testing.T, opts Options) http.Handler {
	t.Helper()
	repo, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	c := catalog.New(repo, nil)
	require.NoError(t, c.InstallDefault())
	return NewRouter(c, nil, opts).Handler()
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newTestHandler(t, opts))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, header ...string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func TestConvertEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantOutput string
	}{
		{"html7", `{"text":"kha","language":"#sanskrit","format":"HTML7"}`, http.StatusOK, "&#x0916;"},
		{"default language", `{"text":"kha","format":"html7"}`, http.StatusOK, "&#x0916;"},
		{"default format", `{"text":"ki","language":"#sanskrit"}`, http.StatusOK, "{ka}{dv-i}"},
		{"unsupported format", `{"text":"kha","format":"UTF-8"}`, http.StatusUnprocessableEntity, ""},
		{"unknown format", `{"text":"kha","format":"xml"}`, http.StatusBadRequest, ""},
		{"unknown table", `{"text":"kha","table":"nope"}`, http.StatusBadRequest, ""},
		{"bad json", `{"text":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := do(t, srv, http.MethodPost, "/api/v1/convert", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantOutput, out["output"])
			} else {
				assert.NotEmpty(t, out["error"])
			}
		})
	}
}

func TestTableLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, out := do(t, srv, http.MethodGet, "/api/v1/tables/default/languages", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["languages"], 13)

	resp, _ = do(t, srv, http.MethodGet, "/api/v1/tables/small/languages", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, out = do(t, srv, http.MethodPut, "/api/v1/tables/small", smallTSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []any{"#x"}, out["languages"])

	resp, out = do(t, srv, http.MethodPut, "/api/v1/tables/small", badTSV)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, out["error"], "line 3")

	resp, out = do(t, srv, http.MethodPost, "/api/v1/convert", `{"text":"k","table":"small","format":"HTML7"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "K", out["output"], "failed upload keeps the previous table")

	resp, out = do(t, srv, http.MethodGet, "/api/v1/tables", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["data"], 2)

	resp, out = do(t, srv, http.MethodGet, "/api/v1/tables/small/loads", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	loads, ok := out["data"].([]any)
	require.True(t, ok)
	require.Len(t, loads, 2)
	assert.Equal(t, "failed", loads[0].(map[string]any)["status"])
	assert.Equal(t, "ok", loads[1].(map[string]any)["status"])

	resp, _ = do(t, srv, http.MethodDelete, "/api/v1/tables/default", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodDelete, "/api/v1/tables/small", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodDelete, "/api/v1/tables/small", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPutRejectsBadName(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, _ := do(t, srv, http.MethodPut, "/api/v1/tables/Upper", smallTSV)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPutDecodesUTF16(t *testing.T) {
	srv := newTestServer(t, Options{})

	body, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(smallTSV)
	require.NoError(t, err)

	resp, out := do(t, srv, http.MethodPut, "/api/v1/tables/wide", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", out)
	assert.Equal(t, []any{"#x"}, out["languages"])
}

func TestPutRequiresAPIKey(t *testing.T) {
	srv := newTestServer(t, Options{APIKey: "secret"})

	resp, _ := do(t, srv, http.MethodPut, "/api/v1/tables/small", smallTSV)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPut, "/api/v1/tables/small", smallTSV, "X-API-Key", "secret")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/api/v1/convert", `{"text":"k","table":"small"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "conversion stays open")
}

func TestPutTooLarge(t *testing.T) {
	h := newTestHandler(t, Options{})

	big := smallTSV + strings.Repeat("#", 1<<20)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/tables/big", strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestConvertRateLimit(t *testing.T) {
	srv := newTestServer(t, Options{ConvertLimit: 2})

	for range 2 {
		resp, _ := do(t, srv, http.MethodPost, "/api/v1/convert", `{"text":"k"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := do(t, srv, http.MethodPost, "/api/v1/convert", `{"text":"k"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
