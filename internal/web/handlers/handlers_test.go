package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jusunglee/itrans/internal/catalog"
	"github.com/jusunglee/itrans/internal/db"
	"github.com/jusunglee/itrans/internal/itrans"
)

type stubCatalog struct {
	convertErr error
	loadsErr   error
	deleteErr  error
	languages  []string
	gotOpts    itrans.Options
}

func (s *stubCatalog) Convert(name, text string, opts itrans.Options) (string, error) {
	s.gotOpts = opts
	if s.convertErr != nil {
		return "", s.convertErr
	}
	return "converted:" + text, nil
}

func (s *stubCatalog) Languages(name string) ([]string, error) {
	if s.languages == nil {
		return nil, catalog.ErrNotFound
	}
	return s.languages, nil
}

func (s *stubCatalog) List() []catalog.Info { return nil }

func (s *stubCatalog) Load(ctx context.Context, name, source, tsv string) (*itrans.Engine, error) {
	return nil, errors.New("not used")
}

func (s *stubCatalog) Delete(ctx context.Context, name string) error { return s.deleteErr }

func (s *stubCatalog) Loads(ctx context.Context, name string, limit int32) ([]db.TableLoad, error) {
	return nil, s.loadsErr
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestConvertErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown table", catalog.ErrNotFound, http.StatusBadRequest},
		{"unknown format", itrans.ErrUnknownFormat, http.StatusBadRequest},
		{"unsupported format", itrans.ErrUnsupportedFormat, http.StatusUnprocessableEntity},
		{"internal", &itrans.InternalError{Msg: "vowel without dependent form"}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewConvertHandler(&stubCatalog{convertErr: tt.err, languages: []string{"#x"}}, discard())
			rec := httptest.NewRecorder()
			h.Convert(rec, httptest.NewRequest(http.MethodPost, "/api/v1/convert", strings.NewReader(`{"text":"k"}`)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body["error"])
			}
		})
	}
}

func TestConvertUsesFirstLanguage(t *testing.T) {
	stub := &stubCatalog{languages: []string{"#hindi", "#marathi"}}
	h := NewConvertHandler(stub, discard())

	rec := httptest.NewRecorder()
	h.Convert(rec, httptest.NewRequest(http.MethodPost, "/api/v1/convert", strings.NewReader(`{"text":"k","format":"html7"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "#hindi", stub.gotOpts.Language)
	assert.Equal(t, itrans.FormatHTML7, stub.gotOpts.Format)

	var resp convertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "converted:k", resp.Output)
	assert.Equal(t, "default", resp.Table)
	assert.Equal(t, "HTML7", resp.Format)
}

func TestConvertBodyTooLarge(t *testing.T) {
	h := NewConvertHandler(&stubCatalog{languages: []string{"#x"}}, discard())
	body := `{"text":"` + strings.Repeat("k", MaxConvertBody) + `"}`

	rec := httptest.NewRecorder()
	h.Convert(rec, httptest.NewRequest(http.MethodPost, "/api/v1/convert", strings.NewReader(body)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestLoadsErrors(t *testing.T) {
	h := NewTableHandler(&stubCatalog{loadsErr: errors.New("db down")}, discard())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tables/x/loads", nil)
	req.SetPathValue("name", "x")
	rec := httptest.NewRecorder()
	h.Loads(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoadsEmptyList(t *testing.T) {
	h := NewTableHandler(&stubCatalog{}, discard())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tables/x/loads?limit=500", nil)
	req.SetPathValue("name", "x")
	rec := httptest.NewRecorder()
	h.Loads(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"table":"x","data":[]}`, rec.Body.String())
}

func TestDeleteErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{nil, http.StatusNoContent},
		{catalog.ErrProtected, http.StatusForbidden},
		{catalog.ErrNotFound, http.StatusNotFound},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := NewTableHandler(&stubCatalog{deleteErr: tt.err}, discard())
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/tables/x", nil)
		req.SetPathValue("name", "x")
		rec := httptest.NewRecorder()
		h.Delete(rec, req)
		assert.Equal(t, tt.wantStatus, rec.Code, "%v", tt.err)
	}
}
