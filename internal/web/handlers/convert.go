package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jusunglee/itrans/internal/catalog"
	"github.com/jusunglee/itrans/internal/itrans"
	"github.com/jusunglee/itrans/internal/metrics"
	"github.com/jusunglee/itrans/internal/tabledata"
)

// MaxConvertBody bounds the JSON body of a convert request.
const MaxConvertBody = 256 << 10

type ConvertHandler struct {
	catalog Catalog
	log     *slog.Logger
}

func NewConvertHandler(c Catalog, log *slog.Logger) *ConvertHandler {
	return &ConvertHandler{catalog: c, log: log}
}

type convertRequest struct {
	Text     string `json:"text"`
	Table    string `json:"table"`
	Language string `json:"language"`
	Format   string `json:"format"`
}

type convertResponse struct {
	Output   string `json:"output"`
	Table    string `json:"table"`
	Language string `json:"language"`
	Format   string `json:"format"`
}

func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxConvertBody)

	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Table == "" {
		req.Table = tabledata.DefaultName
	}

	format, err := itrans.ParseFormat(req.Format)
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues(req.Table, "invalid", "bad_request").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Language == "" {
		langs, err := h.catalog.Languages(req.Table)
		if err != nil {
			h.fail(w, r, req.Table, format, err)
			return
		}
		if len(langs) > 0 {
			req.Language = langs[0]
		}
	}

	metrics.ConversionInputBytes.Observe(float64(len(req.Text)))
	out, err := h.catalog.Convert(req.Table, req.Text, itrans.Options{Language: req.Language, Format: format})
	if err != nil {
		h.fail(w, r, req.Table, format, err)
		return
	}

	metrics.ConversionsTotal.WithLabelValues(req.Table, string(format), "ok").Inc()
	writeJSON(w, http.StatusOK, convertResponse{
		Output:   out,
		Table:    req.Table,
		Language: req.Language,
		Format:   string(format),
	})
}

func (h *ConvertHandler) fail(w http.ResponseWriter, r *http.Request, table string, format itrans.Format, err error) {
	var internal *itrans.InternalError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		metrics.ConversionsTotal.WithLabelValues(table, string(format), "bad_request").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, itrans.ErrUnknownFormat):
		metrics.ConversionsTotal.WithLabelValues(table, string(format), "bad_request").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, itrans.ErrUnsupportedFormat):
		metrics.ConversionsTotal.WithLabelValues(table, string(format), "unsupported").Inc()
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &internal):
		metrics.ConversionsTotal.WithLabelValues(table, string(format), "error").Inc()
		h.log.ErrorContext(r.Context(), "conversion failed", "table", table, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		metrics.ConversionsTotal.WithLabelValues(table, string(format), "error").Inc()
		h.log.ErrorContext(r.Context(), "converting text", "table", table, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
