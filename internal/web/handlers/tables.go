package handlers

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/jusunglee/itrans/internal/catalog"
	"github.com/jusunglee/itrans/internal/db"
	"github.com/jusunglee/itrans/internal/table"
)

// MaxTableBody bounds an uploaded table document.
const MaxTableBody = 1 << 20

const (
	defaultLoadsLimit = 20
	maxLoadsLimit     = 100
)

type TableHandler struct {
	catalog Catalog
	log     *slog.Logger
}

func NewTableHandler(c Catalog, log *slog.Logger) *TableHandler {
	return &TableHandler{catalog: c, log: log}
}

type tableListResponse struct {
	Data []catalog.Info `json:"data"`
}

type languagesResponse struct {
	Table     string   `json:"table"`
	Languages []string `json:"languages"`
}

type loadResponse struct {
	ID        int64  `json:"id"`
	Source    string `json:"source"`
	Checksum  string `json:"checksum"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Languages int32  `json:"languages"`
	CreatedAt string `json:"created_at"`
}

type loadListResponse struct {
	Table string         `json:"table"`
	Data  []loadResponse `json:"data"`
}

func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tableListResponse{Data: h.catalog.List()})
}

func (h *TableHandler) Languages(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	langs, err := h.catalog.Languages(name)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		h.log.ErrorContext(r.Context(), "listing languages", "table", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, languagesResponse{Table: name, Languages: langs})
}

// Put installs the request body as the table document for name. A document
// that fails validation leaves the current table live.
func (h *TableHandler) Put(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := catalog.ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxTableBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "table document too large")
			return
		}
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}

	tsv, err := table.ReadText(bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "table document is not UTF-8 or UTF-16 text")
		return
	}

	engine, err := h.catalog.Load(r.Context(), name, "upload", tsv)
	if err != nil {
		var dataErr *table.DataError
		switch {
		case errors.As(err, &dataErr):
			writeError(w, http.StatusUnprocessableEntity, dataErr.Error())
		case errors.Is(err, catalog.ErrInvalidName):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.ErrorContext(r.Context(), "loading table", "table", name, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.log.InfoContext(r.Context(), "table uploaded", "table", name, "bytes", len(body))
	writeJSON(w, http.StatusCreated, languagesResponse{Table: name, Languages: engine.Languages()})
}

func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	err := h.catalog.Delete(r.Context(), name)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, catalog.ErrProtected):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "table not found")
	default:
		h.log.ErrorContext(r.Context(), "deleting table", "table", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *TableHandler) Loads(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > maxLoadsLimit {
		limit = defaultLoadsLimit
	}

	loads, err := h.catalog.Loads(r.Context(), name, int32(limit))
	if err != nil {
		h.log.ErrorContext(r.Context(), "listing table loads", "table", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	data := lo.Map(loads, func(l db.TableLoad, _ int) loadResponse {
		return loadResponse{
			ID:        l.ID,
			Source:    l.Source,
			Checksum:  l.Checksum,
			Status:    l.Status,
			Error:     l.Error.String,
			Languages: l.Languages,
			CreatedAt: l.CreatedAt.Format(time.RFC3339),
		}
	})
	writeJSON(w, http.StatusOK, loadListResponse{Table: name, Data: data})
}
