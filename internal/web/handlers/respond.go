package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jusunglee/itrans/internal/catalog"
	"github.com/jusunglee/itrans/internal/db"
	"github.com/jusunglee/itrans/internal/itrans"
)

// Catalog is the part of *catalog.Catalog the handlers use.
type Catalog interface {
	Convert(name, text string, opts itrans.Options) (string, error)
	Languages(name string) ([]string, error)
	List() []catalog.Info
	Load(ctx context.Context, name, source, tsv string) (*itrans.Engine, error)
	Delete(ctx context.Context, name string) error
	Loads(ctx context.Context, name string, limit int32) ([]db.TableLoad, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
