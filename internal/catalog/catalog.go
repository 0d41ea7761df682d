// Package catalog keeps the named set of loaded conversion engines and
// persists table documents through a db.Repository.
package catalog

import (
	"cmp"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/jusunglee/itrans/internal/db"
	"github.com/jusunglee/itrans/internal/itrans"
	"github.com/jusunglee/itrans/internal/metrics"
	"github.com/jusunglee/itrans/internal/table"
	"github.com/jusunglee/itrans/internal/tabledata"
)

var (
	ErrNotFound    = errors.New("table not found")
	ErrProtected   = errors.New("built-in table cannot be deleted")
	ErrInvalidName = errors.New("table names use 1-64 lowercase letters, digits, '.', '_' or '-'")
)

var nameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

type entry struct {
	engine   *itrans.Engine
	source   string
	checksum string
	stored   bool
	loadedAt time.Time
}

// Info describes an installed table.
type Info struct {
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Checksum  string    `json:"checksum,omitempty"`
	Languages []string  `json:"languages"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Catalog is safe for concurrent use. A nil repository keeps tables in
// memory only.
type Catalog struct {
	repo db.Repository
	log  *slog.Logger

	mu     sync.RWMutex
	tables map[string]entry
}

func New(repo db.Repository, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Catalog{
		repo:   repo,
		log:    log,
		tables: make(map[string]entry),
	}
}

// ValidateName checks that name can be used as a table name.
func ValidateName(name string) error {
	if !nameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Install adds an engine under name without persisting it.
func (c *Catalog) Install(name string, e *itrans.Engine) {
	c.install(name, entry{engine: e, source: "builtin", loadedAt: time.Now()})
}

// InstallDefault loads the embedded table under tabledata.DefaultName.
func (c *Catalog) InstallDefault() error {
	tbl, err := tabledata.Load(c.log.With("table", tabledata.DefaultName))
	if err != nil {
		return fmt.Errorf("loading embedded table: %w", err)
	}
	c.install(tabledata.DefaultName, entry{
		engine:   itrans.New(tbl),
		source:   "embedded",
		checksum: Checksum(tabledata.Default),
		loadedAt: time.Now(),
	})
	return nil
}

func (c *Catalog) install(name string, e entry) {
	c.mu.Lock()
	c.tables[name] = e
	n := len(c.tables)
	c.mu.Unlock()
	metrics.TablesLoaded.Set(float64(n))
}

// Get returns the engine installed under name.
func (c *Catalog) Get(name string) (*itrans.Engine, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.tables[name]
	return e.engine, ok
}

// Names returns the installed table names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	names := lo.Keys(c.tables)
	c.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Languages returns the languages of the named table.
func (c *Catalog) Languages(name string) ([]string, error) {
	e, ok := c.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.Languages(), nil
}

// List describes every installed table, sorted by name.
func (c *Catalog) List() []Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	infos := lo.MapToSlice(c.tables, func(name string, e entry) Info {
		return Info{
			Name:      name,
			Source:    e.source,
			Checksum:  e.checksum,
			Languages: e.engine.Languages(),
			LoadedAt:  e.loadedAt,
		}
	})
	slices.SortFunc(infos, func(a, b Info) int { return cmp.Compare(a.Name, b.Name) })
	return infos
}

// Convert runs text through the named table.
func (c *Catalog) Convert(name, text string, opts itrans.Options) (string, error) {
	e, ok := c.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.Convert(text, opts)
}

// Load parses tsv and, when it is valid, stores it and makes it the engine
// for name. An invalid document leaves the installed engine in place; the
// failed attempt is still recorded in the load history.
func (c *Catalog) Load(ctx context.Context, name, source, tsv string) (*itrans.Engine, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	log := c.log.With("table", name, "source", source)
	sum := Checksum(tsv)

	start := time.Now()
	tbl, err := table.Parse(tsv, log)
	metrics.TableLoadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TableLoadsTotal.WithLabelValues(name, db.LoadStatusFailed).Inc()
		log.WarnContext(ctx, "rejected table", "error", err)
		c.recordFailure(ctx, name, source, sum, err)
		return nil, fmt.Errorf("loading table %q: %w", name, err)
	}

	if c.repo != nil {
		err := c.repo.WithTx(ctx, func(tx db.Repository) error {
			if _, err := tx.UpsertTable(ctx, db.UpsertTableParams{
				Name:     name,
				Source:   source,
				TSV:      tsv,
				Checksum: sum,
			}); err != nil {
				return fmt.Errorf("storing table: %w", err)
			}
			if _, err := tx.CreateTableLoad(ctx, db.CreateTableLoadParams{
				TableName: name,
				Source:    source,
				Checksum:  sum,
				Status:    db.LoadStatusOK,
				Languages: int32(len(tbl.Languages())),
			}); err != nil {
				return fmt.Errorf("recording table load: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	engine := itrans.New(tbl)
	c.install(name, entry{
		engine:   engine,
		source:   source,
		checksum: sum,
		stored:   c.repo != nil,
		loadedAt: time.Now(),
	})
	metrics.TableLoadsTotal.WithLabelValues(name, db.LoadStatusOK).Inc()
	log.InfoContext(ctx, "installed table", "languages", len(tbl.Languages()))
	return engine, nil
}

func (c *Catalog) recordFailure(ctx context.Context, name, source, sum string, loadErr error) {
	if c.repo == nil {
		return
	}
	_, err := c.repo.CreateTableLoad(ctx, db.CreateTableLoadParams{
		TableName: name,
		Source:    source,
		Checksum:  sum,
		Status:    db.LoadStatusFailed,
		Error:     sql.NullString{String: loadErr.Error(), Valid: true},
	})
	if err != nil {
		c.log.ErrorContext(ctx, "recording failed table load", "table", name, "error", err)
	}
}

// Restore installs every stored table. Stored tables that no longer parse
// are logged and skipped.
func (c *Catalog) Restore(ctx context.Context) (int, error) {
	return c.sync(ctx, false)
}

// Refresh installs stored tables whose content changed since they were last
// installed and drops stored tables that were deleted from the database.
func (c *Catalog) Refresh(ctx context.Context) (int, error) {
	return c.sync(ctx, true)
}

func (c *Catalog) sync(ctx context.Context, prune bool) (int, error) {
	if c.repo == nil {
		return 0, nil
	}
	stored, err := c.repo.ListTables(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing stored tables: %w", err)
	}

	changed := 0
	for _, st := range stored {
		c.mu.RLock()
		current, ok := c.tables[st.Name]
		c.mu.RUnlock()
		if ok && current.checksum == st.Checksum {
			continue
		}

		tbl, err := table.Parse(st.TSV, c.log.With("table", st.Name))
		if err != nil {
			metrics.TableLoadsTotal.WithLabelValues(st.Name, db.LoadStatusFailed).Inc()
			c.log.ErrorContext(ctx, "skipping stored table", "table", st.Name, "error", err)
			continue
		}
		c.install(st.Name, entry{
			engine:   itrans.New(tbl),
			source:   st.Source,
			checksum: st.Checksum,
			stored:   true,
			loadedAt: time.Now(),
		})
		metrics.TableLoadsTotal.WithLabelValues(st.Name, db.LoadStatusOK).Inc()
		changed++
	}

	if prune {
		keep := lo.SliceToMap(stored, func(st db.StoredTable) (string, struct{}) {
			return st.Name, struct{}{}
		})
		c.mu.Lock()
		for name, e := range c.tables {
			if _, ok := keep[name]; e.stored && !ok {
				delete(c.tables, name)
				changed++
				c.log.InfoContext(ctx, "dropped deleted table", "table", name)
			}
		}
		n := len(c.tables)
		c.mu.Unlock()
		metrics.TablesLoaded.Set(float64(n))
	}

	if changed > 0 {
		c.log.InfoContext(ctx, "synced stored tables", "changed", changed, "stored", len(stored))
	}
	return changed, nil
}

// Delete removes a table from the catalog and the database.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	if name == tabledata.DefaultName {
		return ErrProtected
	}

	var removed int64
	if c.repo != nil {
		n, err := c.repo.DeleteTable(ctx, name)
		if err != nil {
			return fmt.Errorf("deleting table: %w", err)
		}
		removed = n
	}

	c.mu.Lock()
	_, ok := c.tables[name]
	delete(c.tables, name)
	n := len(c.tables)
	c.mu.Unlock()
	metrics.TablesLoaded.Set(float64(n))

	if !ok && removed == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

// Loads returns the most recent load attempts for name, newest first.
func (c *Catalog) Loads(ctx context.Context, name string, limit int32) ([]db.TableLoad, error) {
	if c.repo == nil {
		return nil, nil
	}
	return c.repo.ListTableLoads(ctx, db.ListTableLoadsParams{TableName: name, Limit: limit})
}

// Checksum identifies a table document's content.
func Checksum(tsv string) string {
	sum := sha256.Sum256([]byte(tsv))
	return hex.EncodeToString(sum[:])
}
