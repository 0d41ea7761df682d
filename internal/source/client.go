// Package source fetches table documents from published spreadsheets or
// local files.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/jusunglee/itrans/internal/metrics"
	"github.com/jusunglee/itrans/internal/table"
)

var (
	ErrNotFound = errors.New("table source not found")
	ErrTooLarge = errors.New("table document too large")
)

// DefaultMaxSize bounds a fetched document.
const DefaultMaxSize = 1 << 20

// Builtin names the published spreadsheets the tables are maintained in.
var Builtin = map[string]string{
	"DEFAULT": "https://docs.google.com/spreadsheets/d/14wZl8zCa4khZV3El2VGoqurKBLGx21mbS-yORi4w7Qo/export?format=tsv&gid=0",
	"iso":     "https://docs.google.com/spreadsheets/d/1PHC3EJ69PZ4U39LSWtjMJhOL7aVE5qdW8qANaPTKDW8/export?format=tsv&gid=2092594052",
}

// Resolve returns the location for a built-in name, or location unchanged.
func Resolve(location string) string {
	if u, ok := Builtin[location]; ok {
		return u
	}
	return location
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

type Client struct {
	httpClient *http.Client
	maxSize    int64
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxSize: DefaultMaxSize,
	}
}

// WithMaxSize returns a copy of c that rejects documents over n bytes.
func (c *Client) WithMaxSize(n int64) *Client {
	c2 := *c
	c2.maxSize = n
	return &c2
}

// Fetch returns the document at location as UTF-8 text. Built-in names and
// http(s) URLs are downloaded; anything else is read as a local file.
func (c *Client) Fetch(ctx context.Context, location string) (string, error) {
	location = Resolve(location)

	kind := "file"
	if isURL(location) {
		kind = "http"
	}

	start := time.Now()
	text, err := c.fetch(ctx, kind, location)
	metrics.SourceFetchLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(kind, "error").Inc()
		return "", err
	}
	metrics.SourceFetchesTotal.WithLabelValues(kind, "success").Inc()
	return text, nil
}

func (c *Client) fetch(ctx context.Context, kind, location string) (string, error) {
	var body io.ReadCloser
	if kind == "http" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to make request: %w", err)
		}
		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return "", fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return "", fmt.Errorf("fetching %s: unexpected status code: %d", location, resp.StatusCode)
		}
		body = resp.Body
	} else {
		f, err := os.Open(location)
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		if err != nil {
			return "", err
		}
		body = f
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, c.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", location, err)
	}
	if int64(len(raw)) > c.maxSize {
		return "", fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, location, c.maxSize)
	}
	return table.ReadText(bytes.NewReader(raw))
}

// Ref names a table and where to fetch it from.
type Ref struct {
	Name     string
	Location string
}

// ParseRefs parses a comma separated list of name=location pairs. A bare
// built-in name such as DEFAULT stands for its lowercased name and its
// spreadsheet; any other bare location is named after its file name.
func ParseRefs(s string) ([]Ref, error) {
	var refs []Ref
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var ref Ref
		if name, loc, ok := strings.Cut(part, "="); ok && !strings.ContainsAny(name, "/:?") {
			ref = Ref{Name: strings.TrimSpace(name), Location: strings.TrimSpace(loc)}
		} else {
			ref = Ref{Name: DefaultName(part), Location: part}
		}
		if ref.Name == "" || ref.Location == "" {
			return nil, fmt.Errorf("invalid source %q: want name=location", part)
		}
		if seen[ref.Name] {
			return nil, fmt.Errorf("source %q listed twice", ref.Name)
		}
		seen[ref.Name] = true
		refs = append(refs, ref)
	}
	return refs, nil
}

// DefaultName derives a table name from a location.
func DefaultName(location string) string {
	if _, ok := Builtin[location]; ok {
		return strings.ToLower(location)
	}
	base := path.Base(strings.TrimRight(location, "/"))
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	return strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
}
