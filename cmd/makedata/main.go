// makedata downloads table documents, checks that they load, and writes them
// as <name>.tsv.
//
// Usage:
//
//	makedata DEFAULT iso
//	makedata --out-dir internal/tabledata default=DEFAULT
//	makedata mine=./my-table.tsv
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"

	"github.com/jusunglee/itrans/internal/catalog"
	"github.com/jusunglee/itrans/internal/logger"
	"github.com/jusunglee/itrans/internal/source"
	"github.com/jusunglee/itrans/internal/table"
)

func main() {
	if err := mainE(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func mainE() error {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("makedata")
	var (
		outDir  = fs.StringLong("out-dir", ".", "Directory to write <name>.tsv files to")
		maxSize = fs.Int64Long("max-size", source.DefaultMaxSize, "Largest accepted document in bytes")
		timeout = fs.DurationLong("timeout", time.Minute, "Overall time limit")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("MAKEDATA")); err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		return fmt.Errorf("parsing flags: %w", err)
	}

	refs, err := source.ParseRefs(strings.Join(fs.GetArgs(), ","))
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		return errors.New("name the tables to fetch, e.g. DEFAULT or mine=./table.tsv")
	}
	for _, ref := range refs {
		if err := catalog.ValidateName(ref.Name); err != nil {
			return err
		}
	}

	log := logger.New()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := source.NewClient().WithMaxSize(*maxSize)

	g, gctx := errgroup.WithContext(ctx)
	for _, ref := range refs {
		g.Go(func() error {
			return makeData(gctx, client, ref, *outDir, log)
		})
	}
	return g.Wait()
}

func makeData(ctx context.Context, client *source.Client, ref source.Ref, outDir string, log *slog.Logger) error {
	log = log.With("table", ref.Name)

	tsv, err := client.Fetch(ctx, ref.Location)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", ref.Name, err)
	}

	tbl, err := table.Parse(tsv, log)
	if err != nil {
		return fmt.Errorf("validating %s: %w", ref.Name, err)
	}

	path := filepath.Join(outDir, ref.Name+".tsv")
	if err := os.WriteFile(path, []byte(tsv), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	log.InfoContext(ctx, "wrote table", "path", path, "languages", len(tbl.Languages()), "bytes", len(tsv))
	return nil
}
