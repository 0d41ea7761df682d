package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/jusunglee/itrans/internal/itrans"
	"github.com/jusunglee/itrans/internal/table"
	"github.com/jusunglee/itrans/internal/tabledata"
	"github.com/jusunglee/itrans/internal/tui"
)

func main() {
	if err := mainE(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func mainE() error {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("itrans-tui")
	var (
		tablePath = fs.StringLong("table", "", "Table document to use instead of the built-in table")
		language  = fs.StringLong("language", "#sanskrit", "Language to start in")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("ITRANS")); err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		return fmt.Errorf("parsing flags: %w", err)
	}

	// Loader warnings would draw over the alternate screen.
	quiet := slog.New(slog.DiscardHandler)

	var (
		tbl *table.Table
		err error
	)
	if *tablePath == "" {
		tbl, err = tabledata.Load(quiet)
	} else {
		var f *os.File
		f, err = os.Open(*tablePath)
		if err != nil {
			return err
		}
		defer f.Close()
		tbl, err = table.Load(f, quiet)
	}
	if err != nil {
		return fmt.Errorf("loading table: %w", err)
	}

	return tui.Run(itrans.New(tbl), *language)
}
