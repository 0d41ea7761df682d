// itrans converts itrans text from the arguments or standard input.
//
// Usage:
//
//	itrans --format html7 --unescape "namaste"
//	echo "OM namaH shivAya" | itrans --language '#tamil' --format html7 --unescape
//	itrans --table ./mine.tsv --list-languages
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/jusunglee/itrans/internal/itrans"
	"github.com/jusunglee/itrans/internal/logger"
	"github.com/jusunglee/itrans/internal/table"
	"github.com/jusunglee/itrans/internal/tabledata"
	"github.com/jusunglee/itrans/internal/textutil"
)

func main() {
	if err := mainE(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func mainE() error {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("itrans")
	var (
		tablePath     = fs.StringLong("table", "", "Table document to use instead of the built-in table")
		language      = fs.StringLong("language", "", "Initial language, e.g. #sanskrit (default: the table's first language)")
		format        = fs.StringLong("format", string(itrans.DefaultFormat), "Output format: UNICODE-NAMES or HTML7")
		unescape      = fs.BoolLong("unescape", "Print characters instead of the &#xHHHH; references in HTML7 output; text outside itrans is left as typed")
		listLanguages = fs.BoolLong("list-languages", "Print the table's languages and exit")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("ITRANS")); err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		return fmt.Errorf("parsing flags: %w", err)
	}

	log := logger.New()

	f, err := itrans.ParseFormat(*format)
	if err != nil {
		return err
	}

	tbl, err := loadTable(*tablePath, log)
	if err != nil {
		return err
	}
	engine := itrans.New(tbl)

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if *listLanguages {
		for _, lang := range engine.Languages() {
			fmt.Fprintln(out, lang)
		}
		return nil
	}

	lang := *language
	if lang == "" {
		lang = engine.Languages()[0]
	} else if !tbl.IsLanguage(lang) {
		return fmt.Errorf("unknown language %q, see --list-languages", lang)
	}

	input, err := readInput(fs.GetArgs())
	if err != nil {
		return err
	}

	result, err := convert(engine, input, itrans.Options{Language: lang, Format: f}, *unescape)
	if err != nil {
		return err
	}
	fmt.Fprint(out, result)
	if !strings.HasSuffix(result, "\n") {
		fmt.Fprintln(out)
	}
	return nil
}

func convert(e *itrans.Engine, input string, opts itrans.Options, unescape bool) (string, error) {
	result, err := e.Convert(input, opts)
	if err != nil {
		return "", err
	}
	if unescape {
		result = textutil.FromHTMLCodes(result)
	}
	return result, nil
}

func loadTable(path string, log *slog.Logger) (*table.Table, error) {
	if path == "" {
		return tabledata.Load(log)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return table.Load(file, log)
}

func readInput(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
		return "", errors.New("no input: pass text as arguments or on standard input")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading standard input: %w", err)
	}
	return string(data), nil
}
