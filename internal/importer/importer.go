// Package importer reads bank export files and turns them into canonical
// transactions.
//
// Each supported institution has its own source adapter implementing
// Source. Adapters normalize as they parse: dates become UTC calendar
// days, amounts become signed decimals with two fractional digits, and
// descriptions are trimmed and uppercased. Rows that cannot be parsed
// are skipped and counted, never silently dropped.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/spendlens/pipeline/internal/encoding"
)

// A Source reads one institution's export format.
type Source interface {
	// Name identifies the source. It is stamped on every transaction the
	// source produces and takes part in the deduplication key.
	Name() string

	// Pattern is the glob, relative to the input directory, that matches
	// the source's export files.
	Pattern() string

	// Parse reads a single export file.
	Parse(r io.Reader, opts Options) (ParseResult, error)
}

// Read imports every export file of every source below dir.
//
// A source without matching files is not an error: it is reported as
// empty and the run continues. A file that cannot be opened or parsed
// aborts the import with an error naming the file, since a truncated or
// foreign file would silently distort every later stage.
func Read(dir string, sources []Source, opts Options) ([]SourceResult, error) {
	results := make([]SourceResult, 0, len(sources))

	for _, source := range sources {
		paths, err := filepath.Glob(filepath.Join(dir, source.Pattern()))
		if err != nil {
			return nil, fmt.Errorf("invalid file pattern for source %s: %w", source.Name(), err)
		}

		result := SourceResult{Source: source.Name()}

		if len(paths) == 0 {
			log.Warn().
				Str("source", source.Name()).
				Str("pattern", filepath.Join(dir, source.Pattern())).
				Msg("no export files for source")

			results = append(results, result)
			continue
		}

		for _, path := range paths {
			parsed, err := readFile(path, source, opts)
			if err != nil {
				return nil, fmt.Errorf("could not import %s: %w", path, err)
			}

			result.Transactions = append(result.Transactions, parsed.Transactions...)
			result.Files = append(result.Files, FileReport{
				Path:     path,
				Imported: len(parsed.Transactions),
				Skipped:  parsed.Skipped,
				Filtered: parsed.Filtered,
			})
		}

		results = append(results, result)
	}

	return results, nil
}

func readFile(path string, source Source, opts Options) (ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}, err
	}
	defer f.Close()

	r, err := encoding.NewUTF8Reader(f)
	if err != nil {
		return ParseResult{}, err
	}

	return source.Parse(r, opts)
}
