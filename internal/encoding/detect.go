// Package encoding detects the character encoding of bank export files
// and decodes them to UTF-8.
//
// Banks are not consistent about export encodings: the same institution
// can serve UTF-8 with or without a BOM, Windows-1252 or UTF-16
// depending on which export path produced the file. Everything
// downstream assumes UTF-8, so every input file is routed through
// NewUTF8Reader before it reaches a parser.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// peekSize is how many bytes are inspected for BOM detection and
// charset heuristics.
const peekSize = 4096

// NewUTF8Reader detects the encoding of the input and returns a reader
// that decodes the content to UTF-8.
//
// Detection order:
//  1. BOM (a UTF-8 BOM is stripped, UTF-16 LE/BE is decoded)
//  2. valid UTF-8 passes through unchanged
//  3. heuristic detection via chardet
//  4. fallback to Windows-1252
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)

	buf, err := br.Peek(peekSize)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peek: %w", err)
	}

	// A BOM decides the encoding on its own.
	if bytes.HasPrefix(buf, bomUTF8) {
		_, _ = br.Discard(len(bomUTF8))
		return br, nil
	}

	if bytes.HasPrefix(buf, bomUTF16LE) {
		return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()), nil
	}

	if bytes.HasPrefix(buf, bomUTF16BE) {
		return transform.NewReader(br, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()), nil
	}

	if utf8.Valid(buf) {
		return br, nil
	}

	// Heuristic detection for everything else. Windows-1252 is a strict
	// superset of ISO-8859-1 for printable bytes, so both map to the
	// same decoder.
	detector := chardet.NewTextDetector()

	result, detectErr := detector.DetectBest(buf)
	if detectErr == nil {
		switch result.Charset {
		case "UTF-8":
			return br, nil
		case "ISO-8859-1", "windows-1252":
			return transform.NewReader(br, charmap.Windows1252.NewDecoder()), nil
		case "ISO-8859-15":
			return transform.NewReader(br, charmap.ISO8859_15.NewDecoder()), nil
		}
	}

	// Anything unrecognized is treated as Windows-1252, the most common
	// legacy encoding among bank exports.
	return transform.NewReader(br, charmap.Windows1252.NewDecoder()), nil
}
