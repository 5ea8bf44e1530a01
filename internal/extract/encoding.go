//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package extract

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names reported in Frame.Encoding.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-bom"
	EncodingUTF16LE = "utf-16le"
	EncodingUTF16BE = "utf-16be"
	EncodingLatin1  = "latin-1"
)

// sniffSize is how much of the input is inspected to pick an encoding.
const sniffSize = 64 * 1024

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// NewDecodingReader wraps r so that it yields UTF-8 without a byte order
// mark. A BOM selects UTF-8 or UTF-16; input without one is read as UTF-8
// when the sniffed prefix is valid UTF-8 and as Latin-1 otherwise.
func NewDecodingReader(r io.Reader) (io.Reader, string) {
	br := bufio.NewReaderSize(r, sniffSize)
	head, _ := br.Peek(sniffSize)

	name := EncodingUTF8
	fallback := unicode.UTF8.NewDecoder()
	switch {
	case bytes.HasPrefix(head, bomUTF8):
		name = EncodingUTF8BOM
	case bytes.HasPrefix(head, bomUTF16LE):
		name = EncodingUTF16LE
	case bytes.HasPrefix(head, bomUTF16BE):
		name = EncodingUTF16BE
	case !utf8.Valid(trimPartialRune(head)):
		name = EncodingLatin1
		fallback = charmap.ISO8859_1.NewDecoder()
	}

	return transform.NewReader(br, unicode.BOMOverride(fallback)), name
}

// trimPartialRune drops an incomplete multi-byte sequence cut off at the
// end of a sniffed prefix.
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}
