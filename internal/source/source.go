// Package source reads ABC text from disk into normalized UTF-8.
package source

import (
	"bytes"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Load reads and decodes the file at path.
func Load(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	text, err := Decode(raw)
	if err != nil {
		return "", errors.Wrapf(err, "decode %s", path)
	}
	return text, nil
}

// Decode turns raw tune bytes into NFC-normalized text with LF line endings.
// Bytes that are not valid UTF-8 are read as ISO-8859-1, the usual encoding
// of older tune collections.
func Decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, bom)
	if !utf8.Valid(raw) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", errors.Wrap(err, "latin-1")
		}
		raw = decoded
	}
	text := norm.NFC.String(string(raw))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}
