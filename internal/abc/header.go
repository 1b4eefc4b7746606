package abc

import (
	"regexp"
	"strings"
)

// Header field letters.
const (
	FieldIndex    byte = 'X'
	FieldTitle    byte = 'T'
	FieldComposer byte = 'C'
	FieldLength   byte = 'L'
	FieldMeter    byte = 'M'
	FieldTempo    byte = 'Q'
	FieldVoice    byte = 'V'
	FieldKey      byte = 'K'
)

var knownFields = map[byte]bool{
	FieldIndex:    true,
	FieldTitle:    true,
	FieldComposer: true,
	FieldLength:   true,
	FieldMeter:    true,
	FieldTempo:    true,
	FieldVoice:    true,
	FieldKey:      true,
}

var keyLineRegex = regexp.MustCompile(`(?m)^K:[^\n]*`)

// Split separates the header, which ends with the first line starting
// with "K:", from the body that follows it.
func Split(input string) (header, body string, err error) {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	loc := keyLineRegex.FindStringIndex(input)
	if loc == nil {
		return "", "", structureErr(-1, "missing key field")
	}
	header = input[:loc[1]]
	body = strings.TrimPrefix(input[loc[1]:], "\n")
	return header, body, nil
}

// Header holds the fields of a tune header. Every field except V holds
// exactly one value.
type Header struct {
	values map[byte][]string
	order  []byte
}

// LexHeader reads header lines and enforces field ordering: X first,
// T second, K last.
func LexHeader(text string) (*Header, error) {
	h := &Header{values: make(map[byte][]string)}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "%") {
			continue
		}
		if len(line) < 2 {
			return nil, formatErr(-1, "header line %q too short", line)
		}
		if idx := strings.IndexByte(line, '%'); idx >= 0 {
			if idx < 2 {
				return nil, formatErr(-1, "comment inside field name in %q", line)
			}
			line = line[:idx]
		}
		if line[1] != ':' {
			return nil, formatErr(-1, "missing ':' in header line %q", line)
		}
		field := line[0]
		if !knownFields[field] {
			return nil, formatErr(-1, "unknown header field %q", string(field))
		}
		if err := h.add(field, strings.TrimSpace(line[2:])); err != nil {
			return nil, err
		}
	}
	if len(h.order) == 0 || h.order[len(h.order)-1] != FieldKey {
		return nil, structureErr(-1, "key field must be last")
	}
	return h, nil
}

func (h *Header) add(field byte, value string) error {
	_, seen := h.values[field]
	switch {
	case len(h.order) == 0 && field != FieldIndex:
		return structureErr(-1, "first field must be X, got %c", field)
	case len(h.order) == 1 && !seen && field != FieldTitle:
		return structureErr(-1, "second field must be T, got %c", field)
	case len(h.order) > 0 && h.order[len(h.order)-1] == FieldKey:
		return structureErr(-1, "field %c after key field", field)
	case seen && field != FieldVoice:
		return structureErr(-1, "duplicate field %c", field)
	}
	if !seen {
		h.order = append(h.order, field)
	}
	h.values[field] = append(h.values[field], value)
	return nil
}

// Get returns the first value of a field.
func (h *Header) Get(field byte) (string, bool) {
	v := h.values[field]
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}

func (h *Header) Values(field byte) []string {
	return append([]string(nil), h.values[field]...)
}

// Fields lists field letters in order of first appearance.
func (h *Header) Fields() []byte {
	return append([]byte(nil), h.order...)
}
