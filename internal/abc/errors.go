package abc

import (
	"errors"
	"fmt"

	"github.com/cbegin/abcplay-go/internal/rational"
)

var (
	// ErrFormat marks malformed text: a bad header line, field letter,
	// fraction, accidental or key name.
	ErrFormat = errors.New("format error")
	// ErrStructure marks well-formed tokens in an invalid arrangement.
	ErrStructure = errors.New("structural error")
	// ErrUndefined marks arithmetic without a result, such as a 0/0 length.
	ErrUndefined = rational.ErrUndefined
)

// Error is returned for every failed parse. Offset is the byte offset in
// the body where the failure was detected, or -1 for header errors.
type Error struct {
	Kind   error
	Offset int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("abc: %v at %d: %s", e.Kind, e.Offset, msg)
	}
	return fmt.Sprintf("abc: %v: %s", e.Kind, msg)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func formatErr(offset int, format string, args ...any) error {
	return &Error{Kind: ErrFormat, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func structureErr(offset int, format string, args ...any) error {
	return &Error{Kind: ErrStructure, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// lengthErr classifies a rational failure as a format or undefined error.
func lengthErr(offset int, text string, err error) error {
	kind := ErrFormat
	if errors.Is(err, rational.ErrUndefined) {
		kind = ErrUndefined
	}
	return &Error{Kind: kind, Offset: offset, Msg: fmt.Sprintf("length %q", text), Err: err}
}

// at attaches a body offset to an error raised without one.
func at(err error, offset int) error {
	var e *Error
	if errors.As(err, &e) && e.Offset < 0 {
		e.Offset = offset
	}
	return err
}
