package abc

import (
	"regexp"
	"strings"
)

// bodyRegex has one group per token kind, in the order of tokenKinds.
var bodyRegex = regexp.MustCompile(
	`(V:[^\n]+)|(%[^\n]*)|(\[[12])|([\^_=]+)|([a-gA-Gz])|([0-9]*/[0-9]*|[0-9]+)|([',]+)|` +
		`(\[\|)|(\|\])|(\|:)|(:\|)|(\[)|(\])|(\()|(\|)`)

var tokenKinds = [...]Kind{
	KindVoice,
	KindComment,
	KindExtraRepeat,
	KindAccidental,
	KindNoteOrRest,
	KindLengthFactor,
	KindOctaveModifier,
	KindSectionBegin,
	KindSectionEnd,
	KindRepeatBegin,
	KindRepeatEnd,
	KindBeginChord,
	KindEndChord,
	KindBeginTuplet,
	KindBar,
}

type lexeme struct {
	tok        Token
	start, end int
}

// Lexer walks the body tokens. Tokens are lexed once up front; replaying
// a repeated section moves the cursor back and marks consumed tokens as
// deleted instead of rewriting the text.
type Lexer struct {
	src     string
	items   []lexeme
	deleted []bool
	pos     int
	history []int
}

func NewLexer(body string) *Lexer {
	var items []lexeme
	for _, m := range bodyRegex.FindAllStringSubmatchIndex(body, -1) {
		for g, kind := range tokenKinds {
			start, end := m[2+2*g], m[3+2*g]
			if start < 0 {
				continue
			}
			items = append(items, lexeme{
				tok:   Token{Kind: kind, Text: body[start:end]},
				start: start,
				end:   end,
			})
			break
		}
	}
	return &Lexer{
		src:     body,
		items:   items,
		deleted: make([]bool, len(items)),
	}
}

func (l *Lexer) nextIndex() int {
	i := l.pos
	for i < len(l.items) && l.deleted[i] {
		i++
	}
	return i
}

// Peek returns the next token without moving the cursor.
func (l *Lexer) Peek() Token {
	i := l.nextIndex()
	if i >= len(l.items) {
		return endOfInput
	}
	return l.items[i].tok
}

// Next returns the next token and records it for DeleteLast.
func (l *Lexer) Next() Token {
	i := l.nextIndex()
	if i >= len(l.items) {
		l.pos = len(l.items)
		return endOfInput
	}
	l.pos = i + 1
	l.history = append(l.history, i)
	return l.items[i].tok
}

// Offset is the byte position just past the last consumed token.
func (l *Lexer) Offset() int {
	for i := l.pos - 1; i >= 0; i-- {
		if !l.deleted[i] {
			return l.items[i].end
		}
	}
	return 0
}

// DeleteLast removes the most recently advanced token from the stream and
// moves the cursor back to where it started.
func (l *Lexer) DeleteLast() bool {
	if len(l.history) == 0 {
		return false
	}
	i := l.history[len(l.history)-1]
	l.history = l.history[:len(l.history)-1]
	l.deleted[i] = true
	l.pos = i
	return true
}

// RewindTo moves the cursor to the last occurrence of marker that starts
// at or before the cursor.
func (l *Lexer) RewindTo(marker string) bool {
	limit := l.Offset() + len(marker)
	if limit > len(l.src) {
		limit = len(l.src)
	}
	at := strings.LastIndex(l.src[:limit], marker)
	if at < 0 {
		return false
	}
	l.pos = len(l.items)
	for i, it := range l.items {
		if it.end > at {
			l.pos = i
			break
		}
	}
	return true
}

// RewindToRepeatStart moves the cursor back to the nearest live voice,
// repeat-begin or section-begin token. When there is none it resets to the
// start of the body and returns false.
func (l *Lexer) RewindToRepeatStart() bool {
	for i := l.pos - 1; i >= 0; i-- {
		if l.deleted[i] {
			continue
		}
		switch l.items[i].tok.Kind {
		case KindVoice, KindRepeatBegin, KindSectionBegin:
			l.pos = i
			return true
		}
	}
	l.pos = 0
	return false
}

// Tokens returns all live tokens from the cursor to the end without
// consuming them.
func (l *Lexer) Tokens() []Token {
	var out []Token
	for i := l.pos; i < len(l.items); i++ {
		if !l.deleted[i] {
			out = append(out, l.items[i].tok)
		}
	}
	return out
}
