package abc

import (
	"strconv"
	"strings"

	"github.com/cbegin/abcplay-go/internal/pitch"
	"github.com/cbegin/abcplay-go/internal/rational"
)

// DefaultVoice names the single voice of a tune whose header declares none.
const DefaultVoice = "default"

type ParserConfig struct {
	DefaultTempo    int
	DefaultLength   rational.Rational
	DefaultMeter    string
	DefaultComposer string
	DefaultTitle    string
	// BaseResolution is the starting number of ticks per whole note.
	BaseResolution int
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		DefaultTempo:    100,
		DefaultLength:   rational.MustNew(1, 8),
		DefaultMeter:    "4/4",
		DefaultComposer: "Unknown Piece composer",
		DefaultTitle:    "Unknown Piece Title",
		BaseResolution:  4,
	}
}

var tupletFactors = map[string]rational.Rational{
	"2": rational.MustNew(3, 2),
	"3": rational.MustNew(2, 3),
	"4": rational.MustNew(3, 4),
}

type Parser struct {
	cfg ParserConfig
}

func NewParser(cfg ParserConfig) *Parser {
	if cfg.BaseResolution <= 0 {
		cfg.BaseResolution = 4
	}
	if cfg.DefaultLength.Num() <= 0 {
		cfg.DefaultLength = rational.MustNew(1, 8)
	}
	return &Parser{cfg: cfg}
}

// Parse compiles a whole tune, header and body.
func (p *Parser) Parse(input string) (*Song, error) {
	headerText, body, err := Split(input)
	if err != nil {
		return nil, err
	}
	header, err := LexHeader(headerText)
	if err != nil {
		return nil, err
	}
	song, err := p.newSong(header)
	if err != nil {
		return nil, err
	}
	keyMods, err := KeySignature(song.Key)
	if err != nil {
		return nil, err
	}
	st := &parseState{
		lx:      NewLexer(body),
		song:    song,
		keyMods: keyMods,
		mods:    keyMods.Reset(),
	}
	if song.ImplicitVoice() {
		st.voice = DefaultVoice
	} else {
		st.voice = song.voices[0].Name
	}
	if err := st.run(); err != nil {
		return nil, err
	}
	if _, err := song.endTick(); err != nil {
		return nil, &Error{Kind: ErrUndefined, Offset: len(body), Msg: "song too long for its resolution", Err: err}
	}
	return song, nil
}

func (p *Parser) newSong(h *Header) (*Song, error) {
	s := &Song{
		Title:         p.cfg.DefaultTitle,
		Composer:      p.cfg.DefaultComposer,
		Meter:         p.cfg.DefaultMeter,
		DefaultLength: p.cfg.DefaultLength,
		Tempo:         p.cfg.DefaultTempo,
		Resolution:    p.cfg.BaseResolution,
		byName:        make(map[string]*Voice),
		length:        rational.Zero,
	}
	s.Index, _ = h.Get(FieldIndex)
	if v, ok := h.Get(FieldTitle); ok {
		s.Title = v
	}
	if v, ok := h.Get(FieldComposer); ok && v != "" {
		s.Composer = v
	}
	if v, ok := h.Get(FieldMeter); ok && v != "" {
		s.Meter = v
	}
	s.Key, _ = h.Get(FieldKey)
	if v, ok := h.Get(FieldLength); ok {
		l, err := rational.Parse(v)
		if err != nil {
			return nil, lengthErr(-1, v, err)
		}
		if l.Num() <= 0 {
			return nil, formatErr(-1, "default length %v must be positive", l)
		}
		s.DefaultLength = l
	}
	if v, ok := h.Get(FieldTempo); ok {
		tempo, err := strconv.Atoi(v)
		if err != nil || tempo <= 0 {
			return nil, formatErr(-1, "tempo %q is not a positive integer", v)
		}
		s.Tempo = tempo
	}
	names := h.Values(FieldVoice)
	if len(names) == 0 {
		s.implicit = true
		s.addVoice(DefaultVoice)
		return s, nil
	}
	for _, name := range names {
		if !s.addVoice(strings.TrimSpace(name)) {
			return nil, structureErr(-1, "voice %q declared twice", name)
		}
	}
	return s, nil
}

type parseState struct {
	lx      *Lexer
	song    *Song
	voice   string
	keyMods Modifiers
	mods    Modifiers
	// skipEnding is set while reading a first ending; its tokens are
	// deleted as they are consumed so the replay skips them.
	skipEnding bool
}

func (st *parseState) next() Token {
	tok := st.lx.Next()
	if st.skipEnding && tok.Kind != KindEndOfInput {
		st.lx.DeleteLast()
	}
	return tok
}

func (st *parseState) run() error {
	for {
		tok := st.next()
		switch tok.Kind {
		case KindEndOfInput:
			return nil
		case KindComment:
		case KindVoice:
			if err := st.switchVoice(tok.Text); err != nil {
				return err
			}
		case KindAccidental, KindNoteOrRest:
			n, err := st.noteAfter(tok)
			if err != nil {
				return err
			}
			if err := st.appendChord(NewChord(n)); err != nil {
				return err
			}
		case KindBeginChord:
			if err := st.chord(); err != nil {
				return err
			}
		case KindEndChord:
			return structureErr(st.lx.Offset(), "chord end without chord start")
		case KindBeginTuplet:
			if err := st.tuplet(); err != nil {
				return err
			}
		case KindBar, KindRepeatBegin, KindSectionBegin, KindSectionEnd:
			st.mods = st.keyMods.Reset()
		case KindRepeatEnd:
			if err := st.repeatEnd(); err != nil {
				return err
			}
		case KindExtraRepeat:
			if tok.Text == "[1" {
				if !st.skipEnding {
					st.lx.DeleteLast()
				}
				st.skipEnding = true
			}
		case KindOctaveModifier, KindLengthFactor:
			return structureErr(st.lx.Offset(), "%v %q must follow a note", tok.Kind, tok.Text)
		default:
			return structureErr(st.lx.Offset(), "unexpected %v %q", tok.Kind, tok.Text)
		}
	}
}

func (st *parseState) appendChord(c *Chord) error {
	if err := st.song.appendChord(st.voice, c); err != nil {
		return &Error{Kind: ErrUndefined, Offset: st.lx.Offset(), Msg: "voice length", Err: err}
	}
	return nil
}

func (st *parseState) switchVoice(text string) error {
	name := strings.TrimSpace(strings.TrimPrefix(text, "V:"))
	if st.song.ImplicitVoice() {
		return structureErr(st.lx.Offset(), "voice %q used but header declares no voices", name)
	}
	if _, ok := st.song.Voice(name); !ok {
		return structureErr(st.lx.Offset(), "undeclared voice %q", name)
	}
	st.voice = name
	return nil
}

// repeatEnd replays the section that ends here. The closing marker is
// deleted first, so each marker triggers at most one replay.
func (st *parseState) repeatEnd() error {
	if !st.skipEnding {
		st.lx.DeleteLast()
	}
	st.skipEnding = false
	if !st.lx.RewindToRepeatStart() {
		return structureErr(st.lx.Offset(), "repeat end without repeat start")
	}
	return nil
}

// noteAfter reads a note whose first token, an accidental or the note
// itself, has already been consumed.
func (st *parseState) noteAfter(first Token) (*Note, error) {
	accidental := ""
	letter := first
	if first.Kind == KindAccidental {
		if next := st.lx.Peek(); next.Kind != KindNoteOrRest {
			return nil, structureErr(st.lx.Offset(), "accidental %q not followed by a note", first.Text)
		}
		accidental = first.Text
		letter = st.next()
	}
	octaves := ""
	if st.lx.Peek().Kind == KindOctaveModifier {
		octaves = st.next().Text
	}
	lengthText := ""
	if st.lx.Peek().Kind == KindLengthFactor {
		lengthText = st.next().Text
	}
	return st.buildNote(letter.Text, accidental, octaves, lengthText)
}

func (st *parseState) buildNote(letter, accidental, octaves, lengthText string) (*Note, error) {
	multiplier := rational.One
	if lengthText != "" {
		m, err := rational.Parse(lengthText)
		if err != nil {
			return nil, lengthErr(st.lx.Offset(), lengthText, err)
		}
		if m.Num() <= 0 {
			return nil, formatErr(st.lx.Offset(), "length %q must be positive", lengthText)
		}
		multiplier = m
	}
	length, err := st.song.DefaultLength.Mul(multiplier)
	if err == nil {
		err = st.song.widen(length.Den())
	}
	if err != nil {
		return nil, lengthErr(st.lx.Offset(), lengthText, err)
	}

	if letter == "z" {
		return NewRest(length), nil
	}
	base, err := pitch.New(strings.ToUpper(letter)[0])
	if err != nil {
		return nil, formatErr(st.lx.Offset(), "note %q: %v", letter, err)
	}
	if letter[0] >= 'a' && letter[0] <= 'g' {
		base = base.OctaveTranspose(1)
	}
	for i := 0; i < len(octaves); i++ {
		switch octaves[i] {
		case '\'':
			base = base.OctaveTranspose(1)
		case ',':
			base = base.OctaveTranspose(-1)
		default:
			return nil, formatErr(st.lx.Offset(), "unrecognized octave modifier %q", octaves)
		}
	}
	if accidental != "" {
		if err := st.mods.Apply(base, accidental); err != nil {
			return nil, at(err, st.lx.Offset())
		}
	}
	return NewNote(st.mods.Resolve(base), length), nil
}

// expectNote consumes one note, with optional accidental, inside a chord
// or tuplet.
func (st *parseState) expectNote() (*Note, error) {
	tok := st.next()
	if tok.Kind != KindAccidental && tok.Kind != KindNoteOrRest {
		return nil, structureErr(st.lx.Offset(), "expected note, got %v %q", tok.Kind, tok.Text)
	}
	return st.noteAfter(tok)
}

func (st *parseState) chord() error {
	c := &Chord{}
	for st.lx.Peek().Kind != KindEndChord {
		n, err := st.expectNote()
		if err != nil {
			return err
		}
		if err := c.Add(n); err != nil {
			return at(err, st.lx.Offset())
		}
	}
	st.next()
	if len(c.notes) == 0 {
		return structureErr(st.lx.Offset(), "empty chord")
	}
	return st.appendChord(c)
}

func (st *parseState) tuplet() error {
	count := st.next()
	factor, ok := tupletFactors[count.Text]
	if count.Kind != KindLengthFactor || !ok {
		return structureErr(st.lx.Offset(), "tuplet count %q must be 2, 3 or 4", count.Text)
	}
	n, _ := strconv.Atoi(count.Text)
	for i := 0; i < n; i++ {
		note, err := st.expectNote()
		if err != nil {
			return err
		}
		length, err := note.length.Mul(factor)
		if err == nil {
			err = st.song.widen(length.Den())
		}
		if err != nil {
			return lengthErr(st.lx.Offset(), note.length.String(), err)
		}
		note.length = length
		if err := st.appendChord(NewChord(note)); err != nil {
			return err
		}
	}
	return nil
}
