package abc

import (
	"time"

	"github.com/cbegin/abcplay-go/internal/pitch"
	"github.com/cbegin/abcplay-go/internal/rational"
)

// Element is a node of the score tree: *Note, *Chord, *Voice or *Song.
type Element interface {
	Length() rational.Rational
	element()
}

type Note struct {
	Pitch  pitch.Pitch
	Rest   bool
	length rational.Rational
}

func NewNote(p pitch.Pitch, length rational.Rational) *Note {
	return &Note{Pitch: p, length: length}
}

func NewRest(length rational.Rational) *Note {
	return &Note{Rest: true, length: length}
}

func (n *Note) Length() rational.Rational { return n.length }
func (*Note) element()                     {}

// Chord is a group of notes starting together. The first note added fixes
// the chord length.
type Chord struct {
	notes []*Note
}

func NewChord(notes ...*Note) *Chord {
	c := &Chord{}
	for _, n := range notes {
		if err := c.Add(n); err != nil {
			panic(err)
		}
	}
	return c
}

// Add appends a note. A note longer than the chord is clipped to the chord
// length; a shorter one is rejected.
func (c *Chord) Add(n *Note) error {
	if len(c.notes) > 0 {
		switch n.length.Cmp(c.notes[0].length) {
		case 1:
			n.length = c.notes[0].length
		case -1:
			return structureErr(-1, "chord note length %v shorter than chord length %v", n.length, c.notes[0].length)
		}
	}
	c.notes = append(c.notes, n)
	return nil
}

func (c *Chord) Notes() []*Note { return c.notes }

func (c *Chord) Length() rational.Rational {
	if len(c.notes) == 0 {
		panic("abc: length of empty chord")
	}
	return c.notes[0].length
}

func (*Chord) element() {}

type Voice struct {
	Name   string
	chords []*Chord
	length rational.Rational
}

func NewVoice(name string) *Voice {
	return &Voice{Name: name, length: rational.Zero}
}

func (v *Voice) Append(c *Chord) error {
	l, err := v.length.Add(c.Length())
	if err != nil {
		return err
	}
	v.chords = append(v.chords, c)
	v.length = l
	return nil
}

func (v *Voice) Chords() []*Chord          { return v.chords }
func (v *Voice) Length() rational.Rational { return v.length }
func (*Voice) element()                    {}

type Song struct {
	Index         string
	Title         string
	Composer      string
	Key           string
	Meter         string
	DefaultLength rational.Rational
	// Tempo counts default-length notes per minute.
	Tempo int
	// Resolution is ticks per whole note. It only grows, always to a
	// multiple of every note length denominator seen.
	Resolution int

	voices   []*Voice
	byName   map[string]*Voice
	implicit bool
	length   rational.Rational
}

func (s *Song) Voices() []*Voice { return s.voices }

func (s *Song) Voice(name string) (*Voice, bool) {
	v, ok := s.byName[name]
	return v, ok
}

// ImplicitVoice reports whether the header declared no voices, leaving a
// single unnamed line.
func (s *Song) ImplicitVoice() bool { return s.implicit }

func (s *Song) Length() rational.Rational { return s.length }
func (*Song) element()                    {}

func (s *Song) addVoice(name string) bool {
	if _, dup := s.byName[name]; dup {
		return false
	}
	v := NewVoice(name)
	s.voices = append(s.voices, v)
	s.byName[name] = v
	return true
}

func (s *Song) appendChord(voice string, c *Chord) error {
	v := s.byName[voice]
	if err := v.Append(c); err != nil {
		return err
	}
	if v.length.Cmp(s.length) > 0 {
		s.length = v.length
	}
	return nil
}

// widen grows the resolution so that lengths with denominator den land on
// whole ticks.
func (s *Song) widen(den int) error {
	l, err := rational.LCM(s.Resolution, den)
	if err != nil {
		return err
	}
	s.Resolution = l
	return nil
}

// endTick is the song length in ticks, or ErrOverflow if it does not fit.
func (s *Song) endTick() (int, error) {
	return rational.MulInt(s.length.Num(), s.Resolution/s.length.Den())
}

// QuarterTempo is the tempo in quarter notes per minute.
func (s *Song) QuarterTempo() int {
	return 4 * s.Tempo * s.DefaultLength.Num() / s.DefaultLength.Den()
}

func (s *Song) TicksPerQuarter() int {
	return s.Resolution / 4
}

// Duration is the wall-clock length of the song at its tempo.
func (s *Song) Duration() time.Duration {
	if s.Tempo <= 0 {
		return 0
	}
	notes := s.length.Float64() / s.DefaultLength.Float64()
	return time.Duration(notes * float64(time.Minute) / float64(s.Tempo))
}

// SongInfo is the header summary of a song.
type SongInfo struct {
	Index         string        `json:"index"`
	Title         string        `json:"title"`
	Composer      string        `json:"composer"`
	Voices        []string      `json:"voices"`
	Meter         string        `json:"meter"`
	DefaultLength string        `json:"defaultLength"`
	Tempo         int           `json:"tempo"`
	Key           string        `json:"key"`
	Length        string        `json:"length"`
	Duration      time.Duration `json:"duration"`
}

func (s *Song) Info() SongInfo {
	names := make([]string, 0, len(s.voices))
	for _, v := range s.voices {
		names = append(names, v.Name)
	}
	return SongInfo{
		Index:         s.Index,
		Title:         s.Title,
		Composer:      s.Composer,
		Voices:        names,
		Meter:         s.Meter,
		DefaultLength: s.DefaultLength.String(),
		Tempo:         s.Tempo,
		Key:           s.Key,
		Length:        s.length.String(),
		Duration:      s.Duration(),
	}
}
