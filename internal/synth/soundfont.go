package synth

import (
	"io"
	"math"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

const (
	sfChannel   = 0
	sfBlockSize = 64
)

// synthesizer is the subset of meltysynth.Synthesizer the engine uses.
type synthesizer interface {
	ProcessMidiMessage(channel int32, command int32, data1, data2 int32)
	NoteOn(channel, key, vel int32)
	NoteOff(channel, key int32)
	Render(left, right []float32)
}

// SoundFont renders notes through a General MIDI SoundFont. Frames are
// rendered in blocks, so note changes take effect at the next block.
type SoundFont struct {
	syn        synthesizer
	left       []float32
	right      []float32
	pos        int
	program    int
	nextID     int
	held       map[int]int32 // voice id -> key
	tail       int           // frames left before a released note is treated as silent
	tailFrames int
	masterGain uint64
}

// LoadSoundFont reads an .sf2 file.
func LoadSoundFont(path string, sampleRate int) (*SoundFont, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open soundfont")
	}
	defer f.Close()
	return NewSoundFont(f, sampleRate)
}

func NewSoundFont(r io.Reader, sampleRate int) (*SoundFont, error) {
	sf, err := meltysynth.NewSoundFont(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse soundfont")
	}
	settings := meltysynth.NewSynthesizerSettings(int32(sampleRate))
	settings.BlockSize = sfBlockSize
	syn, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, errors.Wrap(err, "create synthesizer")
	}
	return newSoundFontEngine(syn, sampleRate), nil
}

func newSoundFontEngine(syn synthesizer, sampleRate int) *SoundFont {
	return &SoundFont{
		syn:        syn,
		left:       make([]float32, sfBlockSize),
		right:      make([]float32, sfBlockSize),
		pos:        sfBlockSize,
		program:    -1,
		held:       make(map[int]int32),
		tailFrames: sampleRate,
		masterGain: math.Float64bits(1),
	}
}

func (s *SoundFont) NoteOn(note int, velocity int, pan int, program int) int {
	if program != s.program {
		s.syn.ProcessMidiMessage(sfChannel, 0xC0, int32(program), 0)
		s.program = program
	}
	key := int32(clampInt(note, 0, 127))
	s.syn.NoteOn(sfChannel, key, int32(clampInt(velocity, 1, 127)))
	id := s.nextID
	s.nextID++
	s.held[id] = key
	return id
}

func (s *SoundFont) NoteOff(id int) {
	key, ok := s.held[id]
	if !ok {
		return
	}
	delete(s.held, id)
	for _, other := range s.held {
		if other == key {
			// the same key is still held by a later note-on
			return
		}
	}
	s.syn.NoteOff(sfChannel, key)
	s.tail = s.tailFrames
}

func (s *SoundFont) RenderFrame() (float32, float32) {
	if s.pos >= len(s.left) {
		s.syn.Render(s.left, s.right)
		s.pos = 0
	}
	g := float32(math.Float64frombits(atomic.LoadUint64(&s.masterGain)))
	l, r := s.left[s.pos]*g, s.right[s.pos]*g
	s.pos++
	if len(s.held) == 0 && s.tail > 0 {
		s.tail--
	}
	return l, r
}

func (s *SoundFont) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&s.masterGain, math.Float64bits(gain))
}

// ActiveVoiceCount counts held notes, plus one while a release tail rings.
func (s *SoundFont) ActiveVoiceCount() int {
	n := len(s.held)
	if n == 0 && s.tail > 0 {
		return 1
	}
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
