package abc

import (
	"sort"
	"strings"

	"github.com/cbegin/abcplay-go/internal/pitch"
)

// signature holds the semitone shift the key applies to each pitch class.
type signature [pitch.Octave]int

func (s signature) with(letter byte, shift int) signature {
	p, err := pitch.New(letter)
	if err != nil {
		panic(err)
	}
	s[p.Class()] += shift
	return s
}

var keySignatures = buildKeySignatures()

// buildKeySignatures walks the circle of fifths in both directions from
// C major / A minor, adding one accidental per step.
func buildKeySignatures() map[string]signature {
	keys := map[string]signature{"C": {}, "Am": {}}
	walk := func(majors, minors []string, letters string, shift int) {
		var sig signature
		for i := 1; i < len(majors); i++ {
			sig = sig.with(letters[i-1], shift)
			keys[majors[i]] = sig
			keys[minors[i]] = sig
		}
	}
	walk(
		[]string{"C", "F", "Bb", "Eb", "Ab", "Db", "Gb", "Cb"},
		[]string{"Am", "Dm", "Gm", "Cm", "Fm", "Bbm", "Ebm", "Abm"},
		"BEADGCF", -1,
	)
	walk(
		[]string{"C", "G", "D", "A", "E", "B", "F#", "C#"},
		[]string{"Am", "Em", "Bm", "F#m", "C#m", "G#m", "D#m", "A#m"},
		"FCGDAEB", +1,
	)
	return keys
}

// KeyNames lists every recognized key signature.
func KeyNames() []string {
	names := make([]string, 0, len(keySignatures))
	for k := range keySignatures {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Modifiers resolves the sounding pitch of a written note: the key
// signature applies everywhere, and accidentals read in the current bar
// override it for the same written pitch.
type Modifiers struct {
	key signature
	bar map[pitch.Pitch]pitch.Pitch
}

// KeySignature returns the bar-start modifiers for a key.
func KeySignature(name string) (Modifiers, error) {
	sig, ok := keySignatures[name]
	if !ok {
		return Modifiers{}, formatErr(-1, "unrecognized key signature %q, want one of %s", name, strings.Join(KeyNames(), " "))
	}
	return Modifiers{key: sig, bar: map[pitch.Pitch]pitch.Pitch{}}, nil
}

// Reset returns the modifiers in effect at the start of a bar.
func (m Modifiers) Reset() Modifiers {
	return Modifiers{key: m.key, bar: map[pitch.Pitch]pitch.Pitch{}}
}

// Apply records the accidental for base for the rest of the bar.
func (m Modifiers) Apply(base pitch.Pitch, accidental string) error {
	p := base
	for i := 0; i < len(accidental); i++ {
		switch accidental[i] {
		case '=':
			p = base
		case '^':
			p = p.AccidentalTranspose(1)
		case '_':
			p = p.AccidentalTranspose(-1)
		default:
			return formatErr(-1, "unrecognized accidental %q", accidental)
		}
	}
	m.bar[base] = p
	return nil
}

func (m Modifiers) Resolve(base pitch.Pitch) pitch.Pitch {
	if p, ok := m.bar[base]; ok {
		return p
	}
	return base.AccidentalTranspose(m.key[base.Class()])
}
