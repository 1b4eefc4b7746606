// Package pitch holds transposable pitch values measured in semitones from middle C.
package pitch

import (
	"fmt"
	"strings"
)

const (
	Octave     = 12
	middleCKey = 60
)

var letterSemitones = map[byte]int{
	'C': 0,
	'D': 2,
	'E': 4,
	'F': 5,
	'G': 7,
	'A': 9,
	'B': 11,
}

// spelling for each semitone class, sharps preferred.
var classNames = [Octave]string{"C", "^C", "D", "^D", "E", "F", "^F", "G", "^G", "A", "^A", "B"}

// Pitch is comparable and may be used as a map key.
type Pitch struct {
	value int
}

// New returns the pitch of an upper-case letter in the octave starting at middle C.
func New(letter byte) (Pitch, error) {
	v, ok := letterSemitones[letter]
	if !ok {
		return Pitch{}, fmt.Errorf("pitch: invalid letter %q", letter)
	}
	return Pitch{value: v}, nil
}

func (p Pitch) OctaveTranspose(n int) Pitch {
	return Pitch{value: p.value + n*Octave}
}

func (p Pitch) AccidentalTranspose(n int) Pitch {
	return Pitch{value: p.value + n}
}

// Class is the semitone position within the octave, 0 for C through 11 for B.
func (p Pitch) Class() int {
	return ((p.value % Octave) + Octave) % Octave
}

func (p Pitch) MIDINote() int { return middleCKey + p.value }

func (p Pitch) String() string {
	name := classNames[p.Class()]
	octave := floorDiv(p.value, Octave)
	var b strings.Builder
	if octave >= 1 {
		b.WriteString(strings.ToLower(name))
		b.WriteString(strings.Repeat("'", octave-1))
	} else {
		b.WriteString(name)
		b.WriteString(strings.Repeat(",", -octave))
	}
	return b.String()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
