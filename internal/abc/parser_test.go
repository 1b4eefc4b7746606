package abc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/abcplay-go/internal/pitch"
	"github.com/cbegin/abcplay-go/internal/rational"
)

const plainHeader = "X:1\nT:Test\nK:C\n"

func parse(t *testing.T, input string) *Song {
	t.Helper()
	song, err := NewParser(DefaultParserConfig()).Parse(input)
	require.NoError(t, err)
	return song
}

func parseErr(t *testing.T, input string) error {
	t.Helper()
	_, err := NewParser(DefaultParserConfig()).Parse(input)
	require.Error(t, err)
	return err
}

func mustPitch(t *testing.T, letter byte) pitch.Pitch {
	t.Helper()
	p, err := pitch.New(letter)
	require.NoError(t, err)
	return p
}

// singleNotes returns the only note of each chord in a voice.
func singleNotes(t *testing.T, v *Voice) []*Note {
	t.Helper()
	var out []*Note
	for _, c := range v.Chords() {
		require.Len(t, c.Notes(), 1)
		out = append(out, c.Notes()[0])
	}
	return out
}

func defaultVoice(t *testing.T, s *Song) *Voice {
	t.Helper()
	v, ok := s.Voice(DefaultVoice)
	require.True(t, ok)
	return v
}

func TestParseRepeatWithEndings(t *testing.T) {
	song := parse(t, plainHeader+"|: A |[1 B :|[2 C |")
	notes := singleNotes(t, defaultVoice(t, song))
	require.Len(t, notes, 4)

	want := []byte{'A', 'B', 'A', 'C'}
	for i, n := range notes {
		assert.Equal(t, mustPitch(t, want[i]), n.Pitch, "note %d", i)
		assert.Equal(t, song.DefaultLength, n.Length(), "note %d", i)
	}
}

func TestParseRepeatWithoutEndings(t *testing.T) {
	song := parse(t, plainHeader+"C |: D E :| F")
	notes := singleNotes(t, defaultVoice(t, song))
	var got []int
	for _, n := range notes {
		got = append(got, n.Pitch.MIDINote())
	}
	assert.Equal(t, []int{60, 62, 64, 62, 64, 65}, got)
}

func TestParseConsecutiveRepeats(t *testing.T) {
	song := parse(t, plainHeader+"|: C :| |: D :|")
	var got []int
	for _, n := range singleNotes(t, defaultVoice(t, song)) {
		got = append(got, n.Pitch.MIDINote())
	}
	assert.Equal(t, []int{60, 60, 62, 62}, got)
}

func TestParseUnmatchedRepeatEndFails(t *testing.T) {
	err := parseErr(t, plainHeader+"C D :|")
	assert.True(t, errors.Is(err, ErrStructure), "got %v", err)
}

func TestParseAccidentalsPersistWithinBar(t *testing.T) {
	song := parse(t, plainHeader+"^aa_a=a2")
	notes := singleNotes(t, defaultVoice(t, song))
	require.Len(t, notes, 4)

	a := mustPitch(t, 'A').OctaveTranspose(1)
	assert.Equal(t, a.AccidentalTranspose(1), notes[0].Pitch)
	assert.Equal(t, a.AccidentalTranspose(1), notes[1].Pitch)
	assert.Equal(t, a.AccidentalTranspose(-1), notes[2].Pitch)
	assert.Equal(t, a, notes[3].Pitch)
	for _, n := range notes[:3] {
		assert.Equal(t, rational.MustNew(1, 8), n.Length())
	}
	assert.Equal(t, rational.MustNew(1, 4), notes[3].Length())
}

func TestParseBarResetsAccidentals(t *testing.T) {
	song := parse(t, plainHeader+"^C C | C")
	var got []int
	for _, n := range singleNotes(t, defaultVoice(t, song)) {
		got = append(got, n.Pitch.MIDINote())
	}
	assert.Equal(t, []int{61, 61, 60}, got)
}

func TestParseKeySignatures(t *testing.T) {
	cases := []struct {
		key  string
		body string
		want []int
	}{
		{"G", "F f F,", []int{66, 78, 54}},
		{"F", "B =B | B", []int{70, 71, 70}},
		{"Em", "F G", []int{66, 67}},
		{"Eb", "E A B c", []int{63, 68, 70, 72}},
		{"C#", "^B", []int{72}},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			song := parse(t, "X:1\nT:Keys\nK:"+tc.key+"\n"+tc.body)
			var got []int
			for _, e := range song.Events() {
				got = append(got, e.Note)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseUnknownKeyFails(t *testing.T) {
	err := parseErr(t, "X:1\nT:t\nK:H\nC")
	assert.True(t, errors.Is(err, ErrFormat), "got %v", err)
}

func TestParseOctaves(t *testing.T) {
	song := parse(t, plainHeader+"F,,, c C' c''")
	var got []int
	for _, n := range singleNotes(t, defaultVoice(t, song)) {
		got = append(got, n.Pitch.MIDINote())
	}
	assert.Equal(t, []int{29, 72, 72, 96}, got)
}

func TestParseLengths(t *testing.T) {
	song := parse(t, plainHeader+"b/2 C3/2 D/ E2 z4")
	notes := singleNotes(t, defaultVoice(t, song))
	want := []rational.Rational{
		rational.MustNew(1, 16),
		rational.MustNew(3, 16),
		rational.MustNew(1, 16),
		rational.MustNew(1, 4),
		rational.MustNew(1, 2),
	}
	require.Len(t, notes, len(want))
	for i, n := range notes {
		assert.Equal(t, want[i], n.Length(), "note %d", i)
	}
	assert.True(t, notes[4].Rest)
	assert.Equal(t, 16, song.Resolution)
	assert.Equal(t, rational.MustNew(17, 16), song.Length())
}

func TestParseZeroDenominatorIsUndefined(t *testing.T) {
	err := parseErr(t, plainHeader+"C/0")
	assert.True(t, errors.Is(err, ErrUndefined), "got %v", err)
}

func TestParseZeroLengthIsRejected(t *testing.T) {
	for _, body := range []string{"C0 D", "C0/4", "[C0E]"} {
		err := parseErr(t, plainHeader+body)
		assert.True(t, errors.Is(err, ErrFormat), "%q: got %v", body, err)
	}
}

func TestParseResolutionOverflow(t *testing.T) {
	primes := "C/97 C/89 C/83 C/79 C/73 C/71 C/67 C/61 C/59"
	err := parseErr(t, plainHeader+primes+" C/53 C/47")
	assert.True(t, errors.Is(err, ErrUndefined), "got %v", err)
	assert.True(t, errors.Is(err, rational.ErrOverflow), "got %v", err)
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, len(primes+" C/53"), perr.Offset)

	// the tuplet factor pushes an otherwise valid resolution past the limit
	err = parseErr(t, plainHeader+primes+" C/5 C/2 (3CDE")
	assert.True(t, errors.Is(err, rational.ErrOverflow), "got %v", err)
}

func TestParseSongLengthOverflow(t *testing.T) {
	err := parseErr(t, plainHeader+"C9223372036854775807 C9223372036854775807")
	assert.True(t, errors.Is(err, rational.ErrOverflow), "got %v", err)

	// each voice fits, but the longest one no longer does in ticks
	err = parseErr(t, "X:1\nT:t\nV:a\nV:b\nK:C\nV:a\nC9223372036854775807\nV:b\nC/3")
	assert.True(t, errors.Is(err, ErrUndefined), "got %v", err)
	assert.True(t, errors.Is(err, rational.ErrOverflow), "got %v", err)
}

func TestParseChords(t *testing.T) {
	song := parse(t, plainHeader+"[CGb] [CE2] D")
	chords := defaultVoice(t, song).Chords()
	require.Len(t, chords, 3)

	assert.Len(t, chords[0].Notes(), 3)
	assert.Equal(t, mustPitch(t, 'B').OctaveTranspose(1), chords[0].Notes()[2].Pitch)
	// longer notes are clipped to the first note's length
	assert.Equal(t, rational.MustNew(1, 8), chords[1].Notes()[1].Length())
	assert.Equal(t, rational.MustNew(3, 8), defaultVoice(t, song).Length())
}

func TestParseChordErrors(t *testing.T) {
	cases := map[string]string{
		"shorter note": "[C2E]",
		"stray end":    "C ]",
		"unclosed":     "[CE",
		"empty":        "[]",
		"bar in chord": "[C|E]",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			err := parseErr(t, plainHeader+body)
			assert.True(t, errors.Is(err, ErrStructure), "got %v", err)
		})
	}
}

func TestParseTuplets(t *testing.T) {
	song := parse(t, plainHeader+"(3GCA (2DE (4CDEF")
	notes := singleNotes(t, defaultVoice(t, song))
	require.Len(t, notes, 9)
	for _, n := range notes[:3] {
		assert.Equal(t, rational.MustNew(1, 12), n.Length())
	}
	for _, n := range notes[3:5] {
		assert.Equal(t, rational.MustNew(3, 16), n.Length())
	}
	for _, n := range notes[5:] {
		assert.Equal(t, rational.MustNew(3, 32), n.Length())
	}
	assert.Equal(t, 96, song.Resolution)
}

func TestParseTupletErrors(t *testing.T) {
	for _, body := range []string{"(5CCCCC", "(C", "(3CC"} {
		err := parseErr(t, plainHeader+body)
		assert.True(t, errors.Is(err, ErrStructure), "body %q: %v", body, err)
	}
}

func TestParseStandaloneModifiersFail(t *testing.T) {
	for _, body := range []string{"| 3", "' C", "C | ,"} {
		err := parseErr(t, plainHeader+body)
		assert.True(t, errors.Is(err, ErrStructure), "body %q: %v", body, err)
	}
}

func TestParseAccidentalWithoutNoteFails(t *testing.T) {
	err := parseErr(t, plainHeader+"^ |")
	assert.True(t, errors.Is(err, ErrStructure), "got %v", err)
}

func TestParseNamedVoices(t *testing.T) {
	song := parse(t, "X:9\nT:Interesting\nV:cool\nK:Am\nV:cool\nD")
	v, ok := song.Voice("cool")
	require.True(t, ok)
	require.Len(t, v.Chords(), 1)
	assert.Equal(t, mustPitch(t, 'D'), v.Chords()[0].Notes()[0].Pitch)
	assert.False(t, song.ImplicitVoice())
}

func TestParseVoiceErrors(t *testing.T) {
	err := parseErr(t, plainHeader+"V:ghost\nC")
	assert.True(t, errors.Is(err, ErrStructure), "implicit voice: %v", err)

	err = parseErr(t, "X:1\nT:t\nV:one\nK:C\nV:two\nC")
	assert.True(t, errors.Is(err, ErrStructure), "undeclared voice: %v", err)

	err = parseErr(t, "X:1\nT:t\nV:one\nV:one\nK:C\nC")
	assert.True(t, errors.Is(err, ErrStructure), "duplicate voice: %v", err)
}

func TestParseHeaderDefaults(t *testing.T) {
	song := parse(t, "X:3\nT:Defaults\nK:C\nC")
	assert.Equal(t, "3", song.Index)
	assert.Equal(t, "Unknown Piece composer", song.Composer)
	assert.Equal(t, "4/4", song.Meter)
	assert.Equal(t, 100, song.Tempo)
	assert.Equal(t, rational.MustNew(1, 8), song.DefaultLength)
	assert.Equal(t, 50, song.QuarterTempo())
	assert.Equal(t, 2, song.TicksPerQuarter())
}

func TestParseHeaderValues(t *testing.T) {
	song := parse(t, "X:1\nT:Waltz\nC:Someone\nM:3/4\nL:1/4\nQ:120\nK:D\nA")
	assert.Equal(t, "Someone", song.Composer)
	assert.Equal(t, "3/4", song.Meter)
	assert.Equal(t, "D", song.Key)
	assert.Equal(t, 120, song.QuarterTempo())
	assert.Equal(t, 1, song.TicksPerQuarter())
}

func TestParseBadHeaderValues(t *testing.T) {
	for _, header := range []string{
		"X:1\nT:t\nQ:fast\nK:C\n",
		"X:1\nT:t\nL:x\nK:C\n",
		"X:1\nT:t\nL:0\nK:C\n",
	} {
		err := parseErr(t, header+"C")
		assert.True(t, errors.Is(err, ErrFormat), "header %q: %v", header, err)
	}
}

func TestParseIgnoresComments(t *testing.T) {
	song := parse(t, plainHeader+"C % not D\nE")
	assert.Len(t, defaultVoice(t, song).Chords(), 2)
}

func TestErrorCarriesOffset(t *testing.T) {
	err := parseErr(t, plainHeader+"C D ]")
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 5, perr.Offset)
	assert.Contains(t, err.Error(), "structural error")
}
