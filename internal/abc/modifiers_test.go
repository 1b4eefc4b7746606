package abc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeySignatureTables(t *testing.T) {
	cases := []struct {
		key  string
		want string // sounding semitone shift for C D E F G A B
	}{
		{"C", "0000000"},
		{"Am", "0000000"},
		{"G", "000+000"},
		{"D", "+00+000"},
		{"F", "000000-"},
		{"Bb", "00-000-"},
		{"Dm", "000000-"},
		{"C#", "+++++++"},
		{"Cb", "-------"},
		{"F#m", "+00++00"},
	}
	letters := "CDEFGAB"
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			m, err := KeySignature(tc.key)
			require.NoError(t, err)
			for i := 0; i < len(letters); i++ {
				base := mustPitch(t, letters[i])
				want := 0
				switch tc.want[i] {
				case '+':
					want = 1
				case '-':
					want = -1
				}
				assert.Equal(t, base.AccidentalTranspose(want), m.Resolve(base), "%s in %s", string(letters[i]), tc.key)
				assert.Equal(t, base.OctaveTranspose(2).AccidentalTranspose(want), m.Resolve(base.OctaveTranspose(2)))
			}
		})
	}
}

func TestKeySignatureUnknown(t *testing.T) {
	_, err := KeySignature("H#")
	assert.True(t, errors.Is(err, ErrFormat))
	assert.Len(t, KeyNames(), 30)
	assert.Contains(t, err.Error(), "want one of A A#m Ab Abm Am")
	assert.Contains(t, err.Error(), " F#m ")
}

func TestModifiersApply(t *testing.T) {
	m, err := KeySignature("C")
	require.NoError(t, err)
	c := mustPitch(t, 'C')

	require.NoError(t, m.Apply(c, "^^"))
	assert.Equal(t, c.AccidentalTranspose(2), m.Resolve(c))
	assert.Equal(t, c.OctaveTranspose(1), m.Resolve(c.OctaveTranspose(1)), "accidental is bound to its octave")

	require.NoError(t, m.Apply(c, "^="))
	assert.Equal(t, c, m.Resolve(c))

	assert.True(t, errors.Is(m.Apply(c, "#"), ErrFormat))

	require.NoError(t, m.Apply(c, "_"))
	fresh := m.Reset()
	assert.Equal(t, c, fresh.Resolve(c))
	assert.Equal(t, c.AccidentalTranspose(-1), m.Resolve(c), "reset leaves the old bar untouched")
}
