package midi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/abcplay-go/internal/abc"
)

func perform(t *testing.T, input string) abc.Performance {
	t.Helper()
	song, err := abc.NewParser(abc.DefaultParserConfig()).Parse(input)
	require.NoError(t, err)
	return song.Perform()
}

type noteStart struct {
	key  uint8
	tick int64
}

func TestWriteRoundTrip(t *testing.T) {
	perf := perform(t, "X:1\nT:Round Trip\nQ:120\nK:G\nG A B c|[DF]2 z d")
	var buf bytes.Buffer
	_, err := Write(&buf, perf, Options{TrackName: "Round Trip"})
	require.NoError(t, err)

	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, s.Tracks, 1)
	assert.Equal(t, smf.MetricTicks(perf.TicksPerQuarter), s.TimeFormat)

	var (
		starts []noteStart
		ends   int
		name   string
		bpm    float64
		tick   int64
	)
	for _, ev := range s.Tracks[0] {
		tick += int64(ev.Delta)
		var ch, key, vel uint8
		switch {
		case ev.Message.GetNoteStart(&ch, &key, &vel):
			assert.Equal(t, uint8(DefaultVelocity), vel)
			assert.Equal(t, uint8(0), ch)
			starts = append(starts, noteStart{key: key, tick: tick})
		case ev.Message.GetNoteEnd(&ch, &key):
			ends++
		case ev.Message.GetMetaTrackName(&name):
		case ev.Message.GetMetaTempo(&bpm):
		}
	}

	assert.Equal(t, "Round Trip", name)
	assert.InDelta(t, float64(perf.QuarterTempo), bpm, 0.01)
	require.Len(t, starts, len(perf.Events))
	assert.Equal(t, len(perf.Events), ends)
	for i, ev := range perf.Events {
		assert.Equal(t, noteStart{key: uint8(ev.Note), tick: int64(ev.Tick)}, starts[i])
	}
	assert.Equal(t, int64(perf.EndTick), tick)
}

func TestWriteRejectsOutOfRangeNotes(t *testing.T) {
	perf := perform(t, "X:1\nT:t\nK:C\nc'")
	_, err := Write(&bytes.Buffer{}, perf, Options{Transpose: 100})
	assert.Error(t, err)
}

func TestWriteRejectsUnrepresentableResolution(t *testing.T) {
	perf := perform(t, "X:1\nT:t\nK:C\nC/97 C/89 C/83")
	require.Greater(t, perf.TicksPerQuarter, 32767)
	var buf bytes.Buffer
	_, err := Write(&buf, perf, Options{})
	assert.ErrorContains(t, err, "ticks per quarter")
	assert.Zero(t, buf.Len())
}

func TestDump(t *testing.T) {
	perf := perform(t, "X:1\nT:t\nL:1/4\nK:C\nC D")
	want := "Event: NOTE_ON  Pitch: 60  Tick: 0\n" +
		"Event: NOTE_OFF Pitch: 60  Tick: 1\n" +
		"Event: NOTE_ON  Pitch: 62  Tick: 1\n" +
		"Event: NOTE_OFF Pitch: 62  Tick: 2\n" +
		"***** End of track *****   Tick: 2\n"
	assert.Equal(t, want, Dump(perf))
}
