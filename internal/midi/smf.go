// Package midi exports a performance as a Standard MIDI File.
package midi

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/abcplay-go/internal/abc"
)

const (
	channel         = 0
	DefaultVelocity = 100

	// maxTicksPerQuarter is the largest metric time division an SMF header holds.
	maxTicksPerQuarter = math.MaxInt16
)

type Options struct {
	TrackName string
	Velocity  int // 0 = DefaultVelocity
	Transpose int
}

type message struct {
	tick int
	on   bool
	note int
}

// messages lists note-on and note-off pairs in tick order. Within a tick,
// messages keep the order the notes were added in.
func messages(perf abc.Performance, transpose int) []message {
	out := make([]message, 0, len(perf.Events)*2)
	for _, ev := range perf.Events {
		note := ev.Note + transpose
		out = append(out,
			message{tick: ev.Tick, on: true, note: note},
			message{tick: ev.Tick + ev.Duration, note: note},
		)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].tick < out[j].tick })
	return out
}

// Build assembles a single-track, format 0 SMF for perf.
func Build(perf abc.Performance, opts Options) (*smf.SMF, error) {
	if perf.TicksPerQuarter <= 0 || perf.TicksPerQuarter > maxTicksPerQuarter {
		return nil, errors.Errorf("ticks per quarter %d outside 1..%d", perf.TicksPerQuarter, maxTicksPerQuarter)
	}
	vel := opts.Velocity
	if vel <= 0 {
		vel = DefaultVelocity
	}
	if vel > 127 {
		vel = 127
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(perf.TicksPerQuarter)

	var tr smf.Track
	if opts.TrackName != "" {
		tr.Add(0, smf.MetaTrackSequenceName(opts.TrackName))
	}
	tr.Add(0, smf.MetaTempo(float64(perf.QuarterTempo)))

	last := 0
	for _, m := range messages(perf, opts.Transpose) {
		if m.note < 0 || m.note > 127 {
			return nil, errors.Errorf("note %d out of MIDI range at tick %d", m.note, m.tick)
		}
		delta := uint32(m.tick - last)
		last = m.tick
		if m.on {
			tr.Add(delta, midi.NoteOn(channel, uint8(m.note), uint8(vel)))
		} else {
			tr.Add(delta, midi.NoteOff(channel, uint8(m.note)))
		}
	}
	tr.Close(uint32(max(perf.EndTick-last, 0)))

	if err := s.Add(tr); err != nil {
		return nil, errors.Wrap(err, "add track")
	}
	return s, nil
}

// Write encodes perf as an SMF to w.
func Write(w io.Writer, perf abc.Performance, opts Options) (int64, error) {
	s, err := Build(perf, opts)
	if err != nil {
		return 0, err
	}
	n, err := s.WriteTo(w)
	if err != nil {
		return n, errors.Wrap(err, "write smf")
	}
	return n, nil
}

// Dump lists the note messages one per line, closing with an
// end-of-track line.
func Dump(perf abc.Performance) string {
	var b strings.Builder
	end := 0
	for _, m := range messages(perf, 0) {
		kind := "NOTE_OFF"
		if m.on {
			kind = "NOTE_ON "
		}
		fmt.Fprintf(&b, "Event: %s Pitch: %d  Tick: %d\n", kind, m.note, m.tick)
		end = max(end, m.tick)
	}
	fmt.Fprintf(&b, "***** End of track *****   Tick: %d\n", end)
	return b.String()
}
