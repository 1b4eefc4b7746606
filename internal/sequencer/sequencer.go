package sequencer

import (
	"sort"

	"github.com/cbegin/abcplay-go/internal/abc"
)

type VoiceEngine interface {
	NoteOn(note int, velocity int, pan int, program int) int
	NoteOff(id int)
	RenderFrame() (float32, float32)
	SetMasterGain(gain float64)
	// ActiveVoiceCount returns the number of voices still sounding, release tails included.
	// Used to detect when playback has fully ended.
	ActiveVoiceCount() int
}

// EventKind identifies sequencer lifecycle events.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
)

// DefaultVelocity is the note-on velocity when none is configured.
const DefaultVelocity = 100

type Options struct {
	Loop              bool
	OnEvent           func(EventKind)
	ReleaseTailFrames int // extra frames to render after the last voice ends (0 = half a second)
	Transpose         int // semitones added to every note
	Velocity          int // 0 = DefaultVelocity
	Program           int
}

type action struct {
	tick  int
	on    bool
	note  int
	index int // event index, links a note-off to its note-on
}

type Sequencer struct {
	perf         abc.Performance
	engine       VoiceEngine
	sampleRate   int
	ticksPerSamp float64
	tickFrac     float64
	tickInt      int
	actions      []action
	next         int
	voiceIDs     map[int]int
	opts         Options

	playbackEndedFired bool
	commandExhausted   bool // all actions dispatched; waiting for engine release
	releaseTailFrames  int  // countdown after last voice; fire when 0
	loopPending        bool // reached the end while looping; waiting for release before reset
	loopTailCountdown  int
}

func New(perf abc.Performance, engine VoiceEngine, sampleRate int) *Sequencer {
	return NewWithOptions(perf, engine, sampleRate, Options{})
}

func NewWithOptions(perf abc.Performance, engine VoiceEngine, sampleRate int, opts Options) *Sequencer {
	if opts.ReleaseTailFrames <= 0 {
		opts.ReleaseTailFrames = sampleRate / 2
	}
	if opts.Velocity <= 0 {
		opts.Velocity = DefaultVelocity
	}
	s := &Sequencer{
		perf:              perf,
		engine:            engine,
		sampleRate:        sampleRate,
		opts:              opts,
		voiceIDs:          make(map[int]int),
		releaseTailFrames: opts.ReleaseTailFrames,
	}
	s.ticksPerSamp = TicksPerSecond(perf) / float64(sampleRate)
	s.actions = schedule(perf.Events)
	return s
}

// TicksPerSecond converts a performance tempo to a tick rate.
func TicksPerSecond(perf abc.Performance) float64 {
	bpm := perf.QuarterTempo
	if bpm <= 0 {
		bpm = 120
	}
	tpq := perf.TicksPerQuarter
	if tpq <= 0 {
		tpq = 1
	}
	return float64(bpm) * float64(tpq) / 60.0
}

// schedule orders note-offs ahead of note-ons on the same tick so that a
// repeated pitch retriggers cleanly. The note-off of a zero-length event
// still follows its own note-on.
func schedule(events []abc.Event) []action {
	out := make([]action, 0, len(events)*2)
	for i, ev := range events {
		out = append(out,
			action{tick: ev.Tick, on: true, note: ev.Note, index: i},
			action{tick: ev.Tick + ev.Duration, on: false, note: ev.Note, index: i},
		)
	}
	rank := func(a action) int {
		switch {
		case a.on:
			return 1
		case events[a.index].Duration <= 0:
			return 2
		}
		return 0
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].tick != out[j].tick {
			return out[i].tick < out[j].tick
		}
		return rank(out[i]) < rank(out[j])
	})
	return out
}

func (s *Sequencer) Process(dst []float32) {
	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		s.tickFrac += s.ticksPerSamp
		nextTick := int(s.tickFrac)
		for s.tickInt <= nextTick {
			s.dispatchTick(s.tickInt)
			s.tickInt++
		}
		l, r := s.engine.RenderFrame()
		dst[f*2] = l
		dst[f*2+1] = r
		if s.loopPending && s.engine.ActiveVoiceCount() == 0 {
			if s.loopTailCountdown <= 0 {
				s.reset()
				if s.opts.OnEvent != nil {
					s.opts.OnEvent(EventLoopCompleted)
				}
			} else {
				s.loopTailCountdown--
			}
		}
		if s.commandExhausted && !s.playbackEndedFired && s.engine.ActiveVoiceCount() == 0 {
			if s.releaseTailFrames <= 0 {
				s.playbackEndedFired = true
				if s.opts.OnEvent != nil {
					s.opts.OnEvent(EventPlaybackEnded)
				}
			} else {
				s.releaseTailFrames--
			}
		}
	}
}

func (s *Sequencer) dispatchTick(tick int) {
	for s.next < len(s.actions) && s.actions[s.next].tick <= tick {
		a := s.actions[s.next]
		s.next++
		if a.on {
			s.voiceIDs[a.index] = s.engine.NoteOn(a.note+s.opts.Transpose, s.opts.Velocity, 0, s.opts.Program)
			continue
		}
		if id, ok := s.voiceIDs[a.index]; ok {
			s.engine.NoteOff(id)
			delete(s.voiceIDs, a.index)
		}
	}
	if s.next < len(s.actions) || tick < s.perf.EndTick || s.loopPending || s.commandExhausted {
		return
	}
	if s.opts.Loop {
		s.loopPending = true
		s.loopTailCountdown = s.opts.ReleaseTailFrames
	} else {
		s.commandExhausted = true
	}
}

func (s *Sequencer) reset() {
	s.loopPending = false
	s.tickFrac = 0
	s.tickInt = 0
	s.next = 0
	for k := range s.voiceIDs {
		delete(s.voiceIDs, k)
	}
}

// Finished reports whether non-looping playback has ended.
func (s *Sequencer) Finished() bool { return s.playbackEndedFired }

// Tick is the current playback tick.
func (s *Sequencer) Tick() int { return s.tickInt }
