package abc

import (
	"fmt"
	"sort"
)

// Event is one sounding note in absolute ticks.
type Event struct {
	Note     int `json:"note"`
	Tick     int `json:"tick"`
	Duration int `json:"duration"`
}

// Flatten lists the notes under e, starting at tick start, with
// resolution ticks per whole note. Rests produce no events, chord notes
// share a start, and every voice of a song starts at the same tick.
func Flatten(e Element, start, resolution int) []Event {
	switch e := e.(type) {
	case *Note:
		if e.Rest {
			return nil
		}
		return []Event{{Note: e.Pitch.MIDINote(), Tick: start, Duration: ticks(e, resolution)}}
	case *Chord:
		var out []Event
		for _, n := range e.notes {
			out = append(out, Flatten(n, start, resolution)...)
		}
		return out
	case *Voice:
		var out []Event
		at := start
		for _, c := range e.chords {
			out = append(out, Flatten(c, at, resolution)...)
			at += ticks(c, resolution)
		}
		return out
	case *Song:
		var out []Event
		for _, v := range e.voices {
			out = append(out, Flatten(v, start, resolution)...)
		}
		return out
	default:
		panic(fmt.Sprintf("abc: cannot flatten %T", e))
	}
}

func ticks(e Element, resolution int) int {
	l := e.Length()
	if resolution%l.Den() == 0 {
		return resolution / l.Den() * l.Num()
	}
	return l.Num() * resolution / l.Den()
}

// Events flattens the whole song at its own resolution.
func (s *Song) Events() []Event {
	return Flatten(s, 0, s.Resolution)
}

// Performance is what a player needs to schedule a song.
type Performance struct {
	Events          []Event `json:"events"`
	QuarterTempo    int     `json:"quarterTempo"`
	TicksPerQuarter int     `json:"ticksPerQuarter"`
	EndTick         int     `json:"endTick"`
}

// Perform flattens the song and orders the events by start tick.
func (s *Song) Perform() Performance {
	events := s.Events()
	sort.SliceStable(events, func(i, j int) bool { return events[i].Tick < events[j].Tick })
	return Performance{
		Events:          events,
		QuarterTempo:    s.QuarterTempo(),
		TicksPerQuarter: s.TicksPerQuarter(),
		EndTick:         ticks(s, s.Resolution),
	}
}
