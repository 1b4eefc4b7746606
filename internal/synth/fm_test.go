package synth

import (
	"math"
	"testing"
)

func energy(samples ...float32) float64 {
	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(s))
	}
	return sum
}

func TestFMGeneratesSignal(t *testing.T) {
	e := NewFM(48000, DefaultParams())
	id := e.NoteOn(60, 100, 0, 0)

	var nonZero bool
	for i := 0; i < 5000; i++ {
		l, r := e.RenderFrame()
		if l != 0 || r != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatalf("expected non-zero output")
	}
	e.NoteOff(id)
}

func TestFMPanExtremesBiasChannels(t *testing.T) {
	e := NewFM(48000, DefaultParams())
	e.NoteOn(60, 127, -64, 0)
	var leftEnergy, rightEnergy float64
	for i := 0; i < 4096; i++ {
		l, r := e.RenderFrame()
		leftEnergy += energy(l)
		rightEnergy += energy(r)
	}
	if leftEnergy <= rightEnergy {
		t.Fatalf("expected left-biased signal, left=%f right=%f", leftEnergy, rightEnergy)
	}
}

func TestFMReleaseFreesVoice(t *testing.T) {
	e := NewFM(48000, DefaultParams())
	id := e.NoteOn(64, 100, 0, 0)
	for i := 0; i < 1000; i++ {
		e.RenderFrame()
	}
	if got := e.ActiveVoiceCount(); got != 1 {
		t.Fatalf("active voices = %d, want 1", got)
	}
	e.NoteOff(id)
	// release is 0.2s at 48kHz
	for i := 0; i < 48000/2; i++ {
		e.RenderFrame()
	}
	if got := e.ActiveVoiceCount(); got != 0 {
		t.Fatalf("active voices after release = %d, want 0", got)
	}
}

func TestFMStealsVoicesWhenFull(t *testing.T) {
	params := DefaultParams()
	params.Polyphony = 2
	e := NewFM(48000, params)
	first := e.NoteOn(60, 100, 0, 0)
	e.NoteOn(64, 100, 0, 0)
	e.NoteOn(67, 100, 0, 0)
	if got := e.ActiveVoiceCount(); got != 2 {
		t.Fatalf("active voices = %d, want 2", got)
	}
	// the stolen voice no longer answers to its id
	e.NoteOff(first)
	for i := 0; i < 100; i++ {
		e.RenderFrame()
	}
	if got := e.ActiveVoiceCount(); got != 2 {
		t.Fatalf("active voices = %d, want 2", got)
	}
}

func TestFMMasterGainScalesOutput(t *testing.T) {
	render := func(gain float64) float64 {
		e := NewFM(48000, DefaultParams())
		e.SetMasterGain(gain)
		e.NoteOn(60, 100, 0, 0)
		var sum float64
		for i := 0; i < 2000; i++ {
			l, r := e.RenderFrame()
			sum += energy(l, r)
		}
		return sum
	}
	if render(0) != 0 {
		t.Fatalf("zero gain should be silent")
	}
	if render(0.2) >= render(0.4) {
		t.Fatalf("higher gain should be louder")
	}
}
