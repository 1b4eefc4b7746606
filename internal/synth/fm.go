// Package synth provides the voice engines the sequencer drives.
package synth

import (
	"math"
	"sync/atomic"
)

const twoPi = math.Pi * 2

type Params struct {
	Polyphony   int
	CarrierMul  float64
	ModMul      float64
	ModIndex    float64
	AttackSec   float64
	DecaySec    float64
	SustainLvl  float64
	ReleaseSec  float64
	MasterGain  float64
	VelocityAmp float64
	LPFCutoff   float64 // lowpass filter cutoff in Hz (0 = disabled)
}

// DefaultParams is a soft electric-piano patch.
func DefaultParams() Params {
	return Params{
		Polyphony:   32,
		CarrierMul:  1.0,
		ModMul:      2.0,
		ModIndex:    1.6,
		AttackSec:   0.005,
		DecaySec:    0.12,
		SustainLvl:  0.75,
		ReleaseSec:  0.2,
		MasterGain:  0.45,
		VelocityAmp: 0.8,
		LPFCutoff:   12000,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type envelope struct {
	level float64
	state envState
}

type voice struct {
	active   bool
	id       int
	velocity float64
	freq     float64
	pan      float64
	carrier  float64 // phase
	mod      float64 // phase
	env      envelope
	modEnv   envelope
}

// FM is a two-operator FM engine: one sine modulator driving one sine
// carrier, each with its own ADSR.
type FM struct {
	sampleRate float64
	params     Params
	voices     []voice
	nextID     int
	masterGain uint64
	lpfAlpha   float64
	lpfL       float64
	lpfR       float64
}

func NewFM(sampleRate int, params Params) *FM {
	if params.Polyphony <= 0 {
		params.Polyphony = 32
	}
	e := &FM{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Polyphony),
		masterGain: math.Float64bits(params.MasterGain),
	}
	if params.LPFCutoff > 0 && params.LPFCutoff < float64(sampleRate)/2 {
		rc := 1.0 / (twoPi * params.LPFCutoff)
		dt := 1.0 / float64(sampleRate)
		e.lpfAlpha = dt / (rc + dt)
	}
	return e
}

// NoteOn starts a voice. Pan runs from -64 (left) to 64 (right); the
// program number is ignored.
func (e *FM) NoteOn(note int, velocity int, pan int, program int) int {
	slot := e.stealVoice()
	id := e.nextID
	e.nextID++
	e.voices[slot] = voice{
		active:   true,
		id:       id,
		velocity: clamp(float64(velocity)/127.0, 0, 1),
		freq:     midiToFreq(note),
		pan:      clamp(float64(pan), -64, 64),
		env:      envelope{state: envAttack},
		modEnv:   envelope{state: envAttack},
	}
	return id
}

func (e *FM) NoteOff(id int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.id == id {
			v.env.state = envRelease
			v.modEnv.state = envRelease
		}
	}
}

func (e *FM) RenderFrame() (float32, float32) {
	var l, r float64
	gain := e.masterGainValue()
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		e.advance(&v.env)
		e.advance(&v.modEnv)
		if v.env.state == envOff {
			v.active = false
			continue
		}
		mod := math.Sin(v.mod) * v.modEnv.level * e.params.ModIndex
		sig := math.Sin(v.carrier+mod) * v.env.level
		sig *= gain * (0.2 + v.velocity*e.params.VelocityAmp)
		angle := ((v.pan + 64.0) / 128.0) * (math.Pi / 2.0)
		l += sig * math.Cos(angle)
		r += sig * math.Sin(angle)

		v.carrier = math.Mod(v.carrier+twoPi*v.freq*e.params.CarrierMul/e.sampleRate, twoPi)
		v.mod = math.Mod(v.mod+twoPi*v.freq*e.params.ModMul/e.sampleRate, twoPi)
	}
	if e.lpfAlpha > 0 {
		e.lpfL += e.lpfAlpha * (l - e.lpfL)
		e.lpfR += e.lpfAlpha * (r - e.lpfR)
		l, r = e.lpfL, e.lpfR
	}
	return float32(clamp(l, -1, 1)), float32(clamp(r, -1, 1))
}

// stealVoice returns a free slot, or the quietest voice when all are busy.
func (e *FM) stealVoice() int {
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
	}
	quiet := 0
	minEnv := e.voices[0].env.level
	for i := 1; i < len(e.voices); i++ {
		if e.voices[i].env.level < minEnv {
			minEnv = e.voices[i].env.level
			quiet = i
		}
	}
	return quiet
}

func (e *FM) advance(env *envelope) {
	p := e.params
	switch env.state {
	case envAttack:
		env.level += rate(1.0, p.AttackSec, e.sampleRate)
		if env.level >= 1 {
			env.level = 1
			env.state = envDecay
		}
	case envDecay:
		env.level -= rate(1-p.SustainLvl, p.DecaySec, e.sampleRate)
		if env.level <= p.SustainLvl {
			env.level = p.SustainLvl
			env.state = envSustain
		}
	case envSustain:
	case envRelease:
		env.level -= rate(math.Max(p.SustainLvl, 0.01), p.ReleaseSec, e.sampleRate)
		if env.level <= 0.0001 {
			env.level = 0
			env.state = envOff
		}
	case envOff:
		env.level = 0
	}
}

// rate is the per-sample step that covers span in sec seconds.
func rate(span, sec, sampleRate float64) float64 {
	if sec <= 0 {
		return 1
	}
	return span / (sec * sampleRate)
}

func (e *FM) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

func (e *FM) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

func (e *FM) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

func midiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
