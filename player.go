package abcplay

import (
	"bytes"
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/cbegin/abcplay-go/internal/abc"
	intaudio "github.com/cbegin/abcplay-go/internal/audio"
	intseq "github.com/cbegin/abcplay-go/internal/sequencer"
	intsynth "github.com/cbegin/abcplay-go/internal/synth"
)

// PlaybackEvent carries playback events from Watch().
type PlaybackEvent struct {
	Kind int // EventLoopCompleted or EventPlaybackEnded
}

const (
	EventLoopCompleted int = iota
	EventPlaybackEnded
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	loopPlayback  bool
	sampleTap     func([]float32)
	soundFontPath string
	velocity      int
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{velocity: intseq.DefaultVelocity}
}

func WithLoopPlayback(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loopPlayback = enabled
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// WithSoundFont renders through the General MIDI SoundFont at path instead
// of the built-in FM engine. An empty path keeps FM.
func WithSoundFont(path string) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.soundFontPath = path
	}
}

// WithVelocity sets the note-on velocity (1-127) for every note.
func WithVelocity(velocity int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.velocity = velocity
	}
}

type Player struct {
	mu           sync.Mutex
	parser       *abc.Parser
	sampleRate   int
	soundFont    []byte // raw .sf2, parsed again for every Play
	engine       intseq.VoiceEngine
	audio        *intaudio.Player
	baseGain     float64
	volume       float64
	transpose    int
	velocity     int
	loopPlayback bool
	sampleTap    func([]float32)
	done         chan struct{}
	eventCh      chan PlaybackEvent
	eventChMu    sync.Mutex
}

// eventWrapper wraps a sequencer and implements Source + FinishingSource
// to report playback events and signal when non-looping playback ends.
type eventWrapper struct {
	seq       *intseq.Sequencer
	finished  atomic.Bool
	onEvent   func(intseq.EventKind)
	sampleTap func([]float32)
}

func (w *eventWrapper) Process(dst []float32) {
	w.seq.Process(dst)
	if w.sampleTap != nil {
		w.sampleTap(dst)
	}
}

func (w *eventWrapper) Finished() bool {
	return w.finished.Load()
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.velocity < 1 || cfg.velocity > 127 {
		return nil, errors.Errorf("velocity %d out of range 1-127", cfg.velocity)
	}
	p := &Player{
		parser:       abc.NewParser(abc.DefaultParserConfig()),
		sampleRate:   sampleRate,
		volume:       1,
		velocity:     cfg.velocity,
		loopPlayback: cfg.loopPlayback,
		sampleTap:    cfg.sampleTap,
	}
	if cfg.soundFontPath != "" {
		data, err := os.ReadFile(cfg.soundFontPath)
		if err != nil {
			return nil, errors.Wrap(err, "read soundfont")
		}
		p.soundFont = data
	}
	engine, baseGain, err := p.newEngine()
	if err != nil {
		return nil, err
	}
	engine.SetMasterGain(baseGain)
	p.engine = engine
	p.baseGain = baseGain
	return p, nil
}

// newEngine builds a fresh voice engine and returns it with its unity gain.
func (p *Player) newEngine() (intseq.VoiceEngine, float64, error) {
	if p.soundFont != nil {
		sf, err := intsynth.NewSoundFont(bytes.NewReader(p.soundFont), p.sampleRate)
		if err != nil {
			return nil, 0, err
		}
		return sf, 1, nil
	}
	params := intsynth.DefaultParams()
	return intsynth.NewFM(p.sampleRate, params), params.MasterGain, nil
}

func (p *Player) PlayABC(abcText string) error {
	song, err := p.parser.Parse(abcText)
	if err != nil {
		return err
	}
	return p.Play(song)
}

func (p *Player) Play(song *abc.Song) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Signal any existing Wait() that the previous playback was replaced
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})

	wrapper := &eventWrapper{sampleTap: p.sampleTap}
	wrapper.onEvent = func(kind intseq.EventKind) {
		if kind == intseq.EventPlaybackEnded {
			wrapper.finished.Store(true)
		}
		p.sendEvent(PlaybackEvent{Kind: int(kind)})
		if kind == intseq.EventPlaybackEnded {
			p.signalDone()
		}
	}

	// Recreate the engine on every Play to avoid voice/envelope state
	// leaking between songs.
	engine, baseGain, err := p.newEngine()
	if err != nil {
		return err
	}
	engine.SetMasterGain(baseGain * p.volume)
	p.engine = engine
	p.baseGain = baseGain

	wrapper.seq = intseq.NewWithOptions(song.Perform(), engine, p.sampleRate, intseq.Options{
		Loop:      p.loopPlayback,
		OnEvent:   wrapper.onEvent,
		Transpose: p.transpose,
		Velocity:  p.velocity,
	})

	backend, err := intaudio.NewPlayer(p.sampleRate, wrapper)
	if err != nil {
		return err
	}
	if p.audio != nil {
		_ = p.audio.Stop()
	}
	p.audio = backend
	p.audio.Play()
	return nil
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

func (p *Player) signalDone() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current playback ends. When loop playback is enabled,
// Wait blocks until Stop (use Watch for loop-counting instead).
// Wait returns immediately if no playback is active.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback events:
//   - EventLoopCompleted: a whole-tune loop iteration finished (when looping)
//   - EventPlaybackEnded: playback finished or was stopped
//
// The channel is buffered (cap 8); receive in a goroutine to avoid blocking the sequencer.
// Only the most recent Watch() channel receives events; call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.engine.SetMasterGain(p.baseGain * p.volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetTranspose sets the shift in semitones applied to all notes.
// Takes effect on the next Play/PlayABC call.
func (p *Player) SetTranspose(semitones int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transpose = semitones
}

func (p *Player) Transpose() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transpose
}

// PlaybackPosition returns the current output position of the audio driver
// in frames, i.e. what the listener actually hears right now. Returns 0 if
// not playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	pos := a.Position()
	return int64(pos.Seconds() * float64(p.sampleRate))
}
