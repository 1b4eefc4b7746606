package abcplay

import (
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	"github.com/cbegin/abcplay-go/internal/abc"
	intseq "github.com/cbegin/abcplay-go/internal/sequencer"
	intsynth "github.com/cbegin/abcplay-go/internal/synth"
)

const (
	renderBlockFrames = 1024
	// renderOvershootSec bounds how long a release tail may ring past the
	// last note before rendering gives up on silence.
	renderOvershootSec = 10
)

// RenderSamples plays perf through engine without an audio device and
// returns interleaved stereo frames up to the end of the release tail.
// A nil engine selects the default FM engine.
func RenderSamples(perf abc.Performance, sampleRate int, engine intseq.VoiceEngine) []float32 {
	if engine == nil {
		engine = intsynth.NewFM(sampleRate, intsynth.DefaultParams())
	}
	seq := intseq.New(perf, engine, sampleRate)

	seconds := float64(perf.EndTick)/intseq.TicksPerSecond(perf) + renderOvershootSec
	maxFrames := int(seconds * float64(sampleRate))

	out := make([]float32, 0, renderBlockFrames*2)
	block := make([]float32, renderBlockFrames*2)
	for frames := 0; frames < maxFrames && !seq.Finished(); frames += renderBlockFrames {
		seq.Process(block)
		out = append(out, block...)
	}
	return out
}

// WriteWAV encodes interleaved stereo float32 samples as 16-bit PCM.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	const bitDepth = 16
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 2,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bitDepth,
	}
	for i, s := range samples {
		buf.Data[i] = int(math.Round(float64(clampSample(s)) * math.MaxInt16))
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 2, 1)
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, "encode wav")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "finish wav")
	}
	return nil
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
