package abcplay

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

const testTune = "X:1\nT:Offline\nQ:240\nK:G\n|:GABc d2 B2:|"

func TestRenderSamplesIsDeterministic(t *testing.T) {
	song, err := Compile(testTune)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	a := RenderSamples(song.Perform(), 48000, nil)
	b := RenderSamples(song.Perform(), 48000, nil)
	if len(a) == 0 || len(a)%2 != 0 {
		t.Fatalf("expected interleaved stereo samples, got %d", len(a))
	}
	if sha256.Sum256(float32Bytes(a)) != sha256.Sum256(float32Bytes(b)) {
		t.Fatalf("renders of the same tune differ")
	}
}

func TestRenderSamplesStopsAfterTail(t *testing.T) {
	song, err := Compile(testTune)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	// 16 eighths at 120 quarters per minute plus half a second of tail
	frames := len(RenderSamples(song.Perform(), 48000, nil)) / 2
	if frames < 48000*4 || frames > 48000*6 {
		t.Fatalf("rendered %d frames, want between 4s and 6s of audio", frames)
	}
}

func TestWriteWAVRoundTrip(t *testing.T) {
	samples := []float32{0, 0, 0.5, -0.5, 1.5, -1.5, 0.25, 0.75}
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := WriteWAV(f, samples, 44100); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	in, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer in.Close()
	dec := wav.NewDecoder(in)
	if !dec.IsValidFile() {
		t.Fatalf("not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.SampleRate != 44100 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Fatalf("format = %d Hz, %d channels, %d bits", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if got := buf.NumFrames(); got != 4 {
		t.Fatalf("frames = %d, want 4", got)
	}
	want := []int{0, 0, 16384, -16384, 32767, -32767, 8192, 24575}
	for i, v := range want {
		if buf.Data[i] != v {
			t.Fatalf("sample %d = %d, want %d", i, buf.Data[i], v)
		}
	}
}

func float32Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}
