package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/remeh/sizedwaitgroup"
	"github.com/spf13/cobra"

	"github.com/cbegin/abcplay-go"
	"github.com/cbegin/abcplay-go/internal/logger"
	"github.com/cbegin/abcplay-go/internal/midi"
	intseq "github.com/cbegin/abcplay-go/internal/sequencer"
	intsynth "github.com/cbegin/abcplay-go/internal/synth"
)

var exportFlags struct {
	format string
	outDir string
}

type exportResult struct {
	path string
	size int64
	err  error
}

var exportCmd = &cobra.Command{
	Use:   "export <file>...",
	Short: "Write tunes as MIDI or WAV files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(exportFlags.format)
		if format != "midi" && format != "wav" {
			return errors.Errorf("invalid --format %q (expected midi|wav)", exportFlags.format)
		}
		if err := os.MkdirAll(exportFlags.outDir, 0o755); err != nil {
			return errors.Wrap(err, "create output directory")
		}

		results := make([]exportResult, len(args))
		var failed int32
		wg := sizedwaitgroup.New(max(cfg.Workers, 1))
		for i, path := range args {
			wg.Add()
			go func(i int, path string) {
				defer wg.Done()
				out, size, err := exportFile(path, format, exportFlags.outDir)
				if err != nil {
					atomic.AddInt32(&failed, 1)
					logger.Error("export failed", err, logger.Fields{"file": path})
				}
				results[i] = exportResult{path: out, size: size, err: err}
			}(i, path)
		}
		wg.Wait()

		for _, r := range results {
			if r.err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", r.path, humanize.Bytes(uint64(r.size)))
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

// exportFile compiles path and writes it to outDir with the format's
// extension, returning the written file and its size.
func exportFile(path, format, outDir string) (string, int64, error) {
	song, err := abcplay.CompileFile(path)
	if err != nil {
		return "", 0, err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	perf := song.Perform()

	switch format {
	case "midi":
		var buf bytes.Buffer
		if _, err := midi.Write(&buf, perf, midi.Options{TrackName: song.Title}); err != nil {
			return "", 0, err
		}
		out := filepath.Join(outDir, base+".mid")
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return "", 0, errors.Wrap(err, "write midi")
		}
		return out, int64(buf.Len()), nil
	default:
		var engine intseq.VoiceEngine
		if cfg.UsesSoundFont() {
			sf, err := intsynth.LoadSoundFont(cfg.SoundFont, cfg.SampleRate)
			if err != nil {
				return "", 0, err
			}
			engine = sf
		}
		samples := abcplay.RenderSamples(perf, cfg.SampleRate, engine)
		out := filepath.Join(outDir, base+".wav")
		f, err := os.Create(out)
		if err != nil {
			return "", 0, errors.Wrap(err, "create wav")
		}
		defer f.Close()
		if err := abcplay.WriteWAV(f, samples, cfg.SampleRate); err != nil {
			return "", 0, err
		}
		info, err := f.Stat()
		if err != nil {
			return "", 0, errors.Wrap(err, "stat wav")
		}
		return out, info.Size(), nil
	}
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.format, "format", "midi", "output format: midi|wav")
	exportCmd.Flags().StringVar(&exportFlags.outDir, "out", ".", "output directory")
	rootCmd.AddCommand(exportCmd)
}
