package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cbegin/abcplay-go"
)

var playFlags struct {
	loop       bool
	loops      int
	volume     float64
	transpose  int
	velocity   int
	soundFont  string
	sampleRate int
}

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play a tune on the default audio device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		song, err := abcplay.CompileFile(args[0])
		if err != nil {
			return err
		}
		sampleRate := cfg.SampleRate
		if cmd.Flags().Changed("sample-rate") {
			sampleRate = playFlags.sampleRate
		}
		soundFont := cfg.SoundFont
		if cmd.Flags().Changed("soundfont") {
			soundFont = playFlags.soundFont
		}

		pl, err := abcplay.NewPlayer(sampleRate,
			abcplay.WithLoopPlayback(playFlags.loop),
			abcplay.WithSoundFont(soundFont),
			abcplay.WithVelocity(playFlags.velocity),
		)
		if err != nil {
			return err
		}
		pl.SetMasterVolume(playFlags.volume)
		pl.SetTranspose(playFlags.transpose)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "playing %q (%s)\n", song.Title, song.Key)
		ch := pl.Watch()
		if err := pl.Play(song); err != nil {
			return err
		}
		loopCount := 0
		for event := range ch {
			switch event.Kind {
			case abcplay.EventPlaybackEnded:
				fmt.Fprintln(out, "playback completed")
				pl.Wait()
				return nil
			case abcplay.EventLoopCompleted:
				loopCount++
				fmt.Fprintf(out, "loop %d completed\n", loopCount)
				if playFlags.loop && playFlags.loops > 0 && loopCount >= playFlags.loops {
					if err := pl.Stop(); err != nil {
						return err
					}
				}
			}
		}
		return nil
	},
}

func init() {
	f := playCmd.Flags()
	f.BoolVar(&playFlags.loop, "loop", false, "loop playback; use with --loops to count then stop")
	f.IntVar(&playFlags.loops, "loops", 3, "when --loop, stop after N loops (0 = loop forever)")
	f.Float64Var(&playFlags.volume, "volume", 1.0, "master volume scalar")
	f.IntVar(&playFlags.transpose, "transpose", 0, "transpose by semitones")
	f.IntVar(&playFlags.velocity, "velocity", 100, "note velocity (1-127)")
	f.StringVar(&playFlags.soundFont, "soundfont", "", "render through this .sf2 instead of FM")
	f.IntVar(&playFlags.sampleRate, "sample-rate", 48000, "output sample rate")
	rootCmd.AddCommand(playCmd)
}
