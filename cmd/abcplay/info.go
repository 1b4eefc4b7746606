package main

import (
	"fmt"
	"strings"

	"github.com/hako/durafmt"
	"github.com/spf13/cobra"

	"github.com/cbegin/abcplay-go"
	"github.com/cbegin/abcplay-go/internal/abc"
	"github.com/cbegin/abcplay-go/internal/logger"
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

var infoCmd = &cobra.Command{
	Use:   "info <file>...",
	Short: "Print the header summary of tunes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			song, err := abcplay.CompileFile(path)
			if err != nil {
				logger.Error("compile failed", err, logger.Fields{"file": path})
				failed++
				continue
			}
			fmt.Fprint(cmd.OutOrStdout(), formatInfo(path, song.Info()))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

func formatInfo(path string, info abc.SongInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", path)
	fmt.Fprintf(&b, "  Index:    %s\n", info.Index)
	fmt.Fprintf(&b, "  Title:    %s\n", info.Title)
	fmt.Fprintf(&b, "  Composer: %s\n", info.Composer)
	fmt.Fprintf(&b, "  Key:      %s\n", info.Key)
	fmt.Fprintf(&b, "  Meter:    %s\n", info.Meter)
	fmt.Fprintf(&b, "  Length:   %s (unit %s)\n", info.Length, info.DefaultLength)
	fmt.Fprintf(&b, "  Tempo:    %d\n", info.Tempo)
	fmt.Fprintf(&b, "  Voices:   %s\n", strings.Join(info.Voices, ", "))
	fmt.Fprintf(&b, "  Duration: %s\n", durafmt.Parse(info.Duration).LimitFirstN(2).Format(shortUnits))
	return b.String()
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
