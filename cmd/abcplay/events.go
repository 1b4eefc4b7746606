package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cbegin/abcplay-go"
	"github.com/cbegin/abcplay-go/internal/midi"
)

var eventsCmd = &cobra.Command{
	Use:   "events <file>",
	Short: "List the note events of a tune",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		song, err := abcplay.CompileFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), midi.Dump(song.Perform()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
