package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/seantiz/podfree/internal/ffmpeg"
	"github.com/seantiz/podfree/internal/segment"
)

func newSegmentsCommand(ctx *commandContext) *cobra.Command {
	var wordsFlag string

	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Show the time ranges an edit list keeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := readWords(wordsFlag)
			if err != nil {
				return err
			}
			segments := segment.Build(words)
			kept, deleted := segment.Stats(words)

			rows := make([][]string, 0, len(segments))
			for i, seg := range segments {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					ffmpeg.FormatSeconds(seg.Start),
					ffmpeg.FormatSeconds(seg.End),
					formatSeconds(seg.Duration()),
				})
			}
			total := segment.TotalDuration(segments)
			footer := []string{"", "", "total", formatSeconds(total)}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Start", "End", "Length"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
				footer,
			))
			fmt.Fprintf(out, "%s segments, %s words kept, %s deleted\n",
				humanize.Comma(int64(len(segments))),
				humanize.Comma(int64(kept)),
				humanize.Comma(int64(deleted)),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&wordsFlag, "words", "", "JSON file with the edited words")
	_ = cmd.MarkFlagRequired("words")
	return cmd
}

// formatSeconds renders a length in seconds as a rounded duration, e.g. 1m2.5s.
func formatSeconds(s float64) string {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond).String()
}
