package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seantiz/podfree/internal/ffmpeg"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Print the duration of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ffmpeg.Duration(cmd.Context(), ctx.config.FFprobe, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s (%s)\n", args[0], ffmpeg.FormatSeconds(d), formatSeconds(d))
			return nil
		},
	}
}
