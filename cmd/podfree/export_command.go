package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/seantiz/podfree/internal/engine"
	"github.com/seantiz/podfree/internal/model"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		workspaceFlag string
		sourceFlag    string
		wordsFlag     string
		kindFlag      string
		outputFlag    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render an edited audio or video file from a word edit list",
		RunE: func(cmd *cobra.Command, args []string) error {
			root := workspaceFlag
			if root == "" {
				root = ctx.config.Workspace
			}
			if root == "" {
				root = "."
			}

			words, err := readWords(wordsFlag)
			if err != nil {
				return err
			}

			eng := ctx.newEngine(ctx.logger(cmd.ErrOrStderr()))
			res, err := eng.StartExport(engine.ExportRequest{
				Workspace: root,
				Source:    sourceFlag,
				Words:     words,
				Output:    outputFlag,
				Kind:      kindFlag,
			})
			if err != nil {
				return err
			}

			job, err := eng.Jobs().Wait(context.Background(), res.JobID)
			eng.Wait()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if job.Status != model.StatusCompleted {
				for _, line := range job.Logs {
					fmt.Fprintln(cmd.ErrOrStderr(), line)
				}
				return fmt.Errorf("export failed: %s", job.Message)
			}

			size := "unknown size"
			if info, err := os.Stat(filepath.Join(root, res.OutputFile)); err == nil {
				size = humanize.Bytes(uint64(info.Size()))
			}
			fmt.Fprintf(out, "Wrote %s (%s)\n", res.OutputFile, size)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace directory (overrides config)")
	cmd.Flags().StringVarP(&sourceFlag, "source", "s", "", "Source media, relative to the workspace")
	cmd.Flags().StringVar(&wordsFlag, "words", "", "JSON file with the edited words")
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", model.KindAudio, "Export kind: audio or video")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file name (default <source>_edited.<ext>)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("words")
	return cmd
}
