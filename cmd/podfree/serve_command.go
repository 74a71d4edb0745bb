package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seantiz/podfree/internal/api"
	"github.com/seantiz/podfree/internal/model"
	"github.com/seantiz/podfree/internal/store"
	"github.com/seantiz/podfree/internal/workspace"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var workspaceFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			logger := ctx.logger(os.Stdout)

			root := cfg.Workspace
			if workspaceFlag != "" {
				root = workspaceFlag
			}
			if root == "" {
				root = "."
			}

			logger.Info("podfree: starting",
				"listen_addr", cfg.ListenAddr,
				"db_path", cfg.DBPath,
				"workspace", root,
			)

			db, err := store.NewSQLiteStore(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			ws, err := workspace.New(root, logger)
			if err != nil {
				return fmt.Errorf("open workspace: %w", err)
			}

			eng := ctx.newEngine(logger)
			// Finished jobs usually leave new files behind.
			eng.OnFinish(func(job model.Job) {
				ws.Invalidate()
			})

			srv := api.NewServer(cfg.ListenAddr, cfg.CORSOrigins, eng, ws, db, logger)
			if err := srv.Run(); err != nil {
				return err
			}

			logger.Info("waiting for running jobs")
			eng.Wait()
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace directory (overrides config)")
	return cmd
}
