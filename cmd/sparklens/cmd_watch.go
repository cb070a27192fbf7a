package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sparklens/internal/ingest"
	"sparklens/internal/store"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and ingest log files as they appear",
	Long: `Watches a directory and automatically parses any log file created in it.
The directory defaults to ingest.watch_dir from the configuration. Runs until
interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Ingest.WatchDir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			return fmt.Errorf("no directory given and ingest.watch_dir not configured")
		}

		ctx, cancel := signalContext()
		defer cancel()

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		svc := ingest.NewService(buildParser(cfg), st, cfg.Ingest.Workers)
		logger.Info("watching directory",
			zap.String("dir", dir),
			zap.Int("workers", cfg.Ingest.Workers))
		fmt.Printf("Watching %s (Ctrl-C to stop)\n", dir)

		err = ingest.NewWatcher(svc, dir).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
