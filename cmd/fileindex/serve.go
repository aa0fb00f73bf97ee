package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpl-au/fileindex"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var projectRoot string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the registry, collector, and flush daemon against a project directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(context.Background(), projectRoot, storeRoot)
		},
	}

	cmd.Flags().StringVar(&projectRoot, "root", ".", "project directory to index")
	return cmd
}

func runServe(ctx context.Context, projectRoot, storeDir string) error {
	registry, err := fileindex.NewRegistry(storeDir)
	if err != nil {
		return err
	}
	defer registry.Dispose()

	if _, err := fileindex.RegisterIndex(registry, wordsExtension()); err != nil {
		return err
	}

	collector, err := fileindex.NewCollector(projectRoot, registry)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collector.Start(ctx)
	defer collector.Stop()

	daemon := fileindex.NewFlushDaemon(registry)
	daemon.Start(ctx)
	defer daemon.Stop()

	log.Info().Str("root", projectRoot).Str("store", storeDir).Msg("fileindex: serving")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info().Msg("fileindex: shutting down")
	case <-ctx.Done():
	}
	return nil
}
