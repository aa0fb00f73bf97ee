// Command fileindex inspects and administers a fileindex store: it can
// serve a live registry against a project directory, query a running
// index's keys/values/files, force a rebuild, or print per-index status.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	storeRoot string
	logLevel  string
)

func main() {
	root := &cobra.Command{
		Use:           "fileindex",
		Short:         "Inspect and administer a fileindex store",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			zerolog.SetGlobalLevel(level)
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&storeRoot, "store", "./.fileindex", "directory holding the index store")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newQueryCommand())
	root.AddCommand(newRebuildCommand())
	root.AddCommand(newStatsCommand())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("fileindex: command failed")
	}
}
