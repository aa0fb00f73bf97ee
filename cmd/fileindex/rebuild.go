package main

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/jpl-au/fileindex"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/zeebo/xxh3"
)

func newRebuildCommand() *cobra.Command {
	var projectRoot string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Force a full rescan of the project directory into the words index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebuild(context.Background(), projectRoot, storeRoot)
		},
	}

	cmd.Flags().StringVar(&projectRoot, "root", ".", "project directory to scan")
	return cmd
}

func runRebuild(ctx context.Context, projectRoot, storeDir string) error {
	registry, err := fileindex.NewRegistry(storeDir)
	if err != nil {
		return err
	}
	defer registry.Dispose()

	outcome, err := fileindex.RegisterIndex(registry, wordsExtension())
	if err != nil {
		return err
	}
	log.Info().Str("outcome", outcome.String()).Msg("fileindex: words index registered")

	files, err := collectProjectFiles(projectRoot)
	if err != nil {
		return err
	}

	registry.RequestRebuild(wordsIndexID)
	return registry.ScheduleIndexRebuild(ctx, wordsIndexID, func(ctx context.Context) error {
		finder := fileindex.NewUnindexedFilesFinder(registry, nil)
		return finder.Reindex(ctx, files)
	})
}

// collectProjectFiles walks root and assigns each regular file a stable
// input id derived from its path hash, matching the scheme the collector
// uses so a file rediscovered by a later scan keeps the same id.
func collectProjectFiles(root string) ([]fileindex.ProjectFile, error) {
	var files []fileindex.ProjectFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, fileindex.ProjectFile{
			Path:    path,
			InputID: int(xxh3.HashString(path) & 0x7fffffff),
			ModTime: info.ModTime().UnixNano(),
		})
		return nil
	})
	return files, err
}
