package fileindex

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
)

// ProjectFile is one file discovered under a scan root, enough
// information for UnindexedFilesFinder to decide whether it needs
// (re)indexing without re-reading its content up front.
type ProjectFile struct {
	Path    string
	InputID int
	ModTime int64
}

// UnindexedFilesFinder scans a project's files and returns those missing
// an up-to-date IndexingStamp for some content-dependent index. It
// updates content-less indices inline as it scans, since those need no
// file content and so cost nothing extra to keep current during the
// walk, and tracks an "already processed" flag per file so one scan never
// revisits the same file twice even if the caller's file list has
// duplicates.
type UnindexedFilesFinder struct {
	registry *Registry
	readFile func(path string) ([]byte, error)
}

// NewUnindexedFilesFinder returns a finder bound to r. readFile defaults
// to os.ReadFile if nil.
func NewUnindexedFilesFinder(r *Registry, readFile func(string) ([]byte, error)) *UnindexedFilesFinder {
	if readFile == nil {
		readFile = os.ReadFile
	}
	return &UnindexedFilesFinder{registry: r, readFile: readFile}
}

// Scan walks files, updates every content-less index inline, and returns
// the subset of files that still need a content-dependent reindex.
func (f *UnindexedFilesFinder) Scan(ctx context.Context, files []ProjectFile) ([]ProjectFile, error) {
	processed := make(map[int]bool, len(files))
	contentless := f.registry.ContentlessIndices()
	contentDependent := f.registry.ContentDependentIndices()

	var stale []ProjectFile

	for _, file := range files {
		select {
		case <-ctx.Done():
			return stale, ErrCancelled
		default:
		}

		if processed[file.InputID] {
			continue
		}
		processed[file.InputID] = true

		for _, id := range contentless {
			if err := f.registry.UpdateSingleIndex(ctx, id, file.InputID, nil, file.ModTime); err != nil {
				log.Warn().Err(err).Str("index", string(id)).Str("path", file.Path).Msg("fileindex: content-less update failed")
			}
		}

		needsReindex := false
		for _, id := range contentDependent {
			upToDate, err := f.registry.stamps.IsUpToDate(file.InputID, id, file.ModTime)
			if err != nil {
				needsReindex = true
				continue
			}
			if !upToDate {
				needsReindex = true
			}
		}
		if needsReindex {
			stale = append(stale, file)
		}
	}

	return stale, nil
}

// Reindex reads and indexes every content-dependent index against each of
// files, meant to be called with the subset Scan returned as stale.
func (f *UnindexedFilesFinder) Reindex(ctx context.Context, files []ProjectFile) error {
	contentDependent := f.registry.ContentDependentIndices()

	for _, file := range files {
		select {
		case <-ctx.Done():
			return ErrCancelled
		default:
		}

		content, err := f.readFile(file.Path)
		if err != nil {
			log.Warn().Err(err).Str("path", file.Path).Msg("fileindex: could not read file for reindex")
			continue
		}

		for _, id := range contentDependent {
			if err := f.registry.UpdateSingleIndex(ctx, id, file.InputID, content, file.ModTime); err != nil {
				log.Warn().Err(err).Str("index", string(id)).Str("path", file.Path).Msg("fileindex: reindex failed")
			}
		}
	}
	return nil
}
