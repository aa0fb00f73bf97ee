package fileindex

import (
	"context"
	"testing"
)

func TestUnindexedFilesFinderScanFindsStaleFiles(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer r.Dispose()
	RegisterIndex(r, testWordsExtension())

	content := map[int][]byte{
		1: []byte("one"),
		2: []byte("two"),
	}
	readFile := func(path string) ([]byte, error) { return content[len(path)], nil } // path used only as a distinguishing key below

	finder := NewUnindexedFilesFinder(r, func(path string) ([]byte, error) {
		return []byte(path), nil
	})

	files := []ProjectFile{
		{Path: "a", InputID: 1, ModTime: 10},
		{Path: "bb", InputID: 2, ModTime: 20},
	}

	stale, err := finder.Scan(context.Background(), files)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("expected both files stale on first scan, got %d", len(stale))
	}

	if err := finder.Reindex(context.Background(), stale); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	stale, err = finder.Scan(context.Background(), files)
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected no stale files after reindexing at the same modTime, got %d", len(stale))
	}
	_ = readFile
}

func TestUnindexedFilesFinderScanDeduplicatesByInputID(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer r.Dispose()
	RegisterIndex(r, testWordsExtension())

	finder := NewUnindexedFilesFinder(r, func(path string) ([]byte, error) { return []byte("x"), nil })

	files := []ProjectFile{
		{Path: "a", InputID: 1, ModTime: 10},
		{Path: "a-dup", InputID: 1, ModTime: 10},
	}

	stale, err := finder.Scan(context.Background(), files)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected duplicate input id to be processed only once, got %d entries", len(stale))
	}
}

func TestUnindexedFilesFinderUpdatesContentlessIndicesInline(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer r.Dispose()

	metaExt := testWordsExtension()
	metaExt.ID = IndexId("meta")
	metaExt.DependsOnFileContent = false
	RegisterIndex(r, metaExt)

	finder := NewUnindexedFilesFinder(r, func(path string) ([]byte, error) { return nil, nil })

	files := []ProjectFile{{Path: "a", InputID: 1, ModTime: 10}}
	if _, err := finder.Scan(context.Background(), files); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if r.Status(IndexId("meta")) == StatusRequiresRebuild {
		t.Fatal("expected content-less index update during Scan to not leave it flagged for rebuild")
	}
}
