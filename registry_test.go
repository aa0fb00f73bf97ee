package fileindex

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/jpl-au/fileindex/internal/store"
)

// testWordsIndexer is a minimal Indexer[string,int] used throughout the
// registry/query tests: it counts words per file the same way
// cmd/fileindex's demo extension does.
type testWordsIndexer struct{}

func (testWordsIndexer) Index(_ context.Context, _ int, content []byte) (map[string]int, error) {
	counts := make(map[string]int)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		counts[strings.ToLower(scanner.Text())]++
	}
	return counts, nil
}

func testWordsExtension() Extension[string, int] {
	return Extension[string, int]{
		ID:                   IndexId("words"),
		Version:              1,
		KeyDescriptor:        store.StringCodec{},
		ValueExternalizer:    store.IntCodec{},
		Indexer:              testWordsIndexer{},
		DependsOnFileContent: true,
	}
}

func TestRegisterIndexFreshIsRequiresRebuild(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer r.Dispose()

	outcome, err := RegisterIndex(r, testWordsExtension())
	if err != nil {
		t.Fatalf("RegisterIndex: %v", err)
	}
	if outcome != store.Fresh {
		t.Fatalf("expected Fresh, got %v", outcome)
	}
	if r.Status(IndexId("words")) != StatusRequiresRebuild {
		t.Fatalf("expected a freshly-registered index to require a rebuild, got %v", r.Status(IndexId("words")))
	}
}

func TestUpdateSingleIndexMarksOK(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer r.Dispose()

	RegisterIndex(r, testWordsExtension())

	err = r.ScheduleIndexRebuild(context.Background(), IndexId("words"), func(ctx context.Context) error {
		return r.UpdateSingleIndex(ctx, IndexId("words"), 1, []byte("hello hello world"), 1)
	})
	if err != nil {
		t.Fatalf("ScheduleIndexRebuild: %v", err)
	}
	if r.Status(IndexId("words")) != StatusOK {
		t.Fatalf("expected OK after successful rebuild, got %v", r.Status(IndexId("words")))
	}

	index, err := Lookup[string, int](r, IndexId("words"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	container, err := index.GetData("hello")
	if err != nil || container == nil {
		t.Fatalf("expected data for 'hello', err=%v container=%v", err, container)
	}
	ids := container.InputIDsFor(2)
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected input 1 to have count 2 for 'hello', got ids=%v", ids)
	}
}

func TestLookupWrongTypeFails(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer r.Dispose()

	RegisterIndex(r, testWordsExtension())

	if _, err := Lookup[int, string](r, IndexId("words")); err == nil {
		t.Fatal("expected error looking up a registered index with mismatched K/V types")
	}
}

func TestLookupUnknownIndex(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer r.Dispose()

	if _, err := Lookup[string, int](r, IndexId("nonexistent")); err != ErrUnknownIndex {
		t.Fatalf("expected ErrUnknownIndex, got %v", err)
	}
}

func TestContentDependentVsContentlessIndices(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer r.Dispose()

	RegisterIndex(r, testWordsExtension())

	metaExt := Extension[string, int]{
		ID:                IndexId("meta"),
		Version:           1,
		KeyDescriptor:     store.StringCodec{},
		ValueExternalizer: store.IntCodec{},
		Indexer:           testWordsIndexer{},
	}
	RegisterIndex(r, metaExt)

	dependent := r.ContentDependentIndices()
	if len(dependent) != 1 || dependent[0] != IndexId("words") {
		t.Fatalf("expected only 'words' to be content-dependent, got %v", dependent)
	}

	contentless := r.ContentlessIndices()
	if len(contentless) != 1 || contentless[0] != IndexId("meta") {
		t.Fatalf("expected only 'meta' to be content-less, got %v", contentless)
	}
}

func TestRegistryDisposeClearsWorkInProgressMarker(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	RegisterIndex(r, testWordsExtension())

	if err := r.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}

	r2, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("reopen NewRegistry: %v", err)
	}
	defer r2.Dispose()

	outcome, err := RegisterIndex(r2, testWordsExtension())
	if err != nil {
		t.Fatalf("RegisterIndex on reopen: %v", err)
	}
	if outcome != store.Reopened {
		t.Fatalf("expected Reopened after a clean shutdown, got %v", outcome)
	}
}

func TestRegistryForcesRebuildAfterUncleanShutdown(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	RegisterIndex(r, testWordsExtension())
	// No Dispose(): simulates a crash, leaving the WorkInProgressMarker behind.

	r2, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("reopen NewRegistry: %v", err)
	}
	defer r2.Dispose()

	RegisterIndex(r2, testWordsExtension())
	if r2.Status(IndexId("words")) != StatusRequiresRebuild {
		t.Fatalf("expected forced rebuild after unclean shutdown, got %v", r2.Status(IndexId("words")))
	}
}
