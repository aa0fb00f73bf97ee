package fileindex

import "testing"

func openTestStamps(t *testing.T) *indexingStamps {
	t.Helper()
	s, err := openIndexingStamps(t.TempDir())
	if err != nil {
		t.Fatalf("openIndexingStamps: %v", err)
	}
	t.Cleanup(func() { s.Dispose() })
	return s
}

func TestIndexingStampsMarkAndIsUpToDate(t *testing.T) {
	s := openTestStamps(t)

	upToDate, err := s.IsUpToDate(1, IndexId("words"), 100)
	if err != nil {
		t.Fatalf("IsUpToDate: %v", err)
	}
	if upToDate {
		t.Fatal("expected not up to date before any mark")
	}

	if err := s.Mark(1, IndexId("words"), 100); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	upToDate, err = s.IsUpToDate(1, IndexId("words"), 100)
	if err != nil || !upToDate {
		t.Fatalf("expected up to date at the same modTime, got %v err=%v", upToDate, err)
	}

	upToDate, err = s.IsUpToDate(1, IndexId("words"), 200)
	if err != nil || upToDate {
		t.Fatalf("expected stale once modTime advances, got %v err=%v", upToDate, err)
	}
}

func TestIndexingStampsAreIndependentPerIndex(t *testing.T) {
	s := openTestStamps(t)

	s.Mark(1, IndexId("words"), 100)

	upToDate, err := s.IsUpToDate(1, IndexId("symbols"), 100)
	if err != nil {
		t.Fatalf("IsUpToDate: %v", err)
	}
	if upToDate {
		t.Fatal("expected a stamp for one index to not cover a different index")
	}
}

func TestIndexingStampsForget(t *testing.T) {
	s := openTestStamps(t)
	s.Mark(1, IndexId("words"), 100)

	if err := s.Forget(1); err != nil {
		t.Fatalf("Forget: %v", err)
	}

	upToDate, err := s.IsUpToDate(1, IndexId("words"), 100)
	if err != nil {
		t.Fatalf("IsUpToDate: %v", err)
	}
	if upToDate {
		t.Fatal("expected stamps to be gone after Forget")
	}
}
