package fileindex

import "testing"

func TestEventBusRebuildRequested(t *testing.T) {
	b := newEventBus()
	var got IndexId
	b.subscribeRebuildRequested(func(id IndexId) { got = id })

	b.publishRebuildRequested(IndexId("words"))

	if got != IndexId("words") {
		t.Fatalf("expected subscriber to observe IndexId(words), got %v", got)
	}
}

func TestEventBusStatusChanged(t *testing.T) {
	b := newEventBus()
	var gotID IndexId
	var gotStatus RebuildStatus
	b.subscribeStatusChanged(func(id IndexId, s RebuildStatus) {
		gotID = id
		gotStatus = s
	})

	b.publishStatusChanged(IndexId("words"), StatusOK)

	if gotID != IndexId("words") || gotStatus != StatusOK {
		t.Fatalf("expected (words, StatusOK), got (%v, %v)", gotID, gotStatus)
	}
}

func TestEventBusBufferingChanged(t *testing.T) {
	b := newEventBus()
	var gotBuffering bool
	b.subscribeBufferingChanged(func(id IndexId, buffering bool) { gotBuffering = buffering })

	b.publishBufferingChanged(IndexId("words"), true)

	if !gotBuffering {
		t.Fatal("expected subscriber to observe buffering=true")
	}
}

func TestEventBusMemoryCleared(t *testing.T) {
	b := newEventBus()
	fired := false
	b.subscribeMemoryCleared(func(id IndexId) { fired = true })

	b.publishMemoryCleared(IndexId("words"))

	if !fired {
		t.Fatal("expected MemoryCleared subscriber to fire")
	}
}
