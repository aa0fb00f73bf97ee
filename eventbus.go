package fileindex

import (
	"github.com/asaskevich/EventBus"
)

// Event bus topics. Fan-out notifications travel through these; each
// handler runs inside Publish, before Publish returns. Direct collaboration (the collector asking the registry to
// update an index) goes through a direct interface call instead, per
// spec.md §9's redesign note against a pointer cycle between collector and
// registry.
const (
	TopicRebuildRequested   = "index:rebuild-requested"
	TopicStatusChanged      = "index:status-changed"
	TopicBufferingChanged   = "overlay:buffering-changed"
	TopicMemoryCleared      = "overlay:cleared"
	TopicTransactionStarted = "transaction:started"
	TopicTransactionDone    = "transaction:completed"
	TopicFileReloaded       = "file:content-reloaded"
	TopicWriteActionStarted = "write-action:started"
)

// eventBus is a thin typed wrapper over EventBus.Bus, grounded on the
// pack's weisyn-go-weisyn persistence/repair manager which injects a
// similar bus field into its coordinator rather than wiring callers
// together directly.
type eventBus struct {
	bus EventBus.Bus
}

func newEventBus() *eventBus {
	return &eventBus{bus: EventBus.New()}
}

// RebuildRequested fires with the IndexId that needs rebuilding.
func (b *eventBus) publishRebuildRequested(id IndexId) { b.bus.Publish(TopicRebuildRequested, id) }

func (b *eventBus) subscribeRebuildRequested(fn func(IndexId)) error {
	return b.bus.Subscribe(TopicRebuildRequested, fn)
}

// StatusChanged fires with the IndexId and its new RebuildStatus.
func (b *eventBus) publishStatusChanged(id IndexId, status RebuildStatus) {
	b.bus.Publish(TopicStatusChanged, id, status)
}

func (b *eventBus) subscribeStatusChanged(fn func(IndexId, RebuildStatus)) error {
	return b.bus.Subscribe(TopicStatusChanged, fn)
}

// BufferingChanged fires with the IndexId and the new buffering state.
func (b *eventBus) publishBufferingChanged(id IndexId, buffering bool) {
	b.bus.Publish(TopicBufferingChanged, id, buffering)
}

func (b *eventBus) subscribeBufferingChanged(fn func(IndexId, bool)) error {
	return b.bus.Subscribe(TopicBufferingChanged, fn)
}

// MemoryCleared fires when a MemoryOverlay drops its buffered changes
// without flushing, e.g. on leaving buffering mode.
func (b *eventBus) publishMemoryCleared(id IndexId) { b.bus.Publish(TopicMemoryCleared, id) }

func (b *eventBus) subscribeMemoryCleared(fn func(IndexId)) error {
	return b.bus.Subscribe(TopicMemoryCleared, fn)
}

func (b *eventBus) publishTransactionStarted(docID string)  { b.bus.Publish(TopicTransactionStarted, docID) }
func (b *eventBus) publishTransactionDone(docID string)     { b.bus.Publish(TopicTransactionDone, docID) }
func (b *eventBus) publishFileReloaded(inputID int)         { b.bus.Publish(TopicFileReloaded, inputID) }
func (b *eventBus) publishWriteActionStarted()              { b.bus.Publish(TopicWriteActionStarted) }
