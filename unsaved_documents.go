package fileindex

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// UnsavedDocumentsOverlay tracks editor-buffer content that has not yet
// been written to disk, so queries can see "what if this buffer were
// saved" without the collector ever observing a filesystem event for it.
// Per spec.md §4.7, entering buffering mode on a document's content-
// dependent indices invalidates their up-to-date flag for that document,
// forcing the next query to re-run the indexer against the live buffer
// rather than trusting stale state left over from before buffering
// started.
type UnsavedDocumentsOverlay struct {
	registry *Registry

	mu       sync.Mutex
	buffers  map[string][]byte // docID -> current buffer content
	inputIDs map[string]int    // docID -> the file id this buffer shadows
	upToDate map[string]bool   // docID -> buffered index state reflects buffers[docID]
}

// NewUnsavedDocumentsOverlay returns an overlay bound to r.
func NewUnsavedDocumentsOverlay(r *Registry) *UnsavedDocumentsOverlay {
	return &UnsavedDocumentsOverlay{
		registry: r,
		buffers:  make(map[string][]byte),
		inputIDs: make(map[string]int),
		upToDate: make(map[string]bool),
	}
}

// BeginTransaction records that docID is now backed by an editor buffer
// rather than its on-disk content, and turns buffering on across every
// content-dependent index so writes against inputID stay in memory only.
func (o *UnsavedDocumentsOverlay) BeginTransaction(docID string, inputID int) {
	o.mu.Lock()
	o.inputIDs[docID] = inputID
	o.upToDate[docID] = false
	o.mu.Unlock()

	o.registry.bus.publishTransactionStarted(docID)

	for _, id := range o.registry.ContentDependentIndices() {
		if h, ok := o.registry.handles.Load(id); ok {
			h.(indexHandle).SetBuffering(true)
		}
	}
}

// DocumentChanged records new buffer content for docID and marks it stale,
// so the next EnsureIndexed call re-runs the indexer.
func (o *UnsavedDocumentsOverlay) DocumentChanged(docID string, content []byte) {
	o.mu.Lock()
	o.buffers[docID] = content
	o.upToDate[docID] = false
	o.mu.Unlock()
}

// EndTransaction drops the buffer, turns buffering back off (discarding
// whatever was buffered, never flushing editor-buffer state to disk), and
// publishes completion.
func (o *UnsavedDocumentsOverlay) EndTransaction(docID string) {
	o.mu.Lock()
	delete(o.buffers, docID)
	delete(o.inputIDs, docID)
	delete(o.upToDate, docID)
	o.mu.Unlock()

	for _, id := range o.registry.ContentDependentIndices() {
		if h, ok := o.registry.handles.Load(id); ok {
			h.(indexHandle).SetBuffering(false)
		}
	}
	o.registry.bus.publishTransactionDone(docID)
}

// EnsureIndexed re-runs every content-dependent index's Update against
// docID's current buffer if it is not already up to date. Safe to call on
// every query; it is a no-op once the buffer has already been indexed.
func (o *UnsavedDocumentsOverlay) EnsureIndexed(ctx context.Context, docID string) error {
	o.mu.Lock()
	upToDate := o.upToDate[docID]
	content, hasBuffer := o.buffers[docID]
	inputID, hasInput := o.inputIDs[docID]
	o.mu.Unlock()

	if upToDate || !hasBuffer || !hasInput {
		return nil
	}

	for _, id := range o.registry.ContentDependentIndices() {
		if err := o.registry.UpdateSingleIndex(ctx, id, inputID, content, time.Now().UnixNano()); err != nil {
			log.Warn().Err(err).Str("doc", docID).Str("index", string(id)).Msg("fileindex: buffered reindex failed")
		}
	}

	o.mu.Lock()
	o.upToDate[docID] = true
	o.mu.Unlock()
	return nil
}

// EnsureAllIndexed runs EnsureIndexed for every document currently tracked
// by this overlay. The registry calls this as part of ensureUpToDate so a
// normal query transparently observes buffered editor content instead of
// requiring the caller to thread a doc id through and call EnsureIndexed
// itself, per spec.md §4.6 step 5.
func (o *UnsavedDocumentsOverlay) EnsureAllIndexed(ctx context.Context) error {
	o.mu.Lock()
	docIDs := make([]string, 0, len(o.buffers))
	for docID := range o.buffers {
		docIDs = append(docIDs, docID)
	}
	o.mu.Unlock()

	for _, docID := range docIDs {
		if err := o.EnsureIndexed(ctx, docID); err != nil {
			return err
		}
	}
	return nil
}
