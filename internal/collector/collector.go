// Package collector turns a filesystem into a stream of index updates: it
// watches a project root with fsnotify, maintains the set of files that
// still need reindexing, and drains that set under a barrier so every
// caller of ForceUpdate leaves only once the whole batch has been
// applied, not just their own file.
//
// Grounded on the pack's fsnotify-driven indexing daemons (the vault cache
// service's watchLoop/dirty-map/Refresh three-phase shape) and on
// golang.org/x/sync's semaphore and errgroup packages for the drain
// barrier and per-file fan-out, replacing a hand-rolled counter.
package collector

import (
	"container/list"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// IndexUpdater is the narrow, synchronous interface the collector drives
// directly, rather than holding a pointer back into a registry's
// internals (spec.md §9's redesign note against a collector<->registry
// ownership cycle).
type IndexUpdater interface {
	ContentDependentIndices() []string
	ContentlessIndices() []string
	UpdateIndex(ctx context.Context, indexID string, inputID int, content []byte, modTime int64) error
	UpdateContentlessIndices(ctx context.Context, inputID int, modTime int64) error
	RemoveInput(inputID int)
}

// EventKind is the collector's VFS event taxonomy.
type EventKind int

const (
	BeforeContentsChange EventKind = iota
	ContentsChanged
	FileCreated
	FileCopied
	BeforeFileDeletion
	BeforePropertyChange
	PropertyChanged
)

func (k EventKind) String() string {
	switch k {
	case BeforeContentsChange:
		return "beforeContentsChange"
	case ContentsChanged:
		return "contentsChanged"
	case FileCreated:
		return "fileCreated"
	case FileCopied:
		return "fileCopied"
	case BeforeFileDeletion:
		return "beforeFileDeletion"
	case BeforePropertyChange:
		return "beforePropertyChange"
	case PropertyChanged:
		return "propertyChanged"
	default:
		return "unknown"
	}
}

type pendingFile struct {
	path    string
	modTime int64
}

// Collector maintains filesToUpdate and futureInvalidations and drives
// IndexUpdater off a real fsnotify.Watcher.
type Collector struct {
	root    string
	updater IndexUpdater
	watcher Watcher

	pathToID sync.Map // string -> int
	idToPath sync.Map // int -> string

	filesToUpdate sync.Map // int -> *pendingFile

	futureMu            sync.Mutex
	futureInvalidations *list.List // queued files seen before any content-dependent index existed

	drainSem *semaphore.Weighted

	done chan struct{}
	wg   sync.WaitGroup
}

// New opens a real fsnotify watcher recursively over root and returns a
// Collector bound to updater. Call Start to begin processing events.
func New(root string, updater IndexUpdater) (*Collector, error) {
	w, err := newFsWatcher(root)
	if err != nil {
		return nil, err
	}
	return &Collector{
		root:                root,
		updater:             updater,
		watcher:             w,
		futureInvalidations: list.New(),
		drainSem:            semaphore.NewWeighted(1),
		done:                make(chan struct{}),
	}, nil
}

// inputIDFor returns a stable id for path, derived from the xxh3 hash of
// the path the same way cmd/fileindex's collectProjectFiles derives it.
func (c *Collector) inputIDFor(path string) int {
	if v, ok := c.pathToID.Load(path); ok {
		return v.(int)
	}
	id := int(xxh3.HashString(path) & 0x7fffffff)
	actual, loaded := c.pathToID.LoadOrStore(path, id)
	if loaded {
		return actual.(int)
	}
	c.idToPath.Store(id, path)
	return id
}

// Start launches the fsnotify event loop in the background.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.watchLoop(ctx)
}

// Stop closes the watcher and waits for the event loop to exit.
func (c *Collector) Stop() {
	close(c.done)
	c.watcher.Close()
	c.wg.Wait()
}

func (c *Collector) watchLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case ev, ok := <-c.watcher.Events():
			if !ok {
				return
			}
			c.handleEvent(ctx, ev)
		case err, ok := <-c.watcher.Errors():
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("collector: watcher error")
		}
	}
}

// handleEvent maps one fsnotify.Event to the collector's event taxonomy
// and invalidates the affected path. fsnotify cannot deliver a true
// "before" event for Remove/Rename — by the time it fires, the file is
// already gone — so both map straight to invalidateIndices with
// markForReindex=false, which is the same end state the upstream
// "before deletion" hook produces once the deletion completes.
func (c *Collector) handleEvent(ctx context.Context, ev fsnotify.Event) {
	switch {
	case ev.Op&fsnotify.Write == fsnotify.Write:
		c.invalidateIndices(ctx, ev.Name, ContentsChanged, true)
	case ev.Op&fsnotify.Create == fsnotify.Create:
		c.invalidateIndices(ctx, ev.Name, FileCreated, true)
	case ev.Op&fsnotify.Remove == fsnotify.Remove, ev.Op&fsnotify.Rename == fsnotify.Rename:
		c.invalidateIndices(ctx, ev.Name, BeforeFileDeletion, false)
	case ev.Op&fsnotify.Chmod == fsnotify.Chmod:
		c.invalidateIndices(ctx, ev.Name, PropertyChanged, true)
	}
}

// invalidateIndices marks path dirty. If markForReindex is false (a
// deletion), the input id is retired from every index immediately instead
// of being queued for ForceUpdate to pick up, since there is no content
// left to read. Content-less indices need no file content at all, so they
// are updated synchronously right here rather than waiting for the next
// ForceUpdate drain, per spec.md §4.6 step 1.
func (c *Collector) invalidateIndices(ctx context.Context, path string, kind EventKind, markForReindex bool) {
	id := c.inputIDFor(path)

	if !markForReindex {
		c.filesToUpdate.Delete(id)
		c.updater.RemoveInput(id)
		log.Debug().Str("path", path).Str("event", kind.String()).Msg("collector: file removed")
		return
	}

	info, err := os.Stat(path)
	modTime := time.Now().UnixNano()
	if err == nil {
		modTime = info.ModTime().UnixNano()
	}

	if len(c.updater.ContentlessIndices()) > 0 {
		if err := c.updater.UpdateContentlessIndices(ctx, id, modTime); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("collector: content-less update failed")
		}
	}

	// Before any content-dependent index is registered there is nothing
	// for ForceUpdate to drain into yet; park the invalidation in
	// futureInvalidations and replay it once an index exists, instead of
	// silently dropping an event that arrived during startup.
	if len(c.updater.ContentDependentIndices()) == 0 {
		c.futureMu.Lock()
		c.futureInvalidations.PushBack(&pendingFile{path: path, modTime: modTime})
		c.futureMu.Unlock()
		return
	}

	c.filesToUpdate.Store(id, &pendingFile{path: path, modTime: modTime})
	log.Debug().Str("path", path).Str("event", kind.String()).Msg("collector: file queued for update")
}

// replayFutureInvalidations moves any invalidation parked before indices
// existed into filesToUpdate, now that at least one does.
func (c *Collector) replayFutureInvalidations() {
	if len(c.updater.ContentDependentIndices()) == 0 {
		return
	}
	c.futureMu.Lock()
	defer c.futureMu.Unlock()

	for e := c.futureInvalidations.Front(); e != nil; {
		next := e.Next()
		pf := e.Value.(*pendingFile)
		id := c.inputIDFor(pf.path)
		c.filesToUpdate.Store(id, pf)
		c.futureInvalidations.Remove(e)
		e = next
	}
}

// ensureAllInvalidateTasksCompleted only reports ctx cancellation: since
// invalidateIndices above is synchronous, every call that has returned is
// already reflected in filesToUpdate, and events still buffered in the
// fsnotify channel are not waited for. Kept as a named step to match
// spec.md §4.5's operation list.
func (c *Collector) ensureAllInvalidateTasksCompleted(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// ForceUpdate drains every pending file through every content-dependent
// index and blocks until the whole batch is applied. Concurrent callers
// share one golang.org/x/sync/semaphore.Weighted of size 1: the first
// caller to arrive acquires it, drains, and releases; everyone else
// blocks on the same acquire, then drains whatever is still pending
// (often nothing), giving the "all callers leave only after the batch is
// fully drained" semantics spec.md §4.5 describes for forceUpdate.
func (c *Collector) ForceUpdate(ctx context.Context) error {
	if err := c.ensureAllInvalidateTasksCompleted(ctx); err != nil {
		return err
	}

	if err := c.drainSem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("collector: force update: %w", err)
	}
	defer c.drainSem.Release(1)

	c.replayFutureInvalidations()

	var batch []int
	c.filesToUpdate.Range(func(k, _ any) bool {
		batch = append(batch, k.(int))
		return true
	})

	indices := c.updater.ContentDependentIndices()

	group, gctx := errgroup.WithContext(ctx)
	for _, inputID := range batch {
		inputID := inputID
		v, ok := c.filesToUpdate.Load(inputID)
		if !ok {
			continue
		}
		pf := v.(*pendingFile)

		group.Go(func() error {
			content, err := os.ReadFile(pf.path)
			if err != nil {
				log.Warn().Err(err).Str("path", pf.path).Msg("collector: read failed, leaving queued for retry")
				return nil
			}
			for _, indexID := range indices {
				if err := c.updater.UpdateIndex(gctx, indexID, inputID, content, pf.modTime); err != nil {
					return err
				}
			}
			c.filesToUpdate.Delete(inputID)
			return nil
		})
	}

	return group.Wait()
}

// PendingCount reports how many files are currently queued, for stats
// output.
func (c *Collector) PendingCount() int {
	n := 0
	c.filesToUpdate.Range(func(_, _ any) bool { n++; return true })
	return n
}
