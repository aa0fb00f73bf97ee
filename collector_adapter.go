package fileindex

import (
	"context"

	"github.com/jpl-au/fileindex/internal/collector"
)

// collectorUpdater adapts *Registry to collector.IndexUpdater, translating
// between the collector's plain-string index ids and the registry's
// opaque IndexId token.
type collectorUpdater struct {
	registry *Registry
}

func (a collectorUpdater) ContentDependentIndices() []string {
	ids := a.registry.ContentDependentIndices()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func (a collectorUpdater) ContentlessIndices() []string {
	ids := a.registry.ContentlessIndices()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func (a collectorUpdater) UpdateIndex(ctx context.Context, indexID string, inputID int, content []byte, modTime int64) error {
	return a.registry.UpdateSingleIndex(ctx, IndexId(indexID), inputID, content, modTime)
}

// UpdateContentlessIndices updates every content-less index for inputID
// with nil content, driven directly off a VFS event rather than waiting
// for UnindexedFilesFinder's explicit scan to notice, per spec.md §4.6
// step 1.
func (a collectorUpdater) UpdateContentlessIndices(ctx context.Context, inputID int, modTime int64) error {
	for _, id := range a.registry.ContentlessIndices() {
		if err := a.registry.UpdateSingleIndex(ctx, id, inputID, nil, modTime); err != nil {
			return err
		}
	}
	return nil
}

func (a collectorUpdater) RemoveInput(inputID int) {
	a.registry.RemoveInput(inputID)
}

// NewCollector opens a fsnotify-backed collector watching root and wires
// it to r as both its IndexUpdater and its Drainer, so queries against r
// transparently force a drain before reading index state.
func NewCollector(root string, r *Registry) (*collector.Collector, error) {
	c, err := collector.New(root, collectorUpdater{registry: r})
	if err != nil {
		return nil, err
	}
	r.SetDrainer(c)
	return c, nil
}
