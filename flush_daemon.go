package fileindex

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// quiescenceWindow is how long must pass since the last Touch before
// FlushDaemon flushes.
const quiescenceWindow = 5 * time.Second

// FlushDaemon checks once a second and flushes every registered index
// whenever quiescenceWindow has passed since the last Touch. Activity is
// recorded only through Touch: the registry does not call it, so without
// caller Touches the daemon flushes on every tick from quiescenceWindow
// after its construction onwards.
type FlushDaemon struct {
	registry     *Registry
	lastActivity atomic.Int64 // unix nanoseconds

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewFlushDaemon returns a daemon bound to r. Call Start to begin the
// background loop.
func NewFlushDaemon(r *Registry) *FlushDaemon {
	d := &FlushDaemon{registry: r, done: make(chan struct{})}
	d.Touch()
	return d
}

// Touch records activity, resetting the quiescence window.
func (d *FlushDaemon) Touch() {
	d.lastActivity.Store(time.Now().UnixNano())
}

// Start runs the flush loop until ctx is cancelled or Stop is called.
func (d *FlushDaemon) Start(ctx context.Context) {
	d.ticker = time.NewTicker(time.Second)
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()
		defer d.ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.done:
				return
			case <-d.ticker.C:
				idle := time.Since(time.Unix(0, d.lastActivity.Load()))
				if idle < quiescenceWindow {
					continue
				}
				if err := d.registry.Flush(); err != nil {
					log.Warn().Err(err).Msg("fileindex: periodic flush failed")
				}
			}
		}
	}()
}

// Stop ends the background loop and waits for it to exit.
func (d *FlushDaemon) Stop() {
	close(d.done)
	d.wg.Wait()
}
