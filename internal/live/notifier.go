// Package live turns the content store into a source of full-snapshot
// subscriptions. A Notifier fans out change ticks per collection path;
// the Watcher re-reads the whole ordered collection on every tick and
// hands the snapshot to the subscriber. Snapshots, not diffs: the
// subscriber never has to merge partial state.
package live

import (
	"context"
	"sync"
)

// Notifier publishes and subscribes to change ticks for collection
// paths. A tick carries no payload; it only means "this path changed,
// re-read it".
type Notifier interface {
	Publish(ctx context.Context, path string) error
	// Subscribe returns a tick channel and an unsubscribe func. The
	// channel has capacity one and ticks coalesce: a subscriber that is
	// still processing a snapshot misses no changes, it just re-reads
	// once more.
	Subscribe(path string) (<-chan struct{}, func())
}

// LocalNotifier is an in-process Notifier. It is the test double and
// the single-process fallback when Redis is not configured.
type LocalNotifier struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[string]map[chan struct{}]struct{})}
}

func (n *LocalNotifier) Publish(_ context.Context, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs[path] {
		select {
		case ch <- struct{}{}:
		default:
			// tick already pending, coalesce
		}
	}
	return nil
}

func (n *LocalNotifier) Subscribe(path string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	if n.subs[path] == nil {
		n.subs[path] = make(map[chan struct{}]struct{})
	}
	n.subs[path][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs[path], ch)
			if len(n.subs[path]) == 0 {
				delete(n.subs, path)
			}
			n.mu.Unlock()
		})
	}
	return ch, cancel
}
