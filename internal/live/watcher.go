package live

import (
	"context"
	"log/slog"

	"github.com/mohamedzameer33/blogapp/internal/store"
)

// WatchedStore decorates a store.Store so that every successful write
// publishes a change tick for the written path. Reads pass through.
type WatchedStore struct {
	store.Store
	notifier Notifier
}

func NewWatchedStore(inner store.Store, notifier Notifier) *WatchedStore {
	return &WatchedStore{Store: inner, notifier: notifier}
}

func (s *WatchedStore) Create(ctx context.Context, path string, fields store.Fields) (string, error) {
	id, err := s.Store.Create(ctx, path, fields)
	if err != nil {
		return "", err
	}
	_ = s.notifier.Publish(ctx, path)
	return id, nil
}

func (s *WatchedStore) Set(ctx context.Context, path, id string, fields store.Fields) error {
	if err := s.Store.Set(ctx, path, id, fields); err != nil {
		return err
	}
	_ = s.notifier.Publish(ctx, path)
	return nil
}

func (s *WatchedStore) Update(ctx context.Context, path, id string, fields store.Fields) error {
	if err := s.Store.Update(ctx, path, id, fields); err != nil {
		return err
	}
	_ = s.notifier.Publish(ctx, path)
	return nil
}

func (s *WatchedStore) Delete(ctx context.Context, path, id string) error {
	if err := s.Store.Delete(ctx, path, id); err != nil {
		return err
	}
	_ = s.notifier.Publish(ctx, path)
	return nil
}

// Notifier exposes the underlying notifier so other collections'
// changes can be republished (the users collection feeds comment
// verification badges).
func (s *WatchedStore) Notifier() Notifier {
	return s.notifier
}

// Snapshot is one full ordered read of a watched collection. Token
// increases by one per delivery within a subscription; consumers use it
// to discard results of joins started against an older snapshot.
type Snapshot struct {
	Token     uint64
	Documents []store.Document
}

// Watcher delivers full ordered snapshots of a collection path: one
// initial snapshot on subscribe, then one per change tick. A read
// failure terminates the subscription after reporting the error; the
// caller resubscribes when its view remounts.
type Watcher struct {
	store    store.Store
	notifier Notifier
	logger   *slog.Logger
}

func NewWatcher(watched *WatchedStore, logger *slog.Logger) *Watcher {
	return &Watcher{store: watched, notifier: watched.Notifier(), logger: logger}
}

// Subscribe starts the snapshot loop. Delivery stops when ctx is
// cancelled or after onError is called. onSnapshot and onError are
// invoked from a single goroutine, never concurrently. Changes to any
// refreshPath also trigger a re-read of path: the comment view re-reads
// when the users collection changes so verification badges track the
// live profile flag.
func (w *Watcher) Subscribe(
	ctx context.Context,
	path string,
	orderKey string,
	descending bool,
	onSnapshot func(Snapshot),
	onError func(error),
	refreshPaths ...string,
) {
	ticks, cancel := w.notifier.Subscribe(path)
	merged := make(chan struct{}, 1)
	cancels := []func(){cancel}
	forward := func(in <-chan struct{}) {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-in:
				if !ok {
					return
				}
				select {
				case merged <- struct{}{}:
				default:
				}
			}
		}
	}
	go forward(ticks)
	for _, refreshPath := range refreshPaths {
		extraTicks, extraCancel := w.notifier.Subscribe(refreshPath)
		cancels = append(cancels, extraCancel)
		go forward(extraTicks)
	}
	go func() {
		defer func() {
			for _, c := range cancels {
				c()
			}
		}()
		var token uint64
		deliver := func() bool {
			docs, err := w.store.List(ctx, path, orderKey, descending)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				w.logger.Error("snapshot read failed", "path", path, "error", err)
				onError(err)
				return false
			}
			token++
			onSnapshot(Snapshot{Token: token, Documents: docs})
			return true
		}
		if !deliver() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-merged:
				if !deliver() {
					return
				}
			}
		}
	}()
}
