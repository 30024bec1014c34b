package store

import (
	"context"
	"log"
	"sync"
)

// Hub fans document changes out to subscribers. Each subscriber watches one
// collection with a fixed set of equality filters; whenever the collection
// changes the hub re-runs the query and delivers the full result set. A
// subscriber never receives a backlog: stale snapshots are replaced by the
// latest one.
type Hub struct {
	store Store

	mu       sync.Mutex
	watchers map[int]*watcher
	nextID   int
	closed   bool
}

// Subscription is one live watch. C yields whole-list snapshots; Close tears
// the watch down and closes C. The subscriber owns the teardown.
type Subscription struct {
	C <-chan []Document

	once sync.Once
	stop func()
}

func (s *Subscription) Close() {
	s.once.Do(s.stop)
}

type watcher struct {
	collection string
	filters    []Filter
	out        chan []Document
	kick       chan struct{}
}

func NewHub(s Store) *Hub {
	return &Hub{
		store:    s,
		watchers: make(map[int]*watcher),
	}
}

// Notify implements Notifier. Writes to a collection wake every watcher on
// that collection.
func (h *Hub) Notify(change Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.watchers {
		if w.collection == change.Collection {
			select {
			case w.kick <- struct{}{}:
			default: // a refresh is already pending
			}
		}
	}
}

// Subscribe registers a watcher and delivers an initial snapshot.
func (h *Hub) Subscribe(collection string, filters ...Filter) *Subscription {
	w := &watcher{
		collection: collection,
		filters:    filters,
		out:        make(chan []Document, 1),
		kick:       make(chan struct{}, 1),
	}
	w.kick <- struct{}{} // initial snapshot

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.closed {
		h.mu.Unlock()
		close(w.out)
		return &Subscription{C: w.out, stop: func() {}}
	}
	h.watchers[id] = w
	h.mu.Unlock()

	go w.run(h.store)

	return &Subscription{
		C: w.out,
		stop: func() {
			h.mu.Lock()
			if _, ok := h.watchers[id]; ok {
				delete(h.watchers, id)
				close(w.kick)
			}
			h.mu.Unlock()
		},
	}
}

// Close tears down all watchers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, w := range h.watchers {
		delete(h.watchers, id)
		close(w.kick)
	}
}

func (w *watcher) run(s Store) {
	defer close(w.out)
	for range w.kick {
		docs, err := s.Query(context.Background(), w.collection, w.filters...)
		if err != nil {
			log.Printf("[Hub] query %s failed: %v", w.collection, err)
			continue
		}
		// Replace any undelivered snapshot with the fresh one.
		select {
		case <-w.out:
		default:
		}
		w.out <- docs
	}
}
