package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type loadFunc func(ctx context.Context, ref Ref) (*Snapshot, error)

type subscriber struct {
	id     string
	ref    Ref
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
		// a pending signal already covers this change
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// hub fans change notifications out to in-process watchers. Each subscriber
// re-reads the document on notification, so bursts collapse into the latest state.
type hub struct {
	mu     sync.RWMutex
	subs   map[Ref]map[string]*subscriber
	load   loadFunc
	logger logrus.FieldLogger
	wg     sync.WaitGroup
	closed bool
}

func newHub(load loadFunc, logger logrus.FieldLogger) *hub {
	return &hub{
		subs:   make(map[Ref]map[string]*subscriber),
		load:   load,
		logger: logger,
	}
}

func (h *hub) publish(ref Ref) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs[ref] {
		sub.notify()
	}
}

func (h *hub) publishAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, byID := range h.subs {
		for _, sub := range byID {
			sub.notify()
		}
	}
}

func (h *hub) count(ref Ref) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[ref])
}

func (h *hub) remove(sub *subscriber) {
	sub.stop()
	h.mu.Lock()
	defer h.mu.Unlock()
	if byID, ok := h.subs[sub.ref]; ok {
		delete(byID, sub.id)
		if len(byID) == 0 {
			delete(h.subs, sub.ref)
		}
	}
}

func (h *hub) watch(ctx context.Context, ref Ref, onChange func(*Snapshot), onError func(error)) (Unsubscribe, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	if onChange == nil {
		onChange = func(*Snapshot) {}
	}
	if onError == nil {
		onError = func(error) {}
	}

	sub := &subscriber{
		id:     uuid.NewString(),
		ref:    ref,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	if h.subs[ref] == nil {
		h.subs[ref] = make(map[string]*subscriber)
	}
	h.subs[ref][sub.id] = sub
	h.wg.Add(1)
	h.mu.Unlock()

	// deliver the current state first
	sub.notify()

	log := h.logger.WithFields(logrus.Fields{"ref": ref.Path(), "subscriber": sub.id})
	log.Debug("watch started")

	go func() {
		defer h.wg.Done()
		defer h.remove(sub)
		var last *Snapshot
		for {
			select {
			case <-ctx.Done():
				log.Debug("watch context finished")
				return
			case <-sub.done:
				log.Debug("watch stopped")
				return
			case <-sub.signal:
			}

			snap, err := h.load(ctx, ref)
			select {
			case <-sub.done:
				return
			default:
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				onError(err)
				continue
			}
			if unchanged(last, snap) {
				continue
			}
			last = snap
			onChange(snap)
		}
	}()

	return func() { h.remove(sub) }, nil
}

// close stops every watcher and waits for in-flight callbacks to return.
func (h *hub) close() {
	h.mu.Lock()
	h.closed = true
	var all []*subscriber
	for _, byID := range h.subs {
		for _, sub := range byID {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()
	for _, sub := range all {
		sub.stop()
	}
	h.wg.Wait()
}

func unchanged(prev, next *Snapshot) bool {
	if prev == nil || next == nil {
		return false
	}
	return prev.Exists == next.Exists && prev.UpdateTime.Equal(next.UpdateTime)
}
