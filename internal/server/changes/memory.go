package changes

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/voicefeed/internal/models"
)

// MemoryBroker delivers events to subscribers in the same process.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[uint64]memorySub
	next   uint64
	closed bool
}

type memorySub struct {
	table  string
	filter models.EventFilter
	fn     func(models.ChangeEvent)
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: map[uint64]memorySub{}}
}

func (b *MemoryBroker) Publish(_ context.Context, ev models.ChangeEvent) error {
	b.mu.RLock()
	var fns []func(models.ChangeEvent)
	for _, s := range b.subs {
		if s.table == ev.Table && s.filter.Matches(ev.Type) {
			fns = append(fns, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(table string, filter models.EventFilter, fn func(models.ChangeEvent)) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}
	b.next++
	id := b.next
	b.subs[id] = memorySub{table: table, filter: filter, fn: fn}
	return &memorySubscription{b: b, id: id}, nil
}

// Subscribers returns the number of live subscriptions.
func (b *MemoryBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = map[uint64]memorySub{}
	return nil
}

type memorySubscription struct {
	b    *MemoryBroker
	id   uint64
	once sync.Once
}

func (s *memorySubscription) Unsubscribe() {
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.subs, s.id)
		s.b.mu.Unlock()
	})
}
