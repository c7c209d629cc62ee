package tracer

import (
	"slices"
	"sync"

	"github.com/wnxd/microtrace/syscalls"
)

type subscription struct {
	consumer syscalls.Consumer
}

// consumerManager delivers records in the order they were queued. Only one
// goroutine delivers at a time; others queue and leave.
type consumerManager struct {
	mu       sync.Mutex
	subs     []*subscription
	queue    []syscalls.Record
	draining bool
	stopped  bool
}

func (m *consumerManager) dtor() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.draining {
		m.stopped = true
		return
	}
	m.subs = nil
}

func (m *consumerManager) Subscribe(c syscalls.Consumer) (cancel func()) {
	sub := &subscription{consumer: c}
	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.subs = slices.DeleteFunc(m.subs, func(s *subscription) bool { return s == sub })
			m.mu.Unlock()
		})
	}
}

// enqueue must be called with the tracer lock held so the queue follows the
// order the engine produced records in.
func (m *consumerManager) enqueue(records []syscalls.Record) {
	if len(records) == 0 {
		return
	}
	m.mu.Lock()
	m.queue = append(m.queue, records...)
	m.mu.Unlock()
}

// drain delivers queued records unless another goroutine is already doing
// so, in which case that goroutine delivers them.
func (m *consumerManager) drain() {
	m.mu.Lock()
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true
	defer func() {
		m.draining = false
		if m.stopped {
			m.subs = nil
		}
		m.mu.Unlock()
	}()
	for len(m.queue) > 0 {
		r := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		subs := slices.Clone(m.subs)
		m.mu.Unlock()
		for _, sub := range subs {
			sub.consumer.Consume(r)
		}
		m.mu.Lock()
	}
}
