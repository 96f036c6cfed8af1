// Package mem provides in-memory rollbackable stores: a key-value
// store, a FIFO queue, a captured-mail outbox, and a virtual clock.
// Every adapter takes full copies on checkpoint, so rollbacks are valid
// in any order and can be repeated.
package mem

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/wander/internal/obs"
)

type handleCounter struct {
	prefix string
	next   int
}

func (h *handleCounter) issue() string {
	h.next++
	return fmt.Sprintf("%s_%d", h.prefix, h.next)
}

func deepCopyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = deepCopyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return x
	}
}

// KVStore is a deep-copying in-memory key-value store. Values should be
// JSON-like (maps, slices, strings, numbers, booleans, nil) so that
// checkpoint copies are faithful.
type KVStore struct {
	data      map[string]any
	handles   handleCounter
	snapshots map[string]map[string]any
}

func NewKVStore() *KVStore {
	return &KVStore{
		data:      make(map[string]any),
		handles:   handleCounter{prefix: "kv"},
		snapshots: make(map[string]map[string]any),
	}
}

func (s *KVStore) Set(key string, value any) { s.data[key] = value }

func (s *KVStore) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *KVStore) Delete(key string) { delete(s.data, key) }

func (s *KVStore) Checkpoint(ctx context.Context, name string) (string, error) {
	h := s.handles.issue()
	s.snapshots[h] = deepCopyValue(s.data).(map[string]any)
	return h, nil
}

func (s *KVStore) Rollback(ctx context.Context, handle string) error {
	snap, ok := s.snapshots[handle]
	if !ok {
		return fmt.Errorf("unknown checkpoint %q", handle)
	}
	s.data = deepCopyValue(snap).(map[string]any)
	return nil
}

func (s *KVStore) Observe(ctx context.Context) (obs.Observation, error) {
	return obs.Observation{Data: deepCopyValue(s.data).(map[string]any)}, nil
}

// Queue is an in-memory FIFO queue adapter. Observations expose the
// pending items and a depth counter so count-class dimensions pick the
// queue up automatically.
type Queue struct {
	items     []any
	handles   handleCounter
	snapshots map[string][]any
}

func NewQueue() *Queue {
	return &Queue{
		handles:   handleCounter{prefix: "q"},
		snapshots: make(map[string][]any),
	}
}

func (q *Queue) Enqueue(item any) { q.items = append(q.items, item) }

func (q *Queue) Dequeue() (any, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) Checkpoint(ctx context.Context, name string) (string, error) {
	h := q.handles.issue()
	q.snapshots[h] = deepCopyValue(append([]any{}, q.items...)).([]any)
	return h, nil
}

func (q *Queue) Rollback(ctx context.Context, handle string) error {
	snap, ok := q.snapshots[handle]
	if !ok {
		return fmt.Errorf("unknown checkpoint %q", handle)
	}
	q.items = deepCopyValue(append([]any{}, snap...)).([]any)
	return nil
}

func (q *Queue) Observe(ctx context.Context) (obs.Observation, error) {
	items := deepCopyValue(append([]any{}, q.items...)).([]any)
	return obs.Observation{Data: map[string]any{
		"items":       items,
		"depth_count": len(q.items),
	}}, nil
}

// Mail is a single captured outbound message.
type Mail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Mailbox captures outbound mail instead of sending it, so that
// invariants can assert on what the system under test tried to send.
type Mailbox struct {
	sent      []Mail
	handles   handleCounter
	snapshots map[string][]Mail
}

func NewMailbox() *Mailbox {
	return &Mailbox{
		handles:   handleCounter{prefix: "mail"},
		snapshots: make(map[string][]Mail),
	}
}

func (m *Mailbox) Send(mail Mail) { m.sent = append(m.sent, mail) }

func (m *Mailbox) Sent() []Mail { return append([]Mail{}, m.sent...) }

func (m *Mailbox) Checkpoint(ctx context.Context, name string) (string, error) {
	h := m.handles.issue()
	m.snapshots[h] = append([]Mail{}, m.sent...)
	return h, nil
}

func (m *Mailbox) Rollback(ctx context.Context, handle string) error {
	snap, ok := m.snapshots[handle]
	if !ok {
		return fmt.Errorf("unknown checkpoint %q", handle)
	}
	m.sent = append([]Mail{}, snap...)
	return nil
}

func (m *Mailbox) Observe(ctx context.Context) (obs.Observation, error) {
	msgs := make([]any, len(m.sent))
	for i, mail := range m.sent {
		msgs[i] = map[string]any{
			"to":      mail.To,
			"subject": mail.Subject,
			"body":    mail.Body,
		}
	}
	return obs.Observation{Data: map[string]any{
		"messages":   msgs,
		"sent_count": len(m.sent),
	}}, nil
}

// Clock is a virtual clock adapter. Tests and journeys advance it
// explicitly; rollback rewinds it, so time-dependent behavior explores
// deterministically.
type Clock struct {
	now       time.Time
	handles   handleCounter
	snapshots map[string]time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{
		now:       start.UTC(),
		handles:   handleCounter{prefix: "clk"},
		snapshots: make(map[string]time.Time),
	}
}

func (c *Clock) Now() time.Time { return c.now }

func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func (c *Clock) Checkpoint(ctx context.Context, name string) (string, error) {
	h := c.handles.issue()
	c.snapshots[h] = c.now
	return h, nil
}

func (c *Clock) Rollback(ctx context.Context, handle string) error {
	snap, ok := c.snapshots[handle]
	if !ok {
		return fmt.Errorf("unknown checkpoint %q", handle)
	}
	c.now = snap
	return nil
}

func (c *Clock) Observe(ctx context.Context) (obs.Observation, error) {
	return obs.Observation{Data: map[string]any{
		"now": c.now.Format(time.RFC3339Nano),
	}}, nil
}
