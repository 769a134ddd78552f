package bus

import "sync"

// MessageIdempotencyKey namespaces a platform message id for dedupe.
func MessageIdempotencyKey(messageID string) string {
	return "msg:" + messageID
}

// Deduper remembers the last capacity idempotency keys. The transport can
// redeliver messages after a reconnect; Seen lets the inbound path drop
// them before they reach the dispatcher.
type Deduper struct {
	mu       sync.Mutex
	capacity int
	order    []string
	seen     map[string]bool
}

func NewDeduper(capacity int) *Deduper {
	if capacity <= 0 {
		capacity = 512
	}
	return &Deduper{capacity: capacity, seen: make(map[string]bool, capacity)}
}

// Seen records key and reports whether it was already present.
func (d *Deduper) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[key] {
		return true
	}
	d.seen[key] = true
	d.order = append(d.order, key)
	if len(d.order) > d.capacity {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	return false
}
