package bus

import (
	"fmt"
	"sync"
)

// PendingTable tracks requests awaiting a response. Each id owns a
// one-shot channel that receives the response exactly once.
type PendingTable struct {
	mu      sync.Mutex
	entries map[string]chan Message
}

// NewPendingTable returns an empty table.
func NewPendingTable() *PendingTable {
	return &PendingTable{entries: make(map[string]chan Message)}
}

// Insert registers id and returns the channel its response will arrive on.
func (p *PendingTable) Insert(id string) (<-chan Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	ch := make(chan Message, 1)
	p.entries[id] = ch
	return ch, nil
}

// Resolve hands msg to the entry with the same id and removes it. It
// reports false when no entry matches, which covers stale and duplicate
// responses.
func (p *PendingTable) Resolve(msg Message) bool {
	p.mu.Lock()
	ch, ok := p.entries[msg.ID]
	if ok {
		delete(p.entries, msg.ID)
	}
	p.mu.Unlock()
	if !ok {
		return false
	}
	ch <- msg
	return true
}

// Remove drops id without resolving it.
func (p *PendingTable) Remove(id string) {
	p.mu.Lock()
	delete(p.entries, id)
	p.mu.Unlock()
}

// Len returns the number of outstanding requests.
func (p *PendingTable) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
