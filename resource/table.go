package resource

import (
	"errors"
	"sync"
)

var (
	ErrClosed = errors.New("resource table closed")
	ErrFull   = errors.New("resource table full")
)

// Table is a concurrency-safe handle table.
type Table struct {
	observers []Observer
	slots     []slot
	freeList  []uint32
	live      int
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

type slot struct {
	value any
	gen   uint32
	kind  Kind
	valid bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		slots:    make([]slot, 0, 16),
		freeList: make([]uint32, 0, 8),
	}
}

// Insert stores value and returns its handle.
func (t *Table) Insert(kind Kind, value any) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}

	var idx uint32
	if n := len(t.freeList); n > 0 {
		idx = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
	} else {
		if len(t.slots) >= MaxHandles {
			t.mu.Unlock()
			return 0, ErrFull
		}
		t.slots = append(t.slots, slot{})
		idx = uint32(len(t.slots) - 1)
	}

	s := &t.slots[idx]
	s.value = value
	s.kind = kind
	s.valid = true
	t.live++
	h := makeHandle(idx, s.gen)
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, Kind: kind, Value: value})
	return h, nil
}

// lookup returns the live slot for h. Callers hold t.mu.
func (t *Table) lookup(h Handle) (*slot, bool) {
	idx, ok := h.index()
	if !ok || int(idx) >= len(t.slots) {
		return nil, false
	}
	s := &t.slots[idx]
	if !s.valid || s.gen != h.generation() {
		return nil, false
	}
	return s, true
}

// Get retrieves a value by handle.
func (t *Table) Get(h Handle) (any, Kind, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.lookup(h)
	if !ok {
		return nil, 0, false
	}
	return s.value, s.kind, true
}

// GetTyped retrieves a value only if it was inserted with kind.
func (t *Table) GetTyped(h Handle, kind Kind) (any, bool) {
	v, k, ok := t.Get(h)
	if !ok || k != kind {
		return nil, false
	}
	return v, true
}

// Remove drops a value and returns it if the handle was live.
func (t *Table) Remove(h Handle) (any, bool) {
	t.mu.Lock()
	s, ok := t.lookup(h)
	if !ok {
		t.mu.Unlock()
		return nil, false
	}
	value, kind := s.value, s.kind
	idx, _ := h.index()
	*s = slot{gen: (s.gen + 1) & genMask}
	t.freeList = append(t.freeList, idx)
	t.live--
	t.mu.Unlock()

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{Type: EventDropped, Handle: h, Kind: kind, Value: value})
	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Close drops every live value and stops accepting inserts.
func (t *Table) Close() error {
	t.mu.Lock()
	t.closed = true
	var handles []Handle
	for i, s := range t.slots {
		if s.valid {
			handles = append(handles, makeHandle(uint32(i), s.gen))
		}
	}
	t.mu.Unlock()

	for _, h := range handles {
		t.Remove(h)
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
