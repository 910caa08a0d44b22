package eventstream

import (
	"context"
	"fmt"
	"sync"
)

// Store persists aggregate versions. It never deletes: every write appends a
// new version and Get returns the highest one.
type Store interface {
	// Get returns the latest version of the aggregate, or ErrNoRecord.
	Get(ctx context.Context, id string) (*EventStream, error)
	// Put writes s as version s.ConfigVersion, which must be expectedVersion+1.
	// expectedVersion is the version the caller read (0 when the aggregate did
	// not exist); if it is no longer the latest, Put fails with
	// ErrVersionConflict and writes nothing.
	Put(ctx context.Context, s *EventStream, expectedVersion int) error
}

// MemoryStore is an in-process Store that keeps every version.
type MemoryStore struct {
	mu       sync.RWMutex
	versions map[string][]*EventStream
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{versions: make(map[string][]*EventStream)}
}

// Get returns a copy of the latest version.
func (m *MemoryStore) Get(_ context.Context, id string) (*EventStream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vs := m.versions[id]
	if len(vs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, id)
	}
	return vs[len(vs)-1].Clone(), nil
}

// Put appends a copy of s if expectedVersion is still the latest.
func (m *MemoryStore) Put(_ context.Context, s *EventStream, expectedVersion int) error {
	if err := CheckNextVersion(s, expectedVersion); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := m.versions[s.ID]
	latest := 0
	if len(vs) > 0 {
		latest = vs[len(vs)-1].ConfigVersion
	}
	if latest != expectedVersion {
		return fmt.Errorf("%w: %s expected %d, latest %d", ErrVersionConflict, s.ID, expectedVersion, latest)
	}
	m.versions[s.ID] = append(vs, s.Clone())
	return nil
}

// History returns copies of every stored version of id, oldest first.
func (m *MemoryStore) History(id string) []*EventStream {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*EventStream, 0, len(m.versions[id]))
	for _, v := range m.versions[id] {
		out = append(out, v.Clone())
	}
	return out
}

// CheckNextVersion validates the arguments of Store.Put.
func CheckNextVersion(s *EventStream, expectedVersion int) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("eventstream: put requires an aggregate with an id")
	}
	if s.ConfigVersion != expectedVersion+1 {
		return fmt.Errorf("eventstream: config version %d must follow expected version %d", s.ConfigVersion, expectedVersion)
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
