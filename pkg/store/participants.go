package store

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/verinet-labs/verinetx/pkg/models"
)

// ParticipantEntry is one participant record plus the mutex that serializes
// every mutation of it. All stake and reputation writes happen between
// Lock and Unlock.
type ParticipantEntry struct {
	mu sync.Mutex
	p  *models.Participant
}

// Lock acquires the record and returns it for mutation.
func (e *ParticipantEntry) Lock() *models.Participant {
	e.mu.Lock()
	return e.p
}

func (e *ParticipantEntry) Unlock() {
	e.mu.Unlock()
}

// Snapshot returns a copy of the record taken under the lock.
func (e *ParticipantEntry) Snapshot() *models.Participant {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.p.Clone()
}

// Participants is the participant record arena, keyed by address.
// Records are never removed.
type Participants struct {
	m *xsync.Map[string, *ParticipantEntry]
}

func NewParticipants() *Participants {
	return &Participants{m: xsync.NewMap[string, *ParticipantEntry]()}
}

// Get returns the entry for the address, if registered.
func (s *Participants) Get(addr string) (*ParticipantEntry, bool) {
	return s.m.Load(addr)
}

// GetOrCreate returns the entry for the address, creating an empty one when
// absent. loaded reports whether the entry already existed. The caller still
// owns initialization of the contained record under the entry lock.
func (s *Participants) GetOrCreate(addr string) (entry *ParticipantEntry, loaded bool) {
	return s.m.LoadOrStore(addr, &ParticipantEntry{p: &models.Participant{Address: addr}})
}

// Range calls fn with a snapshot of every record until fn returns false.
func (s *Participants) Range(fn func(*models.Participant) bool) {
	s.m.Range(func(_ string, e *ParticipantEntry) bool {
		return fn(e.Snapshot())
	})
}

// Size returns the number of registered addresses.
func (s *Participants) Size() int {
	return s.m.Size()
}
