package store

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/verinet-labs/verinetx/pkg/models"
)

// state codes for the lock-free lifecycle mirror.
const (
	stateSubmitted int32 = iota
	stateValidating
	stateFinalized
)

func stateCode(s models.SubmissionState) int32 {
	switch s {
	case models.StateValidating:
		return stateValidating
	case models.StateFinalized:
		return stateFinalized
	}
	return stateSubmitted
}

func codeState(c int32) models.SubmissionState {
	switch c {
	case stateValidating:
		return models.StateValidating
	case stateFinalized:
		return models.StateFinalized
	}
	return models.StateSubmitted
}

// SubmissionEntry is one submission record plus the mutex that serializes
// vote recording and finalization on it. The lifecycle state is mirrored
// into an atomic so paths that already hold a participant lock (the
// pending-votes withdrawal check) can read it without taking this mutex.
type SubmissionEntry struct {
	mu    sync.Mutex
	state atomic.Int32
	s     *models.Submission
}

// Lock acquires the record and returns it for mutation.
func (e *SubmissionEntry) Lock() *models.Submission {
	e.mu.Lock()
	return e.s
}

// Unlock publishes the (possibly advanced) lifecycle state to the mirror
// before releasing the record. State transitions are monotonic, so the
// mirror only ever moves forward.
func (e *SubmissionEntry) Unlock() {
	e.state.Store(stateCode(e.s.State))
	e.mu.Unlock()
}

// State reads the lifecycle mirror without locking.
func (e *SubmissionEntry) State() models.SubmissionState {
	return codeState(e.state.Load())
}

// Snapshot returns a copy of the record taken under the lock.
func (e *SubmissionEntry) Snapshot() *models.Submission {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone()
}

// Submissions is the submission record arena, keyed by content fingerprint.
type Submissions struct {
	m *xsync.Map[string, *SubmissionEntry]
}

func NewSubmissions() *Submissions {
	return &Submissions{m: xsync.NewMap[string, *SubmissionEntry]()}
}

// Create stores a new submission record. It returns false when the
// fingerprint is already present; the existing record is left untouched.
func (s *Submissions) Create(sub *models.Submission) bool {
	e := &SubmissionEntry{s: sub}
	e.state.Store(stateCode(sub.State))
	_, loaded := s.m.LoadOrStore(sub.Fingerprint, e)
	return !loaded
}

// Get returns the entry for the fingerprint, if known.
func (s *Submissions) Get(fingerprint string) (*SubmissionEntry, bool) {
	return s.m.Load(fingerprint)
}

// StateOf reads the lifecycle mirror for the fingerprint without locking
// the record. ok is false for unknown fingerprints.
func (s *Submissions) StateOf(fingerprint string) (state models.SubmissionState, ok bool) {
	e, ok := s.m.Load(fingerprint)
	if !ok {
		return "", false
	}
	return e.State(), true
}

// Size returns the number of known fingerprints.
func (s *Submissions) Size() int {
	return s.m.Size()
}
