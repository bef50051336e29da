package store

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/verinet-labs/verinetx/pkg/models"
)

// Policies is the archive policy table, keyed by content class.
// Rows are replaced whole; there is no partial update.
type Policies struct {
	m *xsync.Map[string, models.ArchivePolicy]
}

func NewPolicies() *Policies {
	return &Policies{m: xsync.NewMap[string, models.ArchivePolicy]()}
}

// Set installs or replaces the policy row for its content class.
func (s *Policies) Set(p models.ArchivePolicy) {
	s.m.Store(p.ContentClass, p)
}

// Get returns the policy row for the content class, if configured.
func (s *Policies) Get(contentClass string) (models.ArchivePolicy, bool) {
	return s.m.Load(contentClass)
}

// Range calls fn for every configured row until fn returns false.
func (s *Policies) Range(fn func(models.ArchivePolicy) bool) {
	s.m.Range(func(_ string, p models.ArchivePolicy) bool {
		return fn(p)
	})
}
