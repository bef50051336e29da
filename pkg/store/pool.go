package store

import (
	"errors"
	"sync"
)

// ErrPoolInsufficient is returned when a debit exceeds the pool balance.
var ErrPoolInsufficient = errors.New("community pool balance insufficient")

// CommunityPool holds the balance backing community-funded archival.
// The balance never goes negative.
type CommunityPool struct {
	mu      sync.Mutex
	balance uint64
}

func NewCommunityPool() *CommunityPool {
	return &CommunityPool{}
}

// Fund credits the pool.
func (p *CommunityPool) Fund(amount uint64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance += amount
	return p.balance
}

// Debit withdraws amount from the pool, failing without effect when the
// balance does not cover it.
func (p *CommunityPool) Debit(amount uint64) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if amount > p.balance {
		return p.balance, ErrPoolInsufficient
	}
	p.balance -= amount
	return p.balance, nil
}

// Balance returns the current balance.
func (p *CommunityPool) Balance() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}
