// Package resmem is an in-memory reservation.Store for tests: a map guarded
// by a mutex, with the same lazy-expiry behavior the redis adapter has.
package resmem

import (
	"context"
	"sync"
	"time"

	"p2p-funding-core/internal/domain/reservation"
)

var _ reservation.Store = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	data map[string]reservation.Reservation
}

func New() *Store { return &Store{data: make(map[string]reservation.Reservation)} }

func key(loanID, investorID string) string { return loanID + ":" + investorID }

func (s *Store) Put(_ context.Context, r *reservation.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key(r.LoanID, r.InvestorID)] = *r
	return nil
}

func (s *Store) Get(_ context.Context, loanID, investorID string) (*reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data[key(loanID, investorID)]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	out := r
	return &out, nil
}

func (s *Store) ListActive(_ context.Context, loanID string, now time.Time) ([]reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reservation.Reservation
	for k, r := range s.data {
		if r.LoanID != loanID {
			continue
		}
		if !r.Active(now) {
			delete(s.data, k)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) Delete(_ context.Context, loanID, investorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key(loanID, investorID))
	return nil
}

// Len reports the stored entry count, expired included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
