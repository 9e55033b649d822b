// Package query is the read model of the serving layer: an in-memory view of
// the final merged CSV, queryable by user. The store is read-only between
// reloads.
package query

import (
	"sort"
	"sync"

	"github.com/dvloznov/transaction-unifier/internal/domain"
)

// DefaultTopN is the default size of a top-recent query.
const DefaultTopN = 3

// Store holds the merged transactions grouped by user identifier. Safe for
// concurrent readers; Reload swaps the view atomically.
type Store struct {
	mu     sync.RWMutex
	byUser map[string][]domain.Transaction
	users  []string
}

// Load reads a final merged CSV into a new store.
func Load(path string) (*Store, error) {
	s := &Store{}
	if err := s.Reload(path); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the store contents with the file at path.
func (s *Store) Reload(path string) error {
	txs, err := domain.ReadFile(path)
	if err != nil {
		return err
	}

	byUser := make(map[string][]domain.Transaction)
	var users []string
	for _, tx := range txs {
		if _, ok := byUser[tx.UserID]; !ok {
			users = append(users, tx.UserID)
		}
		byUser[tx.UserID] = append(byUser[tx.UserID], tx)
	}
	sort.Strings(users)

	s.mu.Lock()
	s.byUser = byUser
	s.users = users
	s.mu.Unlock()
	return nil
}

// GroupedByUser returns all transactions keyed by user identifier.
func (s *Store) GroupedByUser() map[string][]domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]domain.Transaction, len(s.byUser))
	for id, txs := range s.byUser {
		out[id] = append([]domain.Transaction(nil), txs...)
	}
	return out
}

// Users returns the known user identifiers in sorted order.
func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.users...)
}

// ForUser returns the transactions of one user in file order. The second
// return value is false when the user has no transactions.
func (s *Store) ForUser(userID string) ([]domain.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs, ok := s.byUser[userID]
	if !ok {
		return nil, false
	}
	return append([]domain.Transaction(nil), txs...), true
}

// TopRecent returns up to n transactions of one user ordered by transaction
// date descending. n <= 0 falls back to DefaultTopN.
func (s *Store) TopRecent(userID string, n int) ([]domain.Transaction, bool) {
	if n <= 0 {
		n = DefaultTopN
	}

	txs, ok := s.ForUser(userID)
	if !ok {
		return nil, false
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[j].Date.Before(txs[i].Date)
	})
	if len(txs) > n {
		txs = txs[:n]
	}
	return txs, true
}
