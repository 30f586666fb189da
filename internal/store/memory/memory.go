// Package memory provides an in-process transaction store. It is the
// default backend for local development and the test double for everything
// that consumes the store ports.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"thuchi/internal/core"
	"thuchi/internal/store"
)

type Store struct {
	mu       sync.Mutex
	txs      map[string][]core.Transaction // userID -> transactions
	profiles map[string]core.Profile
	watchers map[string]map[int]chan []core.Transaction // userID -> subscriber id -> channel
	nextSub  int
	now      func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		txs:      make(map[string][]core.Transaction),
		profiles: make(map[string]core.Profile),
		watchers: make(map[string]map[int]chan []core.Transaction),
		now:      time.Now,
	}
}

// Append implements store.TransactionWriter
func (s *Store) Append(ctx context.Context, userID string, tx core.Transaction) (string, error) {
	tx = tx.Normalized()
	if err := tx.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = uuid.NewString()
	tx.CreatedAt = s.now().UTC()
	s.txs[userID] = append(s.txs[userID], tx)
	s.publishLocked(userID)
	return tx.ID, nil
}

// Delete implements store.TransactionDeleter
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.txs[userID]
	idx := -1
	for i, tx := range list {
		if tx.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return store.ErrNotFound
	}
	s.txs[userID] = append(list[:idx:idx], list[idx+1:]...)
	s.publishLocked(userID)
	return nil
}

// ListAll implements store.TransactionLister
func (s *Store) ListAll(ctx context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(userID), nil
}

// Watch implements store.TransactionWatcher. The current snapshot is
// delivered immediately, then one snapshot per mutation. Cancel closes the
// subscription; nothing is delivered afterwards.
func (s *Store) Watch(ctx context.Context, userID string) (<-chan []core.Transaction, func(), error) {
	ch := make(chan []core.Transaction, 1)

	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	if s.watchers[userID] == nil {
		s.watchers[userID] = make(map[int]chan []core.Transaction)
	}
	s.watchers[userID][id] = ch
	ch <- s.snapshotLocked(userID)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.watchers[userID][id]; ok {
			delete(s.watchers[userID], id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// GetProfile implements store.ProfileReader
func (s *Store) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, store.ErrNotFound
	}
	return p, nil
}

// PutProfile implements store.ProfileWriter
func (s *Store) PutProfile(ctx context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	s.profiles[p.ID] = p
	return nil
}

// UpdateName implements store.ProfileWriter
func (s *Store) UpdateName(ctx context.Context, userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return store.ErrNotFound
	}
	p.Name = name
	s.profiles[userID] = p
	return nil
}

func (s *Store) snapshotLocked(userID string) []core.Transaction {
	out := make([]core.Transaction, len(s.txs[userID]))
	copy(out, s.txs[userID])
	return out
}

// publishLocked delivers the current snapshot to every watcher without
// blocking: each subscriber channel holds at most one pending snapshot and
// a newer one displaces it. Runs under s.mu, which is also what guarantees
// no delivery races a cancel.
func (s *Store) publishLocked(userID string) {
	snapshot := s.snapshotLocked(userID)
	for _, ch := range s.watchers[userID] {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch: // displace the stale pending snapshot
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
