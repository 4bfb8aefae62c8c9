// Package store provides a stateful CRUD façade over the supermarkets
// backend.
//
// A Store keeps an in-memory view of one user's supermarkets in sync with
// the remote backend across create, update and delete calls. State is
// observable through snapshot accessors and mutated only by the store's
// own operations. The store does not serialize concurrent operations on
// the same instance; callers that overlap operations own the resulting
// interleaving.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/vkuksa/supermarkets/internal/backend"
	"github.com/vkuksa/supermarkets/internal/model"
	"github.com/vkuksa/supermarkets/internal/session"
)

// Fallback error messages, used when a backend fault carries no message
// of its own.
const (
	fallbackList   = "failed to fetch supermarkets"
	fallbackGet    = "failed to fetch supermarket"
	fallbackCreate = "failed to create supermarket"
	fallbackUpdate = "failed to update supermarket"
	fallbackDelete = "failed to delete supermarket"
)

// Store maintains one user's supermarkets. Create one per consuming
// context, typically via Registry.
type Store struct {
	querier backend.Querier

	mu      sync.RWMutex
	records []model.Supermarket
	current *model.Supermarket
	loading bool
	err     error

	subsMu sync.Mutex
	subs   map[chan model.ChangeEvent]struct{}
}

// New creates a Store backed by the given querier.
func New(querier backend.Querier) *Store {
	return &Store{
		querier: querier,
		subs:    make(map[chan model.ChangeEvent]struct{}),
	}
}

// Records returns a copy of the cached supermarket list.
func (s *Store) Records() []model.Supermarket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.Supermarket, len(s.records))
	copy(records, s.records)
	return records
}

// Current returns a copy of the most recently fetched, created or updated
// supermarket, or nil.
func (s *Store) Current() *model.Supermarket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	current := *s.current
	return &current
}

// Loading reports whether an operation is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the most recent operation failure, or nil.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// begin marks an operation as started: loading is set and any previous
// error is cleared.
func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()
}

// end releases the loading flag. Deferred by every operation so the flag
// drops on every exit path.
func (s *Store) end() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// fail derives the operation error, records it and returns it. The backend
// message is kept verbatim; the fallback is substituted only when the
// fault carries no message.
func (s *Store) fail(err error, fallback string) error {
	if err == nil || err.Error() == "" {
		err = errors.New(fallback)
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	return err
}

// List fetches all of the current user's supermarkets, ordered by name
// ascending, and replaces the cached list with the result.
func (s *Store) List(ctx context.Context) ([]model.Supermarket, error) {
	s.begin()
	defer s.end()

	records, err := s.querier.SelectAll(ctx)
	if err != nil {
		return nil, s.fail(err, fallbackList)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	return s.Records(), nil
}

// GetByID fetches a single supermarket and makes it the current record.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Supermarket, error) {
	s.begin()
	defer s.end()

	record, err := s.querier.SelectOne(ctx, id)
	if err != nil {
		return nil, s.fail(err, fallbackGet)
	}

	s.mu.Lock()
	s.current = record
	s.mu.Unlock()

	return record, nil
}

// Create submits a new supermarket owned by the current user and appends
// the created record to the cached list. It fails with
// backend.ErrNotAuthenticated, without a backend round trip, when the
// context carries no user.
func (s *Store) Create(ctx context.Context, in *model.CreateSupermarketInput) (*model.Supermarket, error) {
	s.begin()
	defer s.end()

	user, ok := session.FromContext(ctx)
	if !ok {
		return nil, s.fail(backend.ErrNotAuthenticated, fallbackCreate)
	}

	row := &model.Supermarket{
		OwnerID:  user.ID,
		Name:     in.Name,
		Location: in.Location,
		LogoURL:  in.LogoURL,
	}

	record, err := s.querier.Insert(ctx, row)
	if err != nil {
		return nil, s.fail(err, fallbackCreate)
	}

	s.mu.Lock()
	s.records = append(s.records, *record)
	s.current = record
	s.mu.Unlock()

	s.publish(model.NewChangeEvent(model.ChangeCreated, *record))

	return record, nil
}

// Update submits a partial field set for the supermarket matching the ID.
// The cached entry is replaced in place, preserving its position, and the
// current record is refreshed when it refers to the same ID.
func (s *Store) Update(ctx context.Context, id string, in *model.UpdateSupermarketInput) (*model.Supermarket, error) {
	s.begin()
	defer s.end()

	record, err := s.querier.Update(ctx, id, in)
	if err != nil {
		return nil, s.fail(err, fallbackUpdate)
	}

	s.mu.Lock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i] = *record
			break
		}
	}
	if s.current != nil && s.current.ID == id {
		s.current = record
	}
	s.mu.Unlock()

	s.publish(model.NewChangeEvent(model.ChangeUpdated, *record))

	return record, nil
}

// Delete removes the supermarket matching the ID. Any cached entry with
// that ID is dropped, and the current record is cleared when it refers to
// the same ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.begin()
	defer s.end()

	if err := s.querier.Delete(ctx, id); err != nil {
		return s.fail(err, fallbackDelete)
	}

	var deleted *model.Supermarket

	s.mu.Lock()
	kept := s.records[:0]
	for _, r := range s.records {
		if r.ID == id {
			removed := r
			deleted = &removed
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	if s.current != nil && s.current.ID == id {
		if deleted == nil {
			removed := *s.current
			deleted = &removed
		}
		s.current = nil
	}
	s.mu.Unlock()

	if deleted != nil {
		s.publish(model.NewChangeEvent(model.ChangeDeleted, *deleted))
	}

	return nil
}

// ClearError clears the recorded error. No other state is touched and no
// backend call is made.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

// Reset restores all state fields to their initial values without
// contacting the backend.
func (s *Store) Reset() {
	s.mu.Lock()
	s.records = nil
	s.current = nil
	s.loading = false
	s.err = nil
	s.mu.Unlock()
}
