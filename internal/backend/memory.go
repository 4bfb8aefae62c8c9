package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vkuksa/supermarkets/internal/model"
	"github.com/vkuksa/supermarkets/internal/session"
)

// MemoryQuerier implements Querier with in-memory storage.
type MemoryQuerier struct {
	mu   sync.RWMutex
	rows map[string]model.Supermarket
}

// NewMemoryQuerier creates a new MemoryQuerier instance.
func NewMemoryQuerier() *MemoryQuerier {
	return &MemoryQuerier{
		rows: make(map[string]model.Supermarket),
	}
}

// owner extracts the authenticated user ID from the context.
func owner(ctx context.Context) (string, error) {
	u, ok := session.FromContext(ctx)
	if !ok {
		return "", ErrNotAuthenticated
	}
	return u.ID, nil
}

// SelectAll returns the current user's supermarkets ordered by name ascending.
func (q *MemoryQuerier) SelectAll(ctx context.Context) ([]model.Supermarket, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("select supermarkets: %w", ctx.Err())
	default:
	}

	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	rows := make([]model.Supermarket, 0, len(q.rows))
	for _, row := range q.rows {
		if row.OwnerID == ownerID {
			rows = append(rows, row)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Name < rows[j].Name
	})

	return rows, nil
}

// SelectOne returns exactly one supermarket matching the ID.
func (q *MemoryQuerier) SelectOne(ctx context.Context, id string) (*model.Supermarket, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("select supermarket: %w", ctx.Err())
	default:
	}

	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	row, exists := q.rows[id]
	if !exists || row.OwnerID != ownerID {
		return nil, ErrNotFound
	}

	return &row, nil
}

// Insert stores a new supermarket, assigning its ID and timestamps.
func (q *MemoryQuerier) Insert(ctx context.Context, s *model.Supermarket) (*model.Supermarket, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("insert supermarket: %w", ctx.Err())
	default:
	}

	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}

	if s == nil {
		return nil, ErrNilInput
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()
	row := model.Supermarket{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      s.Name,
		Location:  s.Location,
		LogoURL:   s.LogoURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	q.rows[row.ID] = row

	return &row, nil
}

// Update applies a partial field set to the supermarket matching the ID.
func (q *MemoryQuerier) Update(ctx context.Context, id string, in *model.UpdateSupermarketInput) (*model.Supermarket, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update supermarket: %w", ctx.Err())
	default:
	}

	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	if in == nil {
		return nil, ErrNilInput
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	row, exists := q.rows[id]
	if !exists || row.OwnerID != ownerID {
		return nil, ErrNotFound
	}

	in.Apply(&row)
	row.UpdatedAt = time.Now().UTC()

	q.rows[id] = row

	return &row, nil
}

// Delete removes the supermarket matching the ID. Deleting an absent ID
// is a no-op, matching the permissive delete semantics of hosted backends
// with row filters.
func (q *MemoryQuerier) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete supermarket: %w", ctx.Err())
	default:
	}

	ownerID, err := owner(ctx)
	if err != nil {
		return err
	}

	if id == "" {
		return ErrInvalidID
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if row, exists := q.rows[id]; exists && row.OwnerID == ownerID {
		delete(q.rows, id)
	}

	return nil
}
