// Package backend provides the authenticated query client used to persist
// supermarkets.
//
// Every query is scoped to the authenticated user carried in the request
// context; the scoping is enforced here, not by callers, mirroring a
// hosted database's row-level access policy.
package backend

import (
	"context"
	"errors"

	"github.com/vkuksa/supermarkets/internal/model"
)

// Backend errors.
var (
	ErrNotFound         = errors.New("supermarket not found")
	ErrNotAuthenticated = errors.New("user not authenticated")
	ErrInvalidID        = errors.New("invalid supermarket ID")
	ErrNilInput         = errors.New("input cannot be nil")
)

// Querier defines the query operations available against the supermarkets
// collection. Implementations must return ErrNotAuthenticated when the
// context carries no user, and ErrNotFound when a single-row operation
// matches no row.
type Querier interface {
	// SelectAll returns the current user's supermarkets ordered by name
	// ascending.
	SelectAll(ctx context.Context) ([]model.Supermarket, error)

	// SelectOne returns exactly one supermarket matching the ID.
	SelectOne(ctx context.Context, id string) (*model.Supermarket, error)

	// Insert stores a new supermarket, assigning its ID and timestamps,
	// and returns the created row.
	Insert(ctx context.Context, s *model.Supermarket) (*model.Supermarket, error)

	// Update applies a partial field set to the supermarket matching the
	// ID and returns the updated row.
	Update(ctx context.Context, id string, in *model.UpdateSupermarketInput) (*model.Supermarket, error)

	// Delete removes the supermarket matching the ID. Deleting an absent
	// ID is not an error.
	Delete(ctx context.Context, id string) error
}
