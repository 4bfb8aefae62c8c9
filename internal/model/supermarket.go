// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"time"
)

// Validation errors for supermarket inputs.
var (
	ErrEmptyName      = errors.New("name cannot be empty")
	ErrNameTooLong    = errors.New("name cannot exceed 255 characters")
	ErrLocationLimit  = errors.New("location cannot exceed 255 characters")
	ErrLogoURLTooLong = errors.New("logo URL cannot exceed 2048 characters")
)

// Validation constants.
const (
	MaxNameLength     = 255
	MaxLocationLength = 255
	MaxLogoURLLength  = 2048
)

// Supermarket represents a supermarket record owned by a single user.
// ID, OwnerID and the timestamps are assigned by the backend and never
// change after creation.
type Supermarket struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	LogoURL   string    `json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateSupermarketInput holds the caller-supplied fields for a new
// supermarket. Owner and ID are never supplied by callers; the store
// derives the owner from the current session.
type CreateSupermarketInput struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	LogoURL  string `json:"logo_url,omitempty"`
}

// Validate checks if the input has valid field values.
func (in *CreateSupermarketInput) Validate() error {
	if in.Name == "" {
		return ErrEmptyName
	}

	if len(in.Name) > MaxNameLength {
		return ErrNameTooLong
	}

	if len(in.Location) > MaxLocationLength {
		return ErrLocationLimit
	}

	if len(in.LogoURL) > MaxLogoURLLength {
		return ErrLogoURLTooLong
	}

	return nil
}

// UpdateSupermarketInput holds a partial field set for an existing
// supermarket. Nil pointers mean "leave unchanged".
type UpdateSupermarketInput struct {
	Name     *string `json:"name,omitempty"`
	Location *string `json:"location,omitempty"`
	LogoURL  *string `json:"logo_url,omitempty"`
}

// Validate checks the supplied fields. An explicitly supplied empty name
// is rejected; absent fields are ignored.
func (in *UpdateSupermarketInput) Validate() error {
	if in.Name != nil {
		if *in.Name == "" {
			return ErrEmptyName
		}
		if len(*in.Name) > MaxNameLength {
			return ErrNameTooLong
		}
	}

	if in.Location != nil && len(*in.Location) > MaxLocationLength {
		return ErrLocationLimit
	}

	if in.LogoURL != nil && len(*in.LogoURL) > MaxLogoURLLength {
		return ErrLogoURLTooLong
	}

	return nil
}

// Apply copies the supplied fields onto the supermarket.
func (in *UpdateSupermarketInput) Apply(s *Supermarket) {
	if in.Name != nil {
		s.Name = *in.Name
	}
	if in.Location != nil {
		s.Location = *in.Location
	}
	if in.LogoURL != nil {
		s.LogoURL = *in.LogoURL
	}
}

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ChangeType identifies the kind of mutation carried by a ChangeEvent.
type ChangeType string

// Change event types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ChangeEvent is published after a successful store mutation and streamed
// to watch subscribers.
type ChangeEvent struct {
	Type        ChangeType  `json:"type"`
	Supermarket Supermarket `json:"supermarket"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewChangeEvent creates a change event stamped with the current time.
func NewChangeEvent(t ChangeType, s Supermarket) ChangeEvent {
	return ChangeEvent{
		Type:        t,
		Supermarket: s,
		Timestamp:   time.Now().UTC(),
	}
}
