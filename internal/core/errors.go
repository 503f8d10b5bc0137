package core

import (
	"fmt"

	"hemocore/pkg/domain"
)

// NotFoundError is returned when an entity lookup or reference check fails.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// StateError reports an operation applied to an entity in an incompatible state.
type StateError struct {
	Entity EntityType
	ID     string
	Code   string
	Detail string
}

func (e StateError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %s: %s", e.Entity, e.ID, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Code)
}

// ValidationError reports rejected input before any state is touched.
type ValidationError struct {
	Field  string
	Detail string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// UnauthorizedError reports a caller acting outside its role or ownership.
type UnauthorizedError struct {
	Detail string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Detail)
}

// InsufficientInventoryError is returned when no available lot can cover a
// distribution request. It carries the shortfall so callers can report it.
type InsufficientInventoryError struct {
	BloodGroup domain.BloodGroup
	Requested  int
	Available  int
}

func (e InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for %s: requested %d, available %d", e.BloodGroup, e.Requested, e.Available)
}

// Shortfall returns the number of units missing.
func (e InsufficientInventoryError) Shortfall() int {
	if e.Requested <= e.Available {
		return 0
	}
	return e.Requested - e.Available
}
