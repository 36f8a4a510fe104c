// Package store persists the inventory ledger. Both implementations uphold
// the same contract: one record per blood group, quantity never below zero,
// and a decrement that is atomic with respect to concurrent callers.
package store

import (
	"fmt"

	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
)

// InsufficientError reports a decrement that found too few units. It wraps
// sentinel.ErrInsufficientStock and carries the quantity observed so the
// caller can build a diagnostic response.
type InsufficientError struct {
	Available int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available", e.Available)
}

func (e *InsufficientError) Unwrap() error {
	return sentinel.ErrInsufficientStock
}
