// Package replay remembers redeemed access-token ids for the lifetime of the
// token so a second redemption can be refused.
package replay

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmptyID   = errors.New("replay: token id is empty")
	ErrIDTooLong = errors.New("replay: token id too long")
	ErrFull      = errors.New("replay: ledger is full")
)

const MaxIDLength = 1024

// Ledger records token ids. Implementations must be safe for concurrent use.
type Ledger interface {
	// Claim records jti until expiresAt. It reports false when jti is already
	// recorded and has not yet expired.
	Claim(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
	Close() error
}

func validID(jti string) error {
	if jti == "" {
		return ErrEmptyID
	}
	if len(jti) > MaxIDLength {
		return ErrIDTooLong
	}
	return nil
}
