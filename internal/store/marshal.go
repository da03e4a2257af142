package store

import (
	"fmt"

	"github.com/roach88/dlog/internal/merkle"
	"github.com/roach88/dlog/internal/universe"
)

// encodeAmount converts a balance to base-10 TEXT for storage.
func encodeAmount(b universe.Balance) string {
	return b.String()
}

// decodeAmount parses base-10 TEXT written by encodeAmount.
func decodeAmount(s string) (universe.Balance, error) {
	b, err := universe.ParseBalance(s)
	if err != nil {
		return universe.Zero, fmt.Errorf("decode amount %q: %w", s, err)
	}
	return b, nil
}

// decodeRoot parses a hex root column.
func decodeRoot(s string) (merkle.Digest, error) {
	d, err := merkle.ParseDigest(s)
	if err != nil {
		return merkle.Digest{}, fmt.Errorf("decode root: %w", err)
	}
	return d, nil
}
