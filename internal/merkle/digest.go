// Package merkle builds binary hash trees over ledger leaves and produces
// inclusion proofs against their roots.
package merkle

import (
	"encoding/hex"
	"fmt"

	"github.com/roach88/dlog/internal/canonical"
)

// DigestLength is the number of bytes in a digest.
const DigestLength = 32

// Digest is a SHA-256 digest, hex encoded at every text boundary.
type Digest [DigestLength]byte

// EmptyRoot is the root of a tree with no leaves.
var EmptyRoot = Digest(canonical.HashWithDomain(canonical.DomainEmpty, nil))

// String returns the lowercase hex form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// GoString is used for %#v.
func (d Digest) GoString() string {
	return "<SHA256:" + hex.EncodeToString(d[:]) + ">"
}

// IsZero reports whether d is the all-zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalText encodes the digest as hex.
func (d Digest) MarshalText() ([]byte, error) {
	buf := make([]byte, hex.EncodedLen(DigestLength))
	hex.Encode(buf, d[:])
	return buf, nil
}

// UnmarshalText decodes a hex digest.
func (d *Digest) UnmarshalText(s []byte) error {
	if hex.DecodedLen(len(s)) != DigestLength {
		return fmt.Errorf("digest: want %d hex characters, got %d", hex.EncodedLen(DigestLength), len(s))
	}
	var tmp Digest
	if _, err := hex.Decode(tmp[:], s); err != nil {
		return fmt.Errorf("digest: %w", err)
	}
	*d = tmp
	return nil
}

// ParseDigest decodes a hex string into a digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	err := d.UnmarshalText([]byte(s))
	return d, err
}
