package canonical

import (
	"crypto/sha256"
)

// Domain prefixes for ledger digests.
// The version suffix leaves room for a future algorithm migration.
const (
	DomainLeaf  = "dlog/leaf/v1"
	DomainNode  = "dlog/node/v1"
	DomainEmpty = "dlog/empty/v1"
)

// HashWithDomain computes SHA256(domain || 0x00 || data).
// The null separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)

	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HashObject canonically marshals obj and hashes it under domain.
func HashObject(domain string, obj Object) ([sha256.Size]byte, error) {
	data, err := Marshal(obj)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return HashWithDomain(domain, data), nil
}
