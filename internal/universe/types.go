package universe

import (
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/roach88/dlog/internal/canonical"
	"github.com/roach88/dlog/internal/merkle"
)

// LabelID scopes a balance to an owner and a named slice of their holdings.
// It is a comparable value type and is used directly as a map key.
type LabelID struct {
	Owner string `json:"owner" yaml:"owner"`
	Label string `json:"label" yaml:"label"`
}

// NewLabelID returns a label with both fields NFC normalized, so that two
// spellings of the same text address the same account.
func NewLabelID(owner, label string) LabelID {
	return LabelID{
		Owner: canonical.NormalizeString(owner),
		Label: canonical.NormalizeString(label),
	}
}

func (l LabelID) String() string {
	return l.Owner + "/" + l.Label
}

// normalized returns l with both fields in NFC form.
func (l LabelID) normalized() LabelID {
	return NewLabelID(l.Owner, l.Label)
}

// Validate rejects labels that are empty or not valid UTF-8.
func (l LabelID) Validate() error {
	if !utf8.ValidString(l.Owner) || !utf8.ValidString(l.Label) {
		return NewGenericError(fmt.Sprintf("label %q is not valid UTF-8", l.String()))
	}
	if strings.TrimSpace(l.Owner) == "" {
		return NewGenericError("label owner must not be empty")
	}
	if strings.TrimSpace(l.Label) == "" {
		return NewGenericError("label name must not be empty")
	}
	return nil
}

// compareLabels is the canonical order: owner, then label, bytewise.
func compareLabels(a, b LabelID) int {
	if c := strings.Compare(a.Owner, b.Owner); c != 0 {
		return c
	}
	return strings.Compare(a.Label, b.Label)
}

// Balance is a non-negative arbitrary-precision amount in smallest units.
// The zero value is a zero balance. Balances are immutable; arithmetic
// returns new values.
type Balance struct {
	v *big.Int
}

// Zero is the zero balance.
var Zero = Balance{}

// NewBalance returns a balance of n units.
func NewBalance(n uint64) Balance {
	if n == 0 {
		return Zero
	}
	return Balance{v: new(big.Int).SetUint64(n)}
}

// ParseBalance parses a non-negative base-10 integer.
func ParseBalance(s string) (Balance, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Zero, NewGenericError(fmt.Sprintf("invalid amount %q", s))
	}
	if v.Sign() < 0 {
		return Zero, NewInvalidAmountError(fmt.Sprintf("amount must not be negative: %s", s))
	}
	if v.Sign() == 0 {
		return Zero, nil
	}
	return Balance{v: v}, nil
}

// MustParseBalance is like ParseBalance but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseBalance(s string) Balance {
	b, err := ParseBalance(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (b Balance) big() *big.Int {
	if b.v == nil {
		return new(big.Int)
	}
	return b.v
}

// IsZero reports whether the balance is zero.
func (b Balance) IsZero() bool {
	return b.v == nil || b.v.Sign() == 0
}

// Cmp compares b and o and returns -1, 0 or +1.
func (b Balance) Cmp(o Balance) int {
	return b.big().Cmp(o.big())
}

// Equal reports whether b and o hold the same amount.
func (b Balance) Equal(o Balance) bool {
	return b.Cmp(o) == 0
}

// Add returns b + o. Arbitrary precision: it cannot wrap.
func (b Balance) Add(o Balance) Balance {
	sum := new(big.Int).Add(b.big(), o.big())
	if sum.Sign() == 0 {
		return Zero
	}
	return Balance{v: sum}
}

// Sub returns b - o, or an InsufficientBalance error when o > b.
func (b Balance) Sub(o Balance) (Balance, error) {
	if b.Cmp(o) < 0 {
		return Zero, NewInsufficientBalanceError(nil, b, o)
	}
	diff := new(big.Int).Sub(b.big(), o.big())
	if diff.Sign() == 0 {
		return Zero, nil
	}
	return Balance{v: diff}, nil
}

// String returns the base-10 representation.
func (b Balance) String() string {
	return b.big().String()
}

// MarshalText encodes the balance as a decimal string so JSON and YAML
// never round it through a float.
func (b Balance) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText parses a decimal string.
func (b *Balance) UnmarshalText(text []byte) error {
	parsed, err := ParseBalance(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Entry is one materialized (label, balance) pair.
type Entry struct {
	Label   LabelID `json:"label"`
	Balance Balance `json:"balance"`
}

// canonicalObject is the exact structure fed to the leaf hash.
func (e Entry) canonicalObject() canonical.Object {
	return canonical.Object{
		"owner":  e.Label.Owner,
		"label":  e.Label.Label,
		"amount": e.Balance.String(),
	}
}

// CanonicalBytes returns the canonical JSON encoding of the entry.
func (e Entry) CanonicalBytes() ([]byte, error) {
	return canonical.Marshal(e.canonicalObject())
}

// LeafDigest is the Merkle leaf for this entry.
func (e Entry) LeafDigest() (merkle.Digest, error) {
	d, err := canonical.HashObject(canonical.DomainLeaf, e.canonicalObject())
	if err != nil {
		return merkle.Digest{}, NewGenericError(fmt.Sprintf("hash entry %s: %v", e.Label, err))
	}
	return merkle.Digest(d), nil
}

// SupportingData is what Unfold consumes: the full balance set a snapshot
// was folded from. Order is irrelevant; Unfold sorts it canonically.
type SupportingData []Entry

// Snapshot is an immutable folded summary of the ledger.
type Snapshot struct {
	Height      uint64        `json:"height"`
	Root        merkle.Digest `json:"root"`
	TimestampMs int64         `json:"timestamp_ms"`
}

func (s Snapshot) String() string {
	return fmt.Sprintf("snapshot{height=%d root=%s ts=%d}", s.Height, s.Root, s.TimestampMs)
}
