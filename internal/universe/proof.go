package universe

import (
	"github.com/roach88/dlog/internal/merkle"
)

// BalanceProof shows that one entry is part of a snapshot without
// revealing the rest of the ledger.
type BalanceProof struct {
	Entry Entry        `json:"entry"`
	Proof merkle.Proof `json:"proof"`
}

// ProveBalance builds an inclusion proof for label from the supporting
// data of a snapshot. A label with no (non-zero) entry yields UNKNOWN_LABEL.
func ProveBalance(data SupportingData, label LabelID) (BalanceProof, error) {
	entries, err := canonicalize(data)
	if err != nil {
		return BalanceProof{}, err
	}

	label = label.normalized()
	index := -1
	for i, e := range entries {
		if e.Label == label {
			index = i
			break
		}
	}
	if index < 0 {
		return BalanceProof{}, NewUnknownLabelError(label)
	}

	leaves, err := leafDigests(entries)
	if err != nil {
		return BalanceProof{}, err
	}
	proof, err := merkle.Prove(leaves, index)
	if err != nil {
		return BalanceProof{}, NewGenericError(err.Error())
	}
	return BalanceProof{Entry: entries[index], Proof: proof}, nil
}

// VerifyBalance checks p against snapshot.Root. Any inconsistency between
// the entry, the proof and the root is a ROOT_MISMATCH.
func VerifyBalance(snapshot Snapshot, p BalanceProof) error {
	leaf, err := p.Entry.LeafDigest()
	if err != nil {
		return err
	}
	if p.Entry.Balance.IsZero() || leaf != p.Proof.Leaf || !p.Proof.Verify(snapshot.Root) {
		return NewRootMismatchError(snapshot.Height, snapshot.Root, p.Proof.Compute())
	}
	return nil
}
