package merkle

import (
	"fmt"

	"github.com/roach88/dlog/internal/canonical"
)

// hashPair combines two child digests into their parent.
func hashPair(left, right Digest) Digest {
	buf := make([]byte, 0, 2*DigestLength)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return Digest(canonical.HashWithDomain(canonical.DomainNode, buf))
}

// Levels builds every level of the tree, leaves first, root last.
//
// An odd node at the end of a level is paired with itself. The input slice
// is not modified. Zero leaves yield nil.
func Levels(leaves []Digest) [][]Digest {
	if len(leaves) == 0 {
		return nil
	}

	level := make([]Digest, len(leaves))
	copy(level, leaves)
	levels := [][]Digest{level}

	for len(level) > 1 {
		next := make([]Digest, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			j := i + 1
			if j == len(level) {
				j = i
			}
			next = append(next, hashPair(level[i], level[j]))
		}
		levels = append(levels, next)
		level = next
	}
	return levels
}

// Root returns the Merkle root of leaves, or EmptyRoot for no leaves.
func Root(leaves []Digest) Digest {
	levels := Levels(leaves)
	if levels == nil {
		return EmptyRoot
	}
	return levels[len(levels)-1][0]
}

// Step is one sibling on the path from a leaf to the root.
type Step struct {
	Sibling Digest `json:"sibling"`
	// Left is true when the sibling sits to the left of the running hash.
	Left bool `json:"left"`
}

// Proof shows that Leaf sits at Index in a tree of Count leaves.
type Proof struct {
	Leaf  Digest `json:"leaf"`
	Index int    `json:"index"`
	Count int    `json:"count"`
	Path  []Step `json:"path"`
}

// Prove builds an inclusion proof for leaves[index].
func Prove(leaves []Digest, index int) (Proof, error) {
	if index < 0 || index >= len(leaves) {
		return Proof{}, fmt.Errorf("merkle: index %d out of range [0,%d)", index, len(leaves))
	}

	levels := Levels(leaves)
	proof := Proof{
		Leaf:  leaves[index],
		Index: index,
		Count: len(leaves),
		Path:  make([]Step, 0, len(levels)-1),
	}

	pos := index
	for _, level := range levels[:len(levels)-1] {
		if pos%2 == 0 {
			sib := pos + 1
			if sib == len(level) {
				sib = pos
			}
			proof.Path = append(proof.Path, Step{Sibling: level[sib], Left: false})
		} else {
			proof.Path = append(proof.Path, Step{Sibling: level[pos-1], Left: true})
		}
		pos /= 2
	}
	return proof, nil
}

// Compute folds the proof path into the root it implies.
func (p Proof) Compute() Digest {
	running := p.Leaf
	for _, step := range p.Path {
		if step.Left {
			running = hashPair(step.Sibling, running)
		} else {
			running = hashPair(running, step.Sibling)
		}
	}
	return running
}

// Verify reports whether the proof reproduces root.
func (p Proof) Verify(root Digest) bool {
	if p.Count <= 0 || p.Index < 0 || p.Index >= p.Count {
		return false
	}
	if len(p.Path) != pathLength(p.Count) {
		return false
	}
	// Sibling sides must agree with the claimed index.
	pos := p.Index
	for _, step := range p.Path {
		if step.Left != (pos%2 == 1) {
			return false
		}
		pos /= 2
	}
	return p.Compute() == root
}

// pathLength is the number of steps from any leaf to the root.
func pathLength(count int) int {
	n := 0
	for count > 1 {
		count = (count + 1) / 2
		n++
	}
	return n
}
