package canonical

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomainMatchesManualConstruction(t *testing.T) {
	data := []byte(`{"a":1}`)

	want := sha256.Sum256(append(append([]byte(DomainLeaf), 0x00), data...))
	assert.Equal(t, want, HashWithDomain(DomainLeaf, data))
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte("payload")

	leaf := HashWithDomain(DomainLeaf, data)
	node := HashWithDomain(DomainNode, data)

	assert.NotEqual(t, leaf, node, "different domains must not collide")
}

func TestHashObjectDeterminism(t *testing.T) {
	a, err := HashObject(DomainLeaf, Object{"owner": "alice", "label": "fun", "amount": "10"})
	require.NoError(t, err)
	b, err := HashObject(DomainLeaf, Object{"amount": "10", "label": "fun", "owner": "alice"})
	require.NoError(t, err)

	assert.Equal(t, a, b, "key insertion order must not matter")
}

func TestHashObjectChangesWithContent(t *testing.T) {
	a, err := HashObject(DomainLeaf, Object{"amount": "10"})
	require.NoError(t, err)
	b, err := HashObject(DomainLeaf, Object{"amount": "11"})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashObjectError(t *testing.T) {
	_, err := HashObject(DomainLeaf, Object{"bad": 0.5})
	require.Error(t, err)
}
