package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableInsertResolve(t *testing.T) {
	table := NewTable()
	n := NewNode(&recordingPeer{})

	ref := table.Insert(n)
	require.False(t, ref.IsZero())
	assert.Equal(t, ref, n.Ref())

	got, ok := table.Resolve(ref)
	require.True(t, ok)
	assert.Same(t, n, got)
	assert.Equal(t, 1, table.Len())
}

func TestTableStaleRefAfterSlotReuse(t *testing.T) {
	table := NewTable()
	first := NewNode(&recordingPeer{})
	ref := table.Insert(first)

	require.True(t, table.Remove(ref))
	_, ok := table.Resolve(ref)
	assert.False(t, ok, "removed ref must not resolve")

	second := NewNode(&recordingPeer{})
	reused := table.Insert(second)
	assert.Equal(t, ref.index, reused.index, "slot should be reused")
	assert.NotEqual(t, ref.gen, reused.gen)

	_, ok = table.Resolve(ref)
	assert.False(t, ok, "old generation must not resolve to the new occupant")

	got, ok := table.Resolve(reused)
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestTableRemoveIsIdempotent(t *testing.T) {
	table := NewTable()
	ref := table.Insert(NewNode(&recordingPeer{}))

	assert.True(t, table.Remove(ref))
	assert.False(t, table.Remove(ref))
	assert.Equal(t, 0, table.Len())
}

func TestTableZeroRefNeverResolves(t *testing.T) {
	table := NewTable()
	table.Insert(NewNode(&recordingPeer{}))

	_, ok := table.Resolve(Ref{})
	assert.False(t, ok)
	assert.False(t, table.Remove(Ref{}))
}

func TestTableResolveAllSkipsStale(t *testing.T) {
	table := NewTable()
	a := NewNode(&recordingPeer{})
	b := NewNode(&recordingPeer{})
	c := NewNode(&recordingPeer{})
	refs := []Ref{table.Insert(a), table.Insert(b), table.Insert(c)}

	table.Remove(refs[1])

	got := table.ResolveAll(refs)
	require.Len(t, got, 2)
	assert.Same(t, a, got[0])
	assert.Same(t, c, got[1])
	assert.Equal(t, 2, table.Len())
}
