package model

import (
	"errors"
	"testing"

	"github.com/lintang-b-s/fem-subdomain-partitioner/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubdomainOwnedAndExternalNodesAreExclusive(t *testing.T) {
	s := NewSubdomain(1)
	require.NoError(t, s.AddNode(NewNode(1, 2, 0, 0, 0)))
	require.Error(t, s.AddExternalNode(NewNode(1, 2, 0, 0, 0)))
	require.NoError(t, s.AddExternalNode(NewNode(2, 2, 1, 0, 0)))
	require.Error(t, s.AddNode(NewNode(2, 2, 1, 0, 0)))

	assert.True(t, s.HasOwnedNode(1))
	assert.True(t, s.HasExternalNode(2))
	assert.Equal(t, []int{1, 2}, s.GetAllNodeTags())

	n, ok := s.GetNode(2)
	require.True(t, ok)
	assert.Equal(t, 2, n.GetTag())
}

func TestSubdomainConstraintConnections(t *testing.T) {
	s := NewSubdomain(1)
	n := NewNode(1, 3, 0, 0, 0)
	require.NoError(t, s.AddNode(n))

	require.NoError(t, s.AddSPConstraint(NewSPConstraint(1, 1, 0, 0)))
	require.NoError(t, s.AddMPConstraint(NewMPConstraint(1, []int{2}, 1, []int{0}, []int{0})))
	assert.Equal(t, 2, n.GetNumConnected())

	_, ok := s.RemoveSPConstraint(1)
	require.True(t, ok)
	assert.Equal(t, 1, n.GetNumConnected())

	// retained node arrives after the constraint
	r := NewNode(2, 3, 1, 0, 0)
	require.NoError(t, s.AddExternalNode(r))
	assert.Equal(t, 1, r.GetNumConnected())
}

func TestSubdomainRegistrationOrder(t *testing.T) {
	s := NewSubdomain(1)
	for _, tag := range []int{5, 3, 9} {
		require.NoError(t, s.AddSPConstraint(NewSPConstraint(tag, 1, 0, float64(tag))))
	}
	got := make([]int, 0)
	s.ForEachSPConstraint(func(sp *SPConstraint) { got = append(got, sp.GetTag()) })
	assert.Equal(t, []int{5, 3, 9}, got)
}

func TestSubdomainDomainChangeNotifies(t *testing.T) {
	s := NewSubdomain(2)
	calls := 0
	s.OnChange(func(sub *Subdomain) {
		calls++
		assert.Equal(t, 2, sub.GetID())
	})
	s.DomainChange()
	s.DomainChange()
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, s.GetChangeStamp())
}

func TestDomainPartitions(t *testing.T) {
	d := NewDomain()
	_, err := d.AddPartition(2)
	require.NoError(t, err)
	_, err = d.AddPartition(1)
	require.NoError(t, err)
	_, err = d.AddPartition(1)
	require.Error(t, err)
	_, err = d.AddPartition(0)
	require.Error(t, err)

	assert.Equal(t, []int{1, 2}, d.GetPartitionIDs())

	_, err = d.GetPartition(3)
	assert.True(t, errors.Is(err, pkg.ErrUnknownPartition))
}

func TestLoadPattern(t *testing.T) {
	p := NewLoadPattern(1)
	assert.True(t, p.AddNodalLoad(NewNodalLoad(1, 4, []float64{1, 0})))
	assert.False(t, p.AddNodalLoad(NewNodalLoad(1, 4, []float64{1, 0})))
	assert.Equal(t, 1, p.NumberOfNodalLoads())

	e := p.CloneEmpty()
	assert.Equal(t, 1, e.GetTag())
	assert.Equal(t, 0, e.NumberOfNodalLoads())
}

func TestSubdomainIsEmptyCountsNodalLoads(t *testing.T) {
	s := NewSubdomain(2)
	require.NoError(t, s.AddLoadPattern(NewLoadPattern(1)))
	assert.True(t, s.IsEmpty())

	p, ok := s.GetLoadPattern(1)
	require.True(t, ok)
	p.AddNodalLoad(NewNodalLoad(3, 4, []float64{1, 0}))
	assert.False(t, s.IsEmpty())
}
