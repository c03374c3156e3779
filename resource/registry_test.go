package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFactory struct{}

func (stubFactory) GetNativeView(resource any, desc any) (NativeView, error) {
	return struct {
		resource any
		desc     any
	}{resource, desc}, nil
}

func TestReplaceKeepsDescriptorSlots(t *testing.T) {
	reg := NewRegistry(NewAnyCache(0))
	reg.Register(1, "R1", 1, 1)

	_, i1, err := reg.RegisterView(1, "R1", "d1", stubFactory{})
	require.NoError(t, err)
	_, i2, err := reg.RegisterView(1, "R1", "d2", stubFactory{})
	require.NoError(t, err)

	remainingBefore := reg.RemainingDescriptors()

	identity := func(oldDesc any) (any, bool) { return oldDesc, true }
	ok := reg.Replace(1, 2, "R2", 2, 1, stubFactory{}, identity)
	require.True(t, ok)

	assert.False(t, reg.Cache.Contains(1))
	assert.True(t, reg.Cache.Contains(2))
	assert.True(t, reg.UpdateView(2, i1, "d1"))
	assert.True(t, reg.UpdateView(2, i2, "d2"))
	assert.Equal(t, remainingBefore, reg.RemainingDescriptors())
}

func TestRegisterViewFailsWhenResourceUnregistered(t *testing.T) {
	reg := NewRegistry(NewAnyCache(0))
	_, _, err := reg.RegisterView(99, "nope", "d", stubFactory{})
	assert.ErrorIs(t, err, ErrResourceNotRegistered)
}

func TestReplaceOnUnregisteredResourceFails(t *testing.T) {
	reg := NewRegistry(NewAnyCache(0))
	ok := reg.Replace(1, 2, "R2", 2, 1, stubFactory{}, func(any) (any, bool) { return nil, true })
	assert.False(t, ok)
}

func TestReplaceWithNoneReleasesDescriptor(t *testing.T) {
	reg := NewRegistry(NewAnyCache(0))
	reg.Register(1, "R1", 1, 1)
	_, idx, err := reg.RegisterView(1, "R1", "d1", stubFactory{})
	require.NoError(t, err)

	dropAll := func(any) (any, bool) { return nil, false }
	ok := reg.Replace(1, 2, "R2", 2, 1, stubFactory{}, dropAll)
	require.True(t, ok)

	assert.False(t, reg.UpdateView(2, idx, "d1"))
	assert.Empty(t, reg.ViewsOf(2))
}

func TestUpdateViewRequiresOwnership(t *testing.T) {
	reg := NewRegistry(NewAnyCache(0))
	reg.Register(1, "R1", 1, 1)
	_, idx, err := reg.RegisterView(1, "R1", "d1", stubFactory{})
	require.NoError(t, err)

	assert.False(t, reg.UpdateView(999, idx, "other"))
	assert.True(t, reg.UpdateView(1, idx, "d1-updated"))
}
