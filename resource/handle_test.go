package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBindlessHandleRoundTrip(t *testing.T) {
	cases := []struct {
		index, generation uint32
	}{
		{0, 0},
		{1, 1},
		{InvalidIndex32, 0},
		{123456, 4294967295},
	}
	for _, c := range cases {
		h := PackBindless(c.index, c.generation)
		index, generation := h.Unpack()
		assert.Equal(t, c.index, index)
		assert.Equal(t, c.generation, generation)
	}
}

func TestBindlessHandlePackUnpackIdempotent(t *testing.T) {
	h := PackBindless(7, 3)
	index, generation := h.Unpack()
	h2 := PackBindless(index, generation)
	assert.Equal(t, h, h2)
}

func TestInvalidBindlessIsNotValid(t *testing.T) {
	assert.False(t, InvalidBindless.Valid())
	assert.True(t, PackBindless(0, 0).Valid())
}

func TestHandleRoundTrip(t *testing.T) {
	h := PackHandle(5, 1000, 42)
	resType, index, generation := h.Unpack()
	assert.Equal(t, uint16(5), resType)
	assert.Equal(t, uint32(1000), index)
	assert.Equal(t, uint32(42), generation)
}
