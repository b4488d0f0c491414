package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFragmentContext_Locals(t *testing.T) {
	c := NewFragmentContext(nil)
	assert.False(t, c.IsLocal("i"))

	c.RegisterLocal("i")
	assert.True(t, c.IsLocal("i"))
	assert.False(t, c.IsLocal("j"))
}

func TestFragmentContext_LocalsChainToParent(t *testing.T) {
	parent := NewFragmentContext(nil)
	parent.RegisterLocal("outer")
	child := NewFragmentContext(parent)

	assert.True(t, child.IsLocal("outer"))
	assert.False(t, parent.IsLocal("inner"))

	child.RegisterLocal("inner")
	assert.True(t, child.IsLocal("inner"))
	assert.False(t, parent.IsLocal("inner"), "registering on a child must not leak to its parent")
}
