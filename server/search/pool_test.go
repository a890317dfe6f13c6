package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPoolSkipsBlankKeys(t *testing.T) {
	p := NewPool([]string{"", "k2", "  ", "k4", ""})
	assert.Equal(t, 2, p.Len())

	k, ok := p.Key(0)
	assert.True(t, ok)
	assert.Equal(t, "k2", k)

	k, ok = p.Key(1)
	assert.True(t, ok)
	assert.Equal(t, "k4", k)

	_, ok = p.Key(2)
	assert.False(t, ok)
	_, ok = p.Key(-1)
	assert.False(t, ok)
}

func TestNewPoolEmpty(t *testing.T) {
	assert.Equal(t, 0, NewPool(nil).Len())
	assert.Equal(t, 0, NewPool([]string{"", ""}).Len())
}
