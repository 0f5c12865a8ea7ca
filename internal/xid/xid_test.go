package xid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	a := New("reg")
	b := New("reg")
	assert.True(t, strings.HasPrefix(a, "reg_"))
	assert.Len(t, a, len("reg_")+26)
	assert.NotEqual(t, a, b)
}

func TestUUID(t *testing.T) {
	id := UUID()
	assert.True(t, IsUUID(id))
	assert.False(t, IsUUID("ART0001"))
}
