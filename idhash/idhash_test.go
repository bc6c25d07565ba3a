package idhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash(t *testing.T) {
	a := Hash("Before Trilogy|film:f1,film:f2")
	assert.Equal(t, a, Hash("Before Trilogy|film:f1,film:f2"))
	assert.NotEqual(t, a, Hash("Before Trilogy|film:f2,film:f1"))
	assert.Regexp(t, `^[0-9A-Za-z]+$`, a)
	assert.True(t, Valid(a))
}

func TestNewRandomID(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewRandomID()
		assert.False(t, seen[id])
		assert.True(t, Valid(id))
		seen[id] = true
	}
	assert.False(t, Valid("not-an-id!"))
	assert.False(t, Valid("abc"))
}
