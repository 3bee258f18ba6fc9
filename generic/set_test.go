package generic

import (
	"sort"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	assert := assert_.New(t)

	s := NewSet[string]()
	assert.Equal(0, s.Count())
	assert.False(s.Contains("a"))
	assert.True(s.Add("a"))
	assert.False(s.Add("a"))
	assert.Equal(1, s.Count())
	assert.True(s.Contains("a"))
	assert.True(s.Remove("a"))
	assert.False(s.Remove("a"))
	assert.Equal(0, s.Count())

	s2 := NewSet("x", "y", "z", "x")
	assert.Equal(3, s2.Count())
	assert.True(s2.Contains("x", "z"))
	assert.False(s2.Contains("x", "w"))
	items := s2.ToSlice()
	sort.Strings(items)
	assert.Equal([]string{"x", "y", "z"}, items)
}

func TestResult(t *testing.T) {
	assert := assert_.New(t)
	ok := NewResult(1, nil)
	assert.False(ok.IsErr())
	assert.Equal(1, ok.Value)

	bad := NewResult(0, assert_.AnError)
	assert.True(bad.IsErr())
	assert.ErrorIs(bad.Error, assert_.AnError)
}
