package configurator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStamp_ComputedZeroIsKept(t *testing.T) {
	var s stamp
	calls := 0
	compute := func() int64 { calls++; return 0 }

	assert.Equal(t, int64(0), s.get(compute))
	assert.Equal(t, int64(0), s.get(compute))
	assert.Equal(t, 1, calls)

	v, ok := s.known()
	assert.True(t, ok)
	assert.Zero(t, v)
}

func TestStamp_Invalidate(t *testing.T) {
	var s stamp
	s.set(42)
	v, ok := s.known()
	assert.True(t, ok)
	assert.Equal(t, int64(42), v)

	s.invalidate()
	_, ok = s.known()
	assert.False(t, ok)
	assert.Equal(t, int64(7), s.get(func() int64 { return 7 }))
}

func TestStamp_ReentrantSeesPrevious(t *testing.T) {
	var s stamp
	var inner int64 = -1
	got := s.get(func() int64 {
		inner = s.get(func() int64 { return 99 })
		return 5
	})
	assert.Equal(t, int64(5), got)
	assert.Equal(t, int64(0), inner)
}
