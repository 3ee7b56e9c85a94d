package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithHostAndPIDIsDeterministic(t *testing.T) {
	a := NewWithHostAndPID("dev-box", "/home/u/proj", 4242)
	b := NewWithHostAndPID("dev-box", "/home/u/proj", 4242)
	assert.Equal(t, a.ID(), b.ID())

	c := NewWithHostAndPID("dev-box", "/home/u/other", 4242)
	assert.NotEqual(t, a.ID(), c.ID())
}

func TestNextSequenceStrictlyIncreasing(t *testing.T) {
	id := NewWithHostAndPID("dev-box", "/home/u/proj", 1)
	last := uint64(0)
	for i := 0; i < 100; i++ {
		seq := id.NextSequence()
		assert.Greater(t, seq, last)
		last = seq
	}
}
