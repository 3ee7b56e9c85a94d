package focus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsActiveCachedWithoutForceRealTime(t *testing.T) {
	queried := false
	s := New(func() bool { queried = true; return true }, nil)
	assert.False(t, s.IsActive(false))
	assert.False(t, queried)
}

func TestIsActiveForceRealTimeUpdatesCacheAndFires(t *testing.T) {
	live := true
	s := New(func() bool { return live }, nil)

	var fired []bool
	s.SetOnChange(func(active bool) { fired = append(fired, active) })

	assert.True(t, s.IsActive(true))
	assert.Equal(t, []bool{true}, fired)

	// no change -> no additional callback
	assert.True(t, s.IsActive(true))
	assert.Equal(t, []bool{true}, fired)

	live = false
	assert.False(t, s.IsActive(true))
	assert.Equal(t, []bool{true, false}, fired)
}

func TestFocusPushCallbacksUpdateCache(t *testing.T) {
	s := New(nil, nil)
	var fired []bool
	s.SetOnChange(func(active bool) { fired = append(fired, active) })

	s.OnFocusGained()
	assert.True(t, s.IsActive(false))
	s.OnFocusLost()
	assert.False(t, s.IsActive(false))
	assert.Equal(t, []bool{true, false}, fired)
}
