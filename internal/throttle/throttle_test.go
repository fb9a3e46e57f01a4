package throttle

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu   sync.Mutex
	seen []int
}

func (c *collector) add(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, v)
}

func (c *collector) values() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.seen...)
}

func TestThrottler_CoalescesBurst(t *testing.T) {
	var c collector
	th := New(30*time.Millisecond, c.add)

	for i := 1; i <= 10; i++ {
		th.Call(i)
	}
	assert.Empty(t, c.values(), "trailing edge only")
	assert.True(t, th.Pending())

	require.Eventually(t, func() bool { return len(c.values()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{10}, c.values())
	assert.False(t, th.Pending())

	// No further calls once the window closed.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []int{10}, c.values())
}

func TestThrottler_SeparateWindows(t *testing.T) {
	var c collector
	th := New(20*time.Millisecond, c.add)

	th.Call(1)
	require.Eventually(t, func() bool { return len(c.values()) == 1 }, time.Second, 5*time.Millisecond)

	th.Call(2)
	th.Call(3)
	require.Eventually(t, func() bool { return len(c.values()) == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []int{1, 3}, c.values())
}

func TestThrottler_Cancel(t *testing.T) {
	var c collector
	th := New(20*time.Millisecond, c.add)

	th.Call(1)
	th.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, c.values())
	assert.False(t, th.Pending())

	th.Call(2)
	require.Eventually(t, func() bool { return len(c.values()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{2}, c.values())
}

func TestThrottler_Stop(t *testing.T) {
	var c collector
	th := New(10*time.Millisecond, c.add)

	th.Call(1)
	th.Stop()
	th.Call(2)

	assert.False(t, th.Pending())
	assert.False(t, th.Flush())
	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, c.values())
}

func TestThrottler_Flush(t *testing.T) {
	var c collector
	th := New(time.Hour, c.add)

	assert.False(t, th.Flush())

	th.Call(1)
	th.Call(2)
	assert.True(t, th.Flush())
	assert.Equal(t, []int{2}, c.values())
	assert.False(t, th.Pending())

	th.Call(3)
	assert.True(t, th.Pending())
	th.Cancel()
}
