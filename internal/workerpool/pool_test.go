package workerpool

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_RunsAllTasks(t *testing.T) {
	pool := New(4, 16, slog.Default())

	var count atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		assert.True(t, pool.Submit(func() {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()
	pool.Shutdown()

	assert.Equal(t, int64(100), count.Load())
}

func TestPool_TrySubmitWhenFull(t *testing.T) {
	pool := New(1, 1, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	assert.True(t, pool.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	// worker 被占用，队列容量 1
	assert.True(t, pool.TrySubmit(func() {}))
	assert.False(t, pool.TrySubmit(func() {}), "queue is full")

	current, capacity := pool.QueueUsage()
	assert.Equal(t, 1, current)
	assert.Equal(t, 1, capacity)

	close(release)
	pool.Shutdown()
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	pool := New(1, 8, nil)

	var count atomic.Int64
	for i := 0; i < 8; i++ {
		pool.Submit(func() { count.Add(1) })
	}
	pool.Shutdown()

	assert.Equal(t, int64(8), count.Load())
	assert.False(t, pool.Submit(func() {}))
	assert.False(t, pool.TrySubmit(func() {}))

	// 重复关闭是安全的
	pool.Shutdown()
}

func TestPool_RecoversPanic(t *testing.T) {
	pool := New(1, 2, nil)

	done := make(chan struct{})
	pool.Submit(func() { panic("boom") })
	pool.Submit(func() { close(done) })
	<-done

	pool.Shutdown()
}
