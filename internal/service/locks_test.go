package service

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestWorkerLocks_SerializesSameWorker(t *testing.T) {
	locks := NewWorkerLocks()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(testEnterprise, 1)
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	require.Equal(t, 50, counter)
	require.Empty(t, locks.locks)
}

func TestWorkerLocks_DifferentWorkersDoNotBlock(t *testing.T) {
	locks := NewWorkerLocks()

	unlock := locks.Lock(testEnterprise, 1)
	defer unlock()

	done := make(chan struct{})
	go func() {
		other := locks.Lock(testEnterprise, 2)
		other()
		again := locks.Lock(uuid.New(), 1)
		again()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock of another worker blocked")
	}
}
