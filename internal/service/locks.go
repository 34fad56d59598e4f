package service

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// WorkerLocks сериализует операции над одним работником внутри процесса.
// Между процессами шапки защищены уникальными индексами.
type WorkerLocks struct {
	mu    sync.Mutex
	locks map[string]*workerLock
}

type workerLock struct {
	mu   sync.Mutex
	refs int
}

func NewWorkerLocks() *WorkerLocks {
	return &WorkerLocks{locks: make(map[string]*workerLock)}
}

// Lock блокирует (enterprise, worker) и возвращает функцию разблокировки
func (l *WorkerLocks) Lock(enterpriseID uuid.UUID, workerID uint) func() {
	key := fmt.Sprintf("%s/%d", enterpriseID, workerID)

	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &workerLock{}
		l.locks[key] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
