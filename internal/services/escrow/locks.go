package escrow

import "sync"

// fundLocks hands out one mutex per fund so ledger mutations for the same
// fund are linearized while different funds proceed independently.
type fundLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newFundLocks() *fundLocks {
	return &fundLocks{locks: make(map[uint]*sync.Mutex)}
}

func (l *fundLocks) get(fundID uint) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[fundID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[fundID] = m
	}
	return m
}
