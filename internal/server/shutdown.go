package server

import (
	"sync"
	"time"
)

// ShutdownCoordinator lets in-flight sync runs finish before the server
// stops. Runs are detached from their request so a client disconnect does
// not abort them.
type ShutdownCoordinator struct {
	wg          sync.WaitGroup
	gracePeriod time.Duration
}

func NewShutdownCoordinator(gracePeriod time.Duration) *ShutdownCoordinator {
	return &ShutdownCoordinator{gracePeriod: gracePeriod}
}

// Track registers a run; the returned func marks it done.
func (sc *ShutdownCoordinator) Track() func() {
	sc.wg.Add(1)
	return sc.wg.Done
}

// Wait blocks until every tracked run is done or the grace period elapses.
// It reports whether all runs finished.
func (sc *ShutdownCoordinator) Wait() bool {
	done := make(chan struct{})
	go func() {
		sc.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(sc.gracePeriod):
		return false
	}
}
