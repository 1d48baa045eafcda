package xsync

import "fmt"

// ReconciliationGapError reports a cycle referenced by a recovery that could
// not be fetched individually.
type ReconciliationGapError struct {
	CycleID int64
	Err     error
}

func (e *ReconciliationGapError) Error() string {
	return fmt.Sprintf("cycle %d referenced by recovery could not be fetched: %v", e.CycleID, e.Err)
}

func (e *ReconciliationGapError) Unwrap() error { return e.Err }

// FatalError aborts a run. Only the steps everything downstream depends on
// produce one.
type FatalError struct {
	Step string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("sync aborted at %s: %v", e.Step, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
