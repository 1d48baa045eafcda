package repository

import "fmt"

// PersistenceError is a write the store rejected and will not repair on its own.
type PersistenceError struct {
	Kind Kind
	ID   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to upsert %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PersistenceRaceError is a write that referenced a row not stored yet. The
// record was written without the reference; a later sync fills it in.
type PersistenceRaceError struct {
	Kind       Kind
	ID         string
	MissingRef string
}

func (e *PersistenceRaceError) Error() string {
	return fmt.Sprintf("%s %s references %s which is not stored yet", e.Kind, e.ID, e.MissingRef)
}
