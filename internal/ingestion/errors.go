package ingestion

import (
	"errors"
	"fmt"
)

// ErrInvalidRow is returned when an indexer row cannot be decoded.
var ErrInvalidRow = errors.New("invalid indexer row")

// IngestionFailure is fatal for a run: one window of one event kind could not
// be fetched within the retry budget.
type IngestionFailure struct {
	Kind   string
	Window Window
	Err    error
}

func (e *IngestionFailure) Error() string {
	return fmt.Sprintf("ingestion failure: %s window [%d, %d): %v", e.Kind, e.Window.From, e.Window.To, e.Err)
}

func (e *IngestionFailure) Unwrap() error {
	return e.Err
}
