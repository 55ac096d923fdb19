package events

import "time"

// BatchDispatch is emitted after a loader ran one batch.
type BatchDispatch struct {
	Loader   string
	Keys     int
	Err      error
	Duration time.Duration
}
