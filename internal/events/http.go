package events

import (
	"net/http"
	"time"
)

// HTTPStart is published by the GraphQL handler when a request arrives,
// after its request id is assigned.
type HTTPStart struct {
	Request   *http.Request
	RequestID string
}

// HTTPFinish is published once the response is written. WebSocket
// connections publish neither event.
type HTTPFinish struct {
	Request   *http.Request
	RequestID string
	Status    int
	Duration  time.Duration
}
