package events

import "time"

// OperationStart is emitted before executing a GraphQL operation.
type OperationStart struct {
	Query         string
	OperationName string
	OperationType string
}

// OperationFinish is emitted after executing a GraphQL operation. Err is set
// when the request was aborted; Errors holds the errors of the result.
type OperationFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Err           error
	Duration      time.Duration
}
