package events

import "time"

// RESTCallStart is emitted before a REST client call to the task service.
type RESTCallStart struct {
	Method string
	URL    string
}

// RESTCallFinish is emitted after a REST client call completes. Status is the
// HTTP status code when a response arrived; Err is set only for transport
// failures, so non-2xx responses carry Status with a nil Err.
type RESTCallFinish struct {
	Method   string
	URL      string
	Status   int
	Err      error
	Duration time.Duration
}
