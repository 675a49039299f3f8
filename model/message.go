package model

import "time"

// Message is a single decoded email taken from an mbox archive.
type Message struct {
	Index      int
	ID         string
	TraceID    string
	Hash       string
	From       string
	Subject    string
	DateHeader string
	ReceivedAt time.Time
	Header     string
	Body       string
	Size       int64
}

// Envelope wraps a message alongside an error encountered while decoding it.
// Filtered is set for messages rejected by the include/exclude rules.
type Envelope struct {
	Message  Message
	Err      error
	Filtered bool
}
