// Package dispatchtest provides an in-memory dispatcher for tests.
package dispatchtest

import (
	"context"
	"sync"

	"datenbriefd/internal/recipient"
)

// Recorder records every Send. Err, when set, decides the result per
// recipient.
type Recorder struct {
	Err func(r recipient.Recipient) error

	mu   sync.Mutex
	sent []recipient.Recipient
}

func (rec *Recorder) Send(_ context.Context, r recipient.Recipient) error {
	rec.mu.Lock()
	rec.sent = append(rec.sent, r)
	rec.mu.Unlock()
	if rec.Err != nil {
		return rec.Err(r)
	}
	return nil
}

// Sent returns the recipients passed to Send so far, in call order.
func (rec *Recorder) Sent() []recipient.Recipient {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]recipient.Recipient(nil), rec.sent...)
}
