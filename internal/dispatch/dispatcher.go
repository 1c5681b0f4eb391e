// Package dispatch delivers reminder notifications.
//
// A Dispatcher sends one reminder to one recipient and reports success or
// a reason for failure. The scheduler reschedules regardless of the result,
// so dispatchers do not retry.
package dispatch

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"datenbriefd/internal/recipient"
)

var ErrNoRecipientAddress = errors.New("dispatch: recipient has no mail address")

// Dispatcher sends a reminder to r. r is a copy and may be retained.
type Dispatcher interface {
	Send(ctx context.Context, r recipient.Recipient) error
}

// limited throttles an inner Dispatcher with a token bucket.
type limited struct {
	inner   Dispatcher
	limiter *rate.Limiter
}

// NewLimited allows at most perSecond sends per second through d. A
// non-positive perSecond returns d unchanged.
func NewLimited(d Dispatcher, perSecond int) Dispatcher {
	if perSecond <= 0 {
		return d
	}
	return &limited{inner: d, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (l *limited) Send(ctx context.Context, r recipient.Recipient) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	return l.inner.Send(ctx, r)
}
