// Package poller drives the client side of the payment reconciliation
// protocol: a bounded retry loop against the status endpoint until a
// terminal state is observed.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/KimutaiAsbel/SokoniConnect/models"
)

// Outcome is the result of a polling run. TimedOut is deliberately
// distinct from Failed: it means the payment outcome is unknown and the
// user should confirm out-of-band (their M-Pesa messages), not that the
// payment failed.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeFailed
	OutcomeTimedOut
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCanceled:
		return "canceled"
	}
	return "unknown"
}

// StatusResult is one status-endpoint answer.
type StatusResult struct {
	Status models.PaymentStatus
	Detail string
}

// CheckFunc queries the current status of a payment attempt.
type CheckFunc func(ctx context.Context, checkoutRequestID string) (StatusResult, error)

var statusMessages = []string{
	"Sending payment request to M-Pesa...",
	"Waiting for confirmation...",
	"Processing payment...",
	"Connecting to Safaricom...",
	"Awaiting your PIN confirmation...",
	"Verifying transaction...",
	"Finalizing payment...",
	"Almost done...",
}

// Poller polls a payment's status on a fixed interval up to a bounded
// attempt count.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Check       CheckFunc
}

// New returns a poller with the default 2 second interval and 15
// attempt budget.
func New(check CheckFunc) *Poller {
	return &Poller{
		Interval:    2 * time.Second,
		MaxAttempts: 15,
		Check:       check,
	}
}

// Poll queries the status of checkoutRequestID until a terminal state
// is observed, the attempt budget is exhausted, or ctx is canceled.
// onUpdate, if non-nil, receives a human-readable progress message
// before each attempt. Cancellation is cooperative: an in-flight check
// completes, no further checks are scheduled, and no error is returned.
// A check error aborts the run; the outcome is then TimedOut (unknown,
// confirm out-of-band) with the error alongside.
func (p *Poller) Poll(ctx context.Context, checkoutRequestID string, onUpdate func(message string)) (Outcome, error) {
	start := time.Now()

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return OutcomeCanceled, nil
		}

		if onUpdate != nil {
			onUpdate(progressMessage(attempt, start))
		}

		res, err := p.Check(ctx, checkoutRequestID)
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeCanceled, nil
			}
			return OutcomeTimedOut, err
		}

		switch res.Status {
		case models.PaymentCompleted:
			return OutcomeCompleted, nil
		case models.PaymentFailed:
			return OutcomeFailed, nil
		}

		select {
		case <-ctx.Done():
			return OutcomeCanceled, nil
		case <-time.After(p.Interval):
		}
	}

	return OutcomeTimedOut, nil
}

// progressMessage cycles through the provisional messages, then falls
// back to a generic still-processing message with the elapsed seconds.
func progressMessage(attempt int, start time.Time) string {
	if attempt < len(statusMessages) {
		return statusMessages[attempt]
	}
	return fmt.Sprintf("Still processing payment (%ds)...", int(time.Since(start).Seconds()))
}
