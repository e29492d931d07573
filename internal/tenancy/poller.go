package tenancy

import (
	"context"
	"sync"
	"time"

	"github.com/wachira567/victorsprings-client/internal/api"
	"github.com/wachira567/victorsprings-client/internal/utils"
)

// Outcome is the terminal result of one polling run. Completed and
// Failed mirror the backend's own terminal states; Timeout is the
// client-only outcome for a payment still unresolved at the attempt
// bound.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimeout   Outcome = "timeout"
)

// StatusFetcher is the slice of the API client the poller needs.
type StatusFetcher interface {
	GetPaymentStatus(ctx context.Context, paymentID string) (api.PaymentStatus, error)
}

// Poller converts an externally-initiated push payment into a terminal
// outcome by polling the status endpoint on a fixed interval up to a
// bounded attempt count. The resolution callback fires at most once,
// and Cancel is idempotent: it is safe to call on terminal resolution
// and again on workflow teardown.
type Poller struct {
	fetcher     StatusFetcher
	interval    time.Duration
	maxAttempts int

	mu       sync.Mutex
	cancel   context.CancelFunc
	canceled bool
	resolved sync.Once
	done     chan struct{}
}

func NewPoller(fetcher StatusFetcher, interval time.Duration, maxAttempts int) *Poller {
	return &Poller{
		fetcher:     fetcher,
		interval:    interval,
		maxAttempts: maxAttempts,
		done:        make(chan struct{}),
	}
}

// Start begins polling paymentID in the background. resolve is invoked
// exactly once with the terminal outcome unless the poller is canceled
// first, in which case it is never invoked.
func (p *Poller) Start(ctx context.Context, paymentID string, resolve func(Outcome)) {
	p.mu.Lock()
	if p.canceled {
		p.mu.Unlock()
		close(p.done)
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(pollCtx, paymentID, resolve)
}

// Cancel stops polling so no further ticks fire. Safe to call more
// than once and safe to call before Start.
func (p *Poller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.canceled = true
	if p.cancel != nil {
		p.cancel()
	}
}

// Done is closed once the polling goroutine has fully stopped.
func (p *Poller) Done() <-chan struct{} { return p.done }

func (p *Poller) run(ctx context.Context, paymentID string, resolve func(Outcome)) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := p.fetcher.GetPaymentStatus(ctx, paymentID)
		if err != nil {
			// A flaky status check must not falsely report a failed
			// payment: the tick yields no new information and counts
			// toward the bound, nothing more.
			if ctx.Err() != nil {
				return
			}
			utils.Logger.WithError(err).Warnf(
				"Payment status check %d/%d failed for %s; continuing", attempt, p.maxAttempts, paymentID)
			continue
		}

		switch status {
		case api.PaymentCompleted:
			p.resolve(resolve, OutcomeCompleted)
			return
		case api.PaymentFailed:
			p.resolve(resolve, OutcomeFailed)
			return
		}
	}

	p.resolve(resolve, OutcomeTimeout)
}

func (p *Poller) resolve(resolve func(Outcome), outcome Outcome) {
	p.resolved.Do(func() {
		p.Cancel()
		resolve(outcome)
	})
}
