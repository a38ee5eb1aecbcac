package workers

import (
	"context"
	"errors"
	"time"

	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/models/dtos"
	"infinite-experiment/keydrop/internal/providers"
)

// UpdateSource long-polls the chat platform
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]dtos.Update, error)
}

// UpdateHandler processes one update
type UpdateHandler interface {
	Handle(ctx context.Context, update dtos.Update) error
}

const (
	pollBackoffMin = time.Second
	pollBackoffMax = 30 * time.Second
)

// UpdatePoller fetches updates and hands them to the handler one at a time,
// in the order the platform delivered them.
type UpdatePoller struct {
	source  UpdateSource
	handler UpdateHandler
	timeout time.Duration
	sleep   func(ctx context.Context, d time.Duration)
}

func NewUpdatePoller(source UpdateSource, handler UpdateHandler, timeout time.Duration) *UpdatePoller {
	return &UpdatePoller{
		source:  source,
		handler: handler,
		timeout: timeout,
		sleep:   sleepCtx,
	}
}

// Start polls until ctx is cancelled
func (p *UpdatePoller) Start(ctx context.Context) {
	logging.Info("Update poller started", "timeout", p.timeout.String())

	var offset int64
	backoff := pollBackoffMin

	for {
		if ctx.Err() != nil {
			logging.Info("Update poller stopped", "offset", offset)
			return
		}

		updates, err := p.source.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			wait := backoff
			var perr *providers.ProviderError
			if errors.As(err, &perr) && perr.RetryAfter > 0 {
				wait = perr.RetryAfter
			}
			logging.Warn("Polling updates failed", "error", err, "retry_in", wait.String())
			p.sleep(ctx, wait)
			backoff = min(backoff*2, pollBackoffMax)
			continue
		}
		backoff = pollBackoffMin

		for _, update := range updates {
			if err := p.handler.Handle(ctx, update); err != nil {
				logging.Error("Update handling failed", "update_id", update.UpdateID, "error", err)
			}
			// Acknowledged even on failure so one bad update cannot wedge the bot
			offset = update.UpdateID + 1
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
