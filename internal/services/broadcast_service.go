package services

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"infinite-experiment/keydrop/internal/common"
	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BroadcastQueue hands jobs to a separate worker. Nil means deliver inline.
type BroadcastQueue interface {
	EnqueueBroadcast(ctx context.Context, streamName string, job *common.BroadcastJob) error
}

type BroadcastReport struct {
	ID         string `json:"id"`
	Queued     bool   `json:"queued"`
	Recipients int    `json:"recipients"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
}

// BroadcastService fans a message out to every non-blocked user under a send-rate limit
type BroadcastService struct {
	users         *UserService
	notifications *NotificationService
	queue         BroadcastQueue
	limiter       *rate.Limiter
	workers       int
	now           func() time.Time
}

func NewBroadcastService(users *UserService, notifications *NotificationService, queue BroadcastQueue, perSecond float64, workers int) *BroadcastService {
	if workers < 1 {
		workers = 1
	}
	return &BroadcastService{
		users:         users,
		notifications: notifications,
		queue:         queue,
		limiter:       rate.NewLimiter(rate.Limit(perSecond), 1),
		workers:       workers,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ParseBroadcastInput splits an optional leading image URL line from the text
func ParseBroadcastInput(input string) (string, string) {
	input = strings.TrimSpace(input)
	first, rest, found := strings.Cut(input, "\n")
	first = strings.TrimSpace(first)
	if found && (strings.HasPrefix(first, "http://") || strings.HasPrefix(first, "https://")) && !strings.ContainsAny(first, " \t") {
		return strings.TrimSpace(rest), first
	}
	return input, ""
}

// Submit queues the broadcast when a queue is configured, otherwise delivers it now
func (s *BroadcastService) Submit(ctx context.Context, text, imageURL string) (*BroadcastReport, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "broadcast", Reason: "message is empty"}
	}

	job := &common.BroadcastJob{
		ID:         uuid.NewString(),
		Text:       text,
		ImageURL:   imageURL,
		EnqueuedAt: s.now(),
	}

	if s.queue != nil {
		if err := s.queue.EnqueueBroadcast(ctx, constants.BroadcastStream, job); err != nil {
			logging.Warn("Broadcast queue unavailable, delivering inline", "id", job.ID, "error", err)
		} else {
			logging.Info("Broadcast queued", "id", job.ID)
			return &BroadcastReport{ID: job.ID, Queued: true}, nil
		}
	}
	return s.Deliver(ctx, job)
}

// Deliver sends the job to every reachable user. Individual failures are
// counted and skipped; only failing to enumerate users is an error.
func (s *BroadcastService) Deliver(ctx context.Context, job *common.BroadcastJob) (*BroadcastReport, error) {
	ids, err := s.users.ReachableIDs(ctx)
	if err != nil {
		return nil, err
	}

	var sent, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, id := range ids {
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				// Context cancelled; stop handing out sends
				return err
			}

			var sendErr error
			if job.ImageURL != "" {
				sendErr = s.notifications.SendPhoto(gctx, "broadcast", id, job.ImageURL, job.Text)
			} else {
				sendErr = s.notifications.SendText(gctx, "broadcast", id, job.Text)
			}
			if sendErr != nil {
				failed.Add(1)
			} else {
				sent.Add(1)
			}
			return nil
		})
	}

	waitErr := g.Wait()

	report := &BroadcastReport{
		ID:         job.ID,
		Recipients: len(ids),
		Sent:       int(sent.Load()),
		Failed:     int(failed.Load()),
	}
	logging.Info("Broadcast delivered",
		"id", job.ID,
		"recipients", report.Recipients,
		"sent", report.Sent,
		"failed", report.Failed,
	)
	return report, waitErr
}
