package workers

import (
	"context"
	"fmt"
	"time"

	"infinite-experiment/keydrop/internal/common"
	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/services"
)

// BroadcastConsumer is the read side of the broadcast stream
type BroadcastConsumer interface {
	DequeueBroadcast(ctx context.Context, streamName, groupName, consumerName string, blockTime time.Duration) (*common.BroadcastJob, string, error)
	Ack(ctx context.Context, streamName, groupName, messageID string) error
	CreateConsumerGroup(ctx context.Context, streamName, groupName string) error
	GetPendingCount(ctx context.Context, streamName, groupName string) (int64, error)
}

// BroadcastDeliverer fans one job out to its recipients
type BroadcastDeliverer interface {
	Deliver(ctx context.Context, job *common.BroadcastJob) (*services.BroadcastReport, error)
}

// BroadcastWorker drains queued admin broadcasts from the Redis stream
type BroadcastWorker struct {
	workerID  string
	queue     BroadcastConsumer
	deliverer BroadcastDeliverer
	blockTime time.Duration
}

func NewBroadcastWorker(workerID string, queue BroadcastConsumer, deliverer BroadcastDeliverer) *BroadcastWorker {
	return &BroadcastWorker{
		workerID:  workerID,
		queue:     queue,
		deliverer: deliverer,
		blockTime: 5 * time.Second,
	}
}

// Start consumes until ctx is cancelled. Broadcasts already rate-limit
// internally, so one consumer is enough.
func (w *BroadcastWorker) Start(ctx context.Context) {
	stream, group := constants.BroadcastStream, constants.BroadcastConsumerGroup

	if err := w.queue.CreateConsumerGroup(ctx, stream, group); err != nil {
		logging.Warn("Failed to create consumer group", "stream", stream, "error", err)
	}

	logging.Info("Broadcast worker started", "worker", w.workerID, "stream", stream)

	processed, failed := 0, 0
	for {
		select {
		case <-ctx.Done():
			logging.Info("Broadcast worker stopped", "worker", w.workerID, "processed", processed, "failed", failed)
			return
		default:
		}

		ok, err := w.processNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logging.Error("Broadcast processing failed", "worker", w.workerID, "error", err)
			failed++
			sleepCtx(ctx, time.Second)
			continue
		}
		if ok {
			processed++
		}
	}
}

// processNext handles at most one job. Returns false when the read timed out.
func (w *BroadcastWorker) processNext(ctx context.Context) (bool, error) {
	stream, group := constants.BroadcastStream, constants.BroadcastConsumerGroup

	job, messageID, err := w.queue.DequeueBroadcast(ctx, stream, group, w.workerID, w.blockTime)
	if err != nil {
		if messageID != "" {
			// Undecodable entries are acked so they are not redelivered forever
			if ackErr := w.queue.Ack(ctx, stream, group, messageID); ackErr != nil {
				logging.Warn("Failed to ack bad broadcast entry", "message_id", messageID, "error", ackErr)
			}
		}
		return false, err
	}
	if job == nil {
		return false, nil
	}

	report, deliverErr := w.deliverer.Deliver(ctx, job)

	if err := w.queue.Ack(ctx, stream, group, messageID); err != nil {
		logging.Warn("Failed to ack broadcast", "id", job.ID, "message_id", messageID, "error", err)
	}

	if deliverErr != nil {
		return false, fmt.Errorf("broadcast %s: %w", job.ID, deliverErr)
	}

	logging.Info("Broadcast delivered",
		"id", job.ID,
		"recipients", report.Recipients,
		"sent", report.Sent,
		"failed", report.Failed,
		"queued_for", time.Since(job.EnqueuedAt).String(),
	)
	return true, nil
}

// Monitor logs the stream backlog on every tick
func (w *BroadcastWorker) Monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := w.queue.GetPendingCount(ctx, constants.BroadcastStream, constants.BroadcastConsumerGroup)
			if err != nil {
				logging.Warn("Failed to read broadcast backlog", "error", err)
				continue
			}
			if pending > 0 {
				logging.Info("Broadcast backlog", "pending", pending)
			}
		}
	}
}
