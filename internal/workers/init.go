package workers

import (
	"context"
	"time"

	"infinite-experiment/keydrop/internal/logging"
)

type WorkersContainer struct {
	Poller     *UpdatePoller
	Broadcasts *BroadcastWorker
}

// InitWorkers starts the update poller and, when a queue is configured, the
// broadcast consumer. Everything stops with ctx.
func InitWorkers(
	ctx context.Context,
	source UpdateSource,
	handler UpdateHandler,
	pollTimeout time.Duration,
	queue BroadcastConsumer,
	deliverer BroadcastDeliverer,
) *WorkersContainer {
	poller := NewUpdatePoller(source, handler, pollTimeout)
	go poller.Start(ctx)

	container := &WorkersContainer{Poller: poller}

	if queue != nil {
		worker := NewBroadcastWorker("broadcast-worker-1", queue, deliverer)
		go worker.Start(ctx)
		go worker.Monitor(ctx, 30*time.Second)
		container.Broadcasts = worker
	} else {
		logging.Info("Broadcast queue disabled, broadcasts are delivered inline")
	}

	return container
}
