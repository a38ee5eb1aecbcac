package common

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueueService provides queue functionality using Redis Streams
type RedisQueueService struct {
	client *redis.Client
}

// NewRedisQueueService creates a new Redis queue service
func NewRedisQueueService(client *redis.Client) *RedisQueueService {
	return &RedisQueueService{
		client: client,
	}
}

// BroadcastJob is one admin broadcast waiting to be fanned out
type BroadcastJob struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	ImageURL   string    `json:"image_url,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// EnqueueBroadcast adds a job to the stream
func (s *RedisQueueService) EnqueueBroadcast(ctx context.Context, streamName string, job *BroadcastJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast job: %w", err)
	}

	// XADD stream_name * data <json>
	args := &redis.XAddArgs{
		Stream: streamName,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}

	if _, err := s.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	return nil
}

// DequeueBroadcast reads one job using the consumer group
// Returns (job, messageID, error); a nil job means the block timed out
func (s *RedisQueueService) DequeueBroadcast(ctx context.Context, streamName, groupName, consumerName string, blockTime time.Duration) (*BroadcastJob, string, error) {
	args := &redis.XReadGroupArgs{
		Group:    groupName,
		Consumer: consumerName,
		Streams:  []string{streamName, ">"}, // ">" means new messages only
		Count:    1,
		Block:    blockTime,
	}

	streams, err := s.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to read from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, "", nil
	}

	msg := streams[0].Messages[0]

	dataStr, ok := msg.Values["data"].(string)
	if !ok {
		return nil, msg.ID, fmt.Errorf("invalid message format: data field missing")
	}

	var job BroadcastJob
	if err := json.Unmarshal([]byte(dataStr), &job); err != nil {
		return nil, msg.ID, fmt.Errorf("failed to unmarshal broadcast job: %w", err)
	}

	return &job, msg.ID, nil
}

// Ack acknowledges successful processing of a message
func (s *RedisQueueService) Ack(ctx context.Context, streamName, groupName, messageID string) error {
	return s.client.XAck(ctx, streamName, groupName, messageID).Err()
}

// CreateConsumerGroup creates a consumer group for the stream if it doesn't exist
func (s *RedisQueueService) CreateConsumerGroup(ctx context.Context, streamName, groupName string) error {
	// XGROUP CREATE stream group 0 MKSTREAM
	err := s.client.XGroupCreateMkStream(ctx, streamName, groupName, "0").Err()
	if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

// GetPendingCount returns the number of unacknowledged messages for a consumer group
func (s *RedisQueueService) GetPendingCount(ctx context.Context, streamName, groupName string) (int64, error) {
	pending, err := s.client.XPending(ctx, streamName, groupName).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return pending.Count, nil
}
