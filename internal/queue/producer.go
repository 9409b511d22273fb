package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type SignalMessage struct {
	TaskType TaskType
	SignalID int64
	Source   string
	TraceID  *string
	Attempt  int
}

type Producer interface {
	Enqueue(ctx context.Context, msg SignalMessage) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, msg SignalMessage) error {
	attempt := msg.Attempt
	if attempt <= 0 {
		attempt = 1
	}
	taskType := msg.TaskType
	if taskType == "" {
		taskType = TaskTypeSignal
	}

	fields := map[string]any{
		"task_type": string(taskType),
		"attempt":   attempt,
	}
	if msg.SignalID != 0 {
		fields["signal_id"] = msg.SignalID
	}
	if msg.Source != "" {
		fields["source"] = msg.Source
	}
	if msg.TraceID != nil && *msg.TraceID != "" {
		fields["trace_id"] = *msg.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue signal task: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued signal task", "task_type", taskType, "signal_id", msg.SignalID, "source", msg.Source, "attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
