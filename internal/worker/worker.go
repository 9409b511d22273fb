// Package worker consumes correlation tasks from the stream and drives the
// pipeline. Failed messages are requeued with an attempt cap, then dead
// lettered; a panic in processing is contained to the one message.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"signalhub.app/correlator/common/logger"
	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/faults"
	"signalhub.app/correlator/internal/queue"
	"signalhub.app/correlator/internal/service"
)

// Processor is the pipeline surface the worker drives. Satisfied by
// service.CorrelationService.
type Processor interface {
	ProcessSignal(ctx context.Context, signalID int64) (*service.SignalReport, error)
	CorrelateBatch(ctx context.Context) (domain.GroupingResult, domain.RunSummary, error)
	SeedFixes(ctx context.Context) (domain.RunSummary, error)
}

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer  *queue.RedisConsumer
	processor Processor
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, processor Processor, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		consumer:  consumer,
		processor: processor,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"task_type", msg.TaskType)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"task_type", msg.TaskType)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_message")
	defer sc.End()
	ctx = sc.Context()

	taskType := string(msg.TaskType)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: logger.Ptr(msg.ID),
		SignalID:  msg.SignalID,
		TaskType:  &taskType,
		Component: "correlator.worker",
	})

	slog.InfoContext(ctx, "processing message", "attempt", msg.Attempt)

	var err error
	switch msg.TaskType {
	case queue.TaskTypeSignal:
		_, err = w.processor.ProcessSignal(ctx, *msg.SignalID)
	case queue.TaskTypeBatch:
		_, _, err = w.processor.CorrelateBatch(ctx)
	case queue.TaskTypeSeedFixes:
		_, err = w.processor.SeedFixes(ctx)
	default:
		// Parse already validated the task type; an unknown one here is a
		// version skew between producer and worker.
		err = fmt.Errorf("unsupported task_type %q", msg.TaskType)
	}
	if err != nil {
		sc.RecordError(err)
		return err
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Log but don't fail - redelivery of a processed message is safe
		// because processing is idempotent per signal.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	// Validation failures never succeed on retry; dead letter them at once.
	if faults.IsValidation(err) || msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "sending message to DLQ",
			"message_id", msg.ID,
			"task_type", msg.TaskType,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"task_type", msg.TaskType,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
