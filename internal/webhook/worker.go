package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultQueueSize   = 256
	defaultMaxAttempts = 5
)

// Worker delivers queued events in the background so attendance requests
// never wait on the receiver.
type Worker struct {
	service     *Service
	logger      *slog.Logger
	queue       chan Job
	maxAttempts int
	baseDelay   time.Duration
}

type WorkerOption func(*Worker)

func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) {
		w.maxAttempts = n
	}
}

func WithBaseDelay(d time.Duration) WorkerOption {
	return func(w *Worker) {
		w.baseDelay = d
	}
}

func NewWorker(service *Service, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		service:     service,
		logger:      logger.With("component", "webhook"),
		queue:       make(chan Job, defaultQueueSize),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Notify queues an event. A full queue drops the event with a warning.
func (w *Worker) Notify(eventType string, data interface{}) {
	event := EventPayload{
		ID:        uuid.New(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		w.logger.Error("failed to marshal webhook event", "event_type", eventType, "error", err)
		return
	}

	select {
	case w.queue <- Job{ID: event.ID, EventType: eventType, Payload: payload}:
	default:
		w.logger.Warn("webhook queue full, dropping event", "event_type", eventType)
	}
}

func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("webhook worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("webhook worker stopped")
			return
		case job := <-w.queue:
			w.processJob(ctx, job)
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job Job) {
	for {
		job.Attempts++
		err := w.service.Send(ctx, job)
		if err == nil {
			w.logger.Debug("webhook job completed", "job_id", job.ID, "event_type", job.EventType)
			return
		}

		if job.Attempts >= w.maxAttempts || ctx.Err() != nil {
			w.logger.Error("webhook job failed",
				"job_id", job.ID,
				"event_type", job.EventType,
				"attempts", job.Attempts,
				"error", err,
			)
			return
		}

		delay := w.baseDelay * time.Duration(1<<(job.Attempts-1))
		w.logger.Info("webhook job scheduled for retry",
			"job_id", job.ID,
			"attempts", job.Attempts,
			"delay", delay,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
