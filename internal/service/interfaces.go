package service

import (
	"context"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

type StudentRepository interface {
	Upsert(ctx context.Context, s *domain.Student) error
	GetByID(ctx context.Context, id int64) (*domain.Student, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Student, error)
	Count(ctx context.Context) (int, error)
}

type EmbeddingStore interface {
	Load(ctx context.Context) ([]domain.EmbeddingEntry, error)
	Get(ctx context.Context, studentID int64) (*domain.EmbeddingEntry, error)
	Save(ctx context.Context, e *domain.EmbeddingEntry) error
	Count(ctx context.Context) (int, error)
}

type AttendanceLog interface {
	Append(ctx context.Context, ev *domain.AttendanceEvent) error
	CloseLatestOpen(ctx context.Context, studentID int64, at time.Time) (*domain.AttendanceEvent, error)
	List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceEvent, error)
	ListOpen(ctx context.Context) ([]domain.AttendanceEvent, error)
}

// Extractor turns a JPEG into a unit-norm embedding.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]float64, error)
}

type CaptureArchive interface {
	Save(studentID int64, name string, images []image.Image) ([]string, error)
}

type EventBroadcaster interface {
	Broadcast(eventType ws.EventType, data interface{})
}

type WebhookNotifier interface {
	Notify(eventType string, data interface{})
}

// Observers are the side outputs of every flow. Zero fields are no-ops.
type Observers struct {
	Logger   *slog.Logger
	Audit    audit.Logger
	Metrics  *metrics.Metrics
	Events   EventBroadcaster
	Webhooks WebhookNotifier
}

func (o Observers) withDefaults() Observers {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Audit == nil {
		o.Audit = &audit.NoOpLogger{}
	}
	return o
}

func (o Observers) broadcast(eventType ws.EventType, data interface{}) {
	if o.Events != nil {
		o.Events.Broadcast(eventType, data)
	}
}

func (o Observers) notify(eventType ws.EventType, data interface{}) {
	if o.Webhooks != nil {
		o.Webhooks.Notify(string(eventType), data)
	}
}

func (o Observers) audit(ctx context.Context, event audit.Event) {
	if err := o.Audit.Log(ctx, event); err != nil {
		o.Logger.WarnContext(ctx, "audit log failed", "event_type", event.EventType, "error", err)
	}
}
