package services

import (
	"context"

	"backoffice-service/models"
)

// CategoryCache caches category listings. Implementations must fail open:
// a cache error is a miss, never a request failure. GetList reports the cache
// version it read under; SetList must store under that same version.
type CategoryCache interface {
	GetList(ctx context.Context, key string) ([]models.Category, int64, bool)
	SetList(ctx context.Context, version int64, key string, categories []models.Category)
	Invalidate(ctx context.Context)
}

// EventPublisher announces payment outcomes on the event bus.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error
}

// MetricsRecorder is the counter half of the CloudWatch metrics client.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}
