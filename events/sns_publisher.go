package events

import (
	"context"
	"encoding/json"
	"fmt"

	"backoffice-service/models"
	awspkg "backoffice-service/pkg/aws"
)

// SNSPublisher fans payment events out through an SNS topic. Subscribers
// filter on the event_type message attribute.
type SNSPublisher struct {
	client   awspkg.SNSPublisher
	topicARN string
}

func NewSNSPublisher(client awspkg.SNSPublisher, topicARN string) (*SNSPublisher, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("payment events topic ARN not set")
	}
	return &SNSPublisher{client: client, topicARN: topicARN}, nil
}

func (p *SNSPublisher) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return p.client.Publish(ctx, p.topicARN, msg, map[string]string{
		"event_type": event.Type,
		"method":     string(event.Method),
	})
}

func (p *SNSPublisher) Close() error { return nil }
