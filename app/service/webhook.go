package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
)

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type WebhookResult struct {
	EventID   string
	EventType string
	Duplicate bool
	Ignored   bool
	Applied   bool
}

// SetWebhookGuard enables provider event id deduplication.
func (s *PaymentService) SetWebhookGuard(guard webhookGuard) {
	s.guard = guard
}

// HandleWebhook verifies and applies one provider event. Events for unknown
// intents and unhandled event types are acknowledged without side effects.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrInvalidRequest)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidRequest)
	}

	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.recordDelivery(ctx, nil, "", nil, entity.WebhookDeliveryRejected, err.Error(), payload)
		return nil, fmt.Errorf("%w: %v", ErrWebhookRejected, err)
	}

	result := &WebhookResult{EventID: event.ID, EventType: event.Type}
	logger := s.logger.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.Type})

	if s.guard != nil && event.ID != "" {
		seen, err := s.guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			logger.WithError(err).Warn("webhook idempotency check failed, processing anyway")
		} else if seen {
			logger.Info("duplicate webhook event acknowledged")
			result.Duplicate = true
			return result, nil
		}
	}

	applied, intentID, err := s.applyWebhookEvent(ctx, event.ID, event.Type, event.IntentID())
	if err != nil {
		if s.guard != nil && event.ID != "" {
			if releaseErr := s.guard.Release(ctx, event.ID); releaseErr != nil {
				logger.WithError(releaseErr).Warn("failed to release webhook idempotency key")
			}
		}
		return nil, err
	}

	eventID := &event.ID
	if event.ID == "" {
		eventID = nil
	}
	if !applied {
		result.Ignored = true
		s.recordDelivery(ctx, eventID, event.Type, intentID, entity.WebhookDeliveryIgnored, "", payload)
		return result, nil
	}

	result.Applied = true
	s.recordDelivery(ctx, eventID, event.Type, intentID, entity.WebhookDeliveryProcessed, "", payload)
	return result, nil
}

func (s *PaymentService) applyWebhookEvent(ctx context.Context, eventID, eventType, paymentIntentID string) (bool, *string, error) {
	logger := s.logger.WithFields(logrus.Fields{"event_id": eventID, "event_type": eventType})

	status, handled := statusFromWebhookEvent(eventType)
	if !handled || paymentIntentID == "" {
		logger.Info("unhandled webhook event type ignored")
		return false, nil, nil
	}

	intentID := &paymentIntentID
	intent, err := s.intentRepo.FindByID(ctx, paymentIntentID)
	if err != nil {
		return false, intentID, err
	}
	if intent == nil {
		logger.WithField("payment_intent_id", paymentIntentID).Warn("webhook for unknown payment intent ignored")
		return false, intentID, nil
	}

	if intent.Status == status || intent.Status.IsTerminal() {
		return true, intentID, nil
	}

	var providerEventID *string
	if eventID != "" {
		providerEventID = &eventID
	}
	if _, _, err := s.applyTransition(ctx, intent, status, entity.EventSourceWebhook, eventType, providerEventID); err != nil {
		return false, intentID, err
	}
	return true, intentID, nil
}

func (s *PaymentService) recordDelivery(
	ctx context.Context,
	eventID *string,
	eventType string,
	paymentIntentID *string,
	status string,
	reason string,
	payload []byte,
) {
	s.metrics.IncWebhook(status)

	delivery := &entity.WebhookDelivery{
		ProviderEventID: eventID,
		EventType:       eventType,
		PaymentIntentID: paymentIntentID,
		Status:          status,
		PayloadJSON:     string(payload),
		CreatedAt:       s.now().UTC(),
	}
	if delivery.EventType == "" {
		delivery.EventType = "unknown"
	}
	if reason != "" {
		trimmed := truncate(reason, 1024)
		delivery.Error = &trimmed
	}

	if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
		s.logger.WithError(err).Warn("failed to record webhook delivery")
	}
}
