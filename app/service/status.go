package service

import (
	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
	"github.com/vibast-solutions/ms-go-coinwallet/app/provider"
)

// StatusFromProvider maps a provider intent status onto the local vocabulary.
// Unknown values fall back to PENDING so they stay eligible for polling.
func StatusFromProvider(status string) entity.PaymentStatus {
	switch status {
	case provider.StatusRequiresPaymentMethod, provider.StatusRequiresConfirmation:
		return entity.PaymentStatusPending
	case provider.StatusRequiresAction:
		return entity.PaymentStatusRequiresAction
	case provider.StatusProcessing:
		return entity.PaymentStatusProcessing
	case provider.StatusSucceeded:
		return entity.PaymentStatusSucceeded
	case provider.StatusCanceled:
		return entity.PaymentStatusCanceled
	default:
		return entity.PaymentStatusPending
	}
}

// ProviderStatus renders a local status in the provider's vocabulary for API
// consumers that were built against it.
func ProviderStatus(status entity.PaymentStatus) string {
	switch status {
	case entity.PaymentStatusPending:
		return provider.StatusRequiresConfirmation
	case entity.PaymentStatusRequiresAction:
		return provider.StatusRequiresAction
	case entity.PaymentStatusProcessing:
		return provider.StatusProcessing
	case entity.PaymentStatusSucceeded:
		return provider.StatusSucceeded
	case entity.PaymentStatusFailed:
		return provider.StatusRequiresPaymentMethod
	case entity.PaymentStatusCanceled:
		return provider.StatusCanceled
	default:
		return provider.StatusRequiresConfirmation
	}
}

func statusFromWebhookEvent(eventType string) (entity.PaymentStatus, bool) {
	switch eventType {
	case "payment_intent.succeeded":
		return entity.PaymentStatusSucceeded, true
	case "payment_intent.payment_failed":
		return entity.PaymentStatusFailed, true
	case "payment_intent.processing":
		return entity.PaymentStatusProcessing, true
	case "payment_intent.canceled":
		return entity.PaymentStatusCanceled, true
	default:
		return "", false
	}
}
