package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
	"github.com/vibast-solutions/ms-go-coinwallet/app/factory"
	"github.com/vibast-solutions/ms-go-coinwallet/app/metrics"
	"github.com/vibast-solutions/ms-go-coinwallet/app/notifier"
	"github.com/vibast-solutions/ms-go-coinwallet/app/provider"
	"github.com/vibast-solutions/ms-go-coinwallet/app/repository"
	"github.com/vibast-solutions/ms-go-coinwallet/config"
)

const (
	defaultPollBatchSize   = int32(50)
	defaultCreditBatchSize = int32(100)
	defaultPendingTimeout  = time.Hour
	defaultCurrency        = "thb"

	missingQRCodeError = "PromptPay QR code was not returned by the payment provider"
)

type createPaymentIntentRequest interface {
	GetAmount() int64
	GetCurrency() string
	GetDescription() string
	GetEmail() string
	GetMetadata() map[string]string
	GetCallbackUrl() string
	GetCancelUrl() string
}

type paymentIntentRepository interface {
	Create(ctx context.Context, intent *entity.PaymentIntent) error
	FindByID(ctx context.Context, id string) (*entity.PaymentIntent, error)
	TransitionStatus(ctx context.Context, id string, to entity.PaymentStatus, creditStatus entity.CreditStatus, now time.Time) (bool, error)
	Touch(ctx context.Context, id string, now time.Time) error
	UpdateCreditOutcome(ctx context.Context, id string, status entity.CreditStatus, attempts int32, lastError *string, now time.Time) error
	ListNonTerminal(ctx context.Context, limit int32) ([]*entity.PaymentIntent, error)
	ListPendingCredits(ctx context.Context, limit int32) ([]*entity.PaymentIntent, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.PaymentIntent, error)
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
	ListByPaymentIntentID(ctx context.Context, paymentIntentID string) ([]*entity.PaymentEvent, error)
}

type webhookDeliveryRepository interface {
	Create(ctx context.Context, delivery *entity.WebhookDelivery) error
}

type walletLedger interface {
	OpenWallet(ctx context.Context, userID string) (*entity.Wallet, error)
	Credit(ctx context.Context, entry repository.LedgerEntry) (*entity.Transaction, int64, error)
	FindTransactionByReference(ctx context.Context, userID string, txnType entity.TransactionType, referenceID string) (*entity.Transaction, error)
}

type coinPackCatalog interface {
	ListActive(ctx context.Context) ([]*entity.CoinPack, error)
}

type CreatePaymentResult struct {
	Intent       *entity.PaymentIntent
	ClientSecret string
	QRCode       *provider.QRCode
	PaymentURL   string
	Error        string
}

type PaymentStatusResult struct {
	Intent            *entity.PaymentIntent
	CallbackSignature string
}

// PaymentService is the reconciliation engine. Webhook, poll and on-demand
// status reads all funnel into applyTransition, which relies on the
// repository's conditional update to pick a single winner per transition.
type PaymentService struct {
	intentRepo   paymentIntentRepository
	eventRepo    paymentEventRepository
	deliveryRepo webhookDeliveryRepository
	ledger       walletLedger
	gateway      provider.Gateway
	notifier     notifier.Notifier
	metrics      *metrics.Metrics
	guard        webhookGuard
	packs        coinPackCatalog
	paymentsCfg  config.PaymentsConfig
	logger       logrus.FieldLogger
	now          func() time.Time
}

func NewPaymentService(
	intentRepo paymentIntentRepository,
	eventRepo paymentEventRepository,
	deliveryRepo webhookDeliveryRepository,
	ledger walletLedger,
	gateway provider.Gateway,
	n notifier.Notifier,
	m *metrics.Metrics,
	paymentsCfg config.PaymentsConfig,
) *PaymentService {
	if n == nil {
		n = notifier.Nop{}
	}
	return &PaymentService{
		intentRepo:   intentRepo,
		eventRepo:    eventRepo,
		deliveryRepo: deliveryRepo,
		ledger:       ledger,
		gateway:      gateway,
		notifier:     n,
		metrics:      m,
		paymentsCfg:  paymentsCfg,
		logger:       factory.NewModuleLogger("payment-service"),
		now:          time.Now,
	}
}

func (s *PaymentService) CreatePaymentIntent(ctx context.Context, req createPaymentIntentRequest) (*CreatePaymentResult, error) {
	if req.GetAmount() < 1 {
		return nil, fmt.Errorf("%w: amount must be >= 1", ErrInvalidRequest)
	}

	currency := strings.ToLower(strings.TrimSpace(req.GetCurrency()))
	if currency == "" {
		currency = s.defaultCurrency()
	}
	email := strings.TrimSpace(req.GetEmail())
	if email == "" {
		email = s.paymentsCfg.DefaultEmail
	}
	description := strings.TrimSpace(req.GetDescription())
	metadata := cloneMetadata(req.GetMetadata())
	if err := s.checkCreditMetadata(ctx, req.GetAmount(), currency, metadata); err != nil {
		return nil, err
	}

	remote, err := s.gateway.CreateIntent(ctx, &provider.CreateIntentInput{
		Amount:      req.GetAmount(),
		Currency:    currency,
		Description: description,
		Email:       email,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider intent: %w", err)
	}

	stored := cloneMetadata(metadata)
	setIfPresent(stored, entity.MetadataCallbackURL, req.GetCallbackUrl())
	setIfPresent(stored, entity.MetadataCancelURL, req.GetCancelUrl())

	var qrCodeURL *string
	if remote.QRCode != nil && remote.QRCode.ImageURL != "" {
		qrCodeURL = &remote.QRCode.ImageURL
		stored[entity.MetadataQRCodeURL] = remote.QRCode.ImageURL
	}

	now := s.now().UTC()
	intent := &entity.PaymentIntent{
		ID:           remote.ID,
		Amount:       req.GetAmount(),
		Currency:     currency,
		Status:       StatusFromProvider(remote.Status),
		Description:  normalizeOptionalString(description),
		Metadata:     stored,
		QRCodeURL:    qrCodeURL,
		UserID:       normalizeOptionalString(metadata[entity.MetadataUserID]),
		CreditStatus: entity.CreditStatusNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if intent.Status == entity.PaymentStatusSucceeded {
		intent.PaidAt = &now
		intent.CreditStatus = initialCreditStatus(intent.Metadata)
	}

	if err := s.intentRepo.Create(ctx, intent); err != nil {
		if errors.Is(err, repository.ErrPaymentIntentAlreadyExists) {
			return nil, ErrPaymentAlreadyExists
		}
		return nil, err
	}

	s.recordEvent(ctx, &entity.PaymentEvent{
		PaymentIntentID: intent.ID,
		EventType:       "payment_created",
		Source:          entity.EventSourceCreate,
		NewStatus:       intent.Status,
		CreatedAt:       now,
	})
	s.logger.WithFields(logrus.Fields{
		"payment_intent_id": intent.ID,
		"amount":            intent.Amount,
		"currency":          intent.Currency,
		"status":            intent.Status,
	}).Info("payment_created")

	if intent.Status == entity.PaymentStatusSucceeded {
		s.metrics.IncTransition(entity.EventSourceCreate, string(intent.Status))
		s.onPaymentSucceeded(ctx, intent)
	}

	result := &CreatePaymentResult{
		Intent:       intent,
		ClientSecret: remote.ClientSecret,
		QRCode:       remote.QRCode,
		PaymentURL:   s.paymentURL(intent.ID),
	}
	if remote.Status == provider.StatusRequiresAction && remote.QRCode == nil {
		result.Error = missingQRCodeError
		s.logger.WithField("payment_intent_id", intent.ID).Warn("payment created without PromptPay QR code")
	}
	return result, nil
}

// GetPaymentStatus returns the local record, refreshing it from the provider
// first while it is still non-terminal.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, id string) (*PaymentStatusResult, error) {
	intent, err := s.findIntent(ctx, id)
	if err != nil {
		return nil, err
	}

	if !intent.Status.IsTerminal() {
		intent, _ = s.refresh(ctx, intent, entity.EventSourceQuery)
	}

	return &PaymentStatusResult{
		Intent:            intent,
		CallbackSignature: CallbackSignature(s.paymentsCfg.CallbackSignatureSecret, intent.ID, intent.Amount),
	}, nil
}

func (s *PaymentService) ListPaymentEvents(ctx context.Context, id string) ([]*entity.PaymentEvent, error) {
	if _, err := s.findIntent(ctx, id); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByPaymentIntentID(ctx, id)
}

func (s *PaymentService) findIntent(ctx context.Context, id string) (*entity.PaymentIntent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: payment intent id is required", ErrInvalidRequest)
	}
	intent, err := s.intentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, ErrPaymentNotFound
	}
	return intent, nil
}

// refresh asks the provider for the current status and reconciles it. Read
// failures are logged and the best-known local record is returned.
func (s *PaymentService) refresh(ctx context.Context, intent *entity.PaymentIntent, source string) (*entity.PaymentIntent, bool) {
	logger := s.logger.WithFields(logrus.Fields{"payment_intent_id": intent.ID, "source": source})

	remote, err := s.gateway.RetrieveIntent(ctx, intent.ID)
	var target entity.PaymentStatus
	switch {
	case errors.Is(err, provider.ErrIntentNotFound):
		logger.Warn("payment intent missing at provider, reconciling as canceled")
		target = entity.PaymentStatusCanceled
	case err != nil:
		logger.WithError(err).Warn("provider status read failed, returning local record")
		return intent, false
	default:
		target = StatusFromProvider(remote.Status)
	}

	if target == intent.Status {
		return intent, false
	}

	updated, won, err := s.applyTransition(ctx, intent, target, source, "payment_reconciled", nil)
	if err != nil {
		logger.WithError(err).Error("payment status reconcile failed")
		return intent, false
	}
	return updated, won
}

// applyTransition moves intent to status `to` through the shared guard. Only
// the caller that wins the conditional update records the event and runs the
// success side effects; losers get the freshly stored record back.
func (s *PaymentService) applyTransition(
	ctx context.Context,
	intent *entity.PaymentIntent,
	to entity.PaymentStatus,
	source string,
	eventType string,
	providerEventID *string,
) (*entity.PaymentIntent, bool, error) {
	creditStatus := entity.CreditStatusNone
	if to == entity.PaymentStatusSucceeded {
		creditStatus = initialCreditStatus(intent.Metadata)
	}

	now := s.now().UTC()
	won, err := s.intentRepo.TransitionStatus(ctx, intent.ID, to, creditStatus, now)
	if err != nil {
		return nil, false, err
	}
	if !won {
		current, err := s.intentRepo.FindByID(ctx, intent.ID)
		if err != nil {
			return nil, false, err
		}
		if current == nil {
			return nil, false, ErrPaymentNotFound
		}
		return current, false, nil
	}

	oldStatus := intent.Status
	updated := *intent
	updated.Status = to
	updated.UpdatedAt = now
	if to == entity.PaymentStatusSucceeded {
		updated.PaidAt = &now
		updated.CreditStatus = creditStatus
	}

	s.recordEvent(ctx, &entity.PaymentEvent{
		PaymentIntentID: intent.ID,
		EventType:       eventType,
		Source:          source,
		OldStatus:       &oldStatus,
		NewStatus:       to,
		ProviderEventID: providerEventID,
		CreatedAt:       now,
	})
	s.metrics.IncTransition(source, string(to))
	s.logger.WithFields(logrus.Fields{
		"payment_intent_id": intent.ID,
		"source":            source,
		"old_status":        oldStatus,
		"new_status":        to,
	}).Info("payment_status_transition")

	if to == entity.PaymentStatusSucceeded {
		s.onPaymentSucceeded(ctx, &updated)
	}
	return &updated, true, nil
}

func (s *PaymentService) recordEvent(ctx context.Context, event *entity.PaymentEvent) {
	if err := s.eventRepo.Create(ctx, event); err != nil {
		s.logger.WithError(err).WithField("payment_intent_id", event.PaymentIntentID).Warn("failed to record payment event")
	}
}

func (s *PaymentService) paymentURL(id string) string {
	return strings.TrimRight(s.paymentsCfg.BaseURL, "/") + "/payment/" + id
}

func (s *PaymentService) defaultCurrency() string {
	if c := strings.ToLower(strings.TrimSpace(s.paymentsCfg.DefaultCurrency)); c != "" {
		return c
	}
	return defaultCurrency
}

func (s *PaymentService) pollBatchSize() int32 {
	if s.paymentsCfg.PollBatchSize > 0 {
		return s.paymentsCfg.PollBatchSize
	}
	return defaultPollBatchSize
}

func (s *PaymentService) pendingTimeout() time.Duration {
	if s.paymentsCfg.PendingTimeout > 0 {
		return s.paymentsCfg.PendingTimeout
	}
	return defaultPendingTimeout
}

func (s *PaymentService) creditBatchSize() int32 {
	if s.paymentsCfg.CreditBatchSize > 0 {
		return s.paymentsCfg.CreditBatchSize
	}
	return defaultCreditBatchSize
}

func setIfPresent(metadata map[string]string, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		metadata[key] = value
	}
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
