package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
	"github.com/vibast-solutions/ms-go-coinwallet/app/notifier"
	"github.com/vibast-solutions/ms-go-coinwallet/app/repository"
)

type creditPlan struct {
	UserID string
	Coins  int64
}

// creditPlanFromMetadata never guesses: any missing or malformed field makes
// the payment ineligible for a wallet credit.
func creditPlanFromMetadata(metadata map[string]string) (creditPlan, error) {
	switch metadata[entity.MetadataType] {
	case entity.PaymentTypeCoinPack, entity.PaymentTypeDiscordTopup:
	default:
		return creditPlan{}, fmt.Errorf("payment type %q is not wallet-credit eligible", metadata[entity.MetadataType])
	}

	coins, err := strconv.ParseInt(strings.TrimSpace(metadata[entity.MetadataCoinsAmount]), 10, 64)
	if err != nil || coins <= 0 {
		return creditPlan{}, fmt.Errorf("coinsAmount %q is not a positive integer", metadata[entity.MetadataCoinsAmount])
	}

	userID := strings.TrimSpace(metadata[entity.MetadataUserID])
	if userID == "" {
		return creditPlan{}, errors.New("userId is missing")
	}

	return creditPlan{UserID: userID, Coins: coins}, nil
}

// SetCoinPackCatalog enables wallet-credit payments on the create path. Without
// a catalog, metadata that asks for a wallet credit is rejected.
func (s *PaymentService) SetCoinPackCatalog(catalog coinPackCatalog) {
	s.packs = catalog
}

// checkCreditMetadata accepts credit-eligible metadata only when the declared
// coins match an active pack sold at exactly this amount and currency.
func (s *PaymentService) checkCreditMetadata(ctx context.Context, amount int64, currency string, metadata map[string]string) error {
	switch metadata[entity.MetadataType] {
	case entity.PaymentTypeCoinPack, entity.PaymentTypeDiscordTopup:
	default:
		return nil
	}

	plan, err := creditPlanFromMetadata(metadata)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if s.packs == nil {
		return fmt.Errorf("%w: wallet credit payments are not enabled", ErrInvalidRequest)
	}

	packs, err := s.packs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list coin packs: %w", err)
	}
	packNumber := strings.TrimSpace(metadata[entity.MetadataPackNumber])
	for _, pack := range packs {
		if pack == nil || !pack.IsActive {
			continue
		}
		if pack.Price != amount || !strings.EqualFold(pack.Currency, currency) || pack.TotalCoins != plan.Coins {
			continue
		}
		if packNumber != "" && packNumber != strconv.FormatInt(int64(pack.PackNumber), 10) {
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %d coins is not a coin pack sold for %d %s", ErrInvalidRequest, plan.Coins, amount, currency)
}

func initialCreditStatus(metadata map[string]string) entity.CreditStatus {
	if _, err := creditPlanFromMetadata(metadata); err != nil {
		return entity.CreditStatusSkipped
	}
	return entity.CreditStatusPending
}

// onPaymentSucceeded runs once per intent, for the caller that won the
// transition into SUCCEEDED.
func (s *PaymentService) onPaymentSucceeded(ctx context.Context, intent *entity.PaymentIntent) {
	s.notifySucceeded(ctx, intent)

	if intent.CreditStatus != entity.CreditStatusPending {
		_, err := creditPlanFromMetadata(intent.Metadata)
		s.logger.WithFields(logrus.Fields{
			"payment_intent_id": intent.ID,
			"reason":            errString(err),
		}).Info("wallet credit skipped")
		s.metrics.IncCredit("skipped")
		return
	}

	_ = s.deliverCredit(ctx, intent)
}

func (s *PaymentService) notifySucceeded(ctx context.Context, intent *entity.PaymentIntent) {
	coins, _ := strconv.ParseInt(intent.Metadata[entity.MetadataCoinsAmount], 10, 64)
	err := s.notifier.NotifyPaymentSucceeded(ctx, notifier.PaymentSucceeded{
		PaymentIntentID: intent.ID,
		UserID:          intent.Metadata[entity.MetadataUserID],
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		CoinsAmount:     coins,
		ChannelID:       intent.Metadata[entity.MetadataDiscordChannelID],
		MessageID:       intent.Metadata[entity.MetadataDiscordMessageID],
	})
	if err != nil {
		s.logger.WithError(err).WithField("payment_intent_id", intent.ID).Warn("payment success notification failed")
	}
}

// deliverCredit applies the wallet credit keyed by the intent id. The ledger's
// unique (wallet, type, reference) index turns a repeated attempt into
// ErrDuplicateReference, which counts as delivered only when the recorded line
// carries the same coin amount.
func (s *PaymentService) deliverCredit(ctx context.Context, intent *entity.PaymentIntent) error {
	logger := s.logger.WithField("payment_intent_id", intent.ID)
	now := s.now().UTC()

	plan, err := creditPlanFromMetadata(intent.Metadata)
	if err != nil {
		reason := err.Error()
		if updateErr := s.intentRepo.UpdateCreditOutcome(ctx, intent.ID, entity.CreditStatusSkipped, intent.CreditAttempts, &reason, now); updateErr != nil {
			logger.WithError(updateErr).Error("failed to record skipped credit")
		}
		s.metrics.IncCredit("skipped")
		return nil
	}

	attempts := intent.CreditAttempts + 1
	balance, creditErr := s.creditWallet(ctx, intent.ID, plan)
	alreadyRecorded := false
	if errors.Is(creditErr, repository.ErrDuplicateReference) {
		alreadyRecorded, creditErr = s.checkRecordedCredit(ctx, intent.ID, plan)
	}

	if creditErr == nil {
		if err := s.intentRepo.UpdateCreditOutcome(ctx, intent.ID, entity.CreditStatusDone, attempts, nil, now); err != nil {
			logger.WithError(err).Error("failed to record credit outcome")
		}
		intent.CreditStatus = entity.CreditStatusDone
		intent.CreditAttempts = attempts
		intent.CreditLastError = nil

		detail := fmt.Sprintf("credited %d coins to %s", plan.Coins, plan.UserID)
		if alreadyRecorded {
			detail = "credit already recorded"
		}
		s.recordEvent(ctx, &entity.PaymentEvent{
			PaymentIntentID: intent.ID,
			EventType:       "wallet_credited",
			Source:          entity.EventSourceCredit,
			NewStatus:       intent.Status,
			Detail:          &detail,
			CreatedAt:       now,
		})
		s.metrics.IncCredit("done")
		logger.WithFields(logrus.Fields{
			"user_id": plan.UserID,
			"coins":   plan.Coins,
			"balance": balance,
		}).Info("wallet_credited")
		return nil
	}

	status := entity.CreditStatusPending
	outcome := "retry"
	if attempts >= s.creditMaxAttempts() || errors.Is(creditErr, ErrCreditConflict) {
		status = entity.CreditStatusFailed
		outcome = "failed"
	}
	lastErr := truncate(creditErr.Error(), 1024)
	if err := s.intentRepo.UpdateCreditOutcome(ctx, intent.ID, status, attempts, &lastErr, now); err != nil {
		logger.WithError(err).Error("failed to record credit outcome")
	}
	intent.CreditStatus = status
	intent.CreditAttempts = attempts
	intent.CreditLastError = &lastErr

	s.recordEvent(ctx, &entity.PaymentEvent{
		PaymentIntentID: intent.ID,
		EventType:       "wallet_credit_failed",
		Source:          entity.EventSourceCredit,
		NewStatus:       intent.Status,
		Detail:          &lastErr,
		CreatedAt:       now,
	})
	s.metrics.IncCredit(outcome)
	logger.WithError(creditErr).WithField("attempts", attempts).Error("wallet credit failed")
	return creditErr
}

// creditWallet opens the buyer's wallet on first purchase before crediting.
func (s *PaymentService) creditWallet(ctx context.Context, reference string, plan creditPlan) (int64, error) {
	if _, err := s.ledger.OpenWallet(ctx, plan.UserID); err != nil {
		return 0, fmt.Errorf("open wallet: %w", err)
	}
	_, balance, err := s.ledger.Credit(ctx, repository.LedgerEntry{
		UserID:      plan.UserID,
		Amount:      plan.Coins,
		Type:        entity.TransactionTypeCoinPack,
		ReferenceID: &reference,
	})
	return balance, err
}

// checkRecordedCredit inspects the ledger line that already holds the intent's
// reference. A line with a different amount was not written by this payment's
// credit and must not be taken as delivery.
func (s *PaymentService) checkRecordedCredit(ctx context.Context, reference string, plan creditPlan) (bool, error) {
	existing, err := s.ledger.FindTransactionByReference(ctx, plan.UserID, entity.TransactionTypeCoinPack, reference)
	if err != nil {
		return false, fmt.Errorf("look up recorded credit: %w", err)
	}
	if existing == nil {
		return false, repository.ErrDuplicateReference
	}
	if existing.Amount != plan.Coins {
		return false, fmt.Errorf("%w: transaction %s holds %d coins, payment credits %d", ErrCreditConflict, existing.ID, existing.Amount, plan.Coins)
	}
	return true, nil
}

// RunCreditRetryBatch re-attempts wallet credits for succeeded payments whose
// credit is still pending.
func (s *PaymentService) RunCreditRetryBatch(ctx context.Context) error {
	items, err := s.intentRepo.ListPendingCredits(ctx, s.creditBatchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, intent := range items {
		if intent == nil {
			continue
		}
		if err := s.deliverCredit(ctx, intent); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}
	return firstErr
}

func (s *PaymentService) creditMaxAttempts() int32 {
	if s.paymentsCfg.CreditMaxAttempts > 0 {
		return s.paymentsCfg.CreditMaxAttempts
	}
	return 1
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
