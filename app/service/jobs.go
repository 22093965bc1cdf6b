package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
	"github.com/vibast-solutions/ms-go-coinwallet/app/provider"
)

type PollResult struct {
	Checked     int
	Transitions int
}

type ExpireResult struct {
	Checked int
	Expired int
}

// RunPollBatch refreshes up to one batch of non-terminal intents, oldest
// update first. Per-intent failures are logged and skipped; untouched records
// get their updated_at bumped so the next batch moves on to other intents.
func (s *PaymentService) RunPollBatch(ctx context.Context) (*PollResult, error) {
	items, err := s.intentRepo.ListNonTerminal(ctx, s.pollBatchSize())
	if err != nil {
		return nil, err
	}

	result := &PollResult{}
	for _, intent := range items {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if intent == nil || intent.Status.IsTerminal() {
			continue
		}
		result.Checked++

		updated, changed := s.refresh(ctx, intent, entity.EventSourcePoll)
		if changed {
			result.Transitions++
			continue
		}
		if updated.Status == intent.Status {
			if err := s.intentRepo.Touch(ctx, intent.ID, s.now()); err != nil {
				s.logger.WithError(err).WithField("payment_intent_id", intent.ID).Warn("failed to touch polled payment intent")
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"checked":     result.Checked,
		"transitions": result.Transitions,
	}).Debug("poll batch completed")
	return result, nil
}

// RunExpirePendingBatch cancels intents that stayed non-terminal past the
// pending timeout. An expired PromptPay QR puts the intent back into
// requires_payment_method at Stripe, which never turns terminal on its own.
func (s *PaymentService) RunExpirePendingBatch(ctx context.Context) (*ExpireResult, error) {
	cutoff := s.now().UTC().Add(-s.pendingTimeout())
	items, err := s.intentRepo.ListExpiredPending(ctx, cutoff, s.pollBatchSize())
	if err != nil {
		return nil, err
	}

	result := &ExpireResult{}
	var firstErr error
	for _, intent := range items {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if intent == nil || intent.Status.IsTerminal() {
			continue
		}
		result.Checked++

		expired, err := s.expireIntent(ctx, intent)
		if err != nil {
			s.logger.WithError(err).WithField("payment_intent_id", intent.ID).Warn("payment intent expiry failed")
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if expired {
			result.Expired++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"checked": result.Checked,
		"expired": result.Expired,
	}).Debug("expire batch completed")
	return result, firstErr
}

// expireIntent cancels the intent at the provider first. When the provider
// refuses, the intent is reconciled instead so a payment that went through at
// the last moment still lands as SUCCEEDED.
func (s *PaymentService) expireIntent(ctx context.Context, intent *entity.PaymentIntent) (bool, error) {
	remote, err := s.gateway.CancelIntent(ctx, intent.ID)
	switch {
	case errors.Is(err, provider.ErrIntentNotFound):
	case err != nil:
		if _, changed := s.refresh(ctx, intent, entity.EventSourceExpire); changed {
			return false, nil
		}
		return false, fmt.Errorf("cancel payment intent: %w", err)
	default:
		if target := StatusFromProvider(remote.Status); target != entity.PaymentStatusCanceled {
			if target == intent.Status {
				return false, nil
			}
			_, _, err := s.applyTransition(ctx, intent, target, entity.EventSourceExpire, "payment_reconciled", nil)
			return false, err
		}
	}

	_, won, err := s.applyTransition(ctx, intent, entity.PaymentStatusCanceled, entity.EventSourceExpire, "payment_expired", nil)
	return won, err
}
