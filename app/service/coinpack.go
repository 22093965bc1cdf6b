package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
)

type coinPackRepository interface {
	ListActive(ctx context.Context) ([]*entity.CoinPack, error)
	FindByNumber(ctx context.Context, packNumber int32) (*entity.CoinPack, error)
}

type paymentCreator interface {
	CreatePaymentIntent(ctx context.Context, req createPaymentIntentRequest) (*CreatePaymentResult, error)
}

type checkoutCoinPackRequest interface {
	GetPackNumber() int32
	GetUserId() string
	GetEmail() string
	GetCallbackUrl() string
	GetCancelUrl() string
	GetDiscordChannelId() string
	GetDiscordMessageId() string
}

type PackSuggestion struct {
	Pack   *entity.CoinPack
	Covers bool
}

type CoinPackService struct {
	packRepo coinPackRepository
	payments paymentCreator
}

func NewCoinPackService(packRepo coinPackRepository, payments paymentCreator) *CoinPackService {
	return &CoinPackService{packRepo: packRepo, payments: payments}
}

func (s *CoinPackService) ListPacks(ctx context.Context) ([]*entity.CoinPack, error) {
	return s.packRepo.ListActive(ctx)
}

// SuggestPack picks the cheapest active pack whose coins cover shortfall.
// When no pack is large enough the biggest one is returned with Covers=false.
func (s *CoinPackService) SuggestPack(ctx context.Context, shortfall int64) (*PackSuggestion, error) {
	if shortfall <= 0 {
		return nil, fmt.Errorf("%w: shortfall must be > 0", ErrInvalidRequest)
	}

	packs, err := s.packRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(packs) == 0 {
		return nil, ErrCoinPackNotFound
	}

	var largest *entity.CoinPack
	for _, pack := range packs {
		if pack.TotalCoins >= shortfall {
			return &PackSuggestion{Pack: pack, Covers: true}, nil
		}
		if largest == nil || pack.TotalCoins > largest.TotalCoins {
			largest = pack
		}
	}
	return &PackSuggestion{Pack: largest, Covers: false}, nil
}

// Checkout starts a PromptPay payment for a pack; the metadata written here is
// what later drives the wallet credit on success.
func (s *CoinPackService) Checkout(ctx context.Context, req checkoutCoinPackRequest) (*CreatePaymentResult, error) {
	userID := strings.TrimSpace(req.GetUserId())
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}

	pack, err := s.packRepo.FindByNumber(ctx, req.GetPackNumber())
	if err != nil {
		return nil, err
	}
	if pack == nil || !pack.IsActive {
		return nil, ErrCoinPackNotFound
	}

	paymentType := entity.PaymentTypeCoinPack
	if req.GetDiscordChannelId() != "" {
		paymentType = entity.PaymentTypeDiscordTopup
	}

	metadata := map[string]string{
		entity.MetadataUserID:      userID,
		entity.MetadataType:        paymentType,
		entity.MetadataCoinsAmount: strconv.FormatInt(pack.TotalCoins, 10),
		entity.MetadataPackNumber:  strconv.FormatInt(int64(pack.PackNumber), 10),
	}
	setIfPresent(metadata, entity.MetadataDiscordChannelID, req.GetDiscordChannelId())
	setIfPresent(metadata, entity.MetadataDiscordMessageID, req.GetDiscordMessageId())

	return s.payments.CreatePaymentIntent(ctx, &packPaymentRequest{
		pack:        pack,
		email:       req.GetEmail(),
		metadata:    metadata,
		callbackURL: req.GetCallbackUrl(),
		cancelURL:   req.GetCancelUrl(),
	})
}

type packPaymentRequest struct {
	pack        *entity.CoinPack
	email       string
	metadata    map[string]string
	callbackURL string
	cancelURL   string
}

func (r *packPaymentRequest) GetAmount() int64               { return r.pack.Price }
func (r *packPaymentRequest) GetCurrency() string            { return r.pack.Currency }
func (r *packPaymentRequest) GetEmail() string               { return r.email }
func (r *packPaymentRequest) GetMetadata() map[string]string { return r.metadata }
func (r *packPaymentRequest) GetCallbackUrl() string         { return r.callbackURL }
func (r *packPaymentRequest) GetCancelUrl() string           { return r.cancelURL }

func (r *packPaymentRequest) GetDescription() string {
	return fmt.Sprintf("Coin pack %d (%d coins)", r.pack.PackNumber, r.pack.TotalCoins)
}
