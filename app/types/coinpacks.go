package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type SuggestCoinPackRequest struct {
	Shortfall int64 `validate:"gt=0"`
}

func NewSuggestCoinPackRequestFromContext(ctx echo.Context) (*SuggestCoinPackRequest, error) {
	raw := strings.TrimSpace(ctx.QueryParam("shortfall"))
	if raw == "" {
		return nil, errors.New("shortfall is required")
	}
	shortfall, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &SuggestCoinPackRequest{Shortfall: shortfall}, nil
}

func (r *SuggestCoinPackRequest) Validate() error {
	if r.GetShortfall() <= 0 {
		return errors.New("shortfall must be > 0")
	}
	return nil
}

func (r *SuggestCoinPackRequest) GetShortfall() int64 {
	if r == nil {
		return 0
	}
	return r.Shortfall
}

type CheckoutCoinPackRequest struct {
	PackNumber       int32  `json:"-" validate:"min=1,max=10"`
	UserId           string `json:"userId" validate:"required,max=255"`
	Email            string `json:"email" validate:"omitempty,email"`
	CallbackUrl      string `json:"callbackUrl" validate:"omitempty,url"`
	CancelUrl        string `json:"cancelUrl" validate:"omitempty,url"`
	DiscordChannelId string `json:"discordChannelId" validate:"max=64"`
	DiscordMessageId string `json:"discordMessageId" validate:"max=64"`
}

func NewCheckoutCoinPackRequestFromContext(ctx echo.Context) (*CheckoutCoinPackRequest, error) {
	number, err := strconv.ParseInt(ctx.Param("number"), 10, 32)
	if err != nil {
		return nil, err
	}

	var body CheckoutCoinPackRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.PackNumber = int32(number)
	body.UserId = strings.TrimSpace(body.UserId)
	body.Email = strings.TrimSpace(body.Email)
	body.CallbackUrl = strings.TrimSpace(body.CallbackUrl)
	body.CancelUrl = strings.TrimSpace(body.CancelUrl)
	body.DiscordChannelId = strings.TrimSpace(body.DiscordChannelId)
	body.DiscordMessageId = strings.TrimSpace(body.DiscordMessageId)
	return &body, nil
}

func (r *CheckoutCoinPackRequest) Validate() error {
	return validateStruct(r)
}

func (r *CheckoutCoinPackRequest) GetPackNumber() int32 {
	if r == nil {
		return 0
	}
	return r.PackNumber
}

func (r *CheckoutCoinPackRequest) GetUserId() string {
	if r == nil {
		return ""
	}
	return r.UserId
}

func (r *CheckoutCoinPackRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

func (r *CheckoutCoinPackRequest) GetCallbackUrl() string {
	if r == nil {
		return ""
	}
	return r.CallbackUrl
}

func (r *CheckoutCoinPackRequest) GetCancelUrl() string {
	if r == nil {
		return ""
	}
	return r.CancelUrl
}

func (r *CheckoutCoinPackRequest) GetDiscordChannelId() string {
	if r == nil {
		return ""
	}
	return r.DiscordChannelId
}

func (r *CheckoutCoinPackRequest) GetDiscordMessageId() string {
	if r == nil {
		return ""
	}
	return r.DiscordMessageId
}

type CoinPack struct {
	PackNumber   int32  `json:"packNumber"`
	Price        int64  `json:"price"`
	PriceDisplay string `json:"priceDisplay"`
	Currency     string `json:"currency"`
	BonusPercent string `json:"bonusPercent"`
	BaseCoins    int64  `json:"baseCoins"`
	TotalCoins   int64  `json:"totalCoins"`
}

type ListCoinPacksResponse struct {
	Packs []*CoinPack `json:"packs"`
}

type SuggestCoinPackResponse struct {
	Pack   *CoinPack `json:"pack"`
	Covers bool      `json:"covers"`
}
