package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-coinwallet/app/factory"
	"github.com/vibast-solutions/ms-go-coinwallet/app/mapper"
	"github.com/vibast-solutions/ms-go-coinwallet/app/service"
	"github.com/vibast-solutions/ms-go-coinwallet/app/types"
)

type CoinPackController struct {
	coinPackService *service.CoinPackService
	logger          logrus.FieldLogger
}

func NewCoinPackController(coinPackService *service.CoinPackService) *CoinPackController {
	return &CoinPackController{
		coinPackService: coinPackService,
		logger:          factory.NewModuleLogger("coin-packs-controller"),
	}
}

func (c *CoinPackController) ListPacks(ctx echo.Context) error {
	items, err := c.coinPackService.ListPacks(ctx.Request().Context())
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List coin packs failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
	return ctx.JSON(http.StatusOK, mapper.CoinPacksToResponse(items))
}

func (c *CoinPackController) SuggestPack(ctx echo.Context) error {
	req, err := types.NewSuggestCoinPackRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid shortfall")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	res, err := c.coinPackService.SuggestPack(ctx.Request().Context(), req.GetShortfall())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrCoinPackNotFound):
			return writeError(ctx, http.StatusNotFound, "no coin pack available")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Suggest coin pack failed")
			return writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}
	return ctx.JSON(http.StatusOK, &types.SuggestCoinPackResponse{
		Pack:   mapper.CoinPackToResponse(res.Pack),
		Covers: res.Covers,
	})
}

func (c *CoinPackController) Checkout(ctx echo.Context) error {
	req, err := types.NewCheckoutCoinPackRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	res, err := c.coinPackService.Checkout(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrCoinPackNotFound):
			return writeError(ctx, http.StatusNotFound, "coin pack not found")
		case errors.Is(err, service.ErrPaymentAlreadyExists):
			return writeError(ctx, http.StatusConflict, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Coin pack checkout failed")
			return writeError(ctx, http.StatusInternalServerError, "failed to create payment intent")
		}
	}
	return ctx.JSON(http.StatusCreated, mapper.CreatePaymentResultToResponse(res))
}
