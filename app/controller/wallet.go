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

type WalletController struct {
	walletService *service.WalletService
	logger        logrus.FieldLogger
}

func NewWalletController(walletService *service.WalletService) *WalletController {
	return &WalletController{
		walletService: walletService,
		logger:        factory.NewModuleLogger("wallets-controller"),
	}
}

func (c *WalletController) OpenWallet(ctx echo.Context) error {
	req, err := types.NewOpenWalletRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	wallet, err := c.walletService.OpenWallet(ctx.Request().Context(), req.GetUserId())
	if err != nil {
		return c.handleError(ctx, err, "Open wallet failed")
	}
	return ctx.JSON(http.StatusCreated, &types.WalletResponse{Wallet: mapper.WalletToResponse(wallet)})
}

func (c *WalletController) GetWallet(ctx echo.Context) error {
	req, err := types.NewGetWalletRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	wallet, err := c.walletService.GetWallet(ctx.Request().Context(), req.GetUserId())
	if err != nil {
		return c.handleError(ctx, err, "Get wallet failed")
	}
	return ctx.JSON(http.StatusOK, &types.WalletResponse{Wallet: mapper.WalletToResponse(wallet)})
}

func (c *WalletController) ListTransactions(ctx echo.Context) error {
	req, err := types.NewListTransactionsRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.walletService.ListTransactions(ctx.Request().Context(), req.GetUserId(), req.GetLimit(), req.GetOffset())
	if err != nil {
		return c.handleError(ctx, err, "List transactions failed")
	}
	return ctx.JSON(http.StatusOK, &types.ListTransactionsResponse{Transactions: mapper.TransactionsToResponse(items)})
}

func (c *WalletController) Credit(ctx echo.Context) error {
	req, err := types.NewLedgerRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	res, err := c.walletService.Credit(ctx.Request().Context(), req)
	if err != nil {
		return c.handleError(ctx, err, "Credit wallet failed")
	}
	return ctx.JSON(http.StatusOK, mapper.LedgerResultToResponse(res))
}

func (c *WalletController) Debit(ctx echo.Context) error {
	req, err := types.NewLedgerRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	res, err := c.walletService.Debit(ctx.Request().Context(), req)
	if err != nil {
		return c.handleError(ctx, err, "Debit wallet failed")
	}
	return ctx.JSON(http.StatusOK, mapper.LedgerResultToResponse(res))
}

func (c *WalletController) Transfer(ctx echo.Context) error {
	req, err := types.NewTransferRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	res, err := c.walletService.Transfer(ctx.Request().Context(), req)
	if err != nil {
		return c.handleError(ctx, err, "Transfer failed")
	}
	return ctx.JSON(http.StatusOK, mapper.TransferResultToResponse(res))
}

func (c *WalletController) handleError(ctx echo.Context, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrWalletNotFound):
		return writeError(ctx, http.StatusNotFound, "wallet not found")
	case errors.Is(err, service.ErrInsufficientFunds):
		return writeError(ctx, http.StatusConflict, "insufficient funds")
	case errors.Is(err, service.ErrPaymentAlreadyExists):
		return writeError(ctx, http.StatusConflict, "duplicate reference")
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(message)
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}
