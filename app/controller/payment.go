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

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) CreatePaymentIntent(ctx echo.Context) error {
	req, err := types.NewCreatePaymentIntentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	res, err := c.paymentService.CreatePaymentIntent(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPaymentAlreadyExists):
			return writeError(ctx, http.StatusConflict, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create payment intent failed")
			return writeError(ctx, http.StatusInternalServerError, "failed to create payment intent")
		}
	}

	return ctx.JSON(http.StatusCreated, mapper.CreatePaymentResultToResponse(res))
}

func (c *PaymentController) GetPaymentStatus(ctx echo.Context) error {
	req, err := types.NewGetPaymentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	res, err := c.paymentService.GetPaymentStatus(ctx.Request().Context(), req.GetId())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrInvalidRequest):
			return writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get payment status failed")
			return writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	ctx.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return ctx.JSON(http.StatusOK, mapper.PaymentStatusToResponse(res))
}

func (c *PaymentController) ListPaymentEvents(ctx echo.Context) error {
	req, err := types.NewGetPaymentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.ListPaymentEvents(ctx.Request().Context(), req.GetId())
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return writeError(ctx, http.StatusNotFound, "payment not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List payment events failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.PaymentEventsToResponse(items))
}

func (c *PaymentController) HandleWebhook(ctx echo.Context) error {
	req, err := types.NewWebhookRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	_, err = c.paymentService.HandleWebhook(ctx.Request().Context(), req.GetPayload(), req.GetSignature())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWebhookRejected), errors.Is(err, service.ErrInvalidRequest):
			return writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Handle webhook failed")
			return writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.WebhookResponse{Received: true})
}

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
