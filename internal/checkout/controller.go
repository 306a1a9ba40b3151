package checkout

import (
	"errors"
	"net/http"

	"raffle/internal/payments"
	"raffle/internal/shared/utils/response"
	"raffle/internal/tickets"
	"raffle/pkg/cache"
	"raffle/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
	log     *logger.Logger
}

func NewController(service Service) *Controller {
	log := logger.GetDefault()
	if err := RegisterValidators(); err != nil {
		log.WithError(err).Error("Ticket number validation unavailable")
	}
	return &Controller{
		service: service,
		log:     log,
	}
}

// PUBLIC INVENTORY

func (c *Controller) GetAvailableNumbers(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.service.ListNumbers(ctx.Request.Context()))
}

func (c *Controller) ReserveNumbers(ctx *gin.Context) {
	var req ReserveNumbersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if _, err := c.service.ReserveNumbers(ctx.Request.Context(), req.Holder(), req.Numbers); err != nil {
		c.respondCheckoutError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// PAYMENTS

func (c *Controller) ProcessPayment(ctx *gin.Context) {
	var req ProcessPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	status, err := c.service.ProcessCardPayment(ctx.Request.Context(), req.ToCheckout(ctx.GetHeader(cache.IdempotencyHeader)))
	if err != nil {
		c.respondCheckoutError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, PaymentStatusResponse{Status: status.String()})
}

func (c *Controller) ProcessPixPayment(ctx *gin.Context) {
	var req ProcessPixPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := c.service.ProcessPixPayment(ctx.Request.Context(), req.ToCheckout(ctx.GetHeader(cache.IdempotencyHeader)))
	if err != nil {
		c.respondCheckoutError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, PixPaymentResponse{
		PaymentID:         result.PaymentID,
		QRCode:            result.QRCode,
		QRCodeImageBase64: result.QRCodeBase64,
	})
}

func (c *Controller) GetPaymentStatus(ctx *gin.Context) {
	paymentID := ctx.Param("paymentId")

	status, err := c.service.PaymentStatus(ctx.Request.Context(), paymentID)
	if err != nil {
		c.respondCheckoutError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, PaymentStatusResponse{Status: status.String()})
}

// OPERATOR

func (c *Controller) ResetNumbers(ctx *gin.Context) {
	c.service.ResetNumbers(ctx.Request.Context())
	ctx.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (c *Controller) GetOverview(ctx *gin.Context) {
	response.RespondJSON(ctx, "success", http.StatusOK, "Overview retrieved successfully", c.service.Overview(ctx.Request.Context()), nil)
}

// respondCheckoutError maps service errors onto the browser contract:
// client errors are 400 {success:false}, processor failures 502 {status:"rejected"}.
func (c *Controller) respondCheckoutError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, tickets.ErrNumbersUnavailable):
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:       "Some numbers are no longer available",
			Unavailable: tickets.UnavailableNumbers(err),
		})

	case errors.Is(err, tickets.ErrNoNumbers),
		errors.Is(err, tickets.ErrHolderRequired),
		errors.Is(err, tickets.ErrUnknownNumber),
		errors.Is(err, tickets.ErrDuplicateNumber),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrAmountMismatch),
		errors.Is(err, payments.ErrMissingPaymentID),
		errors.Is(err, ErrPaymentRejected):
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, payments.ErrPaymentNotFound):
		ctx.JSON(http.StatusNotFound, PaymentStatusResponse{Status: payments.StatusRejected.String()})

	case errors.Is(err, payments.ErrGateway):
		c.log.LogHTTPError(ctx, err, http.StatusBadGateway)
		ctx.JSON(http.StatusBadGateway, PaymentStatusResponse{Status: payments.StatusRejected.String()})

	default:
		c.log.LogHTTPError(ctx, err, http.StatusInternalServerError)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
