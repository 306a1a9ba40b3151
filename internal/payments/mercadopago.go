package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/mperror"
	"github.com/mercadopago/sdk-go/pkg/payment"
)

const (
	DefaultBaseURL = "https://api.mercadopago.com"
	DefaultTimeout = 15 * time.Second

	idempotencyHeader = "X-Idempotency-Key"
)

// Gateway is the payment processor as seen by the checkout
type Gateway interface {
	CreatePayment(ctx context.Context, req *PaymentRequest) (*Payment, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
}

// MercadoPagoConfig contains the credentials and endpoint of the processor
type MercadoPagoConfig struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

// MercadoPagoClient talks to the Mercado Pago payments API through the
// official SDK
type MercadoPagoClient struct {
	payments payment.Client
	config   MercadoPagoConfig
}

func NewMercadoPagoClient(cfg MercadoPagoConfig) (*MercadoPagoClient, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid mercado pago base url %q", cfg.BaseURL)
	}

	sdkConfig, err := config.New(cfg.AccessToken, config.WithHTTPClient(&requester{
		client: &http.Client{Timeout: cfg.Timeout},
		base:   base,
	}))
	if err != nil {
		return nil, fmt.Errorf("mercado pago config: %w", err)
	}

	return &MercadoPagoClient{
		payments: payment.NewClient(sdkConfig),
		config:   cfg,
	}, nil
}

// requester is the transport handed to the SDK. It points requests at the
// configured base url and carries the caller's idempotency key. The SDK's
// default requester retries; this one does not, so a failed charge is
// surfaced to the buyer instead of being replayed.
type requester struct {
	client *http.Client
	base   *url.URL
}

type idempotencyKeyCtx struct{}

func (r *requester) Do(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = r.base.Scheme
	req.URL.Host = r.base.Host
	req.Host = r.base.Host
	if r.base.Path != "" {
		req.URL.Path = r.base.Path + req.URL.Path
	}
	if key, ok := req.Context().Value(idempotencyKeyCtx{}).(string); ok && key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return r.client.Do(req)
}

// CreatePayment submits a new payment. The idempotency key is forwarded so a
// retried request cannot charge the buyer twice.
func (c *MercadoPagoClient) CreatePayment(ctx context.Context, req *PaymentRequest) (*Payment, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: create payment: nil request", ErrGateway)
	}

	body := payment.Request{
		TransactionAmount: req.Amount,
		Token:             req.Token,
		Description:       req.Description,
		Installments:      req.Installments,
		PaymentMethodID:   req.MethodID,
		IssuerID:          strings.TrimSpace(req.IssuerID),
		ExternalReference: req.ExternalReference,
		Payer: &payment.PayerRequest{
			Email:     req.Payer.Email,
			FirstName: req.Payer.FirstName,
			LastName:  req.Payer.LastName,
		},
	}
	if req.Payer.IdentificationNumber != "" {
		body.Payer.Identification = &payment.IdentificationRequest{
			Type:   req.Payer.IdentificationType,
			Number: req.Payer.IdentificationNumber,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	if req.IdempotencyKey != "" {
		ctx = context.WithValue(ctx, idempotencyKeyCtx{}, req.IdempotencyKey)
	}

	resp, err := c.payments.Create(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", translateError(err))
	}
	return toPayment(resp), nil
}

// GetPayment fetches the current state of a payment
func (c *MercadoPagoClient) GetPayment(ctx context.Context, id string) (*Payment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMissingPaymentID
	}
	// processor ids are numeric; anything else cannot exist there
	numericID, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", id, &APIError{StatusCode: http.StatusNotFound, Message: "invalid payment id"})
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.payments.Get(ctx, numericID)
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", id, translateError(err))
	}
	return toPayment(resp), nil
}

type mpErrorResponse struct {
	Message string `json:"message"`
	Cause   []struct {
		Description string `json:"description"`
	} `json:"cause"`
}

// translateError turns SDK failures into *APIError for answered requests and
// ErrGateway for everything else
func translateError(err error) error {
	var respErr *mperror.ResponseError
	if !errors.As(err, &respErr) {
		return fmt.Errorf("%w: %w", ErrGateway, err)
	}

	apiErr := &APIError{StatusCode: respErr.StatusCode, Message: http.StatusText(respErr.StatusCode)}
	var body mpErrorResponse
	if json.Unmarshal([]byte(respErr.Message), &body) == nil {
		if body.Message != "" {
			apiErr.Message = body.Message
		}
		if len(body.Cause) > 0 {
			apiErr.Cause = body.Cause[0].Description
		}
	}
	return apiErr
}

func toPayment(r *payment.Response) *Payment {
	return &Payment{
		ID:           strconv.Itoa(r.ID),
		Status:       NormalizeStatus(r.Status),
		RawStatus:    r.Status,
		StatusDetail: r.StatusDetail,
		QRCode:       r.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64: r.PointOfInteraction.TransactionData.QRCodeBase64,
	}
}
