package paymob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/omarashraf/dokkan-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://accept.paymob.com/api"
	defaultIframeBaseURL        = "https://accept.paymobsolutions.com/api/acceptance/iframes"
	paymentKeyExpirySecs        = 3600
	responseBodyReadLimit int64 = 1024
)

var (
	errAPIKeyRequired        = errors.New("paymob api key is required")
	errIntegrationIDRequired = errors.New("paymob integration id is required")
)

// Failure kinds carried in the gateway error details. Callers that alert
// on a bad merchant credential differently than on a gateway outage can
// branch on FailureKind.
const (
	FailureKindAuth        = "auth_failed"
	FailureKindUnavailable = "gateway_unavailable"
	FailureKindRejected    = "request_rejected"
)

// FailureKind extracts the failure kind from a gateway error, or returns
// the empty string when the error carries none.
func FailureKind(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return ""
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return ""
	}
	kind, _ := details["kind"].(string)
	return kind
}

// Client wraps the Paymob Accept API used to collect card and wallet payments.
// Every payment goes through the same three gateway calls: authenticate,
// register the order, request a payment key. Failures are surfaced to the
// caller without retrying; the order stays in its payment-pending state.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	iframeBaseURL string
	apiKey        string
	integrationID int
	iframeID      int
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Accept API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithIframeBaseURL overrides the hosted-iframe base URL.
func WithIframeBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.iframeBaseURL = trimmed
		}
	}
}

// NewClient builds the Paymob client given the merchant credentials.
func NewClient(apiKey string, integrationID, iframeID int, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}
	if integrationID == 0 {
		return nil, errIntegrationIDRequired
	}

	client := &Client{
		apiKey:        trimmedKey,
		integrationID: integrationID,
		iframeID:      iframeID,
		baseURL:       defaultBaseURL,
		iframeBaseURL: defaultIframeBaseURL,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// OrderItem is one line sent to the gateway's order registration call.
type OrderItem struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Quantity    int    `json:"quantity"`
}

// BillingData mirrors the billing payload the payment-key call requires.
// Paymob rejects empty fields, so callers should fill what they have and
// leave "NA" for the rest.
type BillingData struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Apartment   string `json:"apartment"`
	Floor       string `json:"floor"`
	Street      string `json:"street"`
	Building    string `json:"building"`
	PostalCode  string `json:"postal_code"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
}

// CardPaymentIntent is the result of preparing a card payment: the
// registered gateway order plus the hosted iframe the customer is sent to.
type CardPaymentIntent struct {
	GatewayOrderID int64
	PaymentToken   string
	IframeURL      string
}

// WalletPaymentIntent is the result of initiating a mobile wallet payment.
type WalletPaymentIntent struct {
	GatewayOrderID int64
	RedirectURL    string
}

// PaymentOrder carries the order fields the gateway needs.
type PaymentOrder struct {
	AmountCents    int64
	Currency       string
	DeliveryNeeded bool
	Items          []OrderItem
	Billing        BillingData
}

// PrepareCardPayment registers the order and returns the hosted iframe URL
// the customer completes the card payment on.
func (c *Client) PrepareCardPayment(ctx context.Context, order PaymentOrder) (*CardPaymentIntent, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "paymob client not configured")
	}
	if c.iframeID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "paymob iframe id not configured")
	}

	gatewayOrderID, paymentToken, err := c.preparePayment(ctx, order)
	if err != nil {
		return nil, err
	}

	return &CardPaymentIntent{
		GatewayOrderID: gatewayOrderID,
		PaymentToken:   paymentToken,
		IframeURL:      fmt.Sprintf("%s/%d?payment_token=%s", strings.TrimRight(c.iframeBaseURL, "/"), c.iframeID, paymentToken),
	}, nil
}

// PrepareWalletPayment registers the order and initiates a mobile wallet
// payment for the given wallet identifier (the customer's wallet number).
func (c *Client) PrepareWalletPayment(ctx context.Context, order PaymentOrder, identifier string) (*WalletPaymentIntent, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "paymob client not configured")
	}
	if strings.TrimSpace(identifier) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet identifier is required")
	}

	gatewayOrderID, paymentToken, err := c.preparePayment(ctx, order)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"source": map[string]any{
			"identifier": identifier,
			"subtype":    "WALLET",
		},
		"payment_token": paymentToken,
	}

	var resp struct {
		RedirectionURL string `json:"redirection_url"`
	}
	if err := c.post(ctx, "acceptance/payments/pay", payload, &resp); err != nil {
		return nil, err
	}
	if resp.RedirectionURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "paymob wallet pay returned no redirection url")
	}

	return &WalletPaymentIntent{
		GatewayOrderID: gatewayOrderID,
		RedirectURL:    resp.RedirectionURL,
	}, nil
}

func (c *Client) preparePayment(ctx context.Context, order PaymentOrder) (int64, string, error) {
	authToken, err := c.authenticate(ctx)
	if err != nil {
		return 0, "", err
	}

	gatewayOrderID, err := c.registerOrder(ctx, order, authToken)
	if err != nil {
		return 0, "", err
	}

	paymentToken, err := c.requestPaymentKey(ctx, order, gatewayOrderID, authToken)
	if err != nil {
		return 0, "", err
	}

	return gatewayOrderID, paymentToken, nil
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	payload := map[string]any{"api_key": c.apiKey}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "auth/tokens", payload, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", pkgerrors.New(pkgerrors.CodeGateway, "paymob auth returned no token")
	}
	return resp.Token, nil
}

func (c *Client) registerOrder(ctx context.Context, order PaymentOrder, authToken string) (int64, error) {
	payload := map[string]any{
		"auth_token":      authToken,
		"delivery_needed": order.DeliveryNeeded,
		"amount_cents":    order.AmountCents,
		"currency":        order.Currency,
		"items":           order.Items,
	}

	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.post(ctx, "ecommerce/orders", payload, &resp); err != nil {
		return 0, err
	}
	if resp.ID == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeGateway, "paymob order registration returned no id")
	}
	return resp.ID, nil
}

func (c *Client) requestPaymentKey(ctx context.Context, order PaymentOrder, gatewayOrderID int64, authToken string) (string, error) {
	payload := map[string]any{
		"auth_token":     authToken,
		"amount_cents":   order.AmountCents,
		"expiration":     paymentKeyExpirySecs,
		"order_id":       gatewayOrderID,
		"billing_data":   order.Billing,
		"currency":       order.Currency,
		"integration_id": c.integrationID,
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "acceptance/payment_keys", payload, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", pkgerrors.New(pkgerrors.CodeGateway, "paymob payment key missing from response")
	}
	return resp.Token, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("marshal paymob %s request", path))
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("build paymob %s request", path))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("execute paymob %s request", path)).
			WithDetails(map[string]any{"kind": FailureKindUnavailable})
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeGateway,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			fmt.Sprintf("paymob %s request failed", path)).
			WithDetails(map[string]any{"kind": classifyFailure(path, resp.StatusCode)})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("decode paymob %s response", path))
	}
	return nil
}

// classifyFailure maps an HTTP failure to a failure kind. A rejected call
// to the token endpoint means the merchant credential is wrong; 5xx from
// any endpoint means the gateway itself is down.
func classifyFailure(path string, status int) string {
	if status >= http.StatusInternalServerError {
		return FailureKindUnavailable
	}
	if strings.TrimLeft(path, "/") == "auth/tokens" {
		return FailureKindAuth
	}
	return FailureKindRejected
}
