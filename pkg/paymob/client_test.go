package paymob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/omarashraf/dokkan-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testOrder() PaymentOrder {
	return PaymentOrder{
		AmountCents:    23000,
		Currency:       "EGP",
		DeliveryNeeded: true,
		Items: []OrderItem{
			{Name: "Widget", AmountCents: 9000, Quantity: 2},
		},
		Billing: BillingData{
			FirstName:   "Omar",
			LastName:    "Ashraf",
			Email:       "omar@example.com",
			PhoneNumber: "+201000000000",
			Street:      "Tahrir",
			City:        "Cairo",
			Country:     "EG",
		},
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestPrepareCardPaymentFlow(t *testing.T) {
	var calls []string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls = append(calls, req.URL.Path)

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}

		switch req.URL.Path {
		case "/api/auth/tokens":
			if payload["api_key"] != "test-key" {
				t.Fatalf("unexpected api key %v", payload["api_key"])
			}
			return jsonResponse(http.StatusCreated, `{"token":"auth-token"}`), nil
		case "/api/ecommerce/orders":
			if payload["auth_token"] != "auth-token" {
				t.Fatalf("order registration missing auth token")
			}
			if payload["amount_cents"].(float64) != 23000 {
				t.Fatalf("unexpected amount %v", payload["amount_cents"])
			}
			return jsonResponse(http.StatusCreated, `{"id":778899}`), nil
		case "/api/acceptance/payment_keys":
			if payload["order_id"].(float64) != 778899 {
				t.Fatalf("payment key request missing gateway order id")
			}
			if payload["integration_id"].(float64) != 42 {
				t.Fatalf("unexpected integration id %v", payload["integration_id"])
			}
			billing := payload["billing_data"].(map[string]any)
			if billing["first_name"] != "Omar" {
				t.Fatalf("unexpected billing data %v", billing)
			}
			return jsonResponse(http.StatusCreated, `{"token":"pay-key"}`), nil
		default:
			t.Fatalf("unexpected path %s", req.URL.Path)
			return nil, nil
		}
	})

	client, err := NewClient("test-key", 42, 7,
		WithBaseURL("http://paymob.test/api"),
		WithIframeBaseURL("http://paymob.test/iframes"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	intent, err := client.PrepareCardPayment(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("prepare card payment: %v", err)
	}
	if intent.GatewayOrderID != 778899 {
		t.Fatalf("unexpected gateway order id %d", intent.GatewayOrderID)
	}
	if intent.IframeURL != "http://paymob.test/iframes/7?payment_token=pay-key" {
		t.Fatalf("unexpected iframe url %q", intent.IframeURL)
	}

	want := []string{"/api/auth/tokens", "/api/ecommerce/orders", "/api/acceptance/payment_keys"}
	if len(calls) != len(want) {
		t.Fatalf("expected %d gateway calls, got %v", len(want), calls)
	}
	for i, path := range want {
		if calls[i] != path {
			t.Fatalf("call %d was %s, want %s", i, calls[i], path)
		}
	}
}

func TestPrepareWalletPaymentFlow(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/api/auth/tokens":
			return jsonResponse(http.StatusCreated, `{"token":"auth-token"}`), nil
		case "/api/ecommerce/orders":
			return jsonResponse(http.StatusCreated, `{"id":556677}`), nil
		case "/api/acceptance/payment_keys":
			return jsonResponse(http.StatusCreated, `{"token":"pay-key"}`), nil
		case "/api/acceptance/payments/pay":
			bodyBytes, err := io.ReadAll(req.Body)
			if err != nil {
				t.Fatalf("read request body: %v", err)
			}
			var payload map[string]any
			if err := json.Unmarshal(bodyBytes, &payload); err != nil {
				t.Fatalf("unmarshal request body: %v", err)
			}
			source := payload["source"].(map[string]any)
			if source["identifier"] != "01012345678" || source["subtype"] != "WALLET" {
				t.Fatalf("unexpected wallet source %v", source)
			}
			if payload["payment_token"] != "pay-key" {
				t.Fatalf("unexpected payment token %v", payload["payment_token"])
			}
			return jsonResponse(http.StatusOK, `{"redirection_url":"http://wallet.test/redirect"}`), nil
		default:
			t.Fatalf("unexpected path %s", req.URL.Path)
			return nil, nil
		}
	})

	client, err := NewClient("test-key", 42, 0,
		WithBaseURL("http://paymob.test/api"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	intent, err := client.PrepareWalletPayment(context.Background(), testOrder(), "01012345678")
	if err != nil {
		t.Fatalf("prepare wallet payment: %v", err)
	}
	if intent.GatewayOrderID != 556677 {
		t.Fatalf("unexpected gateway order id %d", intent.GatewayOrderID)
	}
	if intent.RedirectURL != "http://wallet.test/redirect" {
		t.Fatalf("unexpected redirect url %q", intent.RedirectURL)
	}
}

func TestPrepareWalletPaymentRequiresIdentifier(t *testing.T) {
	client, err := NewClient("test-key", 42, 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.PrepareWalletPayment(context.Background(), testOrder(), "  ")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGatewayFailureMapsToGatewayError(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, `{"detail":"down"}`), nil
	})

	client, err := NewClient("test-key", 42, 7, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.PrepareCardPayment(context.Background(), testOrder())
	if !pkgerrors.IsCode(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}

	var typed *pkgerrors.Error
	if !errors.As(err, &typed) {
		t.Fatalf("expected typed error, got %T", err)
	}
	if !strings.Contains(typed.Error(), "auth/tokens") {
		t.Fatalf("expected failing endpoint in message, got %q", typed.Error())
	}
	if kind := FailureKind(err); kind != FailureKindUnavailable {
		t.Fatalf("expected failure kind %q, got %q", FailureKindUnavailable, kind)
	}
}

func TestRejectedCredentialsMapToAuthFailure(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/auth/tokens" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(http.StatusUnauthorized, `{"detail":"invalid api key"}`), nil
	})

	client, err := NewClient("bad-key", 42, 7, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.PrepareCardPayment(context.Background(), testOrder())
	if !pkgerrors.IsCode(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if kind := FailureKind(err); kind != FailureKindAuth {
		t.Fatalf("expected failure kind %q, got %q", FailureKindAuth, kind)
	}
}

func TestRejectedOrderMapsToRequestRejection(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/api/auth/tokens":
			return jsonResponse(http.StatusCreated, `{"token":"auth-token"}`), nil
		case "/api/ecommerce/orders":
			return jsonResponse(http.StatusUnprocessableEntity, `{"detail":"bad currency"}`), nil
		default:
			t.Fatalf("unexpected path %s", req.URL.Path)
			return nil, nil
		}
	})

	client, err := NewClient("test-key", 42, 7, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.PrepareCardPayment(context.Background(), testOrder())
	if !pkgerrors.IsCode(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if kind := FailureKind(err); kind != FailureKindRejected {
		t.Fatalf("expected failure kind %q, got %q", FailureKindRejected, kind)
	}
}
