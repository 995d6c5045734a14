package settlement

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func sign(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestParseWebhookVerifiesSignature(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://rail.local", APIKey: "secret"})
	body := []byte(`{"event_type":"payout.completed","reference":"ABCD1234ABCD1234","external_id":"ext-1","amount":"25.00","currency":"EUR"}`)

	event, err := client.ParseWebhook(body, sign("secret", body))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.EventType != "payout.completed" || event.Reference != "ABCD1234ABCD1234" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if !event.Amount.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("amount mangled: %s", event.Amount)
	}
	if !event.Succeeded() {
		t.Fatal("payout.completed must report success")
	}
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	client := NewClient(Config{APIKey: "secret"})
	body := []byte(`{"event_type":"payout.completed","reference":"X","amount":"1"}`)

	if _, err := client.ParseWebhook(body, sign("wrong-key", body)); err == nil {
		t.Fatal("expected signature rejection")
	}
	if _, err := client.ParseWebhook(body, ""); err == nil {
		t.Fatal("expected empty signature rejection")
	}
}

func TestParseWebhookFailureEvent(t *testing.T) {
	client := NewClient(Config{APIKey: "secret"})
	body := []byte(`{"event_type":"payout.failed","reference":"R","amount":"10","reason":"account closed"}`)

	event, err := client.ParseWebhook(body, sign("secret", body))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.Succeeded() {
		t.Fatal("payout.failed must not report success")
	}
	if event.Reason != "account closed" {
		t.Fatalf("reason lost: %q", event.Reason)
	}
}

func TestPayoutSendsIdempotencyKey(t *testing.T) {
	var gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"external_id":"ext-9","status":"accepted"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "key-1"})
	resp, err := client.Payout(context.Background(), PayoutRequest{
		Reference: "REF1", Amount: decimal.NewFromInt(10), Currency: "EUR",
	})
	if err != nil {
		t.Fatalf("payout failed: %v", err)
	}
	if resp.ExternalID != "ext-9" {
		t.Fatalf("external id lost: %q", resp.ExternalID)
	}
	if gotKey != "REF1" {
		t.Fatalf("idempotency key must be the reference, got %q", gotKey)
	}
	if gotAuth != "Bearer key-1" {
		t.Fatalf("bad auth header %q", gotAuth)
	}
}

func TestPayoutFailedStatusMapsToSettlementError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"status":"failed","message":"insufficient rail funds"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "key-1"})
	_, err := client.Payout(context.Background(), PayoutRequest{Reference: "REF2", Amount: decimal.NewFromInt(10)})
	if !errors.Is(err, ErrSettlementFailed) {
		t.Fatalf("expected ErrSettlementFailed, got %v", err)
	}
}

func TestPayoutValidatesRequest(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://rail.local", APIKey: "key-1"})

	if _, err := client.Payout(context.Background(), PayoutRequest{Reference: "R", Amount: decimal.Zero}); err == nil {
		t.Fatal("expected rejection of non-positive amount")
	}
	if _, err := client.Payout(context.Background(), PayoutRequest{Reference: " ", Amount: decimal.NewFromInt(1)}); err == nil {
		t.Fatal("expected rejection of blank reference")
	}
}
