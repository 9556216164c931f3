package stripe

import (
	"context"
	"testing"

	"github.com/otdoges/zapdev-sub005/pkg/config"
)

func TestNewClient_RejectsMissingKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.StripeConfig{WebhookSecret: "whsec_x"}, nil)
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestNewClient_RejectsLiveKeyInTestEnv(t *testing.T) {
	cfg := config.StripeConfig{
		APIKey:        "sk_live_abc",
		WebhookSecret: "whsec_x",
		Env:           "test",
	}
	if _, err := NewClient(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for live key in test env")
	}
}

func TestNewClient_AcceptsTestKey(t *testing.T) {
	cfg := config.StripeConfig{
		APIKey:        "sk_test_abc",
		WebhookSecret: "whsec_x",
		Env:           "",
	}
	client, err := NewClient(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Environment() != "test" {
		t.Fatalf("expected test env, got %q", client.Environment())
	}
	if client.SigningSecret() != "whsec_x" {
		t.Fatalf("unexpected signing secret %q", client.SigningSecret())
	}
}

func TestCustomerIdempotencyKey_Deterministic(t *testing.T) {
	a := CustomerIdempotencyKey("user-1", "User@Example.com")
	b := CustomerIdempotencyKey("user-1", "user@example.com")
	if a != b {
		t.Fatalf("expected case-insensitive email to yield same key: %s vs %s", a, b)
	}
	if a == CustomerIdempotencyKey("user-2", "user@example.com") {
		t.Fatal("different users must not share an idempotency key")
	}
}
