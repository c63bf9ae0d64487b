package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/skinstack-core/internal/config"
	"github.com/skinstack-core/internal/constants"
)

func signHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func signBase64(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyRefersionSignature(t *testing.T) {
	verifier := NewWebhookSignatureVerifier(config.WebhookConfig{
		Refersion: config.WebhookSourceConfig{VerifySignature: true, Secret: "ref-secret"},
	})
	payload := []byte(`{"order_id":"ORD-1"}`)

	if err := verifier.Verify(WebhookSignatureInput{
		Source:  constants.WebhookSourceRefersion,
		Payload: payload,
		Header:  "sha256=" + signHex("ref-secret", payload),
	}); err != nil {
		t.Fatalf("expected valid signature, got: %v", err)
	}
	if err := verifier.Verify(WebhookSignatureInput{
		Source:  constants.WebhookSourceRefersion,
		Payload: payload,
		Header:  "sha256=" + signHex("wrong-secret", payload),
	}); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected invalid signature, got: %v", err)
	}
}

func TestVerifyShopifySignature(t *testing.T) {
	verifier := NewWebhookSignatureVerifier(config.WebhookConfig{
		Shopify: config.WebhookSourceConfig{VerifySignature: true, Secret: "shop-secret"},
	})
	payload := []byte(`{"name":"#1001"}`)

	if err := verifier.Verify(WebhookSignatureInput{
		Source:  constants.WebhookSourceShopify,
		Payload: payload,
		Header:  signBase64("shop-secret", payload),
	}); err != nil {
		t.Fatalf("expected valid signature, got: %v", err)
	}
	if err := verifier.Verify(WebhookSignatureInput{
		Source:  constants.WebhookSourceShopify,
		Payload: payload,
		Header:  "not-base64!!!",
	}); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected invalid signature, got: %v", err)
	}
}

func TestVerifyImpactStripeStyleSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	verifier := NewWebhookSignatureVerifier(config.WebhookConfig{
		Impact: config.WebhookSourceConfig{VerifySignature: true, Secret: "imp-secret"},
	})
	verifier.now = func() time.Time { return now }
	payload := []byte(`{"OrderId":"ORD-1"}`)

	ts := now.Unix()
	signed := signHex("imp-secret", []byte(fmt.Sprintf("%d.%s", ts, payload)))
	if err := verifier.Verify(WebhookSignatureInput{
		Source:  constants.WebhookSourceImpact,
		Payload: payload,
		Header:  fmt.Sprintf("t=%d,v1=%s", ts, signed),
	}); err != nil {
		t.Fatalf("expected valid signature, got: %v", err)
	}

	// 时间戳超出容忍窗口视为重放
	staleTs := now.Add(-10 * time.Minute).Unix()
	staleSigned := signHex("imp-secret", []byte(fmt.Sprintf("%d.%s", staleTs, payload)))
	if err := verifier.Verify(WebhookSignatureInput{
		Source:  constants.WebhookSourceImpact,
		Payload: payload,
		Header:  fmt.Sprintf("t=%d,v1=%s", staleTs, staleSigned),
	}); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected replay rejection, got: %v", err)
	}
}

func TestVerifySkippedWhenDisabled(t *testing.T) {
	verifier := NewWebhookSignatureVerifier(config.WebhookConfig{})
	if err := verifier.Verify(WebhookSignatureInput{
		Source:  constants.WebhookSourceRefersion,
		Payload: []byte(`{}`),
		Header:  "",
	}); err != nil {
		t.Fatalf("expected verification skipped, got: %v", err)
	}
}

func TestVerifyMissingHeader(t *testing.T) {
	verifier := NewWebhookSignatureVerifier(config.WebhookConfig{
		Levanta: config.WebhookSourceConfig{VerifySignature: true, Secret: "lev-secret"},
	})
	if err := verifier.Verify(WebhookSignatureInput{
		Source:  constants.WebhookSourceLevanta,
		Payload: []byte(`{}`),
	}); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected missing header rejection, got: %v", err)
	}
}

func TestSignatureHeaderName(t *testing.T) {
	if got := SignatureHeaderName(constants.WebhookSourceShopify); got != "X-Shopify-Hmac-Sha256" {
		t.Fatalf("unexpected shopify header: %s", got)
	}
	if got := SignatureHeaderName("unknown"); got != "" {
		t.Fatalf("expected empty header for unknown source, got %s", got)
	}
}
