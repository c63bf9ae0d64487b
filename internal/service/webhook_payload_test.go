package service

import (
	"errors"
	"testing"
	"time"

	"github.com/skinstack-core/internal/constants"

	"github.com/shopspring/decimal"
)

func TestParseShopifyPayloadNoteAttributes(t *testing.T) {
	payload := []byte(`{
		"name": "#1001",
		"subtotal_price": "90.00",
		"total_tax": "5.00",
		"total_shipping_price": "5.00",
		"total_price": "100.00",
		"currency": "usd",
		"created_at": "2026-08-01T10:00:00Z",
		"note_attributes": [
			{"name": "subid", "value": "abcd1234_Xy7kPq2w_1700000000"},
			{"name": "device_id", "value": "dev-9"}
		]
	}`)
	event, err := parseWebhookConversion(constants.WebhookSourceShopify, payload, WebhookEventHint{
		ExternalEventID: "wh-123",
		EventType:       "orders/paid",
	})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.ExternalEventID != "wh-123" || event.OrderID != "#1001" {
		t.Fatalf("unexpected ids: %s %s", event.ExternalEventID, event.OrderID)
	}
	if event.Subid != "abcd1234_Xy7kPq2w_1700000000" || event.DeviceID != "dev-9" {
		t.Fatalf("note attributes not extracted: %+v", event)
	}
	if !event.Total.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected total: %s", event.Total.String())
	}
	if event.Currency != "USD" {
		t.Fatalf("expected normalized currency, got %s", event.Currency)
	}
	if event.Refund {
		t.Fatalf("orders/paid must not flag refund")
	}
}

func TestParseShopifyPayloadLandingSiteFallback(t *testing.T) {
	payload := []byte(`{
		"name": "#1002",
		"total_price": "10.00",
		"landing_site": "/products/serum?subid=abcd1234_Xy7kPq2w_1700000000&utm_source=ig"
	}`)
	event, err := parseWebhookConversion(constants.WebhookSourceShopify, payload, WebhookEventHint{EventType: "orders/paid"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.Subid != "abcd1234_Xy7kPq2w_1700000000" {
		t.Fatalf("expected subid from landing site, got %q", event.Subid)
	}
	// 缺事件头时以订单号兜底幂等键
	if event.ExternalEventID != "#1002" {
		t.Fatalf("expected order id fallback event id, got %q", event.ExternalEventID)
	}
}

func TestParseImpactPayloadReversal(t *testing.T) {
	payload := []byte(`{
		"ActionId": "act-77",
		"EventType": "ACTION_REVERSAL",
		"OrderId": "ORD-77",
		"Amount": 42.5,
		"SubId1": "abcd1234_Xy7kPq2w_1700000000"
	}`)
	event, err := parseWebhookConversion(constants.WebhookSourceImpact, payload, WebhookEventHint{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.ExternalEventID != "act-77" {
		t.Fatalf("expected action id fallback, got %q", event.ExternalEventID)
	}
	if !event.Refund {
		t.Fatalf("reversal must flag refund")
	}
	if !event.Total.Equal(decimal.NewFromFloat(42.5)) {
		t.Fatalf("unexpected total: %s", event.Total.String())
	}
}

func TestParseWebhookConversionRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"missing event id", `{"order_id":"ORD-1","total":"10.00"}`},
		{"missing order id", `{"event_id":"evt-1","total":"10.00"}`},
		{"negative total", `{"event_id":"evt-1","order_id":"ORD-1","total":"-1.00"}`},
		{"malformed json", `{`},
	}
	for _, tc := range cases {
		if _, err := parseWebhookConversion(constants.WebhookSourceRefersion, []byte(tc.payload), WebhookEventHint{}); !errors.Is(err, ErrEventPayloadInvalid) {
			t.Fatalf("%s: expected payload invalid, got: %v", tc.name, err)
		}
	}
}

func TestParseWebhookTimeLayouts(t *testing.T) {
	if got := parseWebhookTime("2026-08-01T10:00:00Z"); got.IsZero() {
		t.Fatalf("rfc3339 should parse")
	}
	if got := parseWebhookTime("2026-08-01 10:00:00"); got.IsZero() {
		t.Fatalf("datetime should parse")
	}
	if got := parseWebhookTime("not-a-time"); !got.IsZero() {
		t.Fatalf("garbage should yield zero time, got %v", got)
	}

	event, err := parseWebhookConversion(
		constants.WebhookSourceRefersion,
		[]byte(`{"event_id":"evt-t","order_id":"ORD-T","total":"1.00"}`),
		WebhookEventHint{},
	)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.OccurredAt.IsZero() || time.Since(event.OccurredAt) > time.Minute {
		t.Fatalf("missing time should default to now, got %v", event.OccurredAt)
	}
}
