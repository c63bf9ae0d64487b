package service

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/skinstack-core/internal/constants"

	"github.com/shopspring/decimal"
)

// webhookConversion 各来源回调报文归一化后的转化事件
type webhookConversion struct {
	ExternalEventID string
	EventType       string
	OrderID         string
	OccurredAt      time.Time
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Shipping        decimal.Decimal
	Total           decimal.Decimal
	Currency        string
	Subid           string
	DeviceID        string
	IPHash          string
	Refund          bool
}

type webhookParser func(payload []byte, hint WebhookEventHint) (*webhookConversion, error)

// WebhookEventHint 报文之外随请求头携带的事件元数据
// Shopify 的事件ID与事件类型只存在于请求头。
type WebhookEventHint struct {
	ExternalEventID string
	EventType       string
}

var webhookParsers = map[string]webhookParser{
	constants.WebhookSourceRefersion: parseRefersionPayload,
	constants.WebhookSourceShopify:   parseShopifyPayload,
	constants.WebhookSourceImpact:    parseImpactPayload,
	constants.WebhookSourceLevanta:   parseLevantaPayload,
}

// parseWebhookConversion 将原始回调报文解析为归一化转化事件
func parseWebhookConversion(source string, payload []byte, hint WebhookEventHint) (*webhookConversion, error) {
	parser, ok := webhookParsers[strings.ToLower(strings.TrimSpace(source))]
	if !ok {
		return nil, ErrUnsupportedSource
	}
	event, err := parser(payload, hint)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(event.ExternalEventID) == "" {
		return nil, fmt.Errorf("%w: missing event id", ErrEventPayloadInvalid)
	}
	if strings.TrimSpace(event.OrderID) == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrEventPayloadInvalid)
	}
	if event.Total.LessThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: negative order total", ErrEventPayloadInvalid)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if strings.TrimSpace(event.Currency) == "" {
		event.Currency = constants.SiteCurrencyDefault
	}
	event.Currency = strings.ToUpper(strings.TrimSpace(event.Currency))
	return event, nil
}

func parseRefersionPayload(payload []byte, _ WebhookEventHint) (*webhookConversion, error) {
	var body struct {
		EventID    string          `json:"event_id"`
		EventType  string          `json:"event_type"`
		OrderID    string          `json:"order_id"`
		Subtotal   json.RawMessage `json:"subtotal"`
		Tax        json.RawMessage `json:"tax"`
		Shipping   json.RawMessage `json:"shipping"`
		Total      json.RawMessage `json:"total"`
		Currency   string          `json:"currency"`
		Subid      string          `json:"subid"`
		DeviceID   string          `json:"device_id"`
		IPHash     string          `json:"ip_hash"`
		OccurredAt string          `json:"occurred_at"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEventPayloadInvalid, err)
	}

	event := &webhookConversion{
		ExternalEventID: strings.TrimSpace(body.EventID),
		EventType:       strings.TrimSpace(body.EventType),
		OrderID:         strings.TrimSpace(body.OrderID),
		Currency:        body.Currency,
		Subid:           strings.TrimSpace(body.Subid),
		DeviceID:        strings.TrimSpace(body.DeviceID),
		IPHash:          strings.TrimSpace(body.IPHash),
		OccurredAt:      parseWebhookTime(body.OccurredAt),
		Refund:          strings.Contains(strings.ToLower(body.EventType), "refund"),
	}

	var err error
	if event.Subtotal, err = parseWebhookAmount(body.Subtotal); err != nil {
		return nil, err
	}
	if event.Tax, err = parseWebhookAmount(body.Tax); err != nil {
		return nil, err
	}
	if event.Shipping, err = parseWebhookAmount(body.Shipping); err != nil {
		return nil, err
	}
	if event.Total, err = parseWebhookAmount(body.Total); err != nil {
		return nil, err
	}
	return event, nil
}

func parseShopifyPayload(payload []byte, hint WebhookEventHint) (*webhookConversion, error) {
	var body struct {
		ID             json.Number `json:"id"`
		Name           string      `json:"name"`
		OrderNumber    json.Number `json:"order_number"`
		SubtotalPrice  string      `json:"subtotal_price"`
		TotalTax       string      `json:"total_tax"`
		TotalShipping  string      `json:"total_shipping_price"`
		TotalPrice     string      `json:"total_price"`
		Currency       string      `json:"currency"`
		CreatedAt      string      `json:"created_at"`
		LandingSite    string      `json:"landing_site"`
		NoteAttributes []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"note_attributes"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEventPayloadInvalid, err)
	}

	orderID := strings.TrimSpace(body.Name)
	if orderID == "" {
		orderID = body.OrderNumber.String()
		if orderID == "" {
			orderID = body.ID.String()
		}
	}

	event := &webhookConversion{
		ExternalEventID: strings.TrimSpace(hint.ExternalEventID),
		EventType:       strings.TrimSpace(hint.EventType),
		OrderID:         orderID,
		Currency:        body.Currency,
		OccurredAt:      parseWebhookTime(body.CreatedAt),
		Refund:          strings.Contains(strings.ToLower(hint.EventType), "refund"),
	}
	// Shopify 的事件ID仅随 X-Shopify-Webhook-Id 请求头投递，报文内兜底用订单号。
	if event.ExternalEventID == "" {
		event.ExternalEventID = orderID
	}

	for _, attribute := range body.NoteAttributes {
		switch strings.ToLower(strings.TrimSpace(attribute.Name)) {
		case "subid", "ref_subid":
			event.Subid = strings.TrimSpace(attribute.Value)
		case "device_id":
			event.DeviceID = strings.TrimSpace(attribute.Value)
		case "ip_hash":
			event.IPHash = strings.TrimSpace(attribute.Value)
		}
	}
	if event.Subid == "" {
		event.Subid = extractQueryParam(body.LandingSite, "subid")
	}

	var err error
	if event.Subtotal, err = parseWebhookAmountString(body.SubtotalPrice); err != nil {
		return nil, err
	}
	if event.Tax, err = parseWebhookAmountString(body.TotalTax); err != nil {
		return nil, err
	}
	if event.Shipping, err = parseWebhookAmountString(body.TotalShipping); err != nil {
		return nil, err
	}
	if event.Total, err = parseWebhookAmountString(body.TotalPrice); err != nil {
		return nil, err
	}
	return event, nil
}

func parseImpactPayload(payload []byte, _ WebhookEventHint) (*webhookConversion, error) {
	var body struct {
		EventID   string          `json:"EventId"`
		ActionID  string          `json:"ActionId"`
		EventType string          `json:"EventType"`
		OrderID   string          `json:"OrderId"`
		Amount    json.RawMessage `json:"Amount"`
		Currency  string          `json:"Currency"`
		EventDate string          `json:"EventDate"`
		SubID1    string          `json:"SubId1"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEventPayloadInvalid, err)
	}

	eventID := strings.TrimSpace(body.EventID)
	if eventID == "" {
		eventID = strings.TrimSpace(body.ActionID)
	}

	event := &webhookConversion{
		ExternalEventID: eventID,
		EventType:       strings.TrimSpace(body.EventType),
		OrderID:         strings.TrimSpace(body.OrderID),
		Currency:        body.Currency,
		Subid:           strings.TrimSpace(body.SubID1),
		OccurredAt:      parseWebhookTime(body.EventDate),
		Refund:          strings.Contains(strings.ToLower(body.EventType), "refund") || strings.Contains(strings.ToLower(body.EventType), "reversal"),
	}

	var err error
	if event.Total, err = parseWebhookAmount(body.Amount); err != nil {
		return nil, err
	}
	event.Subtotal = event.Total
	return event, nil
}

func parseLevantaPayload(payload []byte, _ WebhookEventHint) (*webhookConversion, error) {
	var body struct {
		EventID   string          `json:"eventId"`
		EventType string          `json:"eventType"`
		OrderID   string          `json:"orderId"`
		Amount    json.RawMessage `json:"amount"`
		Currency  string          `json:"currency"`
		Timestamp string          `json:"timestamp"`
		Tag       string          `json:"tag"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEventPayloadInvalid, err)
	}

	event := &webhookConversion{
		ExternalEventID: strings.TrimSpace(body.EventID),
		EventType:       strings.TrimSpace(body.EventType),
		OrderID:         strings.TrimSpace(body.OrderID),
		Currency:        body.Currency,
		Subid:           strings.TrimSpace(body.Tag),
		OccurredAt:      parseWebhookTime(body.Timestamp),
		Refund:          strings.Contains(strings.ToLower(body.EventType), "refund"),
	}

	var err error
	if event.Total, err = parseWebhookAmount(body.Amount); err != nil {
		return nil, err
	}
	event.Subtotal = event.Total
	return event, nil
}

// parseWebhookAmount 解析金额字段，兼容数字与字符串两种投递格式
func parseWebhookAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return parseWebhookAmountString(asString)
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return parseWebhookAmountString(asNumber.String())
	}
	return decimal.Zero, fmt.Errorf("%w: invalid amount %s", ErrEventPayloadInvalid, string(raw))
}

func parseWebhookAmountString(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", ErrEventPayloadInvalid, value)
	}
	return amount.Round(2), nil
}

// parseWebhookTime 解析事件时间，兼容 RFC3339 与常见日期时间格式
func parseWebhookTime(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func extractQueryParam(rawURL, key string) string {
	if rawURL == "" || key == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.Query().Get(key))
}
