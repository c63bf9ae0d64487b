package service

import (
	"testing"

	"github.com/skinstack-core/internal/constants"
)

func TestUpdateSiteSettingNormalized(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update(constants.SettingKeySiteConfig, map[string]interface{}{
		"brand": map[string]interface{}{
			"site_name":    "  SkinStack  ",
			"short_domain": "  https://sk.st  ",
		},
		"contact": map[string]interface{}{
			"email":    "  ops@example.com  ",
			"telegram": 123,
		},
		"scripts": []interface{}{
			map[string]interface{}{
				"name":     "analytics",
				"enabled":  "true",
				"position": "footer",
				"code":     "<script>track()</script>",
			},
			map[string]interface{}{
				"name": "empty",
				"code": "   ",
			},
		},
		"extra": "keep",
	})
	if err != nil {
		t.Fatalf("update site config failed: %v", err)
	}

	brand, ok := result["brand"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected brand map, got %T", result["brand"])
	}
	if brand["site_name"] != "SkinStack" {
		t.Fatalf("unexpected site_name: %v", brand["site_name"])
	}
	if brand["short_domain"] != "https://sk.st" {
		t.Fatalf("unexpected short_domain: %v", brand["short_domain"])
	}

	contact, ok := result["contact"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected contact map, got %T", result["contact"])
	}
	if contact["email"] != "ops@example.com" {
		t.Fatalf("unexpected email: %v", contact["email"])
	}
	if contact["telegram"] != "" {
		t.Fatalf("expected non-string telegram dropped, got %v", contact["telegram"])
	}

	scripts, ok := result["scripts"].([]interface{})
	if !ok {
		t.Fatalf("expected scripts list, got %T", result["scripts"])
	}
	if len(scripts) != 1 {
		t.Fatalf("expected empty-code script dropped, got %d entries", len(scripts))
	}
	script := scripts[0].(map[string]interface{})
	if script["position"] != "head" {
		t.Fatalf("expected invalid position reset to head, got %v", script["position"])
	}
	if script["enabled"] != true {
		t.Fatalf("expected enabled true, got %v", script["enabled"])
	}

	if result["extra"] != "keep" {
		t.Fatalf("unexpected extra field: %v", result["extra"])
	}
}

func TestUpdateAttributionConfigNormalized(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update(constants.SettingKeyAttributionConfig, map[string]interface{}{
		"platform_fee_rate":          "2.5",
		"min_payout_amount":          "-1",
		"default_cookie_window_days": "0",
	})
	if err != nil {
		t.Fatalf("update attribution config failed: %v", err)
	}

	rate, err := parseSettingFloat(result["platform_fee_rate"])
	if err != nil {
		t.Fatalf("parse platform_fee_rate failed: %v", err)
	}
	if rate != 1.0 {
		t.Fatalf("expected fee rate clamped to 1.0, got %v", rate)
	}
	minPayout, err := parseSettingFloat(result["min_payout_amount"])
	if err != nil {
		t.Fatalf("parse min_payout_amount failed: %v", err)
	}
	if minPayout != 0 {
		t.Fatalf("expected min payout clamped to 0, got %v", minPayout)
	}
	windowDays, err := parseSettingInt(result["default_cookie_window_days"])
	if err != nil {
		t.Fatalf("parse default_cookie_window_days failed: %v", err)
	}
	if windowDays != 7 {
		t.Fatalf("expected cookie window fallback 7, got %d", windowDays)
	}
}
