package service

import (
	"testing"

	"github.com/skinstack-core/internal/models"
)

type mockSettingRepo struct {
	store map[string]models.JSON
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{store: map[string]models.JSON{}}
}

func (m *mockSettingRepo) GetByKey(key string) (*models.Setting, error) {
	value, ok := m.store[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func (m *mockSettingRepo) Upsert(key string, value models.JSON) (*models.Setting, error) {
	m.store[key] = value
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func TestAttributionDefaultSetting(t *testing.T) {
	setting := AttributionDefaultSetting()
	if setting.PlatformFeeRate != 0.20 {
		t.Fatalf("expected default fee rate 0.20, got %v", setting.PlatformFeeRate)
	}
	if setting.MinPayoutAmount != 50.0 {
		t.Fatalf("expected default min payout 50.00, got %v", setting.MinPayoutAmount)
	}
	if setting.DefaultCookieWindowDays != 7 {
		t.Fatalf("expected default cookie window 7, got %d", setting.DefaultCookieWindowDays)
	}
}

func TestNormalizeAttributionSetting(t *testing.T) {
	setting := NormalizeAttributionSetting(AttributionSetting{
		PlatformFeeRate:         1.5,
		MinPayoutAmount:         -10,
		DefaultCookieWindowDays: 0,
	})
	if setting.PlatformFeeRate != 1.0 {
		t.Fatalf("expected fee rate clamped to 1.0, got %v", setting.PlatformFeeRate)
	}
	if setting.MinPayoutAmount != 0 {
		t.Fatalf("expected min payout clamped to 0, got %v", setting.MinPayoutAmount)
	}
	if setting.DefaultCookieWindowDays != 7 {
		t.Fatalf("expected cookie window fallback 7, got %d", setting.DefaultCookieWindowDays)
	}

	capped := NormalizeAttributionSetting(AttributionSetting{
		PlatformFeeRate:         0.2,
		MinPayoutAmount:         50,
		DefaultCookieWindowDays: 1000,
	})
	if capped.DefaultCookieWindowDays != 365 {
		t.Fatalf("expected cookie window capped at 365, got %d", capped.DefaultCookieWindowDays)
	}
}

func TestGetAttributionSettingFallback(t *testing.T) {
	svc := NewSettingService(newMockSettingRepo())
	setting, err := svc.GetAttributionSetting()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if setting.PlatformFeeRate != 0.20 || setting.DefaultCookieWindowDays != 7 {
		t.Fatalf("expected defaults, got %+v", setting)
	}
}

func TestUpdateAttributionSettingRoundTrip(t *testing.T) {
	svc := NewSettingService(newMockSettingRepo())
	updated, err := svc.UpdateAttributionSetting(AttributionSetting{
		PlatformFeeRate:         0.15,
		MinPayoutAmount:         100,
		DefaultCookieWindowDays: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.PlatformFeeRate != 0.15 {
		t.Fatalf("expected fee rate 0.15, got %v", updated.PlatformFeeRate)
	}

	loaded, err := svc.GetAttributionSetting()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.PlatformFeeRate != 0.15 || loaded.MinPayoutAmount != 100 || loaded.DefaultCookieWindowDays != 30 {
		t.Fatalf("expected stored setting round trip, got %+v", loaded)
	}
}

func TestAttributionSettingFromJSONStringValues(t *testing.T) {
	raw := models.JSON{
		"platform_fee_rate":          "0.25",
		"min_payout_amount":          "75.50",
		"default_cookie_window_days": "14",
	}
	setting := attributionSettingFromJSON(raw, AttributionDefaultSetting())
	if setting.PlatformFeeRate != 0.25 {
		t.Fatalf("expected fee rate 0.25, got %v", setting.PlatformFeeRate)
	}
	if setting.MinPayoutAmount != 75.50 {
		t.Fatalf("expected min payout 75.50, got %v", setting.MinPayoutAmount)
	}
	if setting.DefaultCookieWindowDays != 14 {
		t.Fatalf("expected cookie window 14, got %d", setting.DefaultCookieWindowDays)
	}
}
