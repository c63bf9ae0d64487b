package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupAttributionServiceTest(t *testing.T) (*AttributionService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:attribution_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Merchant{},
		&models.Program{},
		&models.Influencer{},
		&models.TrackingLink{},
		&models.Click{},
		&models.Conversion{},
		&models.Attribution{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	linkRepo := repository.NewLinkRepository(db)
	attributionRepo := repository.NewAttributionRepository(db)
	settingService := NewSettingService(repository.NewSettingRepository(db))
	return NewAttributionService(linkRepo, attributionRepo, settingService), db
}

func createAttributionTestLink(t *testing.T, db *gorm.DB, slug string, cookieWindowDays int) *models.TrackingLink {
	t.Helper()
	merchant := models.Merchant{Name: "merchant-" + slug, IntegrationType: constants.WebhookSourceRefersion}
	if err := db.Create(&merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	program := models.Program{
		MerchantID:       merchant.ID,
		Name:             "program-" + slug,
		Network:          constants.WebhookSourceRefersion,
		CommissionType:   constants.CommissionTypePercent,
		CommissionValue:  models.NewMoneyFromDecimal(decimal.NewFromFloat(0.10)),
		CookieWindowDays: cookieWindowDays,
		Status:           constants.ProgramStatusActive,
	}
	if err := db.Create(&program).Error; err != nil {
		t.Fatalf("create program failed: %v", err)
	}
	influencer := models.Influencer{
		ExternalID:   "ext-" + slug,
		Email:        slug + "@example.com",
		PasswordHash: "hash",
		Status:       constants.InfluencerStatusActive,
	}
	if err := db.Create(&influencer).Error; err != nil {
		t.Fatalf("create influencer failed: %v", err)
	}
	link := &models.TrackingLink{
		ExternalID:     "link-" + slug,
		InfluencerID:   influencer.ID,
		ProgramID:      program.ID,
		Slug:           slug,
		DestinationURL: "https://shop.example.com/p/1?ref=x",
		Subid:          "prefix01_" + slug + "_1700000000",
		Active:         true,
	}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	return link
}

func createAttributionTestClick(t *testing.T, db *gorm.DB, linkID uint, deviceID, ipHash string, at time.Time) *models.Click {
	t.Helper()
	click := &models.Click{
		TrackingLinkID: linkID,
		DeviceID:       deviceID,
		IPHash:         ipHash,
		CreatedAt:      at,
	}
	if err := db.Create(click).Error; err != nil {
		t.Fatalf("create click failed: %v", err)
	}
	return click
}

func TestParseSubid(t *testing.T) {
	prefix, slug, ts, ok := ParseSubid("abcd1234_Xy7kPq2w_1700000000")
	if !ok {
		t.Fatalf("expected valid subid")
	}
	if prefix != "abcd1234" || slug != "Xy7kPq2w" || ts != 1700000000 {
		t.Fatalf("unexpected parse result: %s %s %d", prefix, slug, ts)
	}

	for _, invalid := range []string{"", "noseparator", "a_b", "a_b_c_d", "_slug_1700000000", "p__1700000000", "p_s_notanumber", "p_s_0"} {
		if _, _, _, ok := ParseSubid(invalid); ok {
			t.Fatalf("expected invalid subid: %q", invalid)
		}
	}
}

func TestAttributionSubidBeatsDevice(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)
	subidLink := createAttributionTestLink(t, db, "subidwin", 7)
	deviceLink := createAttributionTestLink(t, db, "devlose", 7)

	now := time.Now().UTC().Truncate(time.Second)
	createAttributionTestClick(t, db, deviceLink.ID, "device-1", "", now.Add(-time.Hour))

	conversion := &models.Conversion{
		Source:     constants.WebhookSourceRefersion,
		OrderID:    "ORD-1",
		OccurredAt: now,
		Subid:      "prefix01_subidwin_1690000000",
		DeviceID:   "device-1",
	}
	match, err := svc.ResolveTx(db, conversion)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !match.Matched || match.MatchType != constants.MatchTypeSubid {
		t.Fatalf("expected subid match, got: %+v", match)
	}
	if match.Link.ID != subidLink.ID {
		t.Fatalf("expected link %d, got %d", subidLink.ID, match.Link.ID)
	}
	if !match.Confidence.Equal(decimal.NewFromFloat(1.00)) {
		t.Fatalf("unexpected confidence: %s", match.Confidence.String())
	}
}

func TestAttributionDeviceWindowBoundary(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)
	link := createAttributionTestLink(t, db, "devwin", 7)

	occurredAt := time.Now().UTC().Truncate(time.Second)
	boundary := occurredAt.Add(-7 * 24 * time.Hour)
	createAttributionTestClick(t, db, link.ID, "device-boundary", "", boundary)

	conversion := &models.Conversion{
		Source:     constants.WebhookSourceRefersion,
		OrderID:    "ORD-2",
		OccurredAt: occurredAt,
		DeviceID:   "device-boundary",
	}
	match, err := svc.ResolveTx(db, conversion)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !match.Matched || match.MatchType != constants.MatchTypeDevice {
		t.Fatalf("expected boundary click to match, got: %+v", match)
	}
	if !match.Confidence.Equal(decimal.NewFromFloat(0.85)) {
		t.Fatalf("unexpected confidence: %s", match.Confidence.String())
	}
}

func TestAttributionDeviceOutsideWindow(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)
	link := createAttributionTestLink(t, db, "devout", 7)

	occurredAt := time.Now().UTC().Truncate(time.Second)
	createAttributionTestClick(t, db, link.ID, "device-stale", "", occurredAt.Add(-7*24*time.Hour).Add(-time.Second))

	conversion := &models.Conversion{
		Source:     constants.WebhookSourceRefersion,
		OrderID:    "ORD-3",
		OccurredAt: occurredAt,
		DeviceID:   "device-stale",
	}
	match, err := svc.ResolveTx(db, conversion)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if match.Matched {
		t.Fatalf("expected click outside window to miss, got: %+v", match)
	}
}

func TestAttributionDeviceLastClickWins(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)
	older := createAttributionTestLink(t, db, "older", 7)
	newer := createAttributionTestLink(t, db, "newer", 7)

	occurredAt := time.Now().UTC().Truncate(time.Second)
	createAttributionTestClick(t, db, older.ID, "device-last", "", occurredAt.Add(-48*time.Hour))
	createAttributionTestClick(t, db, newer.ID, "device-last", "", occurredAt.Add(-2*time.Hour))

	conversion := &models.Conversion{
		Source:     constants.WebhookSourceRefersion,
		OrderID:    "ORD-4",
		OccurredAt: occurredAt,
		DeviceID:   "device-last",
	}
	match, err := svc.ResolveTx(db, conversion)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !match.Matched || match.Link.ID != newer.ID {
		t.Fatalf("expected most recent click to win, got: %+v", match)
	}
}

func TestAttributionIPTimeFallback(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)
	link := createAttributionTestLink(t, db, "ipwin", 7)

	occurredAt := time.Now().UTC().Truncate(time.Second)
	createAttributionTestClick(t, db, link.ID, "", "iphash-1", occurredAt.Add(-30*time.Minute))

	conversion := &models.Conversion{
		Source:     constants.WebhookSourceRefersion,
		OrderID:    "ORD-5",
		OccurredAt: occurredAt,
		IPHash:     "iphash-1",
	}
	match, err := svc.ResolveTx(db, conversion)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !match.Matched || match.MatchType != constants.MatchTypeIPTime {
		t.Fatalf("expected ip_time match, got: %+v", match)
	}
	if !match.Confidence.Equal(decimal.NewFromFloat(0.60)) {
		t.Fatalf("unexpected confidence: %s", match.Confidence.String())
	}
}

func TestAttributionIPTimeExpired(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)
	link := createAttributionTestLink(t, db, "ipout", 7)

	occurredAt := time.Now().UTC().Truncate(time.Second)
	createAttributionTestClick(t, db, link.ID, "", "iphash-2", occurredAt.Add(-2*time.Hour))

	conversion := &models.Conversion{
		Source:     constants.WebhookSourceRefersion,
		OrderID:    "ORD-6",
		OccurredAt: occurredAt,
		IPHash:     "iphash-2",
	}
	match, err := svc.ResolveTx(db, conversion)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if match.Matched {
		t.Fatalf("expected expired ip click to miss, got: %+v", match)
	}
}

func TestAttributionNoSignals(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)
	createAttributionTestLink(t, db, "nosig", 7)

	conversion := &models.Conversion{
		Source:     constants.WebhookSourceRefersion,
		OrderID:    "ORD-7",
		OccurredAt: time.Now(),
	}
	match, err := svc.ResolveTx(db, conversion)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if match.Matched {
		t.Fatalf("expected no match, got: %+v", match)
	}
	if match.Reason == "" {
		t.Fatalf("expected unmatched reason to be recorded")
	}
}

func TestAttributionInactiveLinkSkipped(t *testing.T) {
	svc, db := setupAttributionServiceTest(t)
	link := createAttributionTestLink(t, db, "inactive", 7)
	if err := db.Model(&models.TrackingLink{}).Where("id = ?", link.ID).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate link failed: %v", err)
	}

	occurredAt := time.Now().UTC().Truncate(time.Second)
	createAttributionTestClick(t, db, link.ID, "device-inactive", "", occurredAt.Add(-time.Hour))

	conversion := &models.Conversion{
		Source:     constants.WebhookSourceRefersion,
		OrderID:    "ORD-8",
		OccurredAt: occurredAt,
		Subid:      "prefix01_inactive_1690000000",
		DeviceID:   "device-inactive",
	}
	match, err := svc.ResolveTx(db, conversion)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if match.Matched {
		t.Fatalf("expected inactive link to be skipped, got: %+v", match)
	}
}
