package service

import (
	"errors"
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

func setupWebhookServiceTest(t *testing.T) (*WebhookService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:webhook_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		&models.WebhookEvent{},
		&models.Conversion{},
		&models.Attribution{},
		&models.Commission{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	linkRepo := repository.NewLinkRepository(db)
	attributionRepo := repository.NewAttributionRepository(db)
	settingService := NewSettingService(repository.NewSettingRepository(db))
	attributionService := NewAttributionService(linkRepo, attributionRepo, settingService)
	commissionService := NewCommissionService(repository.NewCommissionRepository(db), settingService)
	svc := NewWebhookService(
		repository.NewWebhookEventRepository(db),
		repository.NewConversionRepository(db),
		linkRepo,
		attributionService,
		commissionService,
		nil,
		nil,
	)
	return svc, db
}

// seedWebhookLink 准备一条可归因的短链（refersion 网络，10% 佣金）
func seedWebhookLink(t *testing.T, db *gorm.DB, slug string) *models.TrackingLink {
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
		CookieWindowDays: 7,
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

func refersionPayload(eventID, orderID, total, subid string) []byte {
	return []byte(fmt.Sprintf(
		`{"event_id":%q,"event_type":"conversion.created","order_id":%q,"total":%q,"currency":"USD","subid":%q}`,
		eventID, orderID, total, subid,
	))
}

func TestWebhookProcessSubidAttribution(t *testing.T) {
	svc, db := setupWebhookServiceTest(t)
	link := seedWebhookLink(t, db, "hookwin")

	result, err := svc.Process(WebhookProcessInput{
		Source:  constants.WebhookSourceRefersion,
		Payload: refersionPayload("evt-1", "ORD-100", "100.00", "prefix01_hookwin_1700000000"),
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.Duplicate || result.Unattributed {
		t.Fatalf("unexpected result flags: %+v", result)
	}
	if result.Conversion == nil || result.Conversion.Status != constants.ConversionStatusPending {
		t.Fatalf("expected pending conversion awaiting review, got: %+v", result.Conversion)
	}
	if result.Attribution == nil || result.Attribution.MatchType != constants.MatchTypeSubid {
		t.Fatalf("expected subid attribution, got: %+v", result.Attribution)
	}
	if result.Commission == nil {
		t.Fatalf("expected commission to be minted")
	}
	if !result.Commission.GrossAmount.Decimal.Equal(decimal.NewFromFloat(10.00)) {
		t.Fatalf("expected gross 10.00, got %s", result.Commission.GrossAmount.String())
	}
	if !result.Commission.PlatformFee.Decimal.Equal(decimal.NewFromFloat(2.00)) {
		t.Fatalf("expected fee 2.00, got %s", result.Commission.PlatformFee.String())
	}
	if !result.Commission.NetAmount.Decimal.Equal(decimal.NewFromFloat(8.00)) {
		t.Fatalf("expected net 8.00, got %s", result.Commission.NetAmount.String())
	}

	var refreshed models.TrackingLink
	if err := db.First(&refreshed, link.ID).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	if refreshed.TotalConversions != 1 {
		t.Fatalf("expected link conversion counter 1, got %d", refreshed.TotalConversions)
	}
}

func TestWebhookProcessDuplicateEvent(t *testing.T) {
	svc, db := setupWebhookServiceTest(t)
	seedWebhookLink(t, db, "hookdup")
	payload := refersionPayload("evt-dup", "ORD-200", "50.00", "prefix01_hookdup_1700000000")

	first, err := svc.Process(WebhookProcessInput{Source: constants.WebhookSourceRefersion, Payload: payload})
	if err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	second, err := svc.Process(WebhookProcessInput{Source: constants.WebhookSourceRefersion, Payload: payload})
	if err != nil {
		t.Fatalf("second delivery failed: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("expected duplicate flag on redelivery")
	}
	if second.Conversion == nil || second.Conversion.ID != first.Conversion.ID {
		t.Fatalf("expected redelivery to return original conversion")
	}

	var conversionCount, commissionCount int64
	db.Model(&models.Conversion{}).Count(&conversionCount)
	db.Model(&models.Commission{}).Count(&commissionCount)
	if conversionCount != 1 || commissionCount != 1 {
		t.Fatalf("expected single conversion and commission, got %d/%d", conversionCount, commissionCount)
	}
}

func TestWebhookProcessSameOrderDifferentSources(t *testing.T) {
	svc, db := setupWebhookServiceTest(t)
	seedWebhookLink(t, db, "hookiso")

	if _, err := svc.Process(WebhookProcessInput{
		Source:  constants.WebhookSourceRefersion,
		Payload: refersionPayload("evt-iso-1", "ORD-300", "40.00", ""),
	}); err != nil {
		t.Fatalf("refersion delivery failed: %v", err)
	}
	if _, err := svc.Process(WebhookProcessInput{
		Source:  constants.WebhookSourceLevanta,
		Payload: []byte(`{"eventId":"evt-iso-1","eventType":"sale","orderId":"ORD-300","amount":"40.00","currency":"USD"}`),
	}); err != nil {
		t.Fatalf("levanta delivery failed: %v", err)
	}

	var conversionCount int64
	db.Model(&models.Conversion{}).Count(&conversionCount)
	if conversionCount != 2 {
		t.Fatalf("expected per-source conversion rows, got %d", conversionCount)
	}
}

func TestWebhookProcessSecondEventRefreshesConversion(t *testing.T) {
	svc, db := setupWebhookServiceTest(t)
	seedWebhookLink(t, db, "hookupd")

	first, err := svc.Process(WebhookProcessInput{
		Source:  constants.WebhookSourceRefersion,
		Payload: refersionPayload("evt-upd-1", "ORD-600", "100.00", "prefix01_hookupd_1700000000"),
	})
	if err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}

	// 同单不同事件：刷新金额字段，不重跑归因也不再记佣
	second, err := svc.Process(WebhookProcessInput{
		Source:  constants.WebhookSourceRefersion,
		Payload: refersionPayload("evt-upd-2", "ORD-600", "120.00", "prefix01_hookupd_1700000000"),
	})
	if err != nil {
		t.Fatalf("second delivery failed: %v", err)
	}
	if second.Duplicate {
		t.Fatalf("distinct event must not be flagged duplicate")
	}
	if second.Conversion == nil || second.Conversion.ID != first.Conversion.ID {
		t.Fatalf("expected second event to land on original conversion")
	}

	var conversion models.Conversion
	if err := db.First(&conversion, first.Conversion.ID).Error; err != nil {
		t.Fatalf("reload conversion failed: %v", err)
	}
	if !conversion.Total.Decimal.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected refreshed total 120, got %s", conversion.Total.String())
	}

	var conversionCount, commissionCount int64
	db.Model(&models.Conversion{}).Count(&conversionCount)
	db.Model(&models.Commission{}).Count(&commissionCount)
	if conversionCount != 1 || commissionCount != 1 {
		t.Fatalf("expected single conversion and commission, got %d/%d", conversionCount, commissionCount)
	}
}

func TestWebhookProcessUnattributed(t *testing.T) {
	svc, db := setupWebhookServiceTest(t)
	seedWebhookLink(t, db, "hooknone")

	result, err := svc.Process(WebhookProcessInput{
		Source:  constants.WebhookSourceRefersion,
		Payload: refersionPayload("evt-none", "ORD-400", "75.00", ""),
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !result.Unattributed {
		t.Fatalf("expected unattributed result")
	}
	// 无归因转化保持 pending，等待人工复核
	if result.Conversion == nil || result.Conversion.Status != constants.ConversionStatusPending {
		t.Fatalf("expected pending conversion, got: %+v", result.Conversion)
	}
	if result.Commission != nil {
		t.Fatalf("expected no commission for unattributed conversion")
	}
	var attributionCount int64
	db.Model(&models.Attribution{}).Count(&attributionCount)
	if attributionCount != 0 {
		t.Fatalf("expected zero attributions, got %d", attributionCount)
	}

	var commissionCount int64
	db.Model(&models.Commission{}).Count(&commissionCount)
	if commissionCount != 0 {
		t.Fatalf("expected zero commissions, got %d", commissionCount)
	}
}

func TestWebhookProcessRefundRollsBackCommission(t *testing.T) {
	svc, db := setupWebhookServiceTest(t)
	seedWebhookLink(t, db, "hookref")

	created, err := svc.Process(WebhookProcessInput{
		Source:  constants.WebhookSourceRefersion,
		Payload: refersionPayload("evt-ref-1", "ORD-500", "80.00", "prefix01_hookref_1700000000"),
	})
	if err != nil {
		t.Fatalf("conversion delivery failed: %v", err)
	}
	if created.Commission == nil {
		t.Fatalf("expected commission before refund")
	}

	refund, err := svc.Process(WebhookProcessInput{
		Source:  constants.WebhookSourceRefersion,
		Payload: []byte(`{"event_id":"evt-ref-2","event_type":"conversion.refunded","order_id":"ORD-500","total":"80.00"}`),
	})
	if err != nil {
		t.Fatalf("refund delivery failed: %v", err)
	}
	if refund.Conversion == nil || refund.Conversion.ID != created.Conversion.ID {
		t.Fatalf("expected refund to target original conversion")
	}

	var conversion models.Conversion
	if err := db.First(&conversion, created.Conversion.ID).Error; err != nil {
		t.Fatalf("reload conversion failed: %v", err)
	}
	if conversion.Status != constants.ConversionStatusRefunded {
		t.Fatalf("expected refunded conversion, got %s", conversion.Status)
	}
	var commission models.Commission
	if err := db.First(&commission, created.Commission.ID).Error; err != nil {
		t.Fatalf("reload commission failed: %v", err)
	}
	if commission.Status != constants.CommissionStatusRefunded {
		t.Fatalf("expected refunded commission, got %s", commission.Status)
	}
}

func TestWebhookProcessRefundUnknownOrder(t *testing.T) {
	svc, _ := setupWebhookServiceTest(t)

	result, err := svc.Process(WebhookProcessInput{
		Source:  constants.WebhookSourceRefersion,
		Payload: []byte(`{"event_id":"evt-ref-miss","event_type":"refund","order_id":"ORD-MISSING","total":"10.00"}`),
	})
	if err != nil {
		t.Fatalf("refund delivery failed: %v", err)
	}
	if result.Conversion != nil {
		t.Fatalf("expected no conversion for unknown order")
	}
	if result.Reason == "" {
		t.Fatalf("expected miss reason to be recorded")
	}
}

func TestWebhookProcessUnsupportedSource(t *testing.T) {
	svc, _ := setupWebhookServiceTest(t)
	if _, err := svc.Process(WebhookProcessInput{Source: "unknown", Payload: []byte(`{}`)}); !errors.Is(err, ErrUnsupportedSource) {
		t.Fatalf("expected unsupported source error, got: %v", err)
	}
}

func TestWebhookProcessInvalidPayload(t *testing.T) {
	svc, db := setupWebhookServiceTest(t)
	if _, err := svc.Process(WebhookProcessInput{
		Source:  constants.WebhookSourceRefersion,
		Payload: []byte(`{"event_type":"conversion.created","total":"10.00"}`),
	}); !errors.Is(err, ErrEventPayloadInvalid) {
		t.Fatalf("expected payload invalid error, got: %v", err)
	}

	var eventCount int64
	db.Model(&models.WebhookEvent{}).Count(&eventCount)
	if eventCount != 0 {
		t.Fatalf("rejected payload must not be stored, got %d events", eventCount)
	}
}
