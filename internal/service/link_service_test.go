package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/skinstack-core/internal/config"
	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/queue"
	"github.com/skinstack-core/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupLinkServiceTest(t *testing.T) (*LinkService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:link_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Merchant{},
		&models.Program{},
		&models.Product{},
		&models.Influencer{},
		&models.TrackingLink{},
		&models.Click{},
		&models.Attribution{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	svc := NewLinkService(
		repository.NewLinkRepository(db),
		repository.NewProgramRepository(db),
		repository.NewInfluencerRepository(db),
		repository.NewAttributionRepository(db),
		config.LinkConfig{SlugLength: 8},
		nil,
	)
	return svc, db
}

func seedLinkGraph(t *testing.T, db *gorm.DB, network, programStatus, influencerStatus string) (*models.Influencer, *models.Program) {
	t.Helper()
	merchant := models.Merchant{Name: "merchant-" + network, IntegrationType: network}
	if err := db.Create(&merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	program := &models.Program{
		MerchantID:       merchant.ID,
		Name:             "program-" + network,
		Network:          network,
		CommissionType:   constants.CommissionTypePercent,
		CommissionValue:  models.NewMoneyFromDecimal(decimal.NewFromFloat(0.10)),
		CookieWindowDays: 7,
		Status:           programStatus,
	}
	if err := db.Create(program).Error; err != nil {
		t.Fatalf("create program failed: %v", err)
	}
	influencer := &models.Influencer{
		ExternalID:   "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		Email:        network + "@example.com",
		PasswordHash: "hash",
		Status:       influencerStatus,
	}
	if err := db.Create(influencer).Error; err != nil {
		t.Fatalf("create influencer failed: %v", err)
	}
	return influencer, program
}

func TestBuildSubidFormat(t *testing.T) {
	at := time.Unix(1700000000, 0)
	subid := BuildSubid("1b4e28ba-2fa1-11d2-883f-0016d3cca427", "Xy7kPq2w", at)
	if subid != "1b4e28ba_Xy7kPq2w_1700000000" {
		t.Fatalf("unexpected subid: %s", subid)
	}

	prefix, slug, ts, ok := ParseSubid(subid)
	if !ok || prefix != "1b4e28ba" || slug != "Xy7kPq2w" || ts != at.Unix() {
		t.Fatalf("subid did not round trip: %s %s %d %v", prefix, slug, ts, ok)
	}
}

func TestCreateLinkAppendsTrackingParams(t *testing.T) {
	svc, db := setupLinkServiceTest(t)
	influencer, program := seedLinkGraph(t, db, constants.WebhookSourceRefersion, constants.ProgramStatusActive, constants.InfluencerStatusActive)

	link, err := svc.CreateLink(LinkCreateInput{
		InfluencerID:   influencer.ID,
		ProgramID:      program.ID,
		DestinationURL: "https://shop.example.com/p/1",
		UTMSource:      "instagram",
		UTMMedium:      "social",
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if len(link.Slug) != 8 {
		t.Fatalf("expected slug length 8, got %q", link.Slug)
	}
	if !strings.Contains(link.DestinationURL, "ref="+link.Subid) {
		t.Fatalf("expected refersion tracking param in destination, got %s", link.DestinationURL)
	}
	if !strings.Contains(link.DestinationURL, "utm_source=instagram") {
		t.Fatalf("expected utm params in destination, got %s", link.DestinationURL)
	}

	prefix, slug, _, ok := ParseSubid(link.Subid)
	if !ok || slug != link.Slug {
		t.Fatalf("subid %q does not embed slug %q", link.Subid, link.Slug)
	}
	if prefix != "1b4e28ba" {
		t.Fatalf("unexpected subid prefix: %s", prefix)
	}
}

func TestCreateLinkImpactTrackingParam(t *testing.T) {
	svc, db := setupLinkServiceTest(t)
	influencer, program := seedLinkGraph(t, db, constants.WebhookSourceImpact, constants.ProgramStatusActive, constants.InfluencerStatusActive)

	link, err := svc.CreateLink(LinkCreateInput{
		InfluencerID:   influencer.ID,
		ProgramID:      program.ID,
		DestinationURL: "https://shop.example.com/p/2",
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if !strings.Contains(link.DestinationURL, "irpid=") {
		t.Fatalf("expected impact tracking param, got %s", link.DestinationURL)
	}
}

func TestCreateLinkProgramDisabled(t *testing.T) {
	svc, db := setupLinkServiceTest(t)
	influencer, program := seedLinkGraph(t, db, constants.WebhookSourceRefersion, constants.ProgramStatusDisabled, constants.InfluencerStatusActive)

	_, err := svc.CreateLink(LinkCreateInput{
		InfluencerID:   influencer.ID,
		ProgramID:      program.ID,
		DestinationURL: "https://shop.example.com/p/1",
	})
	if !errors.Is(err, ErrProgramDisabled) {
		t.Fatalf("expected program disabled, got: %v", err)
	}
}

func TestCreateLinkInfluencerDisabled(t *testing.T) {
	svc, db := setupLinkServiceTest(t)
	influencer, program := seedLinkGraph(t, db, constants.WebhookSourceRefersion, constants.ProgramStatusActive, constants.InfluencerStatusDisabled)

	_, err := svc.CreateLink(LinkCreateInput{
		InfluencerID:   influencer.ID,
		ProgramID:      program.ID,
		DestinationURL: "https://shop.example.com/p/1",
	})
	if !errors.Is(err, ErrInfluencerDisabled) {
		t.Fatalf("expected influencer disabled, got: %v", err)
	}
}

func TestCreateLinkMissingDestination(t *testing.T) {
	svc, db := setupLinkServiceTest(t)
	influencer, program := seedLinkGraph(t, db, constants.WebhookSourceRefersion, constants.ProgramStatusActive, constants.InfluencerStatusActive)

	_, err := svc.CreateLink(LinkCreateInput{
		InfluencerID: influencer.ID,
		ProgramID:    program.ID,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got: %v", err)
	}
}

func TestRecordClickIncrementsCounter(t *testing.T) {
	svc, db := setupLinkServiceTest(t)
	influencer, program := seedLinkGraph(t, db, constants.WebhookSourceRefersion, constants.ProgramStatusActive, constants.InfluencerStatusActive)

	link, err := svc.CreateLink(LinkCreateInput{
		InfluencerID:   influencer.ID,
		ProgramID:      program.ID,
		DestinationURL: "https://shop.example.com/p/1",
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	if err := svc.RecordClick(queue.ClickRecordPayload{
		TrackingLinkID: link.ID,
		DeviceID:       "device-1",
		IPHash:         HashClientIP("203.0.113.7"),
		UserAgent:      "Mozilla/5.0 (iPhone)",
		Subid:          link.Subid,
		ClickedAt:      time.Now(),
	}); err != nil {
		t.Fatalf("record click failed: %v", err)
	}

	var clickCount int64
	db.Model(&models.Click{}).Where("tracking_link_id = ?", link.ID).Count(&clickCount)
	if clickCount != 1 {
		t.Fatalf("expected 1 click, got %d", clickCount)
	}
	var refreshed models.TrackingLink
	if err := db.First(&refreshed, link.ID).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	if refreshed.TotalClicks != 1 {
		t.Fatalf("expected click counter 1, got %d", refreshed.TotalClicks)
	}
}

func TestHashClientIP(t *testing.T) {
	if HashClientIP("") != "" {
		t.Fatalf("expected empty hash for empty ip")
	}
	first := HashClientIP("203.0.113.7")
	second := HashClientIP("203.0.113.7")
	if first != second {
		t.Fatalf("expected deterministic hash")
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}
	if first == "203.0.113.7" || strings.Contains(first, ".") {
		t.Fatalf("raw ip must not leak: %s", first)
	}
}

func TestDetectClickPlatform(t *testing.T) {
	if got := detectClickPlatform("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile"); got != constants.ClickPlatformMobile {
		t.Fatalf("expected mobile, got %s", got)
	}
	if got := detectClickPlatform("Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)"); got != constants.ClickPlatformTablet {
		t.Fatalf("expected tablet, got %s", got)
	}
	if got := detectClickPlatform("Mozilla/5.0 (Windows NT 10.0; Win64; x64)"); got != constants.ClickPlatformDesktop {
		t.Fatalf("expected desktop, got %s", got)
	}
}

func TestScoreClickFraud(t *testing.T) {
	if got := scoreClickFraud("curl/8.0"); got != 1.0 {
		t.Fatalf("expected bot score 1.0, got %f", got)
	}
	if got := scoreClickFraud(""); got != 0.5 {
		t.Fatalf("expected suspicious score 0.5, got %f", got)
	}
	if got := scoreClickFraud("Mozilla/5.0 (Windows NT 10.0)"); got != 0 {
		t.Fatalf("expected neutral score 0, got %f", got)
	}
}
