package service

import (
	"context"
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

func setupPayoutServiceTest(t *testing.T) (*PayoutService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payout_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Influencer{},
		&models.Commission{},
		&models.PayoutBatch{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	svc := NewPayoutService(
		repository.NewPayoutRepository(db),
		repository.NewCommissionRepository(db),
		repository.NewInfluencerRepository(db),
		NewSettingService(repository.NewSettingRepository(db)),
		nil,
	)
	return svc, db
}

func createPayoutTestInfluencer(t *testing.T, db *gorm.DB, status string) *models.Influencer {
	t.Helper()
	influencer := &models.Influencer{
		ExternalID:    fmt.Sprintf("payout-ext-%d", time.Now().UnixNano()),
		Email:         fmt.Sprintf("payout_%d@example.com", time.Now().UnixNano()),
		PasswordHash:  "hash",
		PayoutAccount: "acct-001",
		Status:        status,
	}
	if err := db.Create(influencer).Error; err != nil {
		t.Fatalf("create influencer failed: %v", err)
	}
	return influencer
}

func createApprovedCommission(t *testing.T, db *gorm.DB, influencerID uint, conversionID uint, net decimal.Decimal) *models.Commission {
	t.Helper()
	now := time.Now()
	commission := &models.Commission{
		ConversionID:   conversionID,
		InfluencerID:   influencerID,
		ProgramID:      1,
		OrderAmount:    models.NewMoneyFromDecimal(net.Mul(decimal.NewFromInt(10))),
		CommissionType: constants.CommissionTypePercent,
		NetAmount:      models.NewMoneyFromDecimal(net),
		Status:         constants.CommissionStatusApproved,
		ApprovedAt:     &now,
	}
	if err := db.Create(commission).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}
	return commission
}

func TestPayoutCreateBatchClaimsCommissions(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	influencer := createPayoutTestInfluencer(t, db, constants.InfluencerStatusActive)
	createApprovedCommission(t, db, influencer.ID, 1, decimal.NewFromInt(30))
	createApprovedCommission(t, db, influencer.ID, 2, decimal.NewFromInt(25))

	batch, err := svc.CreateBatch(influencer.ID)
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	if !batch.TotalAmount.Decimal.Equal(decimal.NewFromInt(55)) {
		t.Fatalf("expected total 55, got %s", batch.TotalAmount.String())
	}
	if batch.CommissionCount != 2 {
		t.Fatalf("expected 2 commissions, got %d", batch.CommissionCount)
	}
	if batch.Status != constants.PayoutBatchStatusPending {
		t.Fatalf("expected pending batch, got %s", batch.Status)
	}
	if batch.Channel != constants.PayoutChannelManual {
		t.Fatalf("expected manual channel without provider, got %s", batch.Channel)
	}

	var claimed int64
	db.Model(&models.Commission{}).Where("payout_batch_id = ?", batch.ID).Count(&claimed)
	if claimed != 2 {
		t.Fatalf("expected commissions claimed into batch, got %d", claimed)
	}

	// 已入批佣金不能再次创建批次
	if _, err := svc.CreateBatch(influencer.ID); !errors.Is(err, ErrPayoutBelowMinimum) {
		t.Fatalf("expected below minimum after claiming, got: %v", err)
	}
}

func TestPayoutCreateBatchBelowMinimum(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	influencer := createPayoutTestInfluencer(t, db, constants.InfluencerStatusActive)
	createApprovedCommission(t, db, influencer.ID, 3, decimal.NewFromFloat(49.99))

	if _, err := svc.CreateBatch(influencer.ID); !errors.Is(err, ErrPayoutBelowMinimum) {
		t.Fatalf("expected below minimum, got: %v", err)
	}
}

func TestPayoutCreateBatchDisabledInfluencer(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	influencer := createPayoutTestInfluencer(t, db, constants.InfluencerStatusDisabled)
	createApprovedCommission(t, db, influencer.ID, 4, decimal.NewFromInt(100))

	if _, err := svc.CreateBatch(influencer.ID); !errors.Is(err, ErrInfluencerDisabled) {
		t.Fatalf("expected influencer disabled, got: %v", err)
	}
}

func TestPayoutClaimableSummary(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	influencer := createPayoutTestInfluencer(t, db, constants.InfluencerStatusActive)
	createApprovedCommission(t, db, influencer.ID, 5, decimal.NewFromInt(20))
	createApprovedCommission(t, db, influencer.ID, 6, decimal.NewFromInt(20))

	summary, err := svc.GetClaimableSummary(influencer.ID)
	if err != nil {
		t.Fatalf("claimable summary failed: %v", err)
	}
	if !summary.ClaimableAmount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected claimable 40, got %s", summary.ClaimableAmount.String())
	}
	if summary.ClaimableCount != 2 {
		t.Fatalf("expected 2 claimable, got %d", summary.ClaimableCount)
	}
	if summary.Eligible {
		t.Fatalf("expected ineligible below default minimum")
	}

	createApprovedCommission(t, db, influencer.ID, 7, decimal.NewFromInt(15))
	summary, err = svc.GetClaimableSummary(influencer.ID)
	if err != nil {
		t.Fatalf("claimable summary failed: %v", err)
	}
	if !summary.Eligible {
		t.Fatalf("expected eligible at 55 over 50 minimum")
	}
}

func TestPayoutMarkPaidSettlesCommissions(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	influencer := createPayoutTestInfluencer(t, db, constants.InfluencerStatusActive)
	first := createApprovedCommission(t, db, influencer.ID, 8, decimal.NewFromInt(30))
	second := createApprovedCommission(t, db, influencer.ID, 9, decimal.NewFromInt(30))

	batch, err := svc.CreateBatch(influencer.ID)
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	paid, err := svc.MarkPaid(batch.ID)
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if paid.Status != constants.PayoutBatchStatusPaid || paid.PaidAt == nil {
		t.Fatalf("expected paid batch with timestamp, got: %+v", paid)
	}

	for _, id := range []uint{first.ID, second.ID} {
		var commission models.Commission
		if err := db.First(&commission, id).Error; err != nil {
			t.Fatalf("reload commission failed: %v", err)
		}
		if commission.Status != constants.CommissionStatusPaid || commission.PaidAt == nil {
			t.Fatalf("expected paid commission, got: %+v", commission)
		}
	}

	// paid 为终态
	if _, err := svc.MarkPaid(batch.ID); !errors.Is(err, ErrPayoutBatchStatusInvalid) {
		t.Fatalf("expected status invalid on repaid batch, got: %v", err)
	}
}

func TestPayoutMarkFailedThenPaidRejected(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	influencer := createPayoutTestInfluencer(t, db, constants.InfluencerStatusActive)
	createApprovedCommission(t, db, influencer.ID, 10, decimal.NewFromInt(60))

	batch, err := svc.CreateBatch(influencer.ID)
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	failed, err := svc.MarkFailed(batch.ID, "bank rejected transfer")
	if err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	if failed.Status != constants.PayoutBatchStatusFailed || failed.FailReason != "bank rejected transfer" {
		t.Fatalf("unexpected failed batch: %+v", failed)
	}
	if _, err := svc.MarkPaid(batch.ID); !errors.Is(err, ErrPayoutBatchStatusInvalid) {
		t.Fatalf("expected status invalid from failed, got: %v", err)
	}
}

func TestPayoutExecuteWithoutProvider(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	influencer := createPayoutTestInfluencer(t, db, constants.InfluencerStatusActive)
	createApprovedCommission(t, db, influencer.ID, 11, decimal.NewFromInt(60))

	batch, err := svc.CreateBatch(influencer.ID)
	if err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	if _, err := svc.ExecuteBatch(context.Background(), batch.ID); !errors.Is(err, ErrPayoutChannelUnavailable) {
		t.Fatalf("expected channel unavailable, got: %v", err)
	}
}
