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

func setupCommissionServiceTest(t *testing.T) (*CommissionService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:commission_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Conversion{},
		&models.Attribution{},
		&models.Commission{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	settingService := NewSettingService(repository.NewSettingRepository(db))
	return NewCommissionService(repository.NewCommissionRepository(db), settingService), db
}

func createTestCommission(t *testing.T, db *gorm.DB, conversionID uint, status string, net decimal.Decimal) *models.Commission {
	t.Helper()
	commission := &models.Commission{
		ConversionID:   conversionID,
		InfluencerID:   1,
		ProgramID:      1,
		OrderAmount:    models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		CommissionType: constants.CommissionTypePercent,
		NetAmount:      models.NewMoneyFromDecimal(net),
		Status:         status,
	}
	if err := db.Create(commission).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}
	return commission
}

func TestComputeCommissionAmountsPercent(t *testing.T) {
	gross, fee, net := ComputeCommissionAmounts(
		decimal.NewFromFloat(100.00),
		constants.CommissionTypePercent,
		decimal.NewFromFloat(0.20),
		decimal.NewFromFloat(0.20),
	)
	if !gross.Equal(decimal.NewFromFloat(20.00)) {
		t.Fatalf("expected gross 20.00, got %s", gross.String())
	}
	if !fee.Equal(decimal.NewFromFloat(4.00)) {
		t.Fatalf("expected fee 4.00, got %s", fee.String())
	}
	if !net.Equal(decimal.NewFromFloat(16.00)) {
		t.Fatalf("expected net 16.00, got %s", net.String())
	}
}

func TestComputeCommissionAmountsFlat(t *testing.T) {
	gross, fee, net := ComputeCommissionAmounts(
		decimal.NewFromFloat(999.99),
		constants.CommissionTypeFlat,
		decimal.NewFromFloat(12.50),
		decimal.NewFromFloat(0.20),
	)
	if !gross.Equal(decimal.NewFromFloat(12.50)) {
		t.Fatalf("expected gross 12.50, got %s", gross.String())
	}
	if !fee.Equal(decimal.NewFromFloat(2.50)) {
		t.Fatalf("expected fee 2.50, got %s", fee.String())
	}
	if !net.Equal(decimal.NewFromFloat(10.00)) {
		t.Fatalf("expected net 10.00, got %s", net.String())
	}
}

func TestComputeCommissionAmountsRounding(t *testing.T) {
	gross, fee, net := ComputeCommissionAmounts(
		decimal.NewFromFloat(33.33),
		constants.CommissionTypePercent,
		decimal.NewFromFloat(0.15),
		decimal.NewFromFloat(0.20),
	)
	if !gross.Equal(decimal.NewFromFloat(5.00)) {
		t.Fatalf("expected gross 5.00, got %s", gross.String())
	}
	if !fee.Equal(decimal.NewFromFloat(1.00)) {
		t.Fatalf("expected fee 1.00, got %s", fee.String())
	}
	if !net.Equal(decimal.NewFromFloat(4.00)) {
		t.Fatalf("expected net 4.00, got %s", net.String())
	}
}

func TestCommissionTransitionMatrix(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{constants.CommissionStatusPending, constants.CommissionStatusApproved, true},
		{constants.CommissionStatusPending, constants.CommissionStatusPaid, false},
		{constants.CommissionStatusApproved, constants.CommissionStatusPaid, true},
		{constants.CommissionStatusDisputed, constants.CommissionStatusApproved, true},
		{constants.CommissionStatusDisputed, constants.CommissionStatusPaid, false},
		{constants.CommissionStatusPaid, constants.CommissionStatusRefunded, true},
		{constants.CommissionStatusPaid, constants.CommissionStatusCancelled, false},
		{constants.CommissionStatusCancelled, constants.CommissionStatusApproved, false},
		{constants.CommissionStatusRefunded, constants.CommissionStatusApproved, false},
	}
	for _, tc := range cases {
		if got := isCommissionTransitionAllowed(tc.from, tc.to); got != tc.allowed {
			t.Fatalf("transition %s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestCommissionApproveSetsTimestamp(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	commission := createTestCommission(t, db, 1, constants.CommissionStatusPending, decimal.NewFromInt(10))

	updated, err := svc.Approve(commission.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if updated.Status != constants.CommissionStatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
	if updated.ApprovedAt == nil {
		t.Fatalf("expected approved_at to be set")
	}
}

func TestCommissionPaidCannotCancel(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	commission := createTestCommission(t, db, 2, constants.CommissionStatusApproved, decimal.NewFromInt(10))

	if _, err := svc.UpdateStatus(commission.ID, constants.CommissionStatusPaid, ""); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if _, err := svc.Cancel(commission.ID, "late cancel"); !errors.Is(err, ErrCommissionStatusInvalid) {
		t.Fatalf("expected invalid transition error, got: %v", err)
	}
}

func TestCommissionDisputeRecordsReason(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	commission := createTestCommission(t, db, 3, constants.CommissionStatusPending, decimal.NewFromInt(10))

	updated, err := svc.Dispute(commission.ID, "merchant challenged order")
	if err != nil {
		t.Fatalf("dispute failed: %v", err)
	}
	if updated.Status != constants.CommissionStatusDisputed {
		t.Fatalf("expected disputed, got %s", updated.Status)
	}
	if updated.InvalidReason != "merchant challenged order" {
		t.Fatalf("expected reason to be recorded, got %q", updated.InvalidReason)
	}
}

func TestRefundByConversionIdempotent(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	commission := createTestCommission(t, db, 4, constants.CommissionStatusApproved, decimal.NewFromInt(10))

	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.RefundByConversionTx(tx, commission.ConversionID, "order refunded at source")
	}); err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	var refreshed models.Commission
	if err := db.First(&refreshed, commission.ID).Error; err != nil {
		t.Fatalf("reload commission failed: %v", err)
	}
	if refreshed.Status != constants.CommissionStatusRefunded {
		t.Fatalf("expected refunded, got %s", refreshed.Status)
	}

	// 重复退款事件不报错也不改写
	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.RefundByConversionTx(tx, commission.ConversionID, "second delivery")
	}); err != nil {
		t.Fatalf("second refund should be a no-op, got: %v", err)
	}
	if err := db.First(&refreshed, commission.ID).Error; err != nil {
		t.Fatalf("reload commission failed: %v", err)
	}
	if refreshed.InvalidReason != "order refunded at source" {
		t.Fatalf("expected original reason preserved, got %q", refreshed.InvalidReason)
	}
}

func TestCommissionNotFound(t *testing.T) {
	svc, _ := setupCommissionServiceTest(t)
	if _, err := svc.Approve(9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}
}
