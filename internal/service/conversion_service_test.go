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

func setupConversionServiceTest(t *testing.T) (*ConversionService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:conversion_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Conversion{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewConversionService(repository.NewConversionRepository(db)), db
}

func createTestConversion(t *testing.T, db *gorm.DB, orderID, status string) *models.Conversion {
	t.Helper()
	conversion := &models.Conversion{
		ExternalID: "conv-" + orderID,
		Source:     constants.WebhookSourceRefersion,
		OrderID:    orderID,
		OccurredAt: time.Now(),
		Total:      models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Currency:   "USD",
		Status:     status,
	}
	if err := db.Create(conversion).Error; err != nil {
		t.Fatalf("create conversion failed: %v", err)
	}
	return conversion
}

func TestConversionTransitionMatrix(t *testing.T) {
	cases := []struct {
		from  string
		to    string
		allow bool
	}{
		{constants.ConversionStatusPending, constants.ConversionStatusApproved, true},
		{constants.ConversionStatusPending, constants.ConversionStatusRejected, true},
		{constants.ConversionStatusPending, constants.ConversionStatusRefunded, true},
		{constants.ConversionStatusApproved, constants.ConversionStatusRefunded, true},
		{constants.ConversionStatusApproved, constants.ConversionStatusRejected, false},
		{constants.ConversionStatusApproved, constants.ConversionStatusPending, false},
		{constants.ConversionStatusRejected, constants.ConversionStatusApproved, false},
		{constants.ConversionStatusRejected, constants.ConversionStatusRefunded, true},
		{constants.ConversionStatusRefunded, constants.ConversionStatusApproved, false},
		{constants.ConversionStatusRefunded, constants.ConversionStatusPending, false},
	}
	for _, tc := range cases {
		if got := isConversionTransitionAllowed(tc.from, tc.to); got != tc.allow {
			t.Fatalf("transition %s->%s want %v got %v", tc.from, tc.to, tc.allow, got)
		}
	}
}

func TestConversionApprove(t *testing.T) {
	svc, db := setupConversionServiceTest(t)
	conversion := createTestConversion(t, db, "ORD-CS-1", constants.ConversionStatusPending)

	updated, err := svc.Approve(conversion.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if updated.Status != constants.ConversionStatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
}

func TestConversionRejectThenApproveRejected(t *testing.T) {
	svc, db := setupConversionServiceTest(t)
	conversion := createTestConversion(t, db, "ORD-CS-2", constants.ConversionStatusPending)

	updated, err := svc.Reject(conversion.ID)
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if updated.Status != constants.ConversionStatusRejected {
		t.Fatalf("expected rejected, got %s", updated.Status)
	}

	if _, err := svc.Approve(conversion.ID); !errors.Is(err, ErrConversionStatusInvalid) {
		t.Fatalf("expected transition rejection, got: %v", err)
	}
}

func TestConversionRefundedIsTerminal(t *testing.T) {
	svc, db := setupConversionServiceTest(t)
	conversion := createTestConversion(t, db, "ORD-CS-3", constants.ConversionStatusRefunded)

	if _, err := svc.Approve(conversion.ID); !errors.Is(err, ErrConversionStatusInvalid) {
		t.Fatalf("expected refunded terminal, got: %v", err)
	}
	if _, err := svc.Reject(conversion.ID); !errors.Is(err, ErrConversionStatusInvalid) {
		t.Fatalf("expected refunded terminal, got: %v", err)
	}
}

func TestConversionStatusIdempotentRepeat(t *testing.T) {
	svc, db := setupConversionServiceTest(t)
	conversion := createTestConversion(t, db, "ORD-CS-4", constants.ConversionStatusPending)

	if _, err := svc.Approve(conversion.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	// 重复同态操作不报错
	updated, err := svc.Approve(conversion.ID)
	if err != nil {
		t.Fatalf("repeat approve failed: %v", err)
	}
	if updated.Status != constants.ConversionStatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
}

func TestConversionNotFound(t *testing.T) {
	svc, _ := setupConversionServiceTest(t)
	if _, err := svc.Approve(9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}
}
