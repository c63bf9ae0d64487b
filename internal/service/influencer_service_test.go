package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/skinstack-core/internal/config"
	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupInfluencerServiceTest(t *testing.T) (*InfluencerService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:influencer_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Influencer{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	cfg := &config.Config{}
	cfg.InfluencerJWT = config.JWTConfig{SecretKey: "influencer-test-secret-key-0123456789", ExpireHours: 24}
	cfg.Security.PasswordPolicy = config.PasswordPolicyConfig{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireNumber: true,
	}
	return NewInfluencerService(cfg, repository.NewInfluencerRepository(db)), db
}

func TestInfluencerRegisterAndLogin(t *testing.T) {
	svc, _ := setupInfluencerServiceTest(t)

	influencer, token, expiresAt, err := svc.Register("Ava@Creator.Example.com", "Creator123", "Ava")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if influencer.Email != "ava@creator.example.com" {
		t.Fatalf("expected normalized email, got %s", influencer.Email)
	}
	if influencer.ExternalID == "" || influencer.Status != constants.InfluencerStatusActive {
		t.Fatalf("unexpected influencer: %+v", influencer)
	}
	if token == "" || expiresAt.Before(time.Now()) {
		t.Fatalf("expected usable token")
	}

	claims, err := svc.ParseJWT(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.InfluencerID != influencer.ID || claims.Email != influencer.Email {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, _, _, err := svc.Login("ava@creator.example.com", "Creator123", false); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, _, _, err := svc.Login("ava@creator.example.com", "WrongPass1", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got: %v", err)
	}
}

func TestInfluencerRegisterDuplicateEmail(t *testing.T) {
	svc, _ := setupInfluencerServiceTest(t)
	if _, _, _, err := svc.Register("dup@example.com", "Creator123", ""); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, _, _, err := svc.Register("DUP@example.com", "Creator123", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected email taken, got: %v", err)
	}
}

func TestInfluencerRegisterValidation(t *testing.T) {
	svc, _ := setupInfluencerServiceTest(t)
	if _, _, _, err := svc.Register("not-an-email", "Creator123", ""); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email, got: %v", err)
	}
	if _, _, _, err := svc.Register("weak@example.com", "short", ""); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password, got: %v", err)
	}
	if _, _, _, err := svc.Register("weak@example.com", "alllowercase1", ""); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password without uppercase, got: %v", err)
	}
}

func TestInfluencerLoginDisabled(t *testing.T) {
	svc, db := setupInfluencerServiceTest(t)
	influencer, _, _, err := svc.Register("off@example.com", "Creator123", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := db.Model(&models.Influencer{}).Where("id = ?", influencer.ID).Update("status", constants.InfluencerStatusDisabled).Error; err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if _, _, _, err := svc.Login("off@example.com", "Creator123", false); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected account disabled, got: %v", err)
	}
}

func TestInfluencerChangePassword(t *testing.T) {
	svc, _ := setupInfluencerServiceTest(t)
	influencer, _, _, err := svc.Register("pw@example.com", "Creator123", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.ChangePassword(influencer.ID, "WrongOld1", "NextPass123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password mismatch, got: %v", err)
	}
	if err := svc.ChangePassword(influencer.ID, "Creator123", "weak"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak new password, got: %v", err)
	}
	if err := svc.ChangePassword(influencer.ID, "Creator123", "NextPass123"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, _, _, err := svc.Login("pw@example.com", "NextPass123", false); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestInfluencerUpdateProfile(t *testing.T) {
	svc, _ := setupInfluencerServiceTest(t)
	influencer, _, _, err := svc.Register("profile@example.com", "Creator123", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.UpdateProfile(influencer.ID, nil, nil); !errors.Is(err, ErrProfileEmpty) {
		t.Fatalf("expected empty profile error, got: %v", err)
	}
	account := "acct-xyz"
	updated, err := svc.UpdateProfile(influencer.ID, nil, &account)
	if err != nil {
		t.Fatalf("update profile failed: %v", err)
	}
	if updated.PayoutAccount != "acct-xyz" {
		t.Fatalf("expected payout account update, got %q", updated.PayoutAccount)
	}
}

func TestInfluencerSetStatus(t *testing.T) {
	svc, _ := setupInfluencerServiceTest(t)
	influencer, _, _, err := svc.Register("status@example.com", "Creator123", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.SetStatus(influencer.ID, "banned"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got: %v", err)
	}
	updated, err := svc.SetStatus(influencer.ID, "Disabled")
	if err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if updated.Status != constants.InfluencerStatusDisabled {
		t.Fatalf("expected disabled, got %s", updated.Status)
	}
}
