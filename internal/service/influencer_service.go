package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/skinstack-core/internal/cache"
	"github.com/skinstack-core/internal/config"
	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// InfluencerService 达人账号服务（注册、登录、资料、后台管理）
type InfluencerService struct {
	cfg  *config.Config
	repo repository.InfluencerRepository
}

// NewInfluencerService 创建达人服务
func NewInfluencerService(cfg *config.Config, repo repository.InfluencerRepository) *InfluencerService {
	return &InfluencerService{cfg: cfg, repo: repo}
}

// InfluencerJWTClaims 达人 JWT 声明
type InfluencerJWTClaims struct {
	InfluencerID uint   `json:"influencer_id"`
	Email        string `json:"email"`
	ExternalID   string `json:"external_id"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成达人 JWT Token
func (s *InfluencerService) GenerateJWT(influencer *models.Influencer, expireHours int) (string, time.Time, error) {
	resolvedHours := expireHours
	if resolvedHours <= 0 {
		resolvedHours = resolveInfluencerJWTExpireHours(s.cfg.InfluencerJWT)
	}
	expiresAt := time.Now().Add(time.Duration(resolvedHours) * time.Hour)
	claims := InfluencerJWTClaims{
		InfluencerID: influencer.ID,
		Email:        influencer.Email,
		ExternalID:   influencer.ExternalID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.InfluencerJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析达人 JWT Token
func (s *InfluencerService) ParseJWT(tokenString string) (*InfluencerJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &InfluencerJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.InfluencerJWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*InfluencerJWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// Register 达人注册
func (s *InfluencerService) Register(email, password, displayName string) (*models.Influencer, string, time.Time, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, password); err != nil {
		return nil, "", time.Time{}, err
	}

	exist, err := s.repo.GetByEmail(normalized)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if exist != nil {
		return nil, "", time.Time{}, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = resolveNameFromEmail(normalized)
	}
	now := time.Now()
	influencer := &models.Influencer{
		ExternalID:   uuid.NewString(),
		Email:        normalized,
		PasswordHash: string(hashedPassword),
		DisplayName:  name,
		Status:       constants.InfluencerStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(influencer); err != nil {
		if isUniqueViolation(err) {
			return nil, "", time.Time{}, ErrEmailTaken
		}
		return nil, "", time.Time{}, err
	}

	token, expiresAt, err := s.GenerateJWT(influencer, 0)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	influencer.LastLoginAt = &now
	if err := s.repo.Update(influencer); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetInfluencerAuthState(context.Background(), cache.BuildInfluencerAuthState(influencer))

	return influencer, token, expiresAt, nil
}

// Login 达人登录
func (s *InfluencerService) Login(email, password string, rememberMe bool) (*models.Influencer, string, time.Time, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	influencer, err := s.repo.GetByEmail(normalized)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if influencer == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if strings.ToLower(influencer.Status) != constants.InfluencerStatusActive {
		return nil, "", time.Time{}, ErrAccountDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(influencer.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	expireHours := resolveInfluencerJWTExpireHours(s.cfg.InfluencerJWT)
	if rememberMe {
		expireHours = resolveInfluencerRememberMeHours(s.cfg.InfluencerJWT)
	}
	token, expiresAt, err := s.GenerateJWT(influencer, expireHours)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	if err := s.repo.UpdateLastLogin(influencer.ID, now); err != nil {
		return nil, "", time.Time{}, err
	}
	influencer.LastLoginAt = &now
	_ = cache.SetInfluencerAuthState(context.Background(), cache.BuildInfluencerAuthState(influencer))

	return influencer, token, expiresAt, nil
}

// ChangePassword 登录态修改密码
func (s *InfluencerService) ChangePassword(influencerID uint, oldPassword, newPassword string) error {
	if influencerID == 0 {
		return ErrNotFound
	}
	influencer, err := s.repo.GetByID(influencerID)
	if err != nil {
		return err
	}
	if influencer == nil {
		return ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(influencer.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, newPassword); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	influencer.PasswordHash = string(hashedPassword)
	influencer.UpdatedAt = time.Now()
	if err := s.repo.Update(influencer); err != nil {
		return err
	}
	_ = cache.SetInfluencerAuthState(context.Background(), cache.BuildInfluencerAuthState(influencer))
	return nil
}

// UpdateProfile 更新达人资料
func (s *InfluencerService) UpdateProfile(influencerID uint, displayName, payoutAccount *string) (*models.Influencer, error) {
	if influencerID == 0 {
		return nil, ErrNotFound
	}
	influencer, err := s.repo.GetByID(influencerID)
	if err != nil {
		return nil, err
	}
	if influencer == nil {
		return nil, ErrNotFound
	}

	updated := false
	if displayName != nil {
		trimmed := strings.TrimSpace(*displayName)
		if trimmed != "" {
			influencer.DisplayName = trimmed
			updated = true
		}
	}
	if payoutAccount != nil {
		influencer.PayoutAccount = strings.TrimSpace(*payoutAccount)
		updated = true
	}
	if !updated {
		return nil, ErrProfileEmpty
	}

	influencer.UpdatedAt = time.Now()
	if err := s.repo.Update(influencer); err != nil {
		return nil, err
	}
	return influencer, nil
}

// SetStatus 后台启用/禁用达人
func (s *InfluencerService) SetStatus(influencerID uint, status string) (*models.Influencer, error) {
	normalized := strings.ToLower(strings.TrimSpace(status))
	switch normalized {
	case constants.InfluencerStatusActive, constants.InfluencerStatusDisabled:
	default:
		return nil, ErrValidation
	}
	influencer, err := s.repo.GetByID(influencerID)
	if err != nil {
		return nil, err
	}
	if influencer == nil {
		return nil, ErrNotFound
	}
	influencer.Status = normalized
	influencer.UpdatedAt = time.Now()
	if err := s.repo.Update(influencer); err != nil {
		return nil, err
	}
	_ = cache.DelInfluencerAuthState(context.Background(), influencer.ID)
	return influencer, nil
}

// GetByID 获取达人信息
func (s *InfluencerService) GetByID(id uint) (*models.Influencer, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	influencer, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if influencer == nil {
		return nil, ErrNotFound
	}
	return influencer, nil
}

// List 查询达人列表
func (s *InfluencerService) List(filter repository.InfluencerListFilter) ([]models.Influencer, int64, error) {
	return s.repo.List(filter)
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

func resolveNameFromEmail(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) == 2 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}

func resolveInfluencerJWTExpireHours(cfg config.JWTConfig) int {
	if cfg.ExpireHours <= 0 {
		return 24
	}
	return cfg.ExpireHours
}

func resolveInfluencerRememberMeHours(cfg config.JWTConfig) int {
	if cfg.RememberMeExpireHours <= 0 {
		return resolveInfluencerJWTExpireHours(cfg)
	}
	return cfg.RememberMeExpireHours
}
