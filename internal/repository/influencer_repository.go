package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/skinstack-core/internal/models"

	"gorm.io/gorm"
)

// InfluencerRepository 达人数据访问接口
type InfluencerRepository interface {
	WithTx(tx *gorm.DB) InfluencerRepository

	Create(influencer *models.Influencer) error
	Update(influencer *models.Influencer) error
	GetByID(id uint) (*models.Influencer, error)
	GetByEmail(email string) (*models.Influencer, error)
	GetByExternalID(externalID string) (*models.Influencer, error)
	UpdateLastLogin(id uint, at time.Time) error
	List(filter InfluencerListFilter) ([]models.Influencer, int64, error)
}

// GormInfluencerRepository GORM 达人仓储
type GormInfluencerRepository struct {
	db *gorm.DB
}

// NewInfluencerRepository 创建达人仓储
func NewInfluencerRepository(db *gorm.DB) *GormInfluencerRepository {
	return &GormInfluencerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormInfluencerRepository) WithTx(tx *gorm.DB) InfluencerRepository {
	if tx == nil {
		return r
	}
	return &GormInfluencerRepository{db: tx}
}

// Create 创建达人
func (r *GormInfluencerRepository) Create(influencer *models.Influencer) error {
	return r.db.Create(influencer).Error
}

// Update 更新达人
func (r *GormInfluencerRepository) Update(influencer *models.Influencer) error {
	return r.db.Save(influencer).Error
}

// GetByID 按ID获取达人
func (r *GormInfluencerRepository) GetByID(id uint) (*models.Influencer, error) {
	if id == 0 {
		return nil, nil
	}
	var influencer models.Influencer
	if err := r.db.First(&influencer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &influencer, nil
}

// GetByEmail 按邮箱获取达人
func (r *GormInfluencerRepository) GetByEmail(email string) (*models.Influencer, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, nil
	}
	var influencer models.Influencer
	if err := r.db.Where("email = ?", normalized).First(&influencer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &influencer, nil
}

// GetByExternalID 按对外ID获取达人
func (r *GormInfluencerRepository) GetByExternalID(externalID string) (*models.Influencer, error) {
	normalized := strings.TrimSpace(externalID)
	if normalized == "" {
		return nil, nil
	}
	var influencer models.Influencer
	if err := r.db.Where("external_id = ?", normalized).First(&influencer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &influencer, nil
}

// UpdateLastLogin 更新最后登录时间
func (r *GormInfluencerRepository) UpdateLastLogin(id uint, at time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Influencer{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// List 查询达人列表
func (r *GormInfluencerRepository) List(filter InfluencerListFilter) ([]models.Influencer, int64, error) {
	query := r.db.Model(&models.Influencer{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		operator := likeOperator(r.db)
		query = query.Where("(email "+operator+" ? OR display_name "+operator+" ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Influencer
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
