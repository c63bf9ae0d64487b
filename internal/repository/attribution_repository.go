package repository

import (
	"errors"

	"github.com/skinstack-core/internal/models"

	"gorm.io/gorm"
)

// AttributionRepository 归因记录数据访问接口
type AttributionRepository interface {
	WithTx(tx *gorm.DB) AttributionRepository

	CreateAttribution(attribution *models.Attribution) error
	GetAttributionByID(id uint) (*models.Attribution, error)
	GetLatestAttributionByConversion(conversionID uint) (*models.Attribution, error)
	ListAttributionsByConversion(conversionID uint) ([]models.Attribution, error)
	CountAttributionsByLink(linkID uint) (int64, error)
}

// GormAttributionRepository GORM 归因仓储
type GormAttributionRepository struct {
	db *gorm.DB
}

// NewAttributionRepository 创建归因仓储
func NewAttributionRepository(db *gorm.DB) *GormAttributionRepository {
	return &GormAttributionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAttributionRepository) WithTx(tx *gorm.DB) AttributionRepository {
	if tx == nil {
		return r
	}
	return &GormAttributionRepository{db: tx}
}

// CreateAttribution 创建归因记录
func (r *GormAttributionRepository) CreateAttribution(attribution *models.Attribution) error {
	return r.db.Create(attribution).Error
}

// GetAttributionByID 按ID获取归因记录
func (r *GormAttributionRepository) GetAttributionByID(id uint) (*models.Attribution, error) {
	if id == 0 {
		return nil, nil
	}
	var attribution models.Attribution
	if err := r.db.First(&attribution, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attribution, nil
}

// GetLatestAttributionByConversion 获取转化当前生效的归因（最新一条）
func (r *GormAttributionRepository) GetLatestAttributionByConversion(conversionID uint) (*models.Attribution, error) {
	if conversionID == 0 {
		return nil, nil
	}
	var attribution models.Attribution
	err := r.db.Where("conversion_id = ?", conversionID).
		Order("created_at DESC, id DESC").
		Limit(1).
		First(&attribution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attribution, nil
}

// ListAttributionsByConversion 查询转化的全部归因记录
func (r *GormAttributionRepository) ListAttributionsByConversion(conversionID uint) ([]models.Attribution, error) {
	if conversionID == 0 {
		return []models.Attribution{}, nil
	}
	var rows []models.Attribution
	if err := r.db.Where("conversion_id = ?", conversionID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountAttributionsByLink 统计短链命中的归因数
func (r *GormAttributionRepository) CountAttributionsByLink(linkID uint) (int64, error) {
	if linkID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.Attribution{}).Where("tracking_link_id = ?", linkID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
