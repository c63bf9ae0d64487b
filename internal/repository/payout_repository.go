package repository

import (
	"errors"
	"strings"

	"github.com/skinstack-core/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutRepository 结算批次数据访问接口
type PayoutRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PayoutRepository

	CreateBatch(batch *models.PayoutBatch) error
	UpdateBatch(batch *models.PayoutBatch) error
	GetBatchByID(id uint) (*models.PayoutBatch, error)
	GetBatchByIDForUpdate(id uint) (*models.PayoutBatch, error)
	GetBatchByExternalID(externalID string) (*models.PayoutBatch, error)
	ListBatches(filter PayoutBatchListFilter) ([]models.PayoutBatch, int64, error)
}

// GormPayoutRepository GORM 结算批次仓储
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository 创建结算批次仓储
func NewPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPayoutRepository) WithTx(tx *gorm.DB) PayoutRepository {
	if tx == nil {
		return r
	}
	return &GormPayoutRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPayoutRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateBatch 创建结算批次
func (r *GormPayoutRepository) CreateBatch(batch *models.PayoutBatch) error {
	return r.db.Create(batch).Error
}

// UpdateBatch 更新结算批次
func (r *GormPayoutRepository) UpdateBatch(batch *models.PayoutBatch) error {
	return r.db.Save(batch).Error
}

// GetBatchByID 按ID获取结算批次
func (r *GormPayoutRepository) GetBatchByID(id uint) (*models.PayoutBatch, error) {
	if id == 0 {
		return nil, nil
	}
	var batch models.PayoutBatch
	if err := r.db.Preload("Influencer").First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// GetBatchByIDForUpdate 按ID锁定获取结算批次
func (r *GormPayoutRepository) GetBatchByIDForUpdate(id uint) (*models.PayoutBatch, error) {
	if id == 0 {
		return nil, nil
	}
	var batch models.PayoutBatch
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// GetBatchByExternalID 按对外批次号获取结算批次
func (r *GormPayoutRepository) GetBatchByExternalID(externalID string) (*models.PayoutBatch, error) {
	normalized := strings.TrimSpace(externalID)
	if normalized == "" {
		return nil, nil
	}
	var batch models.PayoutBatch
	if err := r.db.Where("external_id = ?", normalized).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// ListBatches 查询结算批次列表
func (r *GormPayoutRepository) ListBatches(filter PayoutBatchListFilter) ([]models.PayoutBatch, int64, error) {
	query := r.db.Model(&models.PayoutBatch{}).Preload("Influencer")
	if filter.InfluencerID != 0 {
		query = query.Where("influencer_id = ?", filter.InfluencerID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.PayoutBatch
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
