package repository

import (
	"errors"
	"strings"

	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 佣金数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	CreateCommission(commission *models.Commission) error
	UpdateCommission(commission *models.Commission) error
	GetCommissionByID(id uint) (*models.Commission, error)
	GetCommissionByIDForUpdate(id uint) (*models.Commission, error)
	GetCommissionByConversion(conversionID uint) (*models.Commission, error)
	ListCommissions(filter CommissionListFilter) ([]models.Commission, int64, error)
	ListClaimableCommissionsForUpdate(influencerID uint) ([]models.Commission, error)
	ListCommissionsByBatch(batchID uint) ([]models.Commission, error)
	BatchUpdateCommissions(ids []uint, updates map[string]interface{}) error
	SumNetByInfluencer(influencerID uint, statuses []string, unclaimedOnly bool) (decimal.Decimal, error)
	SumNetByInfluencerGrouped(influencerID uint) (map[string]decimal.Decimal, error)
}

// GormCommissionRepository GORM 佣金仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateCommission 创建佣金记录
// 依赖 conversion_id 唯一索引保证一个转化至多一条佣金。
func (r *GormCommissionRepository) CreateCommission(commission *models.Commission) error {
	return r.db.Create(commission).Error
}

// UpdateCommission 更新佣金记录
func (r *GormCommissionRepository) UpdateCommission(commission *models.Commission) error {
	return r.db.Save(commission).Error
}

// GetCommissionByID 按ID获取佣金记录
func (r *GormCommissionRepository) GetCommissionByID(id uint) (*models.Commission, error) {
	if id == 0 {
		return nil, nil
	}
	var commission models.Commission
	if err := r.db.First(&commission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// GetCommissionByIDForUpdate 按ID锁定获取佣金记录
func (r *GormCommissionRepository) GetCommissionByIDForUpdate(id uint) (*models.Commission, error) {
	if id == 0 {
		return nil, nil
	}
	var commission models.Commission
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&commission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// GetCommissionByConversion 按转化获取佣金记录
func (r *GormCommissionRepository) GetCommissionByConversion(conversionID uint) (*models.Commission, error) {
	if conversionID == 0 {
		return nil, nil
	}
	var commission models.Commission
	if err := r.db.Where("conversion_id = ?", conversionID).First(&commission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// ListCommissions 查询佣金列表
func (r *GormCommissionRepository) ListCommissions(filter CommissionListFilter) ([]models.Commission, int64, error) {
	query := r.db.Model(&models.Commission{}).Preload("Conversion").Preload("Program")
	if filter.InfluencerID != 0 {
		query = query.Where("commissions.influencer_id = ?", filter.InfluencerID)
	}
	if filter.ProgramID != 0 {
		query = query.Where("commissions.program_id = ?", filter.ProgramID)
	}
	if filter.ConversionID != 0 {
		query = query.Where("commissions.conversion_id = ?", filter.ConversionID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("commissions.status = ?", status)
	}
	if filter.UnclaimedOnly {
		query = query.Where("commissions.payout_batch_id IS NULL")
	}
	if filter.CreatedFrom != nil {
		query = query.Where("commissions.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("commissions.created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Commission
	if err := query.Order("commissions.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListClaimableCommissionsForUpdate 查询并锁定达人可结算的佣金（已审核且未入批次）
func (r *GormCommissionRepository) ListClaimableCommissionsForUpdate(influencerID uint) ([]models.Commission, error) {
	if influencerID == 0 {
		return []models.Commission{}, nil
	}
	var rows []models.Commission
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("influencer_id = ? AND status = ? AND payout_batch_id IS NULL",
			influencerID, constants.CommissionStatusApproved).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListCommissionsByBatch 查询批次内的佣金记录
func (r *GormCommissionRepository) ListCommissionsByBatch(batchID uint) ([]models.Commission, error) {
	if batchID == 0 {
		return []models.Commission{}, nil
	}
	var rows []models.Commission
	if err := r.db.Where("payout_batch_id = ?", batchID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// BatchUpdateCommissions 批量更新佣金记录
func (r *GormCommissionRepository) BatchUpdateCommissions(ids []uint, updates map[string]interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Commission{}).Where("id IN ?", ids).Updates(updates).Error
}

// SumNetByInfluencer 汇总指定状态佣金净额
func (r *GormCommissionRepository) SumNetByInfluencer(influencerID uint, statuses []string, unclaimedOnly bool) (decimal.Decimal, error) {
	if influencerID == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}
	query := r.db.Model(&models.Commission{}).
		Where("influencer_id = ? AND status IN ?", influencerID, statuses)
	if unclaimedOnly {
		query = query.Where("payout_batch_id IS NULL")
	}

	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := query.Select("COALESCE(SUM(net_amount), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// SumNetByInfluencerGrouped 按状态分组汇总达人佣金净额
func (r *GormCommissionRepository) SumNetByInfluencerGrouped(influencerID uint) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal)
	if influencerID == 0 {
		return result, nil
	}
	var rows []struct {
		Status string          `gorm:"column:status"`
		Total  decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Commission{}).
		Select("status, COALESCE(SUM(net_amount), 0) AS total").
		Where("influencer_id = ?", influencerID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.Status] = row.Total.Round(2)
	}
	return result, nil
}
