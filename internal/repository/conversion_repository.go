package repository

import (
	"errors"
	"strings"

	"github.com/skinstack-core/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversionRepository 转化台账数据访问接口
type ConversionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ConversionRepository

	CreateConversion(conversion *models.Conversion) error
	GetConversionByID(id uint) (*models.Conversion, error)
	GetConversionBySourceAndOrder(source, orderID string) (*models.Conversion, error)
	GetConversionBySourceAndOrderForUpdate(source, orderID string) (*models.Conversion, error)
	GetConversionByIDForUpdate(id uint) (*models.Conversion, error)
	UpdateConversion(conversion *models.Conversion) error
	UpdateConversionStatus(id uint, status string) error
	ListConversions(filter ConversionListFilter) ([]models.Conversion, int64, error)
	DeleteConversion(id uint) error
}

// GormConversionRepository GORM 转化台账仓储
type GormConversionRepository struct {
	db *gorm.DB
}

// NewConversionRepository 创建转化台账仓储
func NewConversionRepository(db *gorm.DB) *GormConversionRepository {
	return &GormConversionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormConversionRepository) WithTx(tx *gorm.DB) ConversionRepository {
	if tx == nil {
		return r
	}
	return &GormConversionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormConversionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateConversion 创建转化记录
// 依赖 (source, order_id) 唯一索引保证同一订单只落一行。
func (r *GormConversionRepository) CreateConversion(conversion *models.Conversion) error {
	return r.db.Create(conversion).Error
}

// GetConversionByID 按ID获取转化记录
func (r *GormConversionRepository) GetConversionByID(id uint) (*models.Conversion, error) {
	if id == 0 {
		return nil, nil
	}
	var conversion models.Conversion
	if err := r.db.First(&conversion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// GetConversionBySourceAndOrder 按来源与订单号获取转化记录
func (r *GormConversionRepository) GetConversionBySourceAndOrder(source, orderID string) (*models.Conversion, error) {
	src := strings.TrimSpace(source)
	oid := strings.TrimSpace(orderID)
	if src == "" || oid == "" {
		return nil, nil
	}
	var conversion models.Conversion
	if err := r.db.Where("source = ? AND order_id = ?", src, oid).First(&conversion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// GetConversionBySourceAndOrderForUpdate 按来源与订单号锁定获取转化记录
func (r *GormConversionRepository) GetConversionBySourceAndOrderForUpdate(source, orderID string) (*models.Conversion, error) {
	src := strings.TrimSpace(source)
	oid := strings.TrimSpace(orderID)
	if src == "" || oid == "" {
		return nil, nil
	}
	var conversion models.Conversion
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("source = ? AND order_id = ?", src, oid).
		First(&conversion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// GetConversionByIDForUpdate 按ID锁定获取转化记录
func (r *GormConversionRepository) GetConversionByIDForUpdate(id uint) (*models.Conversion, error) {
	if id == 0 {
		return nil, nil
	}
	var conversion models.Conversion
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&conversion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// UpdateConversion 更新转化记录
func (r *GormConversionRepository) UpdateConversion(conversion *models.Conversion) error {
	return r.db.Save(conversion).Error
}

// UpdateConversionStatus 更新转化状态
func (r *GormConversionRepository) UpdateConversionStatus(id uint, status string) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Conversion{}).
		Where("id = ?", id).
		Update("status", strings.TrimSpace(status)).Error
}

// ListConversions 查询转化列表
func (r *GormConversionRepository) ListConversions(filter ConversionListFilter) ([]models.Conversion, int64, error) {
	query := r.db.Model(&models.Conversion{})
	if source := strings.TrimSpace(filter.Source); source != "" {
		query = query.Where("source = ?", source)
	}
	if orderID := strings.TrimSpace(filter.OrderID); orderID != "" {
		query = query.Where("order_id = ?", orderID)
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

	var rows []models.Conversion
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// DeleteConversion 删除转化记录（仅供测试清理，级联删除归因与佣金）
func (r *GormConversionRepository) DeleteConversion(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversion_id = ?", id).Delete(&models.Attribution{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversion_id = ?", id).Delete(&models.Commission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Conversion{}, id).Error
	})
}
