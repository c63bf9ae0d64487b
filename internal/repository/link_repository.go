package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/skinstack-core/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LinkRepository 短链与点击数据访问接口
type LinkRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) LinkRepository

	CreateLink(link *models.TrackingLink) error
	UpdateLink(link *models.TrackingLink) error
	GetLinkByID(id uint) (*models.TrackingLink, error)
	GetLinkBySlug(slug string, activeOnly bool) (*models.TrackingLink, error)
	GetLinkByExternalID(externalID string) (*models.TrackingLink, error)
	ListLinks(filter LinkListFilter) ([]models.TrackingLink, int64, error)
	IncrementLinkClicks(linkID uint, delta int64) error
	IncrementLinkConversion(linkID uint, revenue decimal.Decimal) error
	RefreshLinkClickCounter(linkID uint) error

	CreateClick(click *models.Click) error
	GetClickByID(id uint) (*models.Click, error)
	CountClicksByLink(linkID uint) (int64, error)
	GetLatestClickByLink(linkID uint, before time.Time) (*models.Click, error)
	GetLatestClickByDevice(deviceID string, since, before time.Time) (*models.Click, error)
	GetLatestClickByIPHash(ipHash string, since, before time.Time) (*models.Click, error)
}

// GormLinkRepository GORM 短链仓储
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository 创建短链仓储
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLinkRepository) WithTx(tx *gorm.DB) LinkRepository {
	if tx == nil {
		return r
	}
	return &GormLinkRepository{db: tx}
}

// Transaction 执行事务
func (r *GormLinkRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateLink 创建短链
func (r *GormLinkRepository) CreateLink(link *models.TrackingLink) error {
	return r.db.Create(link).Error
}

// UpdateLink 更新短链
func (r *GormLinkRepository) UpdateLink(link *models.TrackingLink) error {
	return r.db.Save(link).Error
}

// GetLinkByID 按ID获取短链
func (r *GormLinkRepository) GetLinkByID(id uint) (*models.TrackingLink, error) {
	if id == 0 {
		return nil, nil
	}
	var link models.TrackingLink
	if err := r.db.Preload("Program").First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetLinkBySlug 按短码获取短链
func (r *GormLinkRepository) GetLinkBySlug(slug string, activeOnly bool) (*models.TrackingLink, error) {
	normalized := strings.TrimSpace(slug)
	if normalized == "" {
		return nil, nil
	}
	query := r.db.Preload("Program").Where("slug = ?", normalized)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var link models.TrackingLink
	if err := query.First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetLinkByExternalID 按对外ID获取短链
func (r *GormLinkRepository) GetLinkByExternalID(externalID string) (*models.TrackingLink, error) {
	normalized := strings.TrimSpace(externalID)
	if normalized == "" {
		return nil, nil
	}
	var link models.TrackingLink
	if err := r.db.Preload("Program").Where("external_id = ?", normalized).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// ListLinks 查询短链列表
func (r *GormLinkRepository) ListLinks(filter LinkListFilter) ([]models.TrackingLink, int64, error) {
	query := r.db.Model(&models.TrackingLink{}).Preload("Program")
	if filter.InfluencerID != 0 {
		query = query.Where("influencer_id = ?", filter.InfluencerID)
	}
	if filter.ProgramID != 0 {
		query = query.Where("program_id = ?", filter.ProgramID)
	}
	if slug := strings.TrimSpace(filter.Slug); slug != "" {
		query = query.Where("slug = ?", slug)
	}
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.TrackingLink
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// IncrementLinkClicks 累加短链点击计数（非权威计数，尽力而为）
func (r *GormLinkRepository) IncrementLinkClicks(linkID uint, delta int64) error {
	if linkID == 0 || delta == 0 {
		return nil
	}
	return r.db.Model(&models.TrackingLink{}).
		Where("id = ?", linkID).
		Update("total_clicks", gorm.Expr("total_clicks + ?", delta)).Error
}

// IncrementLinkConversion 累加短链转化计数与成交金额
func (r *GormLinkRepository) IncrementLinkConversion(linkID uint, revenue decimal.Decimal) error {
	if linkID == 0 {
		return nil
	}
	return r.db.Model(&models.TrackingLink{}).
		Where("id = ?", linkID).
		Updates(map[string]interface{}{
			"total_conversions": gorm.Expr("total_conversions + 1"),
			"total_revenue":     gorm.Expr("total_revenue + ?", revenue.Round(2)),
		}).Error
}

// RefreshLinkClickCounter 以点击表为准重算短链点击计数
func (r *GormLinkRepository) RefreshLinkClickCounter(linkID uint) error {
	if linkID == 0 {
		return nil
	}
	return r.db.Model(&models.TrackingLink{}).
		Where("id = ?", linkID).
		Update("total_clicks", r.db.Model(&models.Click{}).
			Select("COUNT(*)").
			Where("tracking_link_id = ?", linkID),
		).Error
}

// CreateClick 创建点击记录
func (r *GormLinkRepository) CreateClick(click *models.Click) error {
	return r.db.Create(click).Error
}

// GetClickByID 按ID获取点击记录
func (r *GormLinkRepository) GetClickByID(id uint) (*models.Click, error) {
	if id == 0 {
		return nil, nil
	}
	var click models.Click
	if err := r.db.First(&click, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &click, nil
}

// CountClicksByLink 统计短链点击数
func (r *GormLinkRepository) CountClicksByLink(linkID uint) (int64, error) {
	if linkID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.Click{}).Where("tracking_link_id = ?", linkID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// GetLatestClickByLink 查询短链在指定时间之前最近一次点击（last click）
func (r *GormLinkRepository) GetLatestClickByLink(linkID uint, before time.Time) (*models.Click, error) {
	if linkID == 0 {
		return nil, nil
	}
	var click models.Click
	err := r.db.Model(&models.Click{}).
		Where("tracking_link_id = ? AND created_at <= ?", linkID, before).
		Order("created_at DESC, id DESC").
		Limit(1).
		First(&click).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &click, nil
}

// GetLatestClickByDevice 查询设备在时间窗口内最近一次点击（last click）
func (r *GormLinkRepository) GetLatestClickByDevice(deviceID string, since, before time.Time) (*models.Click, error) {
	key := strings.TrimSpace(deviceID)
	if key == "" {
		return nil, nil
	}
	var click models.Click
	err := r.db.Model(&models.Click{}).
		Where("device_id = ? AND created_at >= ? AND created_at <= ?", key, since, before).
		Order("created_at DESC, id DESC").
		Limit(1).
		First(&click).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &click, nil
}

// GetLatestClickByIPHash 查询IP哈希在时间窗口内最近一次点击（last click）
func (r *GormLinkRepository) GetLatestClickByIPHash(ipHash string, since, before time.Time) (*models.Click, error) {
	key := strings.TrimSpace(ipHash)
	if key == "" {
		return nil, nil
	}
	var click models.Click
	err := r.db.Model(&models.Click{}).
		Where("ip_hash = ? AND created_at >= ? AND created_at <= ?", key, since, before).
		Order("created_at DESC, id DESC").
		Limit(1).
		First(&click).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &click, nil
}
