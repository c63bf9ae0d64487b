package repository

import (
	"errors"
	"strings"

	"github.com/skinstack-core/internal/models"

	"gorm.io/gorm"
)

// WebhookEventRepository 回调事件数据访问接口
type WebhookEventRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) WebhookEventRepository

	CreateEvent(event *models.WebhookEvent) error
	GetEventByID(id uint) (*models.WebhookEvent, error)
	GetEventBySourceAndExternalID(source, externalEventID string) (*models.WebhookEvent, error)
	UpdateEventResult(id uint, conversionID *uint, statusCode int, errorMessage string) error
	ListEvents(filter WebhookEventListFilter) ([]models.WebhookEvent, int64, error)
}

// GormWebhookEventRepository GORM 回调事件仓储
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository 创建回调事件仓储
func NewWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWebhookEventRepository) WithTx(tx *gorm.DB) WebhookEventRepository {
	if tx == nil {
		return r
	}
	return &GormWebhookEventRepository{db: tx}
}

// Transaction 执行事务
func (r *GormWebhookEventRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateEvent 创建回调事件
// 依赖 (source, external_event_id) 唯一索引拦截并发重复投递。
func (r *GormWebhookEventRepository) CreateEvent(event *models.WebhookEvent) error {
	return r.db.Create(event).Error
}

// GetEventByID 按ID获取回调事件
func (r *GormWebhookEventRepository) GetEventByID(id uint) (*models.WebhookEvent, error) {
	if id == 0 {
		return nil, nil
	}
	var event models.WebhookEvent
	if err := r.db.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// GetEventBySourceAndExternalID 按幂等键获取回调事件
func (r *GormWebhookEventRepository) GetEventBySourceAndExternalID(source, externalEventID string) (*models.WebhookEvent, error) {
	src := strings.TrimSpace(source)
	eid := strings.TrimSpace(externalEventID)
	if src == "" || eid == "" {
		return nil, nil
	}
	var event models.WebhookEvent
	if err := r.db.Where("source = ? AND external_event_id = ?", src, eid).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// UpdateEventResult 回填事件处理结果（审计字段）
func (r *GormWebhookEventRepository) UpdateEventResult(id uint, conversionID *uint, statusCode int, errorMessage string) error {
	if id == 0 {
		return nil
	}
	updates := map[string]interface{}{
		"status_code":   statusCode,
		"error_message": errorMessage,
	}
	if conversionID != nil {
		updates["conversion_id"] = *conversionID
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// ListEvents 查询回调事件列表
func (r *GormWebhookEventRepository) ListEvents(filter WebhookEventListFilter) ([]models.WebhookEvent, int64, error) {
	query := r.db.Model(&models.WebhookEvent{})
	if source := strings.TrimSpace(filter.Source); source != "" {
		query = query.Where("source = ?", source)
	}
	if eventType := strings.TrimSpace(filter.EventType); eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}
	if filter.FailedOnly {
		query = query.Where("status_code >= ?", 500)
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

	var rows []models.WebhookEvent
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
