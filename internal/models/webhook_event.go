package models

import "time"

// WebhookEvent 回调事件表（幂等事件存储）
// 约束：(source, external_event_id) 复合唯一，同一投递只落一行。
type WebhookEvent struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                                                    // 主键
	Source          string    `gorm:"type:varchar(32);not null;index;index:idx_webhook_event_unique,unique" json:"source"`     // 事件来源（refersion/shopify/impact/levanta）
	ExternalEventID string    `gorm:"type:varchar(128);not null;index:idx_webhook_event_unique,unique" json:"external_event_id"` // 外部事件ID（幂等键）
	EventType       string    `gorm:"type:varchar(64)" json:"event_type"`                                                      // 事件类型
	Payload         string    `gorm:"type:text" json:"payload"`                                                                // 原始报文
	ConversionID    *uint     `gorm:"index" json:"conversion_id,omitempty"`                                                    // 处理产生的转化ID（事后回填）
	StatusCode      int       `gorm:"not null;default:0" json:"status_code"`                                                   // 处理结果状态码（审计）
	ErrorMessage    string    `gorm:"type:varchar(1024)" json:"error_message"`                                                 // 处理失败原因（审计）
	CreatedAt       time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"`                              // 接收时间

	Conversion *Conversion `gorm:"foreignKey:ConversionID" json:"conversion,omitempty"` // 关联转化
}

// TableName 指定表名
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
