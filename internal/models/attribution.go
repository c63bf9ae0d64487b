package models

import "time"

// Attribution 归因记录表
// 写入后不再修改；重新归因时追加新行而非更新旧行。
type Attribution struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                                            // 主键
	ConversionID   uint      `gorm:"not null;index;constraint:OnDelete:CASCADE" json:"conversion_id"`                 // 转化ID
	TrackingLinkID uint      `gorm:"not null;index" json:"tracking_link_id"`                                          // 命中的短链ID
	ClickID        *uint     `gorm:"index" json:"click_id,omitempty"`                                                 // 命中的点击ID
	Model          string    `gorm:"type:varchar(32);not null;default:'last_click'" json:"model"`                     // 归因模型
	MatchType      string    `gorm:"type:varchar(32);not null;index" json:"match_type"`                               // 匹配类型（subid/device/ip_time/cookie/fingerprint）
	Confidence     Money     `gorm:"type:decimal(5,2);not null;default:0" json:"confidence"`                          // 置信度
	Reason         string    `gorm:"type:varchar(255)" json:"reason"`                                                 // 命中说明（审计）
	CreatedAt      time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"`                      // 创建时间

	Conversion   Conversion   `gorm:"foreignKey:ConversionID" json:"conversion,omitempty"`      // 转化信息
	TrackingLink TrackingLink `gorm:"foreignKey:TrackingLinkID" json:"tracking_link,omitempty"` // 短链信息
	Click        *Click       `gorm:"foreignKey:ClickID" json:"click,omitempty"`                // 点击信息
}

// TableName 指定表名
func (Attribution) TableName() string {
	return "attributions"
}
