package models

import "time"

// Click 短链点击记录
// 只追加不修改；IP 仅存哈希，从不落原始地址。
type Click struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                       // 主键
	TrackingLinkID uint      `gorm:"not null;index" json:"tracking_link_id"`                     // 短链ID
	DeviceID       string    `gorm:"type:varchar(64);index" json:"device_id"`                    // 设备标识（Cookie）
	SessionID      string    `gorm:"type:varchar(64)" json:"session_id"`                         // 会话标识
	IPHash         string    `gorm:"type:varchar(64);index" json:"ip_hash"`                      // 客户端IP哈希
	UserAgent      string    `gorm:"type:varchar(1024)" json:"user_agent"`                       // 客户端UA
	Referrer       string    `gorm:"type:varchar(1024)" json:"referrer"`                         // 来源地址
	Platform       string    `gorm:"type:varchar(16)" json:"platform"`                           // 终端类型（desktop/mobile/tablet）
	Subid          string    `gorm:"type:varchar(128)" json:"subid"`                             // 回传跟踪参数
	FraudScore     float64   `gorm:"not null;default:0" json:"fraud_score"`                      // 风控评分（异步计算，默认中性）
	CreatedAt      time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"` // 点击时间

	TrackingLink TrackingLink `gorm:"foreignKey:TrackingLinkID" json:"tracking_link,omitempty"` // 短链信息
}

// TableName 指定表名
func (Click) TableName() string {
	return "clicks"
}
