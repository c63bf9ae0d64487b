package models

import (
	"time"

	"gorm.io/gorm"
)

// Influencer 达人（推广者）表
type Influencer struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                     // 主键
	ExternalID    string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"external_id"` // 对外ID（UUID）
	Email         string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`      // 邮箱
	PasswordHash  string         `gorm:"not null" json:"-"`                                        // 密码哈希（不返回给前端）
	DisplayName   string         `gorm:"type:varchar(128)" json:"display_name"`                    // 展示名称
	PayoutAccount string         `gorm:"type:varchar(128)" json:"payout_account"`                  // 打款账号（渠道侧收款标识）
	Status        string         `gorm:"type:varchar(20);not null;index" json:"status"`            // 状态
	LastLoginAt   *time.Time     `json:"last_login_at"`                                            // 最后登录时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                               // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (Influencer) TableName() string {
	return "influencers"
}
