package models

import (
	"time"

	"gorm.io/gorm"
)

// Program 联盟计划表（商家的佣金方案）
type Program struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                       // 主键
	MerchantID       uint           `gorm:"not null;index" json:"merchant_id"`                          // 商家ID
	Name             string         `gorm:"type:varchar(128);not null" json:"name"`                     // 计划名称
	Network          string         `gorm:"type:varchar(32);not null;default:'refersion'" json:"network"` // 所属联盟网络（决定跟踪参数名）
	CommissionType   string         `gorm:"type:varchar(20);not null;default:'percent'" json:"commission_type"` // 佣金类型（percent/flat）
	CommissionValue  Money          `gorm:"type:decimal(10,4);not null;default:0" json:"commission_value"`      // 佣金比例或固定金额
	CookieWindowDays int            `gorm:"not null;default:7" json:"cookie_window_days"`               // 设备归因窗口（天）
	Status           string         `gorm:"type:varchar(20);not null;index" json:"status"`              // 状态
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt        time.Time      `json:"updated_at"`                                                 // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间

	Merchant Merchant `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"` // 商家信息
}

// TableName 指定表名
func (Program) TableName() string {
	return "programs"
}
