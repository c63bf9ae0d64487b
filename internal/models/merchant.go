package models

import (
	"time"

	"gorm.io/gorm"
)

// Merchant 商家表
type Merchant struct {
	ID              uint           `gorm:"primarykey" json:"id"`                             // 主键
	Name            string         `gorm:"type:varchar(128);not null" json:"name"`           // 商家名称
	Website         string         `gorm:"type:varchar(512)" json:"website"`                 // 商家站点
	IntegrationType string         `gorm:"type:varchar(32);index" json:"integration_type"`   // 联盟对接类型（refersion/shopify/impact/levanta）
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                          // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                       // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                   // 软删除时间
}

// TableName 指定表名
func (Merchant) TableName() string {
	return "merchants"
}
