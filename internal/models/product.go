package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（短链可指向具体商品页）
type Product struct {
	ID         uint           `gorm:"primarykey" json:"id"`                   // 主键
	MerchantID uint           `gorm:"not null;index" json:"merchant_id"`      // 商家ID
	Name       string         `gorm:"type:varchar(255);not null" json:"name"` // 商品名称
	URL        string         `gorm:"type:varchar(1024)" json:"url"`          // 商品页地址
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`                // 创建时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                         // 软删除时间

	Merchant Merchant `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"` // 商家信息
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
