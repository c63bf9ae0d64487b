package models

import "time"

// Conversion 转化（订单）台账表
// 约束：(source, order_id) 复合唯一，无论回调投递多少次只落一行。
type Conversion struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                                               // 主键
	ExternalID string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"external_id"`                           // 对外ID（UUID）
	Source     string    `gorm:"type:varchar(32);not null;index;index:idx_conversion_unique,unique" json:"source"`   // 事件来源
	OrderID    string    `gorm:"type:varchar(128);not null;index:idx_conversion_unique,unique" json:"order_id"`      // 商家订单号
	OccurredAt time.Time `gorm:"index;not null" json:"occurred_at"`                                                  // 成交时间
	Subtotal   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`                              // 商品小计
	Tax        Money     `gorm:"type:decimal(20,2);not null;default:0" json:"tax"`                                   // 税费
	Shipping   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"shipping"`                              // 运费
	Total      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total"`                                 // 订单总额
	Currency   string    `gorm:"type:varchar(8);not null;default:'USD'" json:"currency"`                             // 币种
	Subid      string    `gorm:"type:varchar(128);index" json:"subid"`                                               // 归因信号：回传跟踪参数
	DeviceID   string    `gorm:"type:varchar(64);index" json:"device_id"`                                            // 归因信号：设备标识
	IPHash     string    `gorm:"type:varchar(64);index" json:"ip_hash"`                                              // 归因信号：IP哈希
	RawEvent   string    `gorm:"type:text" json:"raw_event"`                                                         // 原始事件快照
	Status     string    `gorm:"type:varchar(32);not null;index" json:"status"`                                      // 状态（pending/approved/rejected/refunded）
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                                                            // 创建时间
	UpdatedAt  time.Time `gorm:"index" json:"updated_at"`                                                            // 更新时间
}

// TableName 指定表名
func (Conversion) TableName() string {
	return "conversions"
}
