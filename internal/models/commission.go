package models

import "time"

// Commission 佣金记录表
// 约束：conversion_id 唯一，一个转化至多产生一条佣金。
type Commission struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                                  // 主键
	ConversionID    uint       `gorm:"not null;uniqueIndex;constraint:OnDelete:CASCADE" json:"conversion_id"` // 转化ID（唯一）
	AttributionID   *uint      `gorm:"index" json:"attribution_id,omitempty"`                                 // 归因记录ID
	InfluencerID    uint       `gorm:"not null;index" json:"influencer_id"`                                   // 达人ID
	ProgramID       uint       `gorm:"not null;index" json:"program_id"`                                      // 联盟计划ID
	OrderAmount     Money      `gorm:"type:decimal(20,2);not null;default:0" json:"order_amount"`             // 订单金额（佣金基数）
	CommissionType  string     `gorm:"type:varchar(20);not null" json:"commission_type"`                      // 佣金类型（percent/flat）
	CommissionValue Money      `gorm:"type:decimal(10,4);not null;default:0" json:"commission_value"`         // 计算时的佣金比例或固定金额
	GrossAmount     Money      `gorm:"type:decimal(20,2);not null;default:0" json:"gross_amount"`             // 佣金总额
	PlatformFeeRate Money      `gorm:"type:decimal(5,2);not null;default:0" json:"platform_fee_rate"`         // 平台费率（平台级常量快照）
	PlatformFee     Money      `gorm:"type:decimal(20,2);not null;default:0" json:"platform_fee"`             // 平台费
	NetAmount       Money      `gorm:"type:decimal(20,2);not null;default:0" json:"net_amount"`               // 达人实得
	Status          string     `gorm:"type:varchar(32);not null;index" json:"status"`                         // 状态
	PayoutBatchID   *uint      `gorm:"index" json:"payout_batch_id,omitempty"`                                // 结算批次ID
	ApprovedAt      *time.Time `gorm:"index" json:"approved_at,omitempty"`                                    // 审核通过时间
	PaidAt          *time.Time `gorm:"index" json:"paid_at,omitempty"`                                        // 打款时间
	InvalidReason   string     `gorm:"type:varchar(255)" json:"invalid_reason"`                               // 失效原因
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                                               // 创建时间
	UpdatedAt       time.Time  `gorm:"index" json:"updated_at"`                                               // 更新时间

	Conversion  Conversion   `gorm:"foreignKey:ConversionID" json:"conversion,omitempty"`    // 转化信息
	Attribution *Attribution `gorm:"foreignKey:AttributionID" json:"attribution,omitempty"`  // 归因记录
	Influencer  Influencer   `gorm:"foreignKey:InfluencerID" json:"influencer,omitempty"`    // 达人信息
	Program     Program      `gorm:"foreignKey:ProgramID" json:"program,omitempty"`          // 联盟计划
	PayoutBatch *PayoutBatch `gorm:"foreignKey:PayoutBatchID" json:"payout_batch,omitempty"` // 结算批次
}

// TableName 指定表名
func (Commission) TableName() string {
	return "commissions"
}
