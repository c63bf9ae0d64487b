package models

import "time"

// PayoutBatch 结算批次表（聚合同一达人的已审核佣金）
type PayoutBatch struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                       // 主键
	ExternalID      string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"external_id"`   // 对外批次号（UUID，兼作转账单号）
	InfluencerID    uint       `gorm:"not null;index" json:"influencer_id"`                        // 达人ID
	TotalAmount     Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`  // 批次总额（所含佣金净额之和）
	CommissionCount int        `gorm:"not null;default:0" json:"commission_count"`                 // 所含佣金笔数
	Channel         string     `gorm:"type:varchar(32);not null" json:"channel"`                   // 打款渠道
	TransferRef     string     `gorm:"type:varchar(128)" json:"transfer_ref"`                      // 渠道侧转账单号
	Status          string     `gorm:"type:varchar(32);not null;index" json:"status"`              // 状态（pending/processing/paid/failed）
	PaidAt          *time.Time `gorm:"index" json:"paid_at,omitempty"`                             // 打款完成时间
	FailReason      string     `gorm:"type:varchar(255)" json:"fail_reason"`                       // 失败原因
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt       time.Time  `json:"updated_at"`                                                 // 更新时间

	Influencer Influencer `gorm:"foreignKey:InfluencerID" json:"influencer,omitempty"` // 达人信息
}

// TableName 指定表名
func (PayoutBatch) TableName() string {
	return "payout_batches"
}
