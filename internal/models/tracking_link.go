package models

import (
	"time"

	"gorm.io/gorm"
)

// TrackingLink 推广短链表
// 约束：slug 全局唯一，停用走软停用（Active=false），从不硬删除。
type TrackingLink struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                     // 主键
	ExternalID       string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"external_id"` // 对外ID（UUID）
	InfluencerID     uint           `gorm:"not null;index" json:"influencer_id"`                      // 达人ID
	ProgramID        uint           `gorm:"not null;index" json:"program_id"`                         // 联盟计划ID
	ProductID        *uint          `gorm:"index" json:"product_id,omitempty"`                        // 商品ID
	CampaignID       string         `gorm:"type:varchar(64)" json:"campaign_id"`                      // 活动ID
	Slug             string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"slug"`        // 短码
	DestinationURL   string         `gorm:"type:varchar(2048);not null" json:"destination_url"`       // 目标地址（含跟踪参数）
	Subid            string         `gorm:"type:varchar(128);index" json:"subid"`                     // 回传跟踪参数
	UTMSource        string         `gorm:"type:varchar(64)" json:"utm_source"`                       // UTM 来源
	UTMMedium        string         `gorm:"type:varchar(64)" json:"utm_medium"`                       // UTM 媒介
	UTMCampaign      string         `gorm:"type:varchar(128)" json:"utm_campaign"`                    // UTM 活动
	TotalClicks      int64          `gorm:"not null;default:0" json:"total_clicks"`                   // 累计点击（非权威计数）
	TotalConversions int64          `gorm:"not null;default:0" json:"total_conversions"`              // 累计转化（非权威计数）
	TotalRevenue     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_revenue"` // 累计成交金额（非权威计数）
	Active           bool           `gorm:"not null;default:true;index" json:"active"`                // 是否启用
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt        time.Time      `json:"updated_at"`                                               // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间

	Influencer Influencer `gorm:"foreignKey:InfluencerID" json:"influencer,omitempty"` // 达人信息
	Program    Program    `gorm:"foreignKey:ProgramID" json:"program,omitempty"`       // 联盟计划
	Product    *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`       // 商品信息
}

// TableName 指定表名
func (TrackingLink) TableName() string {
	return "tracking_links"
}
