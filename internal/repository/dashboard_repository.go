package repository

import (
	"fmt"
	"time"

	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetTrafficTrends(startAt, endAt time.Time) ([]DashboardTrafficTrendRow, error)
	GetRevenueTrends(startAt, endAt time.Time) ([]DashboardRevenueTrendRow, error)
	GetTopLinks(startAt, endAt time.Time, limit int) ([]DashboardLinkRankingRow, error)
	GetTopInfluencers(startAt, endAt time.Time, limit int) ([]DashboardInfluencerRankingRow, error)
	GetMatchTypeBreakdown(startAt, endAt time.Time) ([]DashboardMatchTypeRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	ClicksTotal           int64
	ConversionsTotal      int64
	AttributedConversions int64
	EventsTotal           int64
	EventsFailed          int64
	Revenue               float64
	CommissionGross       float64
	CommissionNet         float64
	PendingCommissions    int64
	ActiveLinks           int64
	NewInfluencers        int64
	Currency              string
}

// DashboardTrafficTrendRow 点击与转化趋势统计
type DashboardTrafficTrendRow struct {
	Day         string
	Clicks      int64
	Conversions int64
}

// DashboardRevenueTrendRow 营收与佣金趋势统计
type DashboardRevenueTrendRow struct {
	Day           string
	Revenue       float64
	CommissionNet float64
}

// DashboardLinkRankingRow 短链排行原始行
type DashboardLinkRankingRow struct {
	LinkID      uint
	Slug        string
	Clicks      int64
	Conversions int64
	Revenue     float64
}

// DashboardInfluencerRankingRow 达人排行原始行
type DashboardInfluencerRankingRow struct {
	InfluencerID  uint
	DisplayName   string
	Email         string
	Conversions   int64
	CommissionNet float64
}

// DashboardMatchTypeRow 归因方式分布原始行
type DashboardMatchTypeRow struct {
	MatchType string
	Total     int64
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetOverview 获取总览统计
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	if err := r.db.Model(&models.Click{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.ClicksTotal).Error; err != nil {
		return result, err
	}

	conversionBase := func() *gorm.DB {
		return r.db.Model(&models.Conversion{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}
	if err := conversionBase().Count(&result.ConversionsTotal).Error; err != nil {
		return result, err
	}
	if err := conversionBase().
		Where("id IN (?)", r.db.Model(&models.Attribution{}).Select("conversion_id")).
		Count(&result.AttributedConversions).Error; err != nil {
		return result, err
	}
	if err := conversionBase().
		Select("COALESCE(SUM(total), 0)").
		Scan(&result.Revenue).Error; err != nil {
		return result, err
	}

	eventBase := func() *gorm.DB {
		return r.db.Model(&models.WebhookEvent{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}
	if err := eventBase().Count(&result.EventsTotal).Error; err != nil {
		return result, err
	}
	if err := eventBase().Where("status_code >= ?", 400).Count(&result.EventsFailed).Error; err != nil {
		return result, err
	}

	commissionBase := func() *gorm.DB {
		return r.db.Model(&models.Commission{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}
	countedStatuses := []string{
		constants.CommissionStatusPending,
		constants.CommissionStatusApproved,
		constants.CommissionStatusPaid,
	}
	if err := commissionBase().Where("status IN ?", countedStatuses).
		Select("COALESCE(SUM(gross_amount), 0)").
		Scan(&result.CommissionGross).Error; err != nil {
		return result, err
	}
	if err := commissionBase().Where("status IN ?", countedStatuses).
		Select("COALESCE(SUM(net_amount), 0)").
		Scan(&result.CommissionNet).Error; err != nil {
		return result, err
	}
	if err := commissionBase().Where("status = ?", constants.CommissionStatusPending).
		Count(&result.PendingCommissions).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.TrackingLink{}).
		Where("active = ?", true).
		Count(&result.ActiveLinks).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.Influencer{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.NewInfluencers).Error; err != nil {
		return result, err
	}

	_ = r.db.Model(&models.Conversion{}).
		Where("created_at >= ? AND created_at < ? AND currency <> ''", startAt, endAt).
		Order("id DESC").
		Limit(1).
		Pluck("currency", &result.Currency).Error

	return result, nil
}

// GetTrafficTrends 获取点击与转化趋势
func (r *GormDashboardRepository) GetTrafficTrends(startAt, endAt time.Time) ([]DashboardTrafficTrendRow, error) {
	type countRow struct {
		Day   string
		Total int64
	}

	dayExpr := "CAST(date(created_at) AS TEXT)"

	var clickRows []countRow
	if err := r.db.Model(&models.Click{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&clickRows).Error; err != nil {
		return nil, err
	}

	var conversionRows []countRow
	if err := r.db.Model(&models.Conversion{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&conversionRows).Error; err != nil {
		return nil, err
	}

	conversionMap := make(map[string]int64, len(conversionRows))
	for _, item := range conversionRows {
		conversionMap[item.Day] = item.Total
	}

	seen := make(map[string]struct{}, len(clickRows)+len(conversionRows))
	result := make([]DashboardTrafficTrendRow, 0, len(clickRows))
	for _, item := range clickRows {
		seen[item.Day] = struct{}{}
		result = append(result, DashboardTrafficTrendRow{
			Day:         item.Day,
			Clicks:      item.Total,
			Conversions: conversionMap[item.Day],
		})
	}
	for _, item := range conversionRows {
		if _, ok := seen[item.Day]; ok {
			continue
		}
		result = append(result, DashboardTrafficTrendRow{
			Day:         item.Day,
			Conversions: item.Total,
		})
	}
	return result, nil
}

// GetRevenueTrends 获取营收与佣金趋势
func (r *GormDashboardRepository) GetRevenueTrends(startAt, endAt time.Time) ([]DashboardRevenueTrendRow, error) {
	type amountRow struct {
		Day   string
		Total float64
	}

	dayExpr := "CAST(date(created_at) AS TEXT)"

	var revenueRows []amountRow
	if err := r.db.Model(&models.Conversion{}).
		Select(fmt.Sprintf("%s as day, COALESCE(SUM(total), 0) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&revenueRows).Error; err != nil {
		return nil, err
	}

	var commissionRows []amountRow
	if err := r.db.Model(&models.Commission{}).
		Select(fmt.Sprintf("%s as day, COALESCE(SUM(net_amount), 0) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ? AND status IN ?", startAt, endAt, []string{
			constants.CommissionStatusPending,
			constants.CommissionStatusApproved,
			constants.CommissionStatusPaid,
		}).
		Group(dayExpr).
		Order("day asc").
		Scan(&commissionRows).Error; err != nil {
		return nil, err
	}

	commissionMap := make(map[string]float64, len(commissionRows))
	for _, item := range commissionRows {
		commissionMap[item.Day] = item.Total
	}

	seen := make(map[string]struct{}, len(revenueRows)+len(commissionRows))
	result := make([]DashboardRevenueTrendRow, 0, len(revenueRows))
	for _, item := range revenueRows {
		seen[item.Day] = struct{}{}
		result = append(result, DashboardRevenueTrendRow{
			Day:           item.Day,
			Revenue:       item.Total,
			CommissionNet: commissionMap[item.Day],
		})
	}
	for _, item := range commissionRows {
		if _, ok := seen[item.Day]; ok {
			continue
		}
		result = append(result, DashboardRevenueTrendRow{
			Day:           item.Day,
			CommissionNet: item.Total,
		})
	}
	return result, nil
}

// GetTopLinks 获取短链排行榜
func (r *GormDashboardRepository) GetTopLinks(startAt, endAt time.Time, limit int) ([]DashboardLinkRankingRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows := make([]DashboardLinkRankingRow, 0)
	if err := r.db.Model(&models.Click{}).
		Select(`
			clicks.tracking_link_id as link_id,
			COALESCE(tracking_links.slug, '') as slug,
			COUNT(*) as clicks,
			COALESCE(MAX(tracking_links.total_conversions), 0) as conversions,
			COALESCE(MAX(tracking_links.total_revenue), 0) as revenue
		`).
		Joins("LEFT JOIN tracking_links ON tracking_links.id = clicks.tracking_link_id").
		Where("clicks.created_at >= ? AND clicks.created_at < ?", startAt, endAt).
		Group("clicks.tracking_link_id, tracking_links.slug").
		Order("clicks DESC, revenue DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTopInfluencers 获取达人排行榜
func (r *GormDashboardRepository) GetTopInfluencers(startAt, endAt time.Time, limit int) ([]DashboardInfluencerRankingRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows := make([]DashboardInfluencerRankingRow, 0)
	if err := r.db.Model(&models.Commission{}).
		Select(`
			commissions.influencer_id as influencer_id,
			COALESCE(influencers.display_name, '') as display_name,
			COALESCE(influencers.email, '') as email,
			COUNT(DISTINCT commissions.conversion_id) as conversions,
			COALESCE(SUM(commissions.net_amount), 0) as commission_net
		`).
		Joins("LEFT JOIN influencers ON influencers.id = commissions.influencer_id").
		Where("commissions.created_at >= ? AND commissions.created_at < ? AND commissions.status IN ?",
			startAt, endAt, []string{
				constants.CommissionStatusPending,
				constants.CommissionStatusApproved,
				constants.CommissionStatusPaid,
			}).
		Group("commissions.influencer_id, influencers.display_name, influencers.email").
		Order("commission_net DESC, conversions DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetMatchTypeBreakdown 获取归因方式分布
func (r *GormDashboardRepository) GetMatchTypeBreakdown(startAt, endAt time.Time) ([]DashboardMatchTypeRow, error) {
	rows := make([]DashboardMatchTypeRow, 0)
	if err := r.db.Model(&models.Attribution{}).
		Select("match_type, COUNT(*) as total").
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group("match_type").
		Order("total DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
