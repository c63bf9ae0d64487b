package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skinstack-core/internal/cache"
	"github.com/skinstack-core/internal/repository"
)

const (
	dashboardCacheTTL      = 45 * time.Second
	dashboardCustomMaxDays = 90
)

// DashboardService 仪表盘服务
// 说明：聚合后台首页核心经营数据（流量、转化、归因、佣金）。
type DashboardService struct {
	repo           repository.DashboardRepository
	settingService *SettingService
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(repo repository.DashboardRepository, settingService *SettingService) *DashboardService {
	return &DashboardService{repo: repo, settingService: settingService}
}

// DashboardQueryInput 仪表盘查询输入
type DashboardQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// DashboardOverviewResponse 仪表盘总览响应
type DashboardOverviewResponse struct {
	Range    string               `json:"range"`
	From     string               `json:"from"`
	To       string               `json:"to"`
	Timezone string               `json:"timezone"`
	Currency string               `json:"currency,omitempty"`
	KPI      DashboardKPI         `json:"kpi"`
	Funnel   DashboardFunnel      `json:"funnel"`
	Alerts   []DashboardAlertItem `json:"alerts"`
}

// DashboardKPI 仪表盘核心指标
type DashboardKPI struct {
	ClicksTotal           int64  `json:"clicks_total"`
	ConversionsTotal      int64  `json:"conversions_total"`
	AttributedConversions int64  `json:"attributed_conversions"`
	AttributionRate       string `json:"attribution_rate"`
	EventsTotal           int64  `json:"events_total"`
	EventsFailed          int64  `json:"events_failed"`
	Revenue               string `json:"revenue"`
	CommissionGross       string `json:"commission_gross"`
	CommissionNet         string `json:"commission_net"`
	PendingCommissions    int64  `json:"pending_commissions"`
	ActiveLinks           int64  `json:"active_links"`
	NewInfluencers        int64  `json:"new_influencers"`
}

// DashboardFunnel 流量转化漏斗
type DashboardFunnel struct {
	Clicks                int64  `json:"clicks"`
	Conversions           int64  `json:"conversions"`
	AttributedConversions int64  `json:"attributed_conversions"`
	ClickConversionRate   string `json:"click_conversion_rate"`
	AttributionRate       string `json:"attribution_rate"`
}

// DashboardAlertItem 仪表盘告警项
type DashboardAlertItem struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Value int64  `json:"value"`
}

// DashboardTrendResponse 仪表盘趋势响应
type DashboardTrendResponse struct {
	Range    string                `json:"range"`
	From     string                `json:"from"`
	To       string                `json:"to"`
	Timezone string                `json:"timezone"`
	Points   []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint 趋势点
type DashboardTrendPoint struct {
	Date          string `json:"date"`
	Clicks        int64  `json:"clicks"`
	Conversions   int64  `json:"conversions"`
	Revenue       string `json:"revenue"`
	CommissionNet string `json:"commission_net"`
}

// DashboardRankingsResponse 仪表盘排行榜响应
type DashboardRankingsResponse struct {
	Range          string                       `json:"range"`
	From           string                       `json:"from"`
	To             string                       `json:"to"`
	Timezone       string                       `json:"timezone"`
	TopLinks       []DashboardLinkRanking       `json:"top_links"`
	TopInfluencers []DashboardInfluencerRanking `json:"top_influencers"`
	MatchTypes     []DashboardMatchTypeShare    `json:"match_types"`
}

// DashboardLinkRanking 短链排行项
type DashboardLinkRanking struct {
	LinkID      uint   `json:"link_id"`
	Slug        string `json:"slug"`
	Clicks      int64  `json:"clicks"`
	Conversions int64  `json:"conversions"`
	Revenue     string `json:"revenue"`
}

// DashboardInfluencerRanking 达人排行项
type DashboardInfluencerRanking struct {
	InfluencerID  uint   `json:"influencer_id"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email"`
	Conversions   int64  `json:"conversions"`
	CommissionNet string `json:"commission_net"`
}

// DashboardMatchTypeShare 归因方式分布项
type DashboardMatchTypeShare struct {
	MatchType string `json:"match_type"`
	Total     int64  `json:"total"`
	Share     string `json:"share"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// GetOverview 获取仪表盘总览
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	setting := s.loadDashboardSetting()

	cacheKey := fmt.Sprintf("dashboard:overview:%s:%d:%d:%s:%d:%d",
		window.rangeKey,
		window.startAt.Unix(),
		window.endAt.Unix(),
		window.timezone,
		setting.Alert.EventsFailedThreshold,
		setting.Alert.PendingCommissionsThreshold,
	)
	if !input.ForceRefresh {
		var cached DashboardOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	attributionRate := 0.0
	if overview.ConversionsTotal > 0 {
		attributionRate = float64(overview.AttributedConversions) / float64(overview.ConversionsTotal) * 100
	}
	clickConversionRate := 0.0
	if overview.ClicksTotal > 0 {
		clickConversionRate = float64(overview.ConversionsTotal) / float64(overview.ClicksTotal) * 100
	}

	response := &DashboardOverviewResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Currency: strings.ToUpper(strings.TrimSpace(overview.Currency)),
		KPI: DashboardKPI{
			ClicksTotal:           overview.ClicksTotal,
			ConversionsTotal:      overview.ConversionsTotal,
			AttributedConversions: overview.AttributedConversions,
			AttributionRate:       formatPercentValue(attributionRate),
			EventsTotal:           overview.EventsTotal,
			EventsFailed:          overview.EventsFailed,
			Revenue:               formatMoneyValue(overview.Revenue),
			CommissionGross:       formatMoneyValue(overview.CommissionGross),
			CommissionNet:         formatMoneyValue(overview.CommissionNet),
			PendingCommissions:    overview.PendingCommissions,
			ActiveLinks:           overview.ActiveLinks,
			NewInfluencers:        overview.NewInfluencers,
		},
		Funnel: DashboardFunnel{
			Clicks:                overview.ClicksTotal,
			Conversions:           overview.ConversionsTotal,
			AttributedConversions: overview.AttributedConversions,
			ClickConversionRate:   formatPercentValue(clickConversionRate),
			AttributionRate:       formatPercentValue(attributionRate),
		},
		Alerts: buildDashboardAlerts(overview, setting.Alert),
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTrends 获取仪表盘趋势
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:trends:%s:%d:%d:%s", window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardTrendResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	trafficRows, err := s.repo.GetTrafficTrends(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	revenueRows, err := s.repo.GetRevenueTrends(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	trafficMap := make(map[string]repository.DashboardTrafficTrendRow, len(trafficRows))
	for _, item := range trafficRows {
		trafficMap[item.Day] = item
	}
	revenueMap := make(map[string]repository.DashboardRevenueTrendRow, len(revenueRows))
	for _, item := range revenueRows {
		revenueMap[item.Day] = item
	}

	points := make([]DashboardTrendPoint, 0)
	for cursor := time.Date(window.startAt.Year(), window.startAt.Month(), window.startAt.Day(), 0, 0, 0, 0, window.startAt.Location()); cursor.Before(window.endAt); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format("2006-01-02")
		trafficItem := trafficMap[day]
		revenueItem := revenueMap[day]
		points = append(points, DashboardTrendPoint{
			Date:          day,
			Clicks:        trafficItem.Clicks,
			Conversions:   trafficItem.Conversions,
			Revenue:       formatMoneyValue(revenueItem.Revenue),
			CommissionNet: formatMoneyValue(revenueItem.CommissionNet),
		})
	}

	response := &DashboardTrendResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Points:   points,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetRankings 获取仪表盘排行榜与归因分布
func (s *DashboardService) GetRankings(ctx context.Context, input DashboardQueryInput) (*DashboardRankingsResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardRankingsResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	setting := s.loadDashboardSetting()

	cacheKey := fmt.Sprintf("dashboard:rankings:%s:%d:%d:%s:%d:%d",
		window.rangeKey,
		window.startAt.Unix(),
		window.endAt.Unix(),
		window.timezone,
		setting.Ranking.TopLinksLimit,
		setting.Ranking.TopInfluencersLimit,
	)
	if !input.ForceRefresh {
		var cached DashboardRankingsResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	linkRows, err := s.repo.GetTopLinks(window.startAt, window.endAt, setting.Ranking.TopLinksLimit)
	if err != nil {
		return nil, err
	}
	influencerRows, err := s.repo.GetTopInfluencers(window.startAt, window.endAt, setting.Ranking.TopInfluencersLimit)
	if err != nil {
		return nil, err
	}
	matchTypeRows, err := s.repo.GetMatchTypeBreakdown(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	links := make([]DashboardLinkRanking, 0, len(linkRows))
	for _, item := range linkRows {
		slug := strings.TrimSpace(item.Slug)
		if slug == "" {
			slug = "-"
		}
		links = append(links, DashboardLinkRanking{
			LinkID:      item.LinkID,
			Slug:        slug,
			Clicks:      item.Clicks,
			Conversions: item.Conversions,
			Revenue:     formatMoneyValue(item.Revenue),
		})
	}

	influencers := make([]DashboardInfluencerRanking, 0, len(influencerRows))
	for _, item := range influencerRows {
		influencers = append(influencers, DashboardInfluencerRanking{
			InfluencerID:  item.InfluencerID,
			DisplayName:   strings.TrimSpace(item.DisplayName),
			Email:         strings.TrimSpace(item.Email),
			Conversions:   item.Conversions,
			CommissionNet: formatMoneyValue(item.CommissionNet),
		})
	}

	var matchTotal int64
	for _, item := range matchTypeRows {
		matchTotal += item.Total
	}
	matchTypes := make([]DashboardMatchTypeShare, 0, len(matchTypeRows))
	for _, item := range matchTypeRows {
		share := 0.0
		if matchTotal > 0 {
			share = float64(item.Total) / float64(matchTotal) * 100
		}
		matchTypes = append(matchTypes, DashboardMatchTypeShare{
			MatchType: item.MatchType,
			Total:     item.Total,
			Share:     formatPercentValue(share),
		})
	}

	response := &DashboardRankingsResponse{
		Range:          window.rangeKey,
		From:           window.startAt.Format(time.RFC3339),
		To:             window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone:       window.timezone,
		TopLinks:       links,
		TopInfluencers: influencers,
		MatchTypes:     matchTypes,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

func (s *DashboardService) loadDashboardSetting() DashboardSetting {
	fallback := DashboardDefaultSetting()
	if s == nil || s.settingService == nil {
		return fallback
	}
	setting, err := s.settingService.GetDashboardSetting()
	if err != nil {
		return fallback
	}
	return NormalizeDashboardSetting(setting)
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := dashboardWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}

func formatMoneyValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func buildDashboardAlerts(overview repository.DashboardOverviewRow, alertSetting DashboardAlertSetting) []DashboardAlertItem {
	alerts := make([]DashboardAlertItem, 0, 2)
	if overview.EventsFailed >= alertSetting.EventsFailedThreshold {
		alerts = append(alerts, DashboardAlertItem{Type: "webhook_events_failed", Level: "error", Value: overview.EventsFailed})
	}
	if overview.PendingCommissions >= alertSetting.PendingCommissionsThreshold {
		alerts = append(alerts, DashboardAlertItem{Type: "pending_commissions", Level: "warning", Value: overview.PendingCommissions})
	}
	return alerts
}
