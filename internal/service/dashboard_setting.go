package service

import (
	"fmt"

	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/models"
)

// DashboardRankingSetting 仪表盘排行榜配置
type DashboardRankingSetting struct {
	TopLinksLimit       int `json:"top_links_limit"`
	TopInfluencersLimit int `json:"top_influencers_limit"`
}

// DashboardAlertSetting 仪表盘告警阈值配置
type DashboardAlertSetting struct {
	EventsFailedThreshold       int64 `json:"events_failed_threshold"`
	PendingCommissionsThreshold int64 `json:"pending_commissions_threshold"`
}

// DashboardSetting 仪表盘配置实体
type DashboardSetting struct {
	Ranking DashboardRankingSetting `json:"ranking"`
	Alert   DashboardAlertSetting   `json:"alert"`
}

// DashboardDefaultSetting 仪表盘默认配置
func DashboardDefaultSetting() DashboardSetting {
	return DashboardSetting{
		Ranking: DashboardRankingSetting{
			TopLinksLimit:       5,
			TopInfluencersLimit: 5,
		},
		Alert: DashboardAlertSetting{
			EventsFailedThreshold:       10,
			PendingCommissionsThreshold: 50,
		},
	}
}

// NormalizeDashboardSetting 归一化仪表盘配置
func NormalizeDashboardSetting(setting DashboardSetting) DashboardSetting {
	if setting.Ranking.TopLinksLimit < 1 || setting.Ranking.TopLinksLimit > 50 {
		setting.Ranking.TopLinksLimit = 5
	}
	if setting.Ranking.TopInfluencersLimit < 1 || setting.Ranking.TopInfluencersLimit > 50 {
		setting.Ranking.TopInfluencersLimit = 5
	}
	if setting.Alert.EventsFailedThreshold < 1 {
		setting.Alert.EventsFailedThreshold = 10
	}
	if setting.Alert.PendingCommissionsThreshold < 1 {
		setting.Alert.PendingCommissionsThreshold = 50
	}
	return setting
}

// ValidateDashboardSetting 校验仪表盘配置
func ValidateDashboardSetting(setting DashboardSetting) error {
	if setting.Ranking.TopLinksLimit < 1 || setting.Ranking.TopLinksLimit > 50 {
		return fmt.Errorf("%w: top_links_limit must be between 1 and 50", ErrDashboardSettingInvalid)
	}
	if setting.Ranking.TopInfluencersLimit < 1 || setting.Ranking.TopInfluencersLimit > 50 {
		return fmt.Errorf("%w: top_influencers_limit must be between 1 and 50", ErrDashboardSettingInvalid)
	}
	if setting.Alert.EventsFailedThreshold < 1 {
		return fmt.Errorf("%w: events_failed_threshold must be positive", ErrDashboardSettingInvalid)
	}
	if setting.Alert.PendingCommissionsThreshold < 1 {
		return fmt.Errorf("%w: pending_commissions_threshold must be positive", ErrDashboardSettingInvalid)
	}
	return nil
}

// DashboardSettingToMap 转换为 settings 表格式
func DashboardSettingToMap(setting DashboardSetting) map[string]interface{} {
	normalized := NormalizeDashboardSetting(setting)
	return map[string]interface{}{
		"ranking": map[string]interface{}{
			"top_links_limit":       normalized.Ranking.TopLinksLimit,
			"top_influencers_limit": normalized.Ranking.TopInfluencersLimit,
		},
		"alert": map[string]interface{}{
			"events_failed_threshold":       normalized.Alert.EventsFailedThreshold,
			"pending_commissions_threshold": normalized.Alert.PendingCommissionsThreshold,
		},
	}
}

// GetDashboardSetting 获取仪表盘设置
func (s *SettingService) GetDashboardSetting() (DashboardSetting, error) {
	fallback := DashboardDefaultSetting()
	value, err := s.GetByKey(constants.SettingKeyDashboardConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return NormalizeDashboardSetting(dashboardSettingFromJSON(value, fallback)), nil
}

// UpdateDashboardSetting 更新仪表盘设置
func (s *SettingService) UpdateDashboardSetting(setting DashboardSetting) (DashboardSetting, error) {
	normalized := NormalizeDashboardSetting(setting)
	if err := ValidateDashboardSetting(normalized); err != nil {
		return DashboardSetting{}, err
	}
	if _, err := s.Update(constants.SettingKeyDashboardConfig, DashboardSettingToMap(normalized)); err != nil {
		return DashboardSetting{}, err
	}
	return normalized, nil
}

func dashboardSettingFromJSON(raw models.JSON, fallback DashboardSetting) DashboardSetting {
	next := fallback
	if raw == nil {
		return next
	}
	if rankingRaw, ok := raw["ranking"]; ok {
		if rankingMap := toStringAnyMap(rankingRaw); rankingMap != nil {
			next.Ranking.TopLinksLimit = readInt(rankingMap, "top_links_limit", next.Ranking.TopLinksLimit)
			next.Ranking.TopInfluencersLimit = readInt(rankingMap, "top_influencers_limit", next.Ranking.TopInfluencersLimit)
		}
	}
	if alertRaw, ok := raw["alert"]; ok {
		if alertMap := toStringAnyMap(alertRaw); alertMap != nil {
			next.Alert.EventsFailedThreshold = int64(readInt(alertMap, "events_failed_threshold", int(next.Alert.EventsFailedThreshold)))
			next.Alert.PendingCommissionsThreshold = int64(readInt(alertMap, "pending_commissions_threshold", int(next.Alert.PendingCommissionsThreshold)))
		}
	}
	return next
}
