package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/models"
)

const (
	attributionFeeRateMin          = 0
	attributionFeeRateMax          = 1
	attributionMinPayoutAmountMin  = 0
	attributionCookieWindowDaysMin = 1
	attributionCookieWindowDaysMax = 365

	attributionFeeRateDefault          = 0.20
	attributionMinPayoutAmountDefault  = 50.0
	attributionCookieWindowDaysDefault = 7
)

// AttributionSetting 归因与分佣运行时配置
type AttributionSetting struct {
	PlatformFeeRate         float64 `json:"platform_fee_rate"`
	MinPayoutAmount         float64 `json:"min_payout_amount"`
	DefaultCookieWindowDays int     `json:"default_cookie_window_days"`
}

// AttributionDefaultSetting 默认归因配置
func AttributionDefaultSetting() AttributionSetting {
	return NormalizeAttributionSetting(AttributionSetting{
		PlatformFeeRate:         attributionFeeRateDefault,
		MinPayoutAmount:         attributionMinPayoutAmountDefault,
		DefaultCookieWindowDays: attributionCookieWindowDaysDefault,
	})
}

// NormalizeAttributionSetting 归一化归因配置
func NormalizeAttributionSetting(setting AttributionSetting) AttributionSetting {
	setting.PlatformFeeRate = roundSettingDecimal(setting.PlatformFeeRate)
	if setting.PlatformFeeRate < attributionFeeRateMin {
		setting.PlatformFeeRate = attributionFeeRateMin
	}
	if setting.PlatformFeeRate > attributionFeeRateMax {
		setting.PlatformFeeRate = attributionFeeRateMax
	}

	setting.MinPayoutAmount = roundSettingDecimal(setting.MinPayoutAmount)
	if setting.MinPayoutAmount < attributionMinPayoutAmountMin {
		setting.MinPayoutAmount = attributionMinPayoutAmountMin
	}

	if setting.DefaultCookieWindowDays < attributionCookieWindowDaysMin {
		setting.DefaultCookieWindowDays = attributionCookieWindowDaysDefault
	}
	if setting.DefaultCookieWindowDays > attributionCookieWindowDaysMax {
		setting.DefaultCookieWindowDays = attributionCookieWindowDaysMax
	}
	return setting
}

// ValidateAttributionSetting 校验归因配置
func ValidateAttributionSetting(setting AttributionSetting) error {
	normalized := NormalizeAttributionSetting(setting)
	if normalized.PlatformFeeRate < attributionFeeRateMin || normalized.PlatformFeeRate > attributionFeeRateMax {
		return fmt.Errorf("%w: platform fee rate must be between 0 and 1", ErrAttributionConfigInvalid)
	}
	if normalized.MinPayoutAmount < attributionMinPayoutAmountMin {
		return fmt.Errorf("%w: min payout amount must not be negative", ErrAttributionConfigInvalid)
	}
	if normalized.DefaultCookieWindowDays < attributionCookieWindowDaysMin ||
		normalized.DefaultCookieWindowDays > attributionCookieWindowDaysMax {
		return fmt.Errorf("%w: cookie window days must be between 1 and 365", ErrAttributionConfigInvalid)
	}
	return nil
}

// AttributionSettingToMap 将归因配置转换为 settings 存储结构
func AttributionSettingToMap(setting AttributionSetting) map[string]interface{} {
	normalized := NormalizeAttributionSetting(setting)
	return map[string]interface{}{
		"platform_fee_rate":          normalized.PlatformFeeRate,
		"min_payout_amount":          normalized.MinPayoutAmount,
		"default_cookie_window_days": normalized.DefaultCookieWindowDays,
	}
}

func attributionSettingFromJSON(raw models.JSON, fallback AttributionSetting) AttributionSetting {
	result := fallback

	if rateRaw, ok := raw["platform_fee_rate"]; ok {
		if parsed, err := parseSettingFloat(rateRaw); err == nil {
			result.PlatformFeeRate = parsed
		}
	}
	if minPayoutRaw, ok := raw["min_payout_amount"]; ok {
		if parsed, err := parseSettingFloat(minPayoutRaw); err == nil {
			result.MinPayoutAmount = parsed
		}
	}
	if windowRaw, ok := raw["default_cookie_window_days"]; ok {
		if parsed, err := parseSettingInt(windowRaw); err == nil {
			result.DefaultCookieWindowDays = parsed
		}
	}

	return NormalizeAttributionSetting(result)
}

func normalizeAttributionSettingMap(value map[string]interface{}) models.JSON {
	setting := attributionSettingFromJSON(models.JSON(value), AttributionDefaultSetting())
	return models.JSON(AttributionSettingToMap(setting))
}

// GetAttributionSetting 获取归因配置（优先 settings，空时回退默认）
func (s *SettingService) GetAttributionSetting() (AttributionSetting, error) {
	fallback := AttributionDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyAttributionConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return attributionSettingFromJSON(value, fallback), nil
}

// UpdateAttributionSetting 更新归因配置
func (s *SettingService) UpdateAttributionSetting(setting AttributionSetting) (AttributionSetting, error) {
	normalized := NormalizeAttributionSetting(setting)
	if err := ValidateAttributionSetting(normalized); err != nil {
		return AttributionDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyAttributionConfig, AttributionSettingToMap(normalized)); err != nil {
		return AttributionDefaultSetting(), err
	}
	return normalized, nil
}

func parseSettingFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, fmt.Errorf("empty string")
		}
		return strconv.ParseFloat(trimmed, 64)
	default:
		return 0, fmt.Errorf("unsupported value type")
	}
}

func roundSettingDecimal(value float64) float64 {
	return math.Round(value*100) / 100
}
