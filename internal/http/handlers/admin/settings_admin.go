package admin

import (
	"errors"

	"github.com/skinstack-core/internal/cache"
	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/http/response"
	"github.com/skinstack-core/internal/service"

	"github.com/gin-gonic/gin"
)

const publicConfigCacheKey = "public:config"

// GetSettings 获取设置
func (h *Handler) GetSettings(c *gin.Context) {
	key := c.DefaultQuery("key", constants.SettingKeySiteConfig)

	value, err := h.SettingService.GetByKey(key)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch settings", err)
		return
	}
	if value == nil {
		response.Success(c, gin.H{})
		return
	}

	response.Success(c, value)
}

// UpdateSettingsRequest 更新设置请求
type UpdateSettingsRequest struct {
	Key   string                 `json:"key" binding:"required"`
	Value map[string]interface{} `json:"value" binding:"required"`
}

// UpdateSettings 更新设置
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	value, err := h.SettingService.Update(req.Key, req.Value)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to save settings", err)
		return
	}

	if req.Key == constants.SettingKeySiteConfig {
		_ = cache.Del(c.Request.Context(), publicConfigCacheKey)
	}
	response.Success(c, value)
}

// GetAttributionSettings 获取归因配置
func (h *Handler) GetAttributionSettings(c *gin.Context) {
	setting, err := h.SettingService.GetAttributionSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch settings", err)
		return
	}
	response.Success(c, setting)
}

// UpdateAttributionSettings 更新归因配置
func (h *Handler) UpdateAttributionSettings(c *gin.Context) {
	var req service.AttributionSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	setting, err := h.SettingService.UpdateAttributionSetting(req)
	if err != nil {
		if errors.Is(err, service.ErrAttributionConfigInvalid) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to save settings", err)
		return
	}
	response.Success(c, setting)
}

// GetDashboardSettings 获取仪表盘配置
func (h *Handler) GetDashboardSettings(c *gin.Context) {
	setting, err := h.SettingService.GetDashboardSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch settings", err)
		return
	}
	response.Success(c, setting)
}

// UpdateDashboardSettings 更新仪表盘配置
func (h *Handler) UpdateDashboardSettings(c *gin.Context) {
	var req service.DashboardSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	setting, err := h.SettingService.UpdateDashboardSetting(req)
	if err != nil {
		if errors.Is(err, service.ErrDashboardSettingInvalid) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to save settings", err)
		return
	}
	response.Success(c, setting)
}

// GetCaptchaSettings 获取验证码配置
func (h *Handler) GetCaptchaSettings(c *gin.Context) {
	setting, err := h.SettingService.GetCaptchaSetting(h.Config.Captcha)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch settings", err)
		return
	}
	response.Success(c, service.CaptchaSettingToMap(setting))
}

// UpdateCaptchaSettings 更新验证码配置
func (h *Handler) UpdateCaptchaSettings(c *gin.Context) {
	var patch service.CaptchaSettingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	setting, err := h.SettingService.PatchCaptchaSetting(h.Config.Captcha, patch)
	if err != nil {
		if errors.Is(err, service.ErrCaptchaConfigInvalid) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to save settings", err)
		return
	}

	if h.CaptchaService != nil {
		h.CaptchaService.InvalidateCache()
	}
	_ = cache.Del(c.Request.Context(), publicConfigCacheKey)
	response.Success(c, service.CaptchaSettingToMap(setting))
}
