package public

import (
	"errors"
	"time"

	"github.com/skinstack-core/internal/constants"
	handlershared "github.com/skinstack-core/internal/http/handlers/shared"
	"github.com/skinstack-core/internal/http/response"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/service"

	"github.com/gin-gonic/gin"
)

// InfluencerRegisterRequest 达人注册请求
type InfluencerRegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

// InfluencerLoginRequest 达人登录请求
type InfluencerLoginRequest struct {
	Email          string                              `json:"email" binding:"required"`
	Password       string                              `json:"password" binding:"required"`
	RememberMe     bool                                `json:"remember_me"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// InfluencerChangePasswordRequest 修改密码请求
type InfluencerChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// InfluencerUpdateProfileRequest 更新资料请求
type InfluencerUpdateProfileRequest struct {
	DisplayName   *string `json:"display_name"`
	PayoutAccount *string `json:"payout_account"`
}

func influencerView(influencer *models.Influencer) gin.H {
	return gin.H{
		"id":             influencer.ID,
		"external_id":    influencer.ExternalID,
		"email":          influencer.Email,
		"display_name":   influencer.DisplayName,
		"payout_account": influencer.PayoutAccount,
		"status":         influencer.Status,
		"last_login_at":  influencer.LastLoginAt,
	}
}

// InfluencerRegister 达人注册
func (h *Handler) InfluencerRegister(c *gin.Context) {
	var req InfluencerRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	influencer, token, expiresAt, err := h.InfluencerService.Register(req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, response.CodeBadRequest, "email is invalid", nil)
		case errors.Is(err, service.ErrEmailTaken):
			respondError(c, response.CodeBadRequest, "email already registered", nil)
		case errors.Is(err, service.ErrWeakPassword):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "registration failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"influencer": influencerView(influencer),
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

// InfluencerLogin 达人登录
func (h *Handler) InfluencerLogin(c *gin.Context) {
	var req InfluencerLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	if h.CaptchaService != nil {
		if captchaErr := h.CaptchaService.Verify(constants.CaptchaSceneLogin, req.CaptchaPayload.ToServicePayload()); captchaErr != nil {
			switch {
			case errors.Is(captchaErr, service.ErrCaptchaRequired):
				respondError(c, response.CodeBadRequest, "captcha required", nil)
				return
			case errors.Is(captchaErr, service.ErrCaptchaInvalid):
				respondError(c, response.CodeBadRequest, "captcha invalid", nil)
				return
			case errors.Is(captchaErr, service.ErrCaptchaConfigInvalid):
				respondError(c, response.CodeInternal, "captcha config invalid", captchaErr)
				return
			default:
				respondError(c, response.CodeInternal, "captcha verification failed", captchaErr)
				return
			}
		}
	}

	influencer, token, expiresAt, err := h.InfluencerService.Login(req.Email, req.Password, req.RememberMe)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, response.CodeBadRequest, "email is invalid", nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeUnauthorized, "invalid credentials", nil)
		case errors.Is(err, service.ErrAccountDisabled):
			respondError(c, response.CodeUnauthorized, "account disabled", nil)
		default:
			respondError(c, response.CodeInternal, "login failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"influencer": influencerView(influencer),
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

// GetInfluencerMe 获取当前达人信息
func (h *Handler) GetInfluencerMe(c *gin.Context) {
	influencerID, ok := getInfluencerID(c)
	if !ok {
		return
	}

	influencer, err := h.InfluencerService.GetByID(influencerID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "influencer not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to fetch profile", err)
		return
	}

	response.Success(c, influencerView(influencer))
}

// UpdateInfluencerProfile 更新当前达人资料
func (h *Handler) UpdateInfluencerProfile(c *gin.Context) {
	influencerID, ok := getInfluencerID(c)
	if !ok {
		return
	}

	var req InfluencerUpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	influencer, err := h.InfluencerService.UpdateProfile(influencerID, req.DisplayName, req.PayoutAccount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "influencer not found", nil)
		case errors.Is(err, service.ErrProfileEmpty):
			respondError(c, response.CodeBadRequest, "profile update is empty", nil)
		default:
			respondError(c, response.CodeInternal, "failed to update profile", err)
		}
		return
	}

	response.Success(c, influencerView(influencer))
}

// ChangeInfluencerPassword 修改当前达人密码
func (h *Handler) ChangeInfluencerPassword(c *gin.Context) {
	influencerID, ok := getInfluencerID(c)
	if !ok {
		return
	}

	var req InfluencerChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	if err := h.InfluencerService.ChangePassword(influencerID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "influencer not found", nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeUnauthorized, "invalid credentials", nil)
		case errors.Is(err, service.ErrWeakPassword):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "failed to change password", err)
		}
		return
	}

	response.Success(c, gin.H{"changed": true})
}

// GetInfluencerDashboard 获取当前达人收益概览
func (h *Handler) GetInfluencerDashboard(c *gin.Context) {
	influencerID, ok := getInfluencerID(c)
	if !ok {
		return
	}

	summary, err := h.CommissionService.SummarizeInfluencer(influencerID)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch dashboard data", err)
		return
	}

	claimable, err := h.PayoutService.GetClaimableSummary(influencerID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "influencer not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to fetch dashboard data", err)
		return
	}

	response.Success(c, gin.H{
		"commissions": summary,
		"claimable":   claimable,
	})
}
