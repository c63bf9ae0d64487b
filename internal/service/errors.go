package service

import (
	"errors"
	"strings"
)

// 服务层哨兵错误，handler 依据错误类型映射 HTTP 状态码。
var (
	ErrNotFound     = errors.New("record not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountDisabled      = errors.New("account disabled")
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidEmail         = errors.New("email is invalid")
	ErrWeakPassword         = errors.New("password does not meet policy")
	ErrProfileEmpty         = errors.New("profile update is empty")

	ErrUnsupportedSource       = errors.New("unsupported webhook source")
	ErrSignatureInvalid        = errors.New("webhook signature invalid")
	ErrEventPayloadInvalid     = errors.New("webhook payload invalid")
	ErrConversionConflict      = errors.New("conversion state conflict")
	ErrConversionStatusInvalid = errors.New("conversion status transition not allowed")
	ErrInconsistentPipeline    = errors.New("attribution pipeline state inconsistent")

	ErrProgramDisabled    = errors.New("program disabled")
	ErrInfluencerDisabled = errors.New("influencer disabled")
	ErrSlugTaken          = errors.New("slug already taken")
	ErrSlugExhausted      = errors.New("slug generation exhausted")

	ErrCommissionStatusInvalid  = errors.New("commission status transition not allowed")
	ErrPayoutBatchStatusInvalid = errors.New("payout batch status transition not allowed")
	ErrPayoutBelowMinimum       = errors.New("claimable amount below minimum payout")
	ErrPayoutChannelUnavailable = errors.New("payout channel unavailable")

	ErrAttributionConfigInvalid = errors.New("attribution config invalid")
	ErrDashboardRangeInvalid    = errors.New("dashboard range invalid")
	ErrDashboardSettingInvalid  = errors.New("dashboard setting invalid")
)

// isUniqueViolation 识别唯一索引冲突
// sqlite 与 postgres 的错误文案不同，这里按关键字兜底判断。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
