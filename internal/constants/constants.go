package constants

// 回调事件来源常量
const (
	WebhookSourceRefersion = "refersion"
	WebhookSourceShopify   = "shopify"
	WebhookSourceImpact    = "impact"
	WebhookSourceLevanta   = "levanta"
)

// 转化状态常量
const (
	ConversionStatusPending  = "pending"
	ConversionStatusApproved = "approved"
	ConversionStatusRejected = "rejected"
	ConversionStatusRefunded = "refunded"
)

// 佣金状态常量
const (
	CommissionStatusPending   = "pending"
	CommissionStatusApproved  = "approved"
	CommissionStatusPaid      = "paid"
	CommissionStatusDisputed  = "disputed"
	CommissionStatusCancelled = "cancelled"
	CommissionStatusRefunded  = "refunded"
)

// 佣金类型常量
const (
	CommissionTypePercent = "percent"
	CommissionTypeFlat    = "flat"
)

// 归因模型常量
const (
	AttributionModelLastClick = "last_click"
)

// 归因匹配类型常量
const (
	MatchTypeSubid       = "subid"
	MatchTypeDevice      = "device"
	MatchTypeIPTime      = "ip_time"
	MatchTypeCookie      = "cookie"
	MatchTypeFingerprint = "fingerprint"
)

// 结算批次状态常量
const (
	PayoutBatchStatusPending    = "pending"
	PayoutBatchStatusProcessing = "processing"
	PayoutBatchStatusPaid       = "paid"
	PayoutBatchStatusFailed     = "failed"
)

// 结算渠道常量
const (
	PayoutChannelWechat = "wechat"
	PayoutChannelManual = "manual"
)

// 达人状态常量
const (
	InfluencerStatusActive   = "active"
	InfluencerStatusDisabled = "disabled"
)

// 联盟计划状态常量
const (
	ProgramStatusActive   = "active"
	ProgramStatusDisabled = "disabled"
)

// 终端类型常量
const (
	ClickPlatformDesktop = "desktop"
	ClickPlatformMobile  = "mobile"
	ClickPlatformTablet  = "tablet"
)

// 登录日志失败原因常量
const (
	LoginFailReasonBadRequest         = "bad_request"
	LoginFailReasonCaptchaRequired    = "captcha_required"
	LoginFailReasonCaptchaInvalid     = "captcha_invalid"
	LoginFailReasonInvalidCredentials = "invalid_credentials"
	LoginFailReasonAccountDisabled    = "account_disabled"
)

// 验证码提供方常量
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
)

// 验证码校验场景常量
const (
	CaptchaSceneLogin = "login"
)

// 队列常量
const (
	QueueDefault            = "default"
	QueueCritical           = "critical"
	TaskClickRecord         = "click:record"
	TaskLinkCounterRefresh  = "link:counter_refresh"
	TaskConversionProcessed = "conversion:processed_notify"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "ss"
)

// 缓存键常量
const (
	CacheKeyLinkSlugPrefix = "link:slug"
)

// 设置键常量
const (
	SettingKeyAttributionConfig = "attribution_config"
	SettingKeySiteConfig        = "site_config"
	SettingKeyCaptchaConfig     = "captcha_config"
	SettingKeyDashboardConfig   = "dashboard_config"
)

// 币种常量
const (
	SiteCurrencyDefault = "USD"
)
