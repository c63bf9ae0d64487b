package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/skinstack-core/internal/authz"
	"github.com/skinstack-core/internal/cache"
	"github.com/skinstack-core/internal/config"
	"github.com/skinstack-core/internal/constants"
	adminhandlers "github.com/skinstack-core/internal/http/handlers/admin"
	publichandlers "github.com/skinstack-core/internal/http/handlers/public"
	"github.com/skinstack-core/internal/http/response"
	"github.com/skinstack-core/internal/logger"
	"github.com/skinstack-core/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "too many login attempts",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "too many login attempts",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// 短链跳转（热路径，放在 API 组之外）
	r.GET("/l/:slug", publicHandler.RedirectLink)

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/config", publicHandler.GetConfig)
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
		}

		// 联盟网络回调
		apiV1.POST("/webhooks/:source", publicHandler.ReceiveWebhook)

		// 达人认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.InfluencerRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.InfluencerLogin)
		}

		// 达人接口（需鉴权）
		influencer := apiV1.Group("")
		influencer.Use(InfluencerJWTAuthMiddleware(cfg.InfluencerJWT.SecretKey, c.InfluencerRepo))
		{
			influencer.GET("/me", publicHandler.GetInfluencerMe)
			influencer.PUT("/me/profile", publicHandler.UpdateInfluencerProfile)
			influencer.PUT("/me/password", publicHandler.ChangeInfluencerPassword)
			influencer.GET("/me/dashboard", publicHandler.GetInfluencerDashboard)
			influencer.POST("/links", publicHandler.CreateMyLink)
			influencer.GET("/links", publicHandler.ListMyLinks)
			influencer.GET("/links/:id/stats", publicHandler.GetMyLinkStats)
			influencer.GET("/payouts/claimable", publicHandler.GetMyClaimable)
			influencer.POST("/payouts", publicHandler.CreateMyPayout)
			influencer.GET("/payouts", publicHandler.ListMyPayouts)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				// 仪表盘
				authorized.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
				authorized.GET("/dashboard/trends", adminHandler.GetDashboardTrends)
				authorized.GET("/dashboard/rankings", adminHandler.GetDashboardRankings)

				// 商家与联盟计划管理
				authorized.POST("/merchants", adminHandler.CreateMerchant)
				authorized.GET("/merchants/:id", adminHandler.GetMerchant)
				authorized.GET("/programs", adminHandler.ListPrograms)
				authorized.GET("/programs/:id", adminHandler.GetProgram)
				authorized.POST("/programs", adminHandler.CreateProgram)
				authorized.PUT("/programs/:id", adminHandler.UpdateProgram)
				authorized.POST("/products", adminHandler.CreateProduct)

				// 达人管理
				authorized.GET("/influencers", adminHandler.ListInfluencers)
				authorized.GET("/influencers/:id", adminHandler.GetInfluencer)
				authorized.PUT("/influencers/:id/status", adminHandler.SetInfluencerStatus)

				// 短链管理
				authorized.GET("/links", adminHandler.ListAdminLinks)
				authorized.GET("/links/:id/stats", adminHandler.GetAdminLinkStats)
				authorized.POST("/links/:id/deactivate", adminHandler.DeactivateAdminLink)

				// 转化与回调事件
				authorized.GET("/conversions", adminHandler.ListAdminConversions)
				authorized.POST("/conversions/:id/approve", adminHandler.ApproveConversion)
				authorized.POST("/conversions/:id/reject", adminHandler.RejectConversion)
				authorized.GET("/webhook-events", adminHandler.ListAdminWebhookEvents)

				// 佣金管理
				authorized.GET("/commissions", adminHandler.ListAdminCommissions)
				authorized.GET("/commissions/:id", adminHandler.GetAdminCommission)
				authorized.POST("/commissions/:id/approve", adminHandler.ApproveCommission)
				authorized.POST("/commissions/:id/dispute", adminHandler.DisputeCommission)
				authorized.POST("/commissions/:id/cancel", adminHandler.CancelCommission)
				authorized.POST("/commissions/:id/refund", adminHandler.RefundCommission)

				// 结算批次管理
				authorized.GET("/payouts", adminHandler.ListAdminPayouts)
				authorized.GET("/payouts/:id", adminHandler.GetAdminPayout)
				authorized.POST("/payouts/:id/execute", adminHandler.ExecuteAdminPayout)
				authorized.POST("/payouts/:id/mark-paid", adminHandler.MarkAdminPayoutPaid)
				authorized.POST("/payouts/:id/mark-failed", adminHandler.MarkAdminPayoutFailed)

				// 设置管理
				authorized.GET("/settings", adminHandler.GetSettings)
				authorized.PUT("/settings", adminHandler.UpdateSettings)
				authorized.GET("/settings/attribution", adminHandler.GetAttributionSettings)
				authorized.PUT("/settings/attribution", adminHandler.UpdateAttributionSettings)
				authorized.GET("/settings/dashboard", adminHandler.GetDashboardSettings)
				authorized.PUT("/settings/dashboard", adminHandler.UpdateDashboardSettings)
				authorized.GET("/settings/captcha", adminHandler.GetCaptchaSettings)
				authorized.PUT("/settings/captcha", adminHandler.UpdateCaptchaSettings)
				authorized.PUT("/password", adminHandler.UpdateAdminPassword) // 修改密码

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				authorized.POST("/authz/admins", adminHandler.CreateAuthzAdmin)
				authorized.PUT("/authz/admins/:id", adminHandler.UpdateAuthzAdmin)
				authorized.DELETE("/authz/admins/:id", adminHandler.DeleteAuthzAdmin)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
