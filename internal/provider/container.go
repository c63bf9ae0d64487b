package provider

import (
	"github.com/skinstack-core/internal/authz"
	"github.com/skinstack-core/internal/cache"
	"github.com/skinstack-core/internal/config"
	"github.com/skinstack-core/internal/logger"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/payout"
	"github.com/skinstack-core/internal/queue"
	"github.com/skinstack-core/internal/repository"
	"github.com/skinstack-core/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo         repository.AdminRepository
	InfluencerRepo    repository.InfluencerRepository
	ProgramRepo       repository.ProgramRepository
	LinkRepo          repository.LinkRepository
	WebhookEventRepo  repository.WebhookEventRepository
	ConversionRepo    repository.ConversionRepository
	AttributionRepo   repository.AttributionRepository
	CommissionRepo    repository.CommissionRepository
	PayoutRepo        repository.PayoutRepository
	SettingRepo       repository.SettingRepository
	AuthzAuditLogRepo repository.AuthzAuditLogRepository
	DashboardRepo     repository.DashboardRepository

	// Services
	AuthzService       *authz.Service
	AuthService        *service.AuthService
	InfluencerService  *service.InfluencerService
	CaptchaService     *service.CaptchaService
	SettingService     *service.SettingService
	LinkService        *service.LinkService
	AttributionService *service.AttributionService
	ConversionService  *service.ConversionService
	CommissionService  *service.CommissionService
	WebhookService     *service.WebhookService
	PayoutService      *service.PayoutService
	AuthzAuditService  *service.AuthzAuditService
	DashboardService   *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.InfluencerRepo = repository.NewInfluencerRepository(db)
	c.ProgramRepo = repository.NewProgramRepository(db)
	c.LinkRepo = repository.NewLinkRepository(db)
	c.WebhookEventRepo = repository.NewWebhookEventRepository(db)
	c.ConversionRepo = repository.NewConversionRepository(db)
	c.AttributionRepo = repository.NewAttributionRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.PayoutRepo = repository.NewPayoutRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.CaptchaService = service.NewCaptchaService(c.SettingService, c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.InfluencerService = service.NewInfluencerService(c.Config, c.InfluencerRepo)

	c.LinkService = service.NewLinkService(
		c.LinkRepo,
		c.ProgramRepo,
		c.InfluencerRepo,
		c.AttributionRepo,
		c.Config.Link,
		c.QueueClient,
	)
	c.AttributionService = service.NewAttributionService(c.LinkRepo, c.AttributionRepo, c.SettingService)
	c.ConversionService = service.NewConversionService(c.ConversionRepo)
	c.CommissionService = service.NewCommissionService(c.CommissionRepo, c.SettingService)
	c.WebhookService = service.NewWebhookService(
		c.WebhookEventRepo,
		c.ConversionRepo,
		c.LinkRepo,
		c.AttributionService,
		c.CommissionService,
		service.NewWebhookSignatureVerifier(c.Config.Webhook),
		c.QueueClient,
	)

	payoutProvider, err := payout.NewProvider(c.Config.Payout)
	if err != nil {
		logger.Errorw("provider_init_payout_channel_failed", "channel", c.Config.Payout.Channel, "error", err)
		payoutProvider = payout.NewManualProvider()
	}
	c.PayoutService = service.NewPayoutService(
		c.PayoutRepo,
		c.CommissionRepo,
		c.InfluencerRepo,
		c.SettingService,
		payoutProvider,
	)

	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo, c.SettingService)
}
