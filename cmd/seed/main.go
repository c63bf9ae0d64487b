package main

import (
	"fmt"
	"time"

	"github.com/skinstack-core/internal/config"
	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/logger"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	// 商家
	merchants := []models.Merchant{
		{Name: "Lumiere Skin", Website: "https://lumiereskin.example.com", IntegrationType: constants.WebhookSourceRefersion},
		{Name: "GlowLab", Website: "https://glowlab.example.com", IntegrationType: constants.WebhookSourceShopify},
		{Name: "DermaPoint", Website: "https://dermapoint.example.com", IntegrationType: constants.WebhookSourceImpact},
	}
	for i := range merchants {
		var existing models.Merchant
		if err := models.DB.Where("name = ?", merchants[i].Name).First(&existing).Error; err != nil {
			// 不存在则创建
			if err := models.DB.Create(&merchants[i]).Error; err != nil {
				stdLog.Printf("Failed to create merchant %s: %v", merchants[i].Name, err)
			} else {
				stdLog.Printf("Created merchant: %s", merchants[i].Name)
			}
		} else {
			merchants[i] = existing
			stdLog.Printf("Merchant already exists: %s", existing.Name)
		}
	}

	merchantIDs := map[string]uint{}
	for _, m := range merchants {
		merchantIDs[m.Name] = m.ID
	}

	// 联盟计划
	programs := []models.Program{
		{
			MerchantID:       merchantIDs["Lumiere Skin"],
			Name:             "Lumiere Core 10%",
			Network:          constants.WebhookSourceRefersion,
			CommissionType:   constants.CommissionTypePercent,
			CommissionValue:  models.Money{Decimal: decimal.NewFromFloat(0.10)},
			CookieWindowDays: 7,
			Status:           constants.ProgramStatusActive,
		},
		{
			MerchantID:       merchantIDs["GlowLab"],
			Name:             "GlowLab Creators 15%",
			Network:          constants.WebhookSourceShopify,
			CommissionType:   constants.CommissionTypePercent,
			CommissionValue:  models.Money{Decimal: decimal.NewFromFloat(0.15)},
			CookieWindowDays: 14,
			Status:           constants.ProgramStatusActive,
		},
		{
			MerchantID:       merchantIDs["DermaPoint"],
			Name:             "DermaPoint Flat $12.50",
			Network:          constants.WebhookSourceImpact,
			CommissionType:   constants.CommissionTypeFlat,
			CommissionValue:  models.Money{Decimal: decimal.NewFromFloat(12.50)},
			CookieWindowDays: 30,
			Status:           constants.ProgramStatusActive,
		},
	}
	for i := range programs {
		if programs[i].MerchantID == 0 {
			stdLog.Printf("Skip program %s: merchant missing", programs[i].Name)
			continue
		}
		var existing models.Program
		if err := models.DB.Where("merchant_id = ? AND name = ?", programs[i].MerchantID, programs[i].Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&programs[i]).Error; err != nil {
				stdLog.Printf("Failed to create program %s: %v", programs[i].Name, err)
			} else {
				stdLog.Printf("Created program: %s", programs[i].Name)
			}
		} else {
			programs[i] = existing
			stdLog.Printf("Program already exists: %s", existing.Name)
		}
	}

	// 商品
	products := []models.Product{
		{MerchantID: merchantIDs["Lumiere Skin"], Name: "Vitamin C Serum 30ml", URL: "https://lumiereskin.example.com/products/vitamin-c-serum"},
		{MerchantID: merchantIDs["Lumiere Skin"], Name: "Hydra Repair Cream", URL: "https://lumiereskin.example.com/products/hydra-repair-cream"},
		{MerchantID: merchantIDs["GlowLab"], Name: "Niacinamide Booster", URL: "https://glowlab.example.com/products/niacinamide-booster"},
		{MerchantID: merchantIDs["DermaPoint"], Name: "SPF50 Daily Shield", URL: "https://dermapoint.example.com/products/spf50-daily-shield"},
	}
	productIDs := map[string]uint{}
	for i := range products {
		if products[i].MerchantID == 0 {
			continue
		}
		var existing models.Product
		if err := models.DB.Where("merchant_id = ? AND name = ?", products[i].MerchantID, products[i].Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&products[i]).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", products[i].Name, err)
			} else {
				stdLog.Printf("Created product: %s", products[i].Name)
			}
		} else {
			products[i] = existing
			stdLog.Printf("Product already exists: %s", existing.Name)
		}
		productIDs[products[i].Name] = products[i].ID
	}

	// 达人账号
	passwordHash, err := bcrypt.GenerateFromPassword([]byte("Creator123!"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash influencer password: %v", err)
	}
	influencers := []models.Influencer{
		{Email: "ava@creator.example.com", DisplayName: "Ava Lin", PayoutAccount: "ava-payouts-001", Status: constants.InfluencerStatusActive},
		{Email: "marco@creator.example.com", DisplayName: "Marco Reyes", PayoutAccount: "marco-payouts-002", Status: constants.InfluencerStatusActive},
		{Email: "june@creator.example.com", DisplayName: "June Park", PayoutAccount: "", Status: constants.InfluencerStatusActive},
	}
	for i := range influencers {
		var existing models.Influencer
		if err := models.DB.Where("email = ?", influencers[i].Email).First(&existing).Error; err != nil {
			influencers[i].ExternalID = uuid.NewString()
			influencers[i].PasswordHash = string(passwordHash)
			if err := models.DB.Create(&influencers[i]).Error; err != nil {
				stdLog.Printf("Failed to create influencer %s: %v", influencers[i].Email, err)
			} else {
				stdLog.Printf("Created influencer: %s (password Creator123!)", influencers[i].Email)
			}
		} else {
			influencers[i] = existing
			stdLog.Printf("Influencer already exists: %s", existing.Email)
		}
	}

	// 推广短链
	now := time.Now()
	type linkSeed struct {
		influencer  models.Influencer
		program     models.Program
		productName string
		slug        string
		campaign    string
		utmSource   string
	}
	linkSeeds := []linkSeed{
		{influencer: influencers[0], program: programs[0], productName: "Vitamin C Serum 30ml", slug: "ava-vitc", campaign: "spring-glow", utmSource: "instagram"},
		{influencer: influencers[1], program: programs[1], productName: "Niacinamide Booster", slug: "marco-nia", campaign: "uk-launch", utmSource: "youtube"},
		{influencer: influencers[2], program: programs[2], productName: "SPF50 Daily Shield", slug: "june-spf", campaign: "", utmSource: "tiktok"},
	}
	for _, seed := range linkSeeds {
		if seed.influencer.ID == 0 || seed.program.ID == 0 {
			stdLog.Printf("Skip link %s: influencer or program missing", seed.slug)
			continue
		}
		var existing models.TrackingLink
		if err := models.DB.Where("slug = ?", seed.slug).First(&existing).Error; err == nil {
			stdLog.Printf("Link already exists: %s", existing.Slug)
			continue
		}

		subid := service.BuildSubid(seed.influencer.ExternalID, seed.slug, now)
		destination := seed.program.Merchant.Website
		var productID *uint
		if id, ok := productIDs[seed.productName]; ok && id != 0 {
			id := id
			productID = &id
			for _, p := range products {
				if p.ID == id {
					destination = p.URL
				}
			}
		}
		if destination == "" {
			destination = "https://skinstack.example.com"
		}
		link := models.TrackingLink{
			ExternalID:     uuid.NewString(),
			InfluencerID:   seed.influencer.ID,
			ProgramID:      seed.program.ID,
			ProductID:      productID,
			CampaignID:     seed.campaign,
			Slug:           seed.slug,
			DestinationURL: fmt.Sprintf("%s?ref=%s", destination, subid),
			Subid:          subid,
			UTMSource:      seed.utmSource,
			UTMMedium:      "social",
			UTMCampaign:    seed.campaign,
			Active:         true,
		}
		if err := models.DB.Create(&link).Error; err != nil {
			stdLog.Printf("Failed to create link %s: %v", seed.slug, err)
		} else {
			stdLog.Printf("Created link: /l/%s -> %s", link.Slug, link.DestinationURL)
		}
	}

	// 默认设置
	defaults := service.AttributionDefaultSetting()
	settings := []models.Setting{
		{
			Key: constants.SettingKeyAttributionConfig,
			ValueJSON: models.JSON{
				"platform_fee_rate":          defaults.PlatformFeeRate,
				"min_payout_amount":          defaults.MinPayoutAmount,
				"default_cookie_window_days": defaults.DefaultCookieWindowDays,
			},
		},
		{
			Key: constants.SettingKeySiteConfig,
			ValueJSON: models.JSON{
				"brand": map[string]interface{}{
					"site_name":    "SkinStack",
					"short_domain": "https://sk.st",
				},
				"contact": map[string]interface{}{
					"email":    "partners@skinstack.example.com",
					"telegram": "",
				},
			},
		},
	}
	for _, setting := range settings {
		var existing models.Setting
		if err := models.DB.Where("key = ?", setting.Key).First(&existing).Error; err != nil {
			if err := models.DB.Create(&setting).Error; err != nil {
				stdLog.Printf("Failed to create setting %s: %v", setting.Key, err)
			} else {
				stdLog.Printf("Created setting: %s", setting.Key)
			}
		} else {
			stdLog.Printf("Setting already exists: %s", setting.Key)
		}
	}

	stdLog.Printf("Seed data initialized")
}
