package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skinstack-core/internal/cache"
	"github.com/skinstack-core/internal/config"
	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/logger"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/queue"
	"github.com/skinstack-core/internal/repository"

	"github.com/google/uuid"
)

const (
	linkSlugDefaultLength = 8
	linkSlugMaxRetry      = 8
	linkCacheDefaultTTL   = time.Hour
	linkSubidPrefixLength = 8
)

// networkTrackingParams 各联盟网络回传参数名
var networkTrackingParams = map[string]string{
	constants.WebhookSourceRefersion: "ref",
	constants.WebhookSourceShopify:   "ref",
	constants.WebhookSourceImpact:    "irpid",
	constants.WebhookSourceLevanta:   "aff_id",
	"amazon":                         "tag",
}

// LinkService 短链业务服务
type LinkService struct {
	linkRepo        repository.LinkRepository
	programRepo     repository.ProgramRepository
	influencerRepo  repository.InfluencerRepository
	attributionRepo repository.AttributionRepository
	cfg             config.LinkConfig
	queueClient     *queue.Client
}

// NewLinkService 创建短链服务
func NewLinkService(
	linkRepo repository.LinkRepository,
	programRepo repository.ProgramRepository,
	influencerRepo repository.InfluencerRepository,
	attributionRepo repository.AttributionRepository,
	cfg config.LinkConfig,
	queueClient *queue.Client,
) *LinkService {
	return &LinkService{
		linkRepo:        linkRepo,
		programRepo:     programRepo,
		influencerRepo:  influencerRepo,
		attributionRepo: attributionRepo,
		cfg:             cfg,
		queueClient:     queueClient,
	}
}

// LinkCreateInput 创建短链输入
type LinkCreateInput struct {
	InfluencerID   uint
	ProgramID      uint
	ProductID      *uint
	CampaignID     string
	DestinationURL string
	UTMSource      string
	UTMMedium      string
	UTMCampaign    string
}

// LinkStats 短链统计
type LinkStats struct {
	Clicks       int64        `json:"clicks"`
	Conversions  int64        `json:"conversions"`
	Attributions int64        `json:"attributions"`
	Revenue      models.Money `json:"revenue"`
}

// cachedLink 重定向热路径缓存结构
type cachedLink struct {
	ID             uint   `json:"id"`
	DestinationURL string `json:"destination_url"`
	Active         bool   `json:"active"`
}

// CreateLink 创建推广短链
// 短码冲突依赖唯一索引兜底，撞车时换码重试。
func (s *LinkService) CreateLink(input LinkCreateInput) (*models.TrackingLink, error) {
	if input.InfluencerID == 0 || input.ProgramID == 0 {
		return nil, fmt.Errorf("%w: influencer and program are required", ErrValidation)
	}

	influencer, err := s.influencerRepo.GetByID(input.InfluencerID)
	if err != nil {
		return nil, err
	}
	if influencer == nil {
		return nil, ErrNotFound
	}
	if influencer.Status != constants.InfluencerStatusActive {
		return nil, ErrInfluencerDisabled
	}

	program, err := s.programRepo.GetProgramByID(input.ProgramID)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, ErrNotFound
	}
	if program.Status != constants.ProgramStatusActive {
		return nil, ErrProgramDisabled
	}

	destination := strings.TrimSpace(input.DestinationURL)
	if input.ProductID != nil && *input.ProductID > 0 {
		product, err := s.programRepo.GetProductByID(*input.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, ErrNotFound
		}
		if destination == "" {
			destination = product.URL
		}
	}
	if destination == "" {
		return nil, fmt.Errorf("%w: destination url is required", ErrValidation)
	}
	if _, err := url.ParseRequestURI(destination); err != nil {
		return nil, fmt.Errorf("%w: destination url malformed", ErrValidation)
	}

	slugLength := s.cfg.SlugLength
	if slugLength <= 0 {
		slugLength = linkSlugDefaultLength
	}

	for i := 0; i < linkSlugMaxRetry; i++ {
		slug, err := generateLinkSlug(slugLength)
		if err != nil {
			return nil, err
		}
		subid := BuildSubid(influencer.ExternalID, slug, time.Now())
		trackedURL, err := appendTrackingParams(destination, program.Network, subid, input)
		if err != nil {
			return nil, err
		}

		link := &models.TrackingLink{
			ExternalID:     uuid.NewString(),
			InfluencerID:   influencer.ID,
			ProgramID:      program.ID,
			ProductID:      input.ProductID,
			CampaignID:     strings.TrimSpace(input.CampaignID),
			Slug:           slug,
			DestinationURL: trackedURL,
			Subid:          subid,
			UTMSource:      strings.TrimSpace(input.UTMSource),
			UTMMedium:      strings.TrimSpace(input.UTMMedium),
			UTMCampaign:    strings.TrimSpace(input.UTMCampaign),
			Active:         true,
		}
		if err := s.linkRepo.CreateLink(link); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}

		logger.SW().Infow("tracking_link_created",
			"link_id", link.ID,
			"slug", slug,
			"influencer_id", influencer.ID,
			"program_id", program.ID,
		)
		return link, nil
	}
	return nil, ErrSlugExhausted
}

// BuildSubid 构造回传跟踪参数
// 格式 {达人前缀}_{短码}_{时间戳}；达人前缀取对外ID去连字符后前8位。
func BuildSubid(influencerExternalID, slug string, at time.Time) string {
	prefix := strings.ReplaceAll(strings.TrimSpace(influencerExternalID), "-", "")
	if len(prefix) > linkSubidPrefixLength {
		prefix = prefix[:linkSubidPrefixLength]
	}
	return prefix + "_" + slug + "_" + strconv.FormatInt(at.Unix(), 10)
}

// appendTrackingParams 在目标地址上追加网络回传参数与 UTM 参数
func appendTrackingParams(destination, network, subid string, input LinkCreateInput) (string, error) {
	parsed, err := url.Parse(destination)
	if err != nil {
		return "", fmt.Errorf("%w: destination url malformed", ErrValidation)
	}
	query := parsed.Query()

	param, ok := networkTrackingParams[strings.ToLower(strings.TrimSpace(network))]
	if !ok {
		param = "subid"
	}
	query.Set(param, subid)

	if utmSource := strings.TrimSpace(input.UTMSource); utmSource != "" {
		query.Set("utm_source", utmSource)
	}
	if utmMedium := strings.TrimSpace(input.UTMMedium); utmMedium != "" {
		query.Set("utm_medium", utmMedium)
	}
	if utmCampaign := strings.TrimSpace(input.UTMCampaign); utmCampaign != "" {
		query.Set("utm_campaign", utmCampaign)
	}

	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// generateLinkSlug 生成大小写混合的随机短码
func generateLinkSlug(length int) (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	var builder strings.Builder
	builder.Grow(length)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

// ResolveSlug 解析短码目标地址（重定向热路径，优先走缓存）
func (s *LinkService) ResolveSlug(ctx context.Context, slug string) (*models.TrackingLink, error) {
	normalized := strings.TrimSpace(slug)
	if normalized == "" {
		return nil, ErrNotFound
	}

	cacheKey := fmt.Sprintf("%s:%s", constants.CacheKeyLinkSlugPrefix, normalized)
	var cached cachedLink
	hit, err := cache.GetJSON(ctx, cacheKey, &cached)
	if err != nil {
		logger.SW().Warnw("link_cache_read_failed", "slug", normalized, "error", err.Error())
	}
	if hit && cached.Active && cached.ID > 0 {
		return &models.TrackingLink{
			ID:             cached.ID,
			Slug:           normalized,
			DestinationURL: cached.DestinationURL,
			Active:         true,
		}, nil
	}

	link, err := s.linkRepo.GetLinkBySlug(normalized, true)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrNotFound
	}

	ttl := linkCacheDefaultTTL
	if s.cfg.CacheTTLSeconds > 0 {
		ttl = time.Duration(s.cfg.CacheTTLSeconds) * time.Second
	}
	if err := cache.SetJSON(ctx, cacheKey, cachedLink{
		ID:             link.ID,
		DestinationURL: link.DestinationURL,
		Active:         link.Active,
	}, ttl); err != nil {
		logger.SW().Warnw("link_cache_write_failed", "slug", normalized, "error", err.Error())
	}
	return link, nil
}

// LinkClickInput 点击采集输入
type LinkClickInput struct {
	DeviceID  string
	SessionID string
	ClientIP  string
	UserAgent string
	Referrer  string
}

// TrackClick 采集一次点击
// 队列可用时异步落库，避免拖慢重定向；队列关闭时同步写入。
func (s *LinkService) TrackClick(link *models.TrackingLink, input LinkClickInput) error {
	if link == nil || link.ID == 0 {
		return nil
	}

	payload := queue.ClickRecordPayload{
		TrackingLinkID: link.ID,
		DeviceID:       strings.TrimSpace(input.DeviceID),
		SessionID:      strings.TrimSpace(input.SessionID),
		IPHash:         HashClientIP(input.ClientIP),
		UserAgent:      strings.TrimSpace(input.UserAgent),
		Referrer:       strings.TrimSpace(input.Referrer),
		Platform:       detectClickPlatform(input.UserAgent),
		Subid:          link.Subid,
		FraudScore:     scoreClickFraud(input.UserAgent),
		ClickedAt:      time.Now(),
	}

	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueClickRecord(payload)
		if err == nil {
			return nil
		}
		logger.SW().Warnw("click_enqueue_failed", "link_id", link.ID, "error", err.Error())
	}
	return s.RecordClick(payload)
}

// RecordClick 落库一次点击（队列 worker 与同步兜底共用）
func (s *LinkService) RecordClick(payload queue.ClickRecordPayload) error {
	if payload.TrackingLinkID == 0 {
		return nil
	}
	clickedAt := payload.ClickedAt
	if clickedAt.IsZero() {
		clickedAt = time.Now()
	}
	click := &models.Click{
		TrackingLinkID: payload.TrackingLinkID,
		DeviceID:       payload.DeviceID,
		SessionID:      payload.SessionID,
		IPHash:         payload.IPHash,
		UserAgent:      payload.UserAgent,
		Referrer:       payload.Referrer,
		Platform:       payload.Platform,
		Subid:          payload.Subid,
		FraudScore:     payload.FraudScore,
		CreatedAt:      clickedAt,
	}
	if err := s.linkRepo.CreateClick(click); err != nil {
		return err
	}
	// 计数列尽力而为，失败不影响点击明细。
	if err := s.linkRepo.IncrementLinkClicks(payload.TrackingLinkID, 1); err != nil {
		logger.SW().Warnw("link_counter_increment_failed", "link_id", payload.TrackingLinkID, "error", err.Error())
	}
	return nil
}

// RefreshCounters 以点击表为准重算短链计数
func (s *LinkService) RefreshCounters(linkID uint) error {
	return s.linkRepo.RefreshLinkClickCounter(linkID)
}

// Deactivate 停用短链并清理缓存
func (s *LinkService) Deactivate(ctx context.Context, linkID uint) (*models.TrackingLink, error) {
	link, err := s.linkRepo.GetLinkByID(linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrNotFound
	}
	if !link.Active {
		return link, nil
	}
	link.Active = false
	if err := s.linkRepo.UpdateLink(link); err != nil {
		return nil, err
	}
	cacheKey := fmt.Sprintf("%s:%s", constants.CacheKeyLinkSlugPrefix, link.Slug)
	if err := cache.Del(ctx, cacheKey); err != nil {
		logger.SW().Warnw("link_cache_del_failed", "slug", link.Slug, "error", err.Error())
	}
	return link, nil
}

// GetByID 查询短链详情
func (s *LinkService) GetByID(linkID uint) (*models.TrackingLink, error) {
	link, err := s.linkRepo.GetLinkByID(linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrNotFound
	}
	return link, nil
}

// List 查询短链列表
func (s *LinkService) List(filter repository.LinkListFilter) ([]models.TrackingLink, int64, error) {
	return s.linkRepo.ListLinks(filter)
}

// GetStats 查询短链统计
func (s *LinkService) GetStats(linkID uint) (LinkStats, error) {
	stats := LinkStats{}
	link, err := s.linkRepo.GetLinkByID(linkID)
	if err != nil {
		return stats, err
	}
	if link == nil {
		return stats, ErrNotFound
	}

	clicks, err := s.linkRepo.CountClicksByLink(linkID)
	if err != nil {
		return stats, err
	}
	attributions, err := s.attributionRepo.CountAttributionsByLink(linkID)
	if err != nil {
		return stats, err
	}

	stats.Clicks = clicks
	stats.Conversions = link.TotalConversions
	stats.Attributions = attributions
	stats.Revenue = link.TotalRevenue
	return stats, nil
}

// HashClientIP 对客户端IP做哈希脱敏，原始地址不落库
func HashClientIP(clientIP string) string {
	trimmed := strings.TrimSpace(clientIP)
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:])[:64]
}

// detectClickPlatform 按UA粗分终端类型
func detectClickPlatform(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return constants.ClickPlatformTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		return constants.ClickPlatformMobile
	default:
		return constants.ClickPlatformDesktop
	}
}

// scoreClickFraud 点击风控初评：爬虫UA直接判高危，空UA记可疑
func scoreClickFraud(userAgent string) float64 {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return 0.5
	}
	for _, marker := range []string{"bot", "spider", "crawl", "curl", "wget", "python-requests"} {
		if strings.Contains(ua, marker) {
			return 1.0
		}
	}
	return 0
}
