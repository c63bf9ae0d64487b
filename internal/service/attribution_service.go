package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/logger"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	// ipTimeLookback IP+时间兜底匹配的回看窗口，平台级常量，不随计划配置。
	ipTimeLookback = time.Hour
	// deviceLookbackCap 设备匹配检索点击的最大回看范围，实际窗口以计划配置为准。
	deviceLookbackCap = 365 * 24 * time.Hour
)

var (
	confidenceSubid  = decimal.NewFromFloat(1.00)
	confidenceDevice = decimal.NewFromFloat(0.85)
	confidenceIPTime = decimal.NewFromFloat(0.60)
)

// AttributionService 归因业务服务
// 匹配优先级固定：subid > device > ip_time，命中即停。
type AttributionService struct {
	linkRepo        repository.LinkRepository
	attributionRepo repository.AttributionRepository
	settingService  *SettingService
}

// NewAttributionService 创建归因服务
func NewAttributionService(
	linkRepo repository.LinkRepository,
	attributionRepo repository.AttributionRepository,
	settingService *SettingService,
) *AttributionService {
	return &AttributionService{
		linkRepo:        linkRepo,
		attributionRepo: attributionRepo,
		settingService:  settingService,
	}
}

// AttributionMatch 归因匹配结果
type AttributionMatch struct {
	Matched    bool
	MatchType  string
	Link       *models.TrackingLink
	Click      *models.Click
	Confidence decimal.Decimal
	Reason     string
}

type attributionMatcher func(repo repository.LinkRepository, conversion *models.Conversion) (AttributionMatch, error)

// ParseSubid 解析回传跟踪参数
// 格式固定为 {达人前缀}_{短码}_{时间戳}，短码本身不含下划线。
func ParseSubid(subid string) (prefix, slug string, clickedAt int64, ok bool) {
	trimmed := strings.TrimSpace(subid)
	if trimmed == "" {
		return "", "", 0, false
	}
	parts := strings.Split(trimmed, "_")
	if len(parts) != 3 {
		return "", "", 0, false
	}
	if parts[0] == "" || parts[1] == "" {
		return "", "", 0, false
	}
	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || ts <= 0 {
		return "", "", 0, false
	}
	return parts[0], parts[1], ts, true
}

// ResolveTx 在事务内对转化执行归因匹配
// 仅计算匹配结果，不落库；落库由 RecordTx 完成。
func (s *AttributionService) ResolveTx(tx *gorm.DB, conversion *models.Conversion) (AttributionMatch, error) {
	none := AttributionMatch{Matched: false, Reason: "no matching click signal"}
	if conversion == nil || s.linkRepo == nil {
		return none, nil
	}

	repo := s.linkRepo.WithTx(tx)
	matchers := []attributionMatcher{
		s.matchBySubid,
		s.matchByDevice,
		s.matchByIPTime,
	}
	for _, matcher := range matchers {
		match, err := matcher(repo, conversion)
		if err != nil {
			return none, err
		}
		if match.Matched {
			return match, nil
		}
	}
	return none, nil
}

// RecordTx 在事务内写入归因记录（追加写，不覆盖历史）
func (s *AttributionService) RecordTx(tx *gorm.DB, conversion *models.Conversion, match AttributionMatch) (*models.Attribution, error) {
	if conversion == nil || conversion.ID == 0 || !match.Matched || match.Link == nil {
		return nil, nil
	}

	attribution := &models.Attribution{
		ConversionID:   conversion.ID,
		TrackingLinkID: match.Link.ID,
		Model:          constants.AttributionModelLastClick,
		MatchType:      match.MatchType,
		Confidence:     models.NewMoneyFromDecimal(match.Confidence),
		Reason:         match.Reason,
	}
	if match.Click != nil && match.Click.ID != 0 {
		clickID := match.Click.ID
		attribution.ClickID = &clickID
	}
	if err := s.attributionRepo.WithTx(tx).CreateAttribution(attribution); err != nil {
		return nil, err
	}

	logger.SW().Infow("conversion_attributed",
		"conversion_id", conversion.ID,
		"tracking_link_id", match.Link.ID,
		"match_type", match.MatchType,
		"confidence", match.Confidence.String(),
	)
	return attribution, nil
}

// matchBySubid 第一优先级：回传 subid 精确匹配短链
func (s *AttributionService) matchBySubid(repo repository.LinkRepository, conversion *models.Conversion) (AttributionMatch, error) {
	none := AttributionMatch{}
	_, slug, _, ok := ParseSubid(conversion.Subid)
	if !ok {
		return none, nil
	}

	link, err := repo.GetLinkBySlug(slug, true)
	if err != nil {
		return none, err
	}
	if link == nil {
		return none, nil
	}

	// 点击记录是补充证据，缺失不影响 subid 命中。
	click, err := repo.GetLatestClickByLink(link.ID, conversion.OccurredAt)
	if err != nil {
		return none, err
	}

	return AttributionMatch{
		Matched:    true,
		MatchType:  constants.MatchTypeSubid,
		Link:       link,
		Click:      click,
		Confidence: confidenceSubid,
		Reason:     fmt.Sprintf("subid %s resolved to slug %s", conversion.Subid, slug),
	}, nil
}

// matchByDevice 第二优先级：设备标识在计划归因窗口内的最后一次点击
func (s *AttributionService) matchByDevice(repo repository.LinkRepository, conversion *models.Conversion) (AttributionMatch, error) {
	none := AttributionMatch{}
	deviceID := strings.TrimSpace(conversion.DeviceID)
	if deviceID == "" {
		return none, nil
	}

	click, err := repo.GetLatestClickByDevice(deviceID, conversion.OccurredAt.Add(-deviceLookbackCap), conversion.OccurredAt)
	if err != nil {
		return none, err
	}
	if click == nil {
		return none, nil
	}

	link, err := repo.GetLinkByID(click.TrackingLinkID)
	if err != nil {
		return none, err
	}
	if link == nil || !link.Active {
		return none, nil
	}

	windowDays := link.Program.CookieWindowDays
	if windowDays <= 0 {
		setting, err := s.settingService.GetAttributionSetting()
		if err != nil {
			return none, err
		}
		windowDays = setting.DefaultCookieWindowDays
	}
	// 窗口边界按闭区间处理：恰好落在边界上的点击仍然命中。
	boundary := conversion.OccurredAt.Add(-time.Duration(windowDays) * 24 * time.Hour)
	if click.CreatedAt.Before(boundary) {
		return none, nil
	}

	return AttributionMatch{
		Matched:    true,
		MatchType:  constants.MatchTypeDevice,
		Link:       link,
		Click:      click,
		Confidence: confidenceDevice,
		Reason:     fmt.Sprintf("device %s clicked within %d day window", deviceID, windowDays),
	}, nil
}

// matchByIPTime 第三优先级：IP哈希一小时内的最后一次点击
func (s *AttributionService) matchByIPTime(repo repository.LinkRepository, conversion *models.Conversion) (AttributionMatch, error) {
	none := AttributionMatch{}
	ipHash := strings.TrimSpace(conversion.IPHash)
	if ipHash == "" {
		return none, nil
	}

	click, err := repo.GetLatestClickByIPHash(ipHash, conversion.OccurredAt.Add(-ipTimeLookback), conversion.OccurredAt)
	if err != nil {
		return none, err
	}
	if click == nil {
		return none, nil
	}

	link, err := repo.GetLinkByID(click.TrackingLinkID)
	if err != nil {
		return none, err
	}
	if link == nil || !link.Active {
		return none, nil
	}

	return AttributionMatch{
		Matched:    true,
		MatchType:  constants.MatchTypeIPTime,
		Link:       link,
		Click:      click,
		Confidence: confidenceIPTime,
		Reason:     "ip hash clicked within one hour lookback",
	}, nil
}
