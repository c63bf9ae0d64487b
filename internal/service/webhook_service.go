package service

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/logger"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/queue"
	"github.com/skinstack-core/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookService 回调事件处理服务
// 流水线：事件落库（幂等）→ 转化台账 upsert → 归因 → 记佣 → 事件结果回填。
type WebhookService struct {
	eventRepo          repository.WebhookEventRepository
	conversionRepo     repository.ConversionRepository
	linkRepo           repository.LinkRepository
	attributionService *AttributionService
	commissionService  *CommissionService
	verifier           *WebhookSignatureVerifier
	queueClient        *queue.Client
}

// NewWebhookService 创建回调事件处理服务
func NewWebhookService(
	eventRepo repository.WebhookEventRepository,
	conversionRepo repository.ConversionRepository,
	linkRepo repository.LinkRepository,
	attributionService *AttributionService,
	commissionService *CommissionService,
	verifier *WebhookSignatureVerifier,
	queueClient *queue.Client,
) *WebhookService {
	return &WebhookService{
		eventRepo:          eventRepo,
		conversionRepo:     conversionRepo,
		linkRepo:           linkRepo,
		attributionService: attributionService,
		commissionService:  commissionService,
		verifier:           verifier,
		queueClient:        queueClient,
	}
}

// WebhookProcessInput 回调处理输入
type WebhookProcessInput struct {
	Source          string
	Payload         []byte
	SignatureHeader string
	Hint            WebhookEventHint
}

// WebhookProcessResult 回调处理结果
type WebhookProcessResult struct {
	EventID      uint
	Duplicate    bool
	Conversion   *models.Conversion
	Attribution  *models.Attribution
	Commission   *models.Commission
	Unattributed bool
	Reason       string
}

// Process 处理一次回调投递
// 签名或报文非法时不落任何数据；重复投递返回 Duplicate 标记而非错误。
func (s *WebhookService) Process(input WebhookProcessInput) (*WebhookProcessResult, error) {
	source := strings.ToLower(strings.TrimSpace(input.Source))
	if _, ok := webhookParsers[source]; !ok {
		return nil, ErrUnsupportedSource
	}

	if s.verifier != nil {
		if err := s.verifier.Verify(WebhookSignatureInput{
			Source:  source,
			Payload: input.Payload,
			Header:  input.SignatureHeader,
		}); err != nil {
			logger.SW().Warnw("webhook_signature_rejected", "source", source, "error", err.Error())
			return nil, err
		}
	}

	parsed, err := parseWebhookConversion(source, input.Payload, input.Hint)
	if err != nil {
		logger.SW().Warnw("webhook_payload_rejected", "source", source, "error", err.Error())
		return nil, err
	}

	event, duplicate, err := s.recordEvent(source, parsed, input.Payload)
	if err != nil {
		return nil, err
	}
	if duplicate {
		logger.SW().Infow("webhook_event_duplicate",
			"source", source,
			"external_event_id", parsed.ExternalEventID,
			"event_id", event.ID,
		)
		result := &WebhookProcessResult{EventID: event.ID, Duplicate: true}
		if event.ConversionID != nil {
			conversion, err := s.conversionRepo.GetConversionByID(*event.ConversionID)
			if err != nil {
				return nil, err
			}
			result.Conversion = conversion
		}
		return result, nil
	}

	if parsed.Refund {
		return s.processRefund(event, source, parsed)
	}
	return s.processConversion(event, source, parsed)
}

// recordEvent 事件落库，撞唯一索引视为重复投递
func (s *WebhookService) recordEvent(source string, parsed *webhookConversion, payload []byte) (*models.WebhookEvent, bool, error) {
	event := &models.WebhookEvent{
		Source:          source,
		ExternalEventID: parsed.ExternalEventID,
		EventType:       parsed.EventType,
		Payload:         string(payload),
	}
	if err := s.eventRepo.CreateEvent(event); err != nil {
		if !isUniqueViolation(err) {
			return nil, false, err
		}
		existing, lookupErr := s.eventRepo.GetEventBySourceAndExternalID(source, parsed.ExternalEventID)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("%w: duplicate event vanished after conflict", ErrInconsistentPipeline)
		}
		return existing, true, nil
	}
	return event, false, nil
}

// refreshConversionFields 用后到事件刷新既有转化的可变字段
// 金额与快照取最新事件，归因信号只补空不覆盖（首次归因依据不可漂移）。
func refreshConversionFields(conversion *models.Conversion, parsed *webhookConversion, rawPayload string) {
	conversion.Subtotal = models.NewMoneyFromDecimal(parsed.Subtotal)
	conversion.Tax = models.NewMoneyFromDecimal(parsed.Tax)
	conversion.Shipping = models.NewMoneyFromDecimal(parsed.Shipping)
	conversion.Total = models.NewMoneyFromDecimal(parsed.Total)
	if parsed.Currency != "" {
		conversion.Currency = parsed.Currency
	}
	if conversion.Subid == "" {
		conversion.Subid = parsed.Subid
	}
	if conversion.DeviceID == "" {
		conversion.DeviceID = parsed.DeviceID
	}
	if conversion.IPHash == "" {
		conversion.IPHash = parsed.IPHash
	}
	conversion.RawEvent = rawPayload
}

// processConversion 处理成交事件
func (s *WebhookService) processConversion(event *models.WebhookEvent, source string, parsed *webhookConversion) (*WebhookProcessResult, error) {
	result := &WebhookProcessResult{EventID: event.ID}
	statusCode := http.StatusCreated

	err := s.conversionRepo.Transaction(func(tx *gorm.DB) error {
		conversionTx := s.conversionRepo.WithTx(tx)

		existing, err := conversionTx.GetConversionBySourceAndOrderForUpdate(source, parsed.OrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			// 同一订单已由其他事件落账，本事件只刷新可变字段不再重跑归因。
			refreshConversionFields(existing, parsed, event.Payload)
			if err := conversionTx.UpdateConversion(existing); err != nil {
				return err
			}
			result.Conversion = existing
			statusCode = http.StatusOK
			return nil
		}

		conversion := &models.Conversion{
			ExternalID: uuid.NewString(),
			Source:     source,
			OrderID:    parsed.OrderID,
			OccurredAt: parsed.OccurredAt,
			Subtotal:   models.NewMoneyFromDecimal(parsed.Subtotal),
			Tax:        models.NewMoneyFromDecimal(parsed.Tax),
			Shipping:   models.NewMoneyFromDecimal(parsed.Shipping),
			Total:      models.NewMoneyFromDecimal(parsed.Total),
			Currency:   parsed.Currency,
			Subid:      parsed.Subid,
			DeviceID:   parsed.DeviceID,
			IPHash:     parsed.IPHash,
			RawEvent:   event.Payload,
			Status:     constants.ConversionStatusPending,
		}
		if err := conversionTx.CreateConversion(conversion); err != nil {
			if isUniqueViolation(err) {
				concurrent, lookupErr := conversionTx.GetConversionBySourceAndOrder(source, parsed.OrderID)
				if lookupErr != nil {
					return lookupErr
				}
				if concurrent == nil {
					return fmt.Errorf("%w: conversion vanished after conflict", ErrInconsistentPipeline)
				}
				result.Conversion = concurrent
				statusCode = http.StatusOK
				return nil
			}
			return err
		}
		result.Conversion = conversion

		match, err := s.attributionService.ResolveTx(tx, conversion)
		if err != nil {
			return err
		}
		if !match.Matched {
			// 无归因也是合法终点，转化保持 pending 等待人工复核。
			result.Unattributed = true
			result.Reason = match.Reason
			return nil
		}

		attribution, err := s.attributionService.RecordTx(tx, conversion, match)
		if err != nil {
			return err
		}
		result.Attribution = attribution

		commission, err := s.commissionService.MintForConversionTx(tx, conversion, attribution, match.Link)
		if err != nil {
			return err
		}
		result.Commission = commission

		return s.linkRepo.WithTx(tx).IncrementLinkConversion(match.Link.ID, conversion.Total.Decimal)
	})
	if err != nil {
		s.backfillEvent(event.ID, nil, http.StatusInternalServerError, err.Error())
		return nil, err
	}

	var conversionID *uint
	if result.Conversion != nil {
		id := result.Conversion.ID
		conversionID = &id
	}
	s.backfillEvent(event.ID, conversionID, statusCode, "")
	s.notifyProcessed(result)

	logger.SW().Infow("webhook_event_processed",
		"source", source,
		"event_id", event.ID,
		"order_id", parsed.OrderID,
		"status_code", statusCode,
		"unattributed", result.Unattributed,
	)
	return result, nil
}

// processRefund 处理退款事件：转化改判退款并回滚佣金
func (s *WebhookService) processRefund(event *models.WebhookEvent, source string, parsed *webhookConversion) (*WebhookProcessResult, error) {
	result := &WebhookProcessResult{EventID: event.ID}
	statusCode := http.StatusOK

	err := s.conversionRepo.Transaction(func(tx *gorm.DB) error {
		conversionTx := s.conversionRepo.WithTx(tx)
		conversion, err := conversionTx.GetConversionBySourceAndOrderForUpdate(source, parsed.OrderID)
		if err != nil {
			return err
		}
		if conversion == nil {
			result.Reason = "refund for unknown order"
			statusCode = http.StatusNotFound
			return nil
		}
		result.Conversion = conversion

		if conversion.Status == constants.ConversionStatusRefunded {
			return nil
		}
		if err := s.commissionService.RefundByConversionTx(tx, conversion.ID, "order refunded at source"); err != nil {
			return err
		}
		conversion.Status = constants.ConversionStatusRefunded
		return conversionTx.UpdateConversion(conversion)
	})
	if err != nil {
		s.backfillEvent(event.ID, nil, http.StatusInternalServerError, err.Error())
		return nil, err
	}

	var conversionID *uint
	if result.Conversion != nil {
		id := result.Conversion.ID
		conversionID = &id
	}
	s.backfillEvent(event.ID, conversionID, statusCode, result.Reason)

	logger.SW().Infow("webhook_refund_processed",
		"source", source,
		"event_id", event.ID,
		"order_id", parsed.OrderID,
		"status_code", statusCode,
	)
	return result, nil
}

// backfillEvent 回填事件审计字段，失败只记日志不影响主流程
func (s *WebhookService) backfillEvent(eventID uint, conversionID *uint, statusCode int, errorMessage string) {
	if err := s.eventRepo.UpdateEventResult(eventID, conversionID, statusCode, errorMessage); err != nil {
		logger.SW().Errorw("webhook_event_backfill_failed", "event_id", eventID, "error", err.Error())
	}
}

// notifyProcessed 推送转化处理完成通知（尽力而为）
func (s *WebhookService) notifyProcessed(result *WebhookProcessResult) {
	if s.queueClient == nil || result == nil || result.Conversion == nil {
		return
	}
	payload := queue.ConversionProcessedPayload{ConversionID: result.Conversion.ID}
	if result.Commission != nil {
		payload.CommissionID = result.Commission.ID
	}
	if result.Attribution != nil {
		payload.MatchType = result.Attribution.MatchType
	}
	if err := s.queueClient.EnqueueConversionProcessed(payload); err != nil {
		logger.SW().Warnw("conversion_processed_enqueue_failed", "conversion_id", result.Conversion.ID, "error", err.Error())
	}
}

// ListEvents 查询回调事件（后台审计）
func (s *WebhookService) ListEvents(filter repository.WebhookEventListFilter) ([]models.WebhookEvent, int64, error) {
	if s.eventRepo == nil {
		return []models.WebhookEvent{}, 0, nil
	}
	return s.eventRepo.ListEvents(filter)
}
