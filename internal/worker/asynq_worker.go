package worker

import (
	"context"
	"encoding/json"

	"github.com/skinstack-core/internal/logger"
	"github.com/skinstack-core/internal/provider"
	"github.com/skinstack-core/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskClickRecord, c.handleClickRecord)
	mux.HandleFunc(queue.TaskLinkCounterRefresh, c.handleLinkCounterRefresh)
	mux.HandleFunc(queue.TaskConversionProcessed, c.handleConversionProcessed)
}

func (c *Consumer) handleClickRecord(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_click_record_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ClickRecordPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_click_record_unmarshal_failed", "error", err)
		return err
	}
	if payload.TrackingLinkID == 0 {
		logger.Debugw("worker_click_record_skip_invalid_payload", "tracking_link_id", payload.TrackingLinkID)
		return nil
	}
	if c.LinkService == nil {
		logger.Warnw("worker_click_record_skip_link_service_nil", "tracking_link_id", payload.TrackingLinkID)
		return nil
	}
	if err := c.LinkService.RecordClick(payload); err != nil {
		logger.Warnw("worker_click_record_failed", "tracking_link_id", payload.TrackingLinkID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleLinkCounterRefresh(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_link_counter_refresh_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LinkCounterRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_link_counter_refresh_unmarshal_failed", "error", err)
		return err
	}
	if payload.TrackingLinkID == 0 {
		logger.Debugw("worker_link_counter_refresh_skip_invalid_payload", "tracking_link_id", payload.TrackingLinkID)
		return nil
	}
	if c.LinkService == nil {
		logger.Warnw("worker_link_counter_refresh_skip_link_service_nil", "tracking_link_id", payload.TrackingLinkID)
		return nil
	}
	if err := c.LinkService.RefreshCounters(payload.TrackingLinkID); err != nil {
		logger.Warnw("worker_link_counter_refresh_failed", "tracking_link_id", payload.TrackingLinkID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleConversionProcessed(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_conversion_processed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ConversionProcessedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_conversion_processed_unmarshal_failed", "error", err)
		return err
	}
	if payload.ConversionID == 0 {
		logger.Debugw("worker_conversion_processed_skip_invalid_payload", "conversion_id", payload.ConversionID)
		return nil
	}
	if c.ConversionRepo == nil {
		logger.Warnw("worker_conversion_processed_skip_repo_nil", "conversion_id", payload.ConversionID)
		return nil
	}
	conversion, err := c.ConversionRepo.GetConversionByID(payload.ConversionID)
	if err != nil {
		logger.Warnw("worker_conversion_processed_fetch_failed", "conversion_id", payload.ConversionID, "error", err)
		return err
	}
	if conversion == nil {
		logger.Debugw("worker_conversion_processed_skip_not_found", "conversion_id", payload.ConversionID)
		return nil
	}

	// 未归因转化进入人工复核视野，只记日志不重试。
	if payload.MatchType == "" {
		logger.Warnw("conversion_unattributed_review",
			"conversion_id", conversion.ID,
			"source", conversion.Source,
			"order_id", conversion.OrderID,
		)
		return nil
	}

	logger.Infow("conversion_processed_notified",
		"conversion_id", conversion.ID,
		"source", conversion.Source,
		"order_id", conversion.OrderID,
		"status", conversion.Status,
		"match_type", payload.MatchType,
		"commission_id", payload.CommissionID,
	)
	return nil
}
