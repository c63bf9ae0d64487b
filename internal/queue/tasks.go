package queue

import (
	"encoding/json"
	"time"

	"github.com/skinstack-core/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskClickRecord 点击落库任务
	TaskClickRecord = constants.TaskClickRecord
	// TaskLinkCounterRefresh 短链计数重算任务
	TaskLinkCounterRefresh = constants.TaskLinkCounterRefresh
	// TaskConversionProcessed 转化处理完成通知任务
	TaskConversionProcessed = constants.TaskConversionProcessed
)

// ClickRecordPayload 点击落库任务载荷
// 重定向热路径只负责取目标地址，点击明细由队列异步写入。
type ClickRecordPayload struct {
	TrackingLinkID uint      `json:"tracking_link_id"`
	DeviceID       string    `json:"device_id"`
	SessionID      string    `json:"session_id"`
	IPHash         string    `json:"ip_hash"`
	UserAgent      string    `json:"user_agent"`
	Referrer       string    `json:"referrer"`
	Platform       string    `json:"platform"`
	Subid          string    `json:"subid"`
	FraudScore     float64   `json:"fraud_score"`
	ClickedAt      time.Time `json:"clicked_at"`
}

// LinkCounterRefreshPayload 短链计数重算任务载荷
type LinkCounterRefreshPayload struct {
	TrackingLinkID uint `json:"tracking_link_id"`
}

// ConversionProcessedPayload 转化处理完成通知任务载荷
type ConversionProcessedPayload struct {
	ConversionID uint   `json:"conversion_id"`
	CommissionID uint   `json:"commission_id,omitempty"`
	MatchType    string `json:"match_type,omitempty"`
}

// NewClickRecordTask 创建点击落库任务
func NewClickRecordTask(payload ClickRecordPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClickRecord, body), nil
}

// NewLinkCounterRefreshTask 创建短链计数重算任务
func NewLinkCounterRefreshTask(payload LinkCounterRefreshPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLinkCounterRefresh, body), nil
}

// NewConversionProcessedTask 创建转化处理完成通知任务
func NewConversionProcessedTask(payload ConversionProcessedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConversionProcessed, body), nil
}
