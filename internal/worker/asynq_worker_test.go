package worker

import (
	"context"
	"testing"
	"time"

	"github.com/skinstack-core/internal/provider"
	"github.com/skinstack-core/internal/queue"

	"github.com/hibiken/asynq"
)

func TestRegisterNilSafe(t *testing.T) {
	var c *Consumer
	c.Register(nil)

	consumer := NewConsumer(&provider.Container{})
	consumer.Register(asynq.NewServeMux())
}

func TestHandleClickRecordBadPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskClickRecord, []byte("{not json"))
	if err := consumer.handleClickRecord(context.Background(), task); err == nil {
		t.Fatalf("expected unmarshal error for malformed payload")
	}
}

func TestHandleClickRecordSkipsZeroLinkID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewClickRecordTask(queue.ClickRecordPayload{ClickedAt: time.Now()})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleClickRecord(context.Background(), task); err != nil {
		t.Fatalf("expected zero link id to be skipped, got %v", err)
	}
}

func TestHandleLinkCounterRefreshSkipsZeroLinkID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewLinkCounterRefreshTask(queue.LinkCounterRefreshPayload{})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleLinkCounterRefresh(context.Background(), task); err != nil {
		t.Fatalf("expected zero link id to be skipped, got %v", err)
	}
}

func TestHandleConversionProcessedSkipsZeroConversionID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewConversionProcessedTask(queue.ConversionProcessedPayload{})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleConversionProcessed(context.Background(), task); err != nil {
		t.Fatalf("expected zero conversion id to be skipped, got %v", err)
	}
}
