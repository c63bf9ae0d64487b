package public

import (
	"errors"
	"io"
	"strings"

	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/http/response"
	"github.com/skinstack-core/internal/service"

	"github.com/gin-gonic/gin"
)

// ReceiveWebhook 接收联盟网络回调
// 同一事件重复投递返回 202，签名不合法返回 401 且不落任何数据。
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	source := strings.ToLower(strings.TrimSpace(c.Param("source")))

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, response.CodeBadRequest, "failed to read payload", err)
		return
	}

	hint := service.WebhookEventHint{}
	if source == constants.WebhookSourceShopify {
		hint.ExternalEventID = c.GetHeader("X-Shopify-Webhook-Id")
		hint.EventType = c.GetHeader("X-Shopify-Topic")
	}

	result, err := h.WebhookService.Process(service.WebhookProcessInput{
		Source:          source,
		Payload:         payload,
		SignatureHeader: c.GetHeader(service.SignatureHeaderName(source)),
		Hint:            hint,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedSource):
			response.NotFound(c, "unsupported webhook source")
		case errors.Is(err, service.ErrSignatureInvalid):
			response.Unauthorized(c, "webhook signature invalid")
		case errors.Is(err, service.ErrEventPayloadInvalid):
			respondError(c, response.CodeBadRequest, "webhook payload invalid", nil)
		default:
			respondError(c, response.CodeInternal, "failed to process webhook", err)
		}
		return
	}

	data := gin.H{"event_id": result.EventID}
	if result.Conversion != nil {
		data["conversion_id"] = result.Conversion.ID
		data["conversion_status"] = result.Conversion.Status
	}
	if result.Attribution != nil {
		data["match_type"] = result.Attribution.MatchType
	}
	if result.Commission != nil {
		data["commission_id"] = result.Commission.ID
	}
	if result.Unattributed {
		data["unattributed"] = true
		if result.Reason != "" {
			data["reason"] = result.Reason
		}
	}

	if result.Duplicate {
		response.Accepted(c, data)
		return
	}
	response.Success(c, data)
}
