package public

import (
	"errors"
	"net/http"

	"github.com/skinstack-core/internal/http/response"
	"github.com/skinstack-core/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	deviceCookieName  = "ss_did"
	sessionCookieName = "ss_sid"

	deviceCookieMaxAge = 365 * 24 * 60 * 60
)

// RedirectLink 短链跳转入口
// 先采集点击信号再 302 到目标地址，设备/会话标识通过 Cookie 维系。
func (h *Handler) RedirectLink(c *gin.Context) {
	slug := c.Param("slug")

	link, err := h.LinkService.ResolveSlug(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(c, "link not found")
			return
		}
		respondError(c, response.CodeInternal, "failed to resolve link", err)
		return
	}

	deviceID, err := c.Cookie(deviceCookieName)
	if err != nil || deviceID == "" {
		deviceID = uuid.NewString()
		c.SetCookie(deviceCookieName, deviceID, deviceCookieMaxAge, "/", "", false, true)
	}
	sessionID, err := c.Cookie(sessionCookieName)
	if err != nil || sessionID == "" {
		sessionID = uuid.NewString()
		c.SetCookie(sessionCookieName, sessionID, 0, "/", "", false, true)
	}

	if trackErr := h.LinkService.TrackClick(link, service.LinkClickInput{
		DeviceID:  deviceID,
		SessionID: sessionID,
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
	}); trackErr != nil {
		// 点击采集失败不阻断跳转
		requestLog(c).Warnw("link_click_track_failed",
			"slug", link.Slug,
			"link_id", link.ID,
			"error", trackErr.Error(),
		)
	}

	c.Redirect(http.StatusFound, link.DestinationURL)
}
