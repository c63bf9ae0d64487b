package public

import (
	handlershared "github.com/skinstack-core/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getInfluencerID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "influencer_id")
}
