package interfaces

import (
	"github.com/gin-gonic/gin"

	"promohub/internal/pkg/logger"
	"promohub/internal/service/promotion/application"
	"promohub/internal/service/promotion/domain"
)

// respondError 是所有处理器唯一的错误出口。
func (h *PromotionHandler) respondError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	resp := application.ErrorResult(err, h.development)

	switch {
	case domain.IsValidation(err):
		logger.Ctx(ctx).Debug().Err(err).Msg("request rejected")
	case domain.IsNotFound(err):
		logger.Ctx(ctx).Debug().Err(err).Msg("resource not found")
	default:
		logger.Ctx(ctx).Error().Err(err).Int("status", resp.StatusCode).Msg("request failed")
	}
	_ = c.Error(err)
	h.render(c, resp)
}

func (h *PromotionHandler) render(c *gin.Context, resp application.Response) {
	if resp.Body == nil {
		c.Status(resp.StatusCode)
		return
	}
	c.JSON(resp.StatusCode, resp.Body)
}

// invalidBody 请求体不是合法 JSON 或字段类型不匹配。
func invalidBody(err error) error {
	return domain.InvalidField("body", "json", "Invalid request body").WithDetail("reason", err.Error())
}
