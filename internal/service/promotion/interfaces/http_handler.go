package interfaces

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"promohub/internal/pkg/logger"
	"promohub/internal/service/promotion/application"
	"promohub/internal/service/promotion/domain"
	"promohub/internal/service/promotion/infrastructure/notify"
)

const welcomeMessage = "Welcome to the Promotion Service"

// PromotionHandler 封装了 promotion 服务的 HTTP 处理器
type PromotionHandler struct {
	service     *application.PromotionService
	hub         *notify.Hub
	development bool
	ready       func(ctx context.Context) error
}

// HandlerOption 定制 PromotionHandler。
type HandlerOption func(*PromotionHandler)

// WithHub 开启 /ws 订阅入口。
func WithHub(hub *notify.Hub) HandlerOption {
	return func(h *PromotionHandler) { h.hub = hub }
}

// WithDevelopment 开发模式下错误响应附带调用栈。
func WithDevelopment(dev bool) HandlerOption {
	return func(h *PromotionHandler) { h.development = dev }
}

// WithReadiness 设置 /healthz 使用的依赖检查。
func WithReadiness(check func(ctx context.Context) error) HandlerOption {
	return func(h *PromotionHandler) { h.ready = check }
}

// NewPromotionHandler 创建一个新的 HTTP 处理器实例
func NewPromotionHandler(service *application.PromotionService, opts ...HandlerOption) *PromotionHandler {
	h := &PromotionHandler{service: service}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes 在 gin 引擎上注册所有路由
// 促销资源同时挂在 /promotions 与 /api/promotions 下。
func (h *PromotionHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.welcome)
	r.GET("/health", h.health)
	r.GET("/healthz", h.readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if h.hub != nil {
		r.GET("/ws", h.subscribe)
	}

	h.mountPromotions(r.Group("/promotions"))
	h.mountPromotions(r.Group("/api/promotions"))

	r.NoRoute(h.notFound)
}

func (h *PromotionHandler) mountPromotions(g *gin.RouterGroup) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/active", h.listActive)
	g.GET("/deleted", h.listDeleted)
	g.GET("/count", h.count)
	g.GET("/user-groups/:userGroupName/active", h.listByUserGroup)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.softDelete)
	g.DELETE("/:id/hard", h.hardDelete)
	g.POST("/:id/restore", h.restore)
}

func (h *PromotionHandler) welcome(c *gin.Context) {
	c.String(http.StatusOK, welcomeMessage)
}

func (h *PromotionHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": h.service.Now().UTC().Format(application.ISOLayout),
	})
}

func (h *PromotionHandler) readiness(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(c.Request.Context()); err != nil {
			logger.Ctx(c.Request.Context()).Warn().Err(err).Msg("readiness check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "UNAVAILABLE"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "READY"})
}

func (h *PromotionHandler) list(c *gin.Context) {
	var params application.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.respondError(c, domain.InvalidField("query", "binding", "Invalid query parameters"))
		return
	}
	page, err := h.service.List(c.Request.Context(), params)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.render(c, application.ListResult(page, h.service.Now()))
}

func (h *PromotionHandler) listActive(c *gin.Context) {
	page, err := h.service.ListActive(c.Request.Context(), pageParams(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.render(c, application.ListResult(page, h.service.Now()))
}

func (h *PromotionHandler) listByUserGroup(c *gin.Context) {
	page, err := h.service.ListByUserGroup(c.Request.Context(), c.Param("userGroupName"), pageParams(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.render(c, application.ListResult(page, h.service.Now()))
}

func (h *PromotionHandler) listDeleted(c *gin.Context) {
	page, err := h.service.ListDeleted(c.Request.Context(), pageParams(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.render(c, application.ListResult(page, h.service.Now()))
}

func (h *PromotionHandler) count(c *gin.Context) {
	includeDeleted, err := boolQuery(c, "includeDeleted")
	if err != nil {
		h.respondError(c, err)
		return
	}
	n, err := h.service.Count(c.Request.Context(), includeDeleted)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.render(c, application.CountResult(n))
}

func (h *PromotionHandler) get(c *gin.Context) {
	includeDeleted, err := boolQuery(c, "includeDeleted")
	if err != nil {
		h.respondError(c, err)
		return
	}
	p, err := h.service.Get(c.Request.Context(), c.Param("id"), includeDeleted)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.render(c, application.ItemResult(p, h.service.Now()))
}

func (h *PromotionHandler) create(c *gin.Context) {
	var req application.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err))
		return
	}
	p, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+p.ID)
	h.render(c, application.CreatedResult(p, h.service.Now()))
}

func (h *PromotionHandler) update(c *gin.Context) {
	var req application.UpdatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err))
		return
	}
	p, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.render(c, application.ItemResult(p, h.service.Now()))
}

func (h *PromotionHandler) softDelete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	h.render(c, application.DeletedResult())
}

func (h *PromotionHandler) hardDelete(c *gin.Context) {
	if err := h.service.HardDelete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	h.render(c, application.DeletedResult())
}

func (h *PromotionHandler) restore(c *gin.Context) {
	p, err := h.service.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.render(c, application.ItemResult(p, h.service.Now()))
}

// subscribe 升级为 websocket，?filter= 是可选的 CEL 表达式。
func (h *PromotionHandler) subscribe(c *gin.Context) {
	filter, err := notify.CompileFilter(c.Query("filter"))
	if err != nil {
		h.respondError(c, domain.InvalidField("filter", "cel", "Invalid subscription filter: "+err.Error()))
		return
	}
	if err := h.hub.ServeWS(c.Writer, c.Request, filter); err != nil {
		// 升级失败时 gorilla 已经写过响应
		logger.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket subscribe failed")
	}
}

func (h *PromotionHandler) notFound(c *gin.Context) {
	h.render(c, application.Response{
		StatusCode: http.StatusNotFound,
		Body: application.ErrorResponse{
			Success: false,
			Message: "Not Found - " + c.Request.URL.RequestURI(),
		},
	})
}

// pageParams 只取分页参数，固定谓词的列表接口忽略其余查询串。
func pageParams(c *gin.Context) application.ListParams {
	return application.ListParams{Page: c.Query("page"), Limit: c.Query("limit")}
}

func boolQuery(c *gin.Context, key string) (bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.InvalidField(key, "boolean", key+" must be a boolean, received: "+raw)
	}
	return b, nil
}
