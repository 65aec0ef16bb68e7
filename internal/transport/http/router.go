package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richardliu001/school-rewards/internal/config"
	"github.com/richardliu001/school-rewards/internal/metrics"
	"github.com/richardliu001/school-rewards/internal/service"
	"go.uber.org/zap"
)

// Deps is everything the HTTP layer serves.
type Deps struct {
	Ledger      *service.Ledger
	Inventory   *service.Inventory
	Orders      *service.Orders
	Adjustments *service.Adjustments
	Awards      *service.Awards
	Deposits    *service.Deposits
	Configs     *service.PointsConfigs

	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	RateLimit config.RateLimitConfig
	Log       *zap.SugaredLogger
}

// Handler holds the services behind the routes.
type Handler struct {
	ledger      *service.Ledger
	inventory   *service.Inventory
	orders      *service.Orders
	adjustments *service.Adjustments
	awards      *service.Awards
	deposits    *service.Deposits
	configs     *service.PointsConfigs
	log         *zap.SugaredLogger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(d.Log, d.Metrics))
	if d.RateLimit.RPS > 0 {
		r.Use(RateLimitMiddleware(d.RateLimit.RPS, d.RateLimit.Burst))
	}
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	h := &Handler{
		ledger:      d.Ledger,
		inventory:   d.Inventory,
		orders:      d.Orders,
		adjustments: d.Adjustments,
		awards:      d.Awards,
		deposits:    d.Deposits,
		configs:     d.Configs,
		log:         d.Log,
	}
	v1 := r.Group("/v1", ActorMiddleware())
	h.RegisterHandlers(v1)
	return r
}

func (h *Handler) RegisterHandlers(v1 *gin.RouterGroup) {
	v1.POST("/wallets", h.openWallet)
	v1.GET("/wallets/:student_id", h.balance)
	v1.GET("/wallets/:student_id/history", h.history)
	v1.GET("/wallets/:student_id/reconcile", h.reconcile)
	v1.POST("/wallets/:student_id/adjustments", h.adjust)
	v1.POST("/wallets/:student_id/awards", h.award)
	v1.POST("/wallets/:student_id/deposits", h.deposit)

	v1.POST("/items", h.createItem)
	v1.GET("/items/:id", h.getItem)
	v1.GET("/stores/:store_id/items", h.listItems)
	v1.POST("/items/:id/restock", h.restock)
	v1.POST("/items/:id/restore", h.restore)
	v1.PUT("/items/:id/active", h.setActive)

	v1.POST("/orders", h.placeOrder)
	v1.GET("/orders/:id", h.getOrder)
	v1.GET("/students/:student_id/orders", h.listOrders)
	v1.POST("/orders/:id/actions/:action", h.applyAction)

	v1.GET("/churches/:church_id/points-config", h.getPointsConfig)
	v1.PUT("/churches/:church_id/points-config", h.putPointsConfig)
}
