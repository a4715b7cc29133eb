package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BotCoder254/projects254/internal/adapter/http/middleware"
	"github.com/BotCoder254/projects254/internal/logging"
	"github.com/BotCoder254/projects254/internal/security"
)

type Handlers struct {
	Cart    *CartHandler
	Payment *PaymentHandler
	Order   *OrderHandler
	Admin   *AdminHandler
	Token   *TokenHandler
}

type RouterDeps struct {
	Authz         *middleware.Authz
	Metrics       *middleware.HTTPMetrics
	Logger        *slog.Logger
	SecureCookies bool
}

func NewRouter(h Handlers, d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), d.Metrics.Middleware(), middleware.Logging(d.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		logging.From(c).Debug("health check")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", h.Token.IssueToken)

	// provider callback: no session, no auth
	r.POST("/api/mpesa/callback", h.Payment.Callback)

	r.GET("/order/:number", h.Order.Track)
	r.GET("/order/:number/receipt", h.Order.Receipt)

	shop := r.Group("/", middleware.Session(d.SecureCookies))
	{
		shop.GET("/api/cart", h.Cart.Get)
		shop.POST("/api/cart/add", h.Cart.Add)
		shop.POST("/api/cart/remove", h.Cart.Remove)
		shop.POST("/api/cart/update-quantity", h.Cart.UpdateQuantity)
		shop.POST("/api/cart/sync", h.Cart.Sync)
		shop.POST("/process-payment", h.Payment.ProcessPayment)
		shop.POST("/check-payment-status", h.Payment.CheckPaymentStatus)
	}

	admin := r.Group("/api/admin")
	{
		admin.POST("/update-order-status", d.Authz.Require(security.PermOrdersManage), h.Admin.UpdateOrderStatus)
		admin.GET("/orders", d.Authz.Require(security.PermOrdersRead), h.Admin.Orders)
		admin.GET("/stats", d.Authz.Require(security.PermDashboardRead), h.Admin.Stats)
		admin.GET("/menu", d.Authz.Require(security.PermDashboardRead), h.Admin.Menu)
	}

	return r
}
