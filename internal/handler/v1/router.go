package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/config"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/metrics"
)

type Handlers struct {
	Auth          *AuthHandler
	Clients       *ClientHandler
	Pets          *PetHandler
	Veterinarians *VeterinarianHandler
	Catalog       *CatalogHandler
	Appointments  *AppointmentHandler
	Records       *MedicalRecordHandler
	Invoices      *InvoiceHandler
	Notifications *NotificationHandler
	QR            *QRHandler
}

type RouterDeps struct {
	Config      *config.Config
	Log         *zap.Logger
	Metrics     *metrics.Collector
	Tokens      middleware.TokenValidator
	GlobalLimit *middleware.IPRateLimiter
	AuthLimit   *middleware.IPRateLimiter
	// Ready reports whether the API can serve traffic, typically a DB ping.
	Ready    func(ctx context.Context) error
	Handlers Handlers
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Config.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(d.Log),
		middleware.Recovery(d.Log),
		middleware.Logger(d.Log),
		middleware.Metrics(d.Metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(d.Config.CORS),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if d.Ready != nil {
			if err := d.Ready(ctx); err != nil {
				d.Log.Warn("readiness check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1", middleware.Timeout(d.Config.Server.RequestTimeout), d.GlobalLimit.Handler())

	h := d.Handlers
	h.Auth.PublicRoutes(api, d.AuthLimit.Handler())
	h.QR.PublicRoutes(api)

	authed := api.Group("", middleware.Authenticate(d.Tokens))
	h.Auth.Routes(authed)
	h.Clients.Routes(authed)
	h.Pets.Routes(authed)
	h.Veterinarians.Routes(authed)
	h.Catalog.Routes(authed)
	h.Appointments.Routes(authed)
	h.Records.Routes(authed)
	h.Invoices.Routes(authed)
	h.Notifications.Routes(authed)

	return r
}
