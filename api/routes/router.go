package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hubfood/ifood-erp-sync/api/controllers"
	webhookcontrollers "github.com/hubfood/ifood-erp-sync/api/controllers/webhooks"
	"github.com/hubfood/ifood-erp-sync/api/middleware"
	"github.com/hubfood/ifood-erp-sync/internal/events"
	"github.com/hubfood/ifood-erp-sync/internal/inventory"
	"github.com/hubfood/ifood-erp-sync/internal/merchants"
	"github.com/hubfood/ifood-erp-sync/pkg/config"
	"github.com/hubfood/ifood-erp-sync/pkg/db"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
	"github.com/hubfood/ifood-erp-sync/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	intake events.Service,
	secrets *merchants.SecretResolver,
	inventorySvc inventory.Service,
	statusReconciler *inventory.StatusReconciler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/ifood", webhookcontrollers.IFoodWebhook(intake, secrets, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/adjust", controllers.AdjustStock(inventorySvc, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/status", controllers.ProductStatus(statusReconciler, logg))
		})
	})

	return r
}
