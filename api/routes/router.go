package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otdoges/zapdev-sub005/api/controllers"
	billingcontrollers "github.com/otdoges/zapdev-sub005/api/controllers/billing"
	webhookcontrollers "github.com/otdoges/zapdev-sub005/api/controllers/webhooks"
	"github.com/otdoges/zapdev-sub005/api/middleware"
	"github.com/otdoges/zapdev-sub005/pkg/config"
	"github.com/otdoges/zapdev-sub005/pkg/db"
	"github.com/otdoges/zapdev-sub005/pkg/logger"
	"github.com/otdoges/zapdev-sub005/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	resolver billingcontrollers.CustomerResolver,
	snapshots billingcontrollers.SnapshotService,
	sessions billingcontrollers.SessionService,
	webhookService webhookcontrollers.StripeWebhookService,
	stripeClient interface{ SigningSecret() string },
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(webhookService, stripeClient, logg))
	})

	r.Route("/api/v1/billing", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth, logg))
		r.Use(middleware.RateLimit(cfg.RateLimit, redisClient, logg))

		r.Get("/subscription", billingcontrollers.SubscriptionFetch(resolver, snapshots, logg))
		r.Post("/checkout", billingcontrollers.CheckoutCreate(sessions, logg))
		r.Post("/portal", billingcontrollers.PortalCreate(sessions, logg))
	})

	return r
}
