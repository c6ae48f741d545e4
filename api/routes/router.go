package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storebridge/api/channel"
	"github.com/angelmondragon/storebridge/api/controllers"
	webhookcontrollers "github.com/angelmondragon/storebridge/api/controllers/webhooks"
	"github.com/angelmondragon/storebridge/api/middleware"
	"github.com/angelmondragon/storebridge/internal/appstore"
	"github.com/angelmondragon/storebridge/pkg/config"
	"github.com/angelmondragon/storebridge/pkg/logger"
)

// Params carries everything the router mounts. Decoder and Ingestor are
// optional; the webhook route is only registered when both are present and
// the webhook is enabled.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	Hub        *channel.Hub
	Dispatcher channel.Dispatcher
	Decoder    *appstore.Decoder
	Ingestor   webhookcontrollers.Ingestor
	Registry   *prometheus.Registry
}

func NewRouter(p Params) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/api/v1/channel", p.Hub.Handler(p.Dispatcher))

	if p.Config.AppStore.WebhookEnabled && p.Decoder != nil && p.Ingestor != nil {
		r.Route("/api/v1/webhooks", func(r chi.Router) {
			r.Post("/appstore", webhookcontrollers.AppStoreNotification(p.Decoder, p.Ingestor, p.Logger))
		})
	}

	return r
}
