package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/qbridge/gateway-agent/internal/config"
	"github.com/qbridge/gateway-agent/internal/handler"
	"github.com/qbridge/gateway-agent/internal/middleware"
	"github.com/qbridge/gateway-agent/internal/service"
)

// New builds the HTTP router around a shared Gateway instance. Passing the
// gateway in lets main.go hand the same instance to the Redis bridge.
func New(cfg *config.Config, gateway *service.Gateway) http.Handler {
	gatewayH := handler.NewGatewayHandler(gateway)
	qecH := handler.NewQECHandler(gateway)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Trace)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))

	r.Route("/gateway", func(r chi.Router) {
		r.Get("/health", gatewayH.Health)
		r.Get("/backends", gatewayH.Backends)
		r.Get("/providers", gatewayH.Providers)
		r.Post("/execute", gatewayH.Execute)
		r.Post("/transpile", gatewayH.Transpile)
		r.Get("/job/{job_id}", gatewayH.GetJob)
		r.Post("/job/{job_id}/cancel", gatewayH.CancelJob)
		r.Post("/message", gatewayH.Message)

		r.Post("/qec/simulate", qecH.Simulate)
		r.Post("/qec/decode-syndrome", qecH.DecodeSyndrome)
		r.Post("/qec/bb-decoder", qecH.BBDecoder)
	})

	return r
}
