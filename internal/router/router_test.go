package router

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/qbridge/gateway-agent/internal/config"
	"github.com/qbridge/gateway-agent/internal/device"
	"github.com/qbridge/gateway-agent/internal/service"
)

func TestGatewayRoutesRegistered(t *testing.T) {
	cfg := config.Default()
	gateway := service.New(device.NewLocalSimulator("", 0), "test", "gw")

	handler := New(cfg, gateway)
	routes, ok := handler.(chi.Routes)
	if !ok {
		t.Fatalf("router does not implement chi.Routes")
	}

	registered := map[string]bool{}
	if err := chi.Walk(routes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		registered[fmt.Sprintf("%s %s", method, route)] = true
		return nil
	}); err != nil {
		t.Fatalf("walk routes: %v", err)
	}

	for _, route := range []string{
		"GET /gateway/health",
		"GET /gateway/backends",
		"GET /gateway/providers",
		"POST /gateway/execute",
		"POST /gateway/transpile",
		"GET /gateway/job/{job_id}",
		"POST /gateway/job/{job_id}/cancel",
		"POST /gateway/message",
		"POST /gateway/qec/simulate",
		"POST /gateway/qec/decode-syndrome",
		"POST /gateway/qec/bb-decoder",
	} {
		if !registered[route] {
			t.Fatalf("missing route %s", route)
		}
	}
}
