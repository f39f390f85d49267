package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/qbridge/gateway-agent/internal/middleware"
	"github.com/qbridge/gateway-agent/internal/model"
	"github.com/qbridge/gateway-agent/internal/service"
)

// GatewayHandler exposes the dispatcher over the gateway REST surface.
type GatewayHandler struct {
	gateway *service.Gateway
}

func NewGatewayHandler(gateway *service.Gateway) *GatewayHandler {
	return &GatewayHandler{gateway: gateway}
}

// GET /gateway/health
func (h *GatewayHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.gateway.Health())
}

// GET /gateway/backends
func (h *GatewayHandler) Backends(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.gateway.Backends())
}

// GET /gateway/providers
func (h *GatewayHandler) Providers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.gateway.Providers())
}

// POST /gateway/execute
func (h *GatewayHandler) Execute(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Circuit model.Circuit  `json:"circuit"`
		Shots   int            `json:"shots"`
		Backend string         `json:"backend"`
		Options map[string]any `json:"options"`
	}{Shots: 1024}

	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", "invalid request body")
		return
	}

	out, err := h.gateway.Execute(r.Context(), body.Circuit, body.Shots, body.Backend, body.Options)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"errors":  verr.Errors,
				"message": "Circuit validation failed",
			})
			return
		}
		log.Printf("execution failed (trace %s): %v", middleware.TraceIDFromCtx(r.Context()), err)
		writeError(w, http.StatusInternalServerError, "E_INTERNAL", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /gateway/transpile
func (h *GatewayHandler) Transpile(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Circuit           model.Circuit `json:"circuit"`
		Backend           string        `json:"backend"`
		OptimizationLevel int           `json:"optimization_level"`
	}{OptimizationLevel: 1}

	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.gateway.Transpile(body.Circuit, body.Backend, body.OptimizationLevel))
}

// GET /gateway/job/{job_id}
func (h *GatewayHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := h.gateway.GetJob(jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "E_NOT_FOUND", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// POST /gateway/job/{job_id}/cancel
func (h *GatewayHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	ack, err := h.gateway.CancelJob(jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "E_NOT_FOUND", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

// POST /gateway/message
// Protocol-level errors ride inside the envelope; the HTTP status is
// always 200.
func (h *GatewayHandler) Message(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeBody(r, &body); err != nil {
		body = map[string]any{}
	}
	writeJSON(w, http.StatusOK, h.gateway.HandleMessage(r.Context(), body))
}
