package handler

import (
	"net/http"

	"github.com/qbridge/gateway-agent/internal/service"
)

// QECHandler exposes the delegated QEC calculators. These are standalone
// numeric endpoints; they share nothing with the job ledger.
type QECHandler struct {
	gateway *service.Gateway
}

func NewQECHandler(gateway *service.Gateway) *QECHandler {
	return &QECHandler{gateway: gateway}
}

// POST /gateway/qec/simulate
func (h *QECHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.gateway.QECSimulate(req))
}

// POST /gateway/qec/decode-syndrome
func (h *QECHandler) DecodeSyndrome(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.gateway.QECDecodeSyndrome(req))
}

// POST /gateway/qec/bb-decoder
func (h *QECHandler) BBDecoder(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", "invalid request body")
		return
	}
	out, err := h.gateway.BBDecoder(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}
