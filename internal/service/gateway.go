// Package service implements the gateway dispatcher: it owns the device,
// the process-wide job ledger, and the translation between inbound requests
// (REST or protocol envelopes) and device operations.
package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/qbridge/gateway-agent/internal/device"
	"github.com/qbridge/gateway-agent/internal/model"
	"github.com/qbridge/gateway-agent/internal/protocol"
)

// jobStore is the optional device-side job ledger. The dispatcher falls
// back to it for results produced out-of-band (direct Execute calls that
// bypassed the dispatcher).
type jobStore interface {
	GetJob(jobID string) (device.ExecutionResult, bool)
}

// Gateway dispatches requests to the configured device and records every
// execution in its own job ledger. Entries are written exactly once and
// never mutated; cancel is an acknowledgment stub, not a real cancellation.
type Gateway struct {
	device     device.Device
	serverName string
	serverID   string
	startTime  time.Time

	mu   sync.Mutex
	jobs map[string]map[string]any
}

func New(dev device.Device, serverName, serverID string) *Gateway {
	if serverName == "" {
		serverName = "gateway_agent"
	}
	if serverID == "" {
		serverID = "gw_001"
	}
	return &Gateway{
		device:     dev,
		serverName: serverName,
		serverID:   serverID,
		startTime:  time.Now(),
		jobs:       make(map[string]map[string]any),
	}
}

func (g *Gateway) uptimeSeconds() float64 {
	return math.Round(time.Since(g.startTime).Seconds()*100) / 100
}

// Health returns the gateway health snapshot including the device status.
func (g *Gateway) Health() map[string]any {
	return map[string]any{
		"status":           "healthy",
		"server_name":      g.serverName,
		"server_id":        g.serverID,
		"version":          "1.0.0",
		"protocol_version": protocol.Version,
		"uptime_seconds":   g.uptimeSeconds(),
		"device":           g.device.GetStatus(),
	}
}

// Backends wraps the single configured device into a one-element list.
func (g *Gateway) Backends() map[string]any {
	info := g.device.GetDeviceInfo()
	return map[string]any{
		"backends": []any{map[string]any{
			"name":            info.Name,
			"num_qubits":      info.NumQubits,
			"technology":      info.Technology,
			"connectivity":    info.Connectivity,
			"supported_gates": info.SupportedGates,
			"max_shots":       info.MaxShots,
			"status":          info.Status,
			"metadata":        info.Metadata,
		}},
		"total":  1,
		"server": g.serverName,
	}
}

// Providers describes this gateway as a single researcher-hosted provider.
func (g *Gateway) Providers() map[string]any {
	info := g.device.GetDeviceInfo()
	return map[string]any{
		"providers": []any{map[string]any{
			"id":         "custom",
			"name":       g.serverName,
			"type":       "researcher_hosted",
			"technology": info.Technology,
			"backends":   []any{info.Name},
		}},
	}
}

// Execute validates the circuit, runs it on the device and records the
// result. Validation failures return *model.ValidationError with the full
// error list; they never reach the device.
func (g *Gateway) Execute(ctx context.Context, circuit model.Circuit, shots int, backend string, options map[string]any) (map[string]any, error) {
	if errs := g.device.ValidateCircuit(circuit); len(errs) > 0 {
		return nil, &model.ValidationError{Errors: errs}
	}

	result := g.device.Execute(ctx, circuit, shots, options)
	g.storeJob(result)

	if backend == "" {
		backend = g.device.GetDeviceInfo().Name
	}
	return map[string]any{
		"job_id":            result.JobID,
		"counts":            result.Counts,
		"shots":             result.Shots,
		"execution_time_ms": result.ExecutionTimeMS,
		"success":           result.Success,
		"backend":           backend,
		"provider":          "custom",
		"server":            g.serverName,
		"metadata":          result.Metadata,
	}, nil
}

// Transpile delegates to the device; the default device behavior is
// identity passthrough.
func (g *Gateway) Transpile(circuit model.Circuit, backend string, optimizationLevel int) map[string]any {
	transpiled := g.device.Transpile(circuit, optimizationLevel)
	if backend == "" {
		backend = g.device.GetDeviceInfo().Name
	}
	return map[string]any{
		"transpiled_circuit": transpiled.ToMap(),
		"backend":            backend,
		"optimization_level": optimizationLevel,
		"server":             g.serverName,
	}
}

// GetJob looks up the dispatcher ledger first and falls back to the
// device's own ledger for out-of-band results.
func (g *Gateway) GetJob(jobID string) (map[string]any, error) {
	g.mu.Lock()
	job, ok := g.jobs[jobID]
	g.mu.Unlock()

	if !ok {
		store, isStore := g.device.(jobStore)
		if !isStore {
			return nil, &model.NotFoundError{Resource: "job", ID: jobID}
		}
		result, found := store.GetJob(jobID)
		if !found {
			return nil, &model.NotFoundError{Resource: "job", ID: jobID}
		}
		job = result.ToMap()
	}

	out := map[string]any{"job_id": jobID, "status": jobStatusLabel(job)}
	for k, v := range job {
		out[k] = v
	}
	out["job_id"] = jobID
	return out, nil
}

// CancelJob acknowledges a cancel request. Local execution is synchronous,
// so by the time a cancel arrives the job has already completed; the stored
// result is left untouched.
func (g *Gateway) CancelJob(jobID string) (map[string]any, error) {
	g.mu.Lock()
	_, ok := g.jobs[jobID]
	g.mu.Unlock()
	if !ok {
		return nil, &model.NotFoundError{Resource: "job", ID: jobID}
	}
	return map[string]any{"job_id": jobID, "cancelled": true}, nil
}

func (g *Gateway) storeJob(result device.ExecutionResult) {
	g.mu.Lock()
	g.jobs[result.JobID] = result.ToMap()
	g.mu.Unlock()
}

func jobStatusLabel(job map[string]any) string {
	if ok, _ := job["success"].(bool); ok {
		return "COMPLETED"
	}
	return "FAILED"
}

// HandleMessage dispatches a generic protocol envelope and always returns a
// serialized response envelope. The boundary is total: panics during
// dispatch become error envelopes.
func (g *Gateway) HandleMessage(ctx context.Context, data map[string]any) (out map[string]any) {
	msg := protocol.Deserialize(data)

	defer func() {
		if r := recover(); r != nil {
			out = protocol.NewError(fmt.Sprintf("%v", r), g.serverName, msg.CorrelationID).Serialize()
		}
	}()

	switch msg.Type {
	case protocol.TypeHealthCheck:
		return protocol.NewHealthResponse("healthy", g.serverName, map[string]any{
			"uptime": g.uptimeSeconds(),
		}).Serialize()

	case protocol.TypeListBackends:
		info := g.device.GetDeviceInfo()
		resp := protocol.New(protocol.TypeBackendInfo, map[string]any{
			"backends": []any{map[string]any{
				"name":            info.Name,
				"num_qubits":      info.NumQubits,
				"technology":      info.Technology,
				"supported_gates": info.SupportedGates,
			}},
		})
		resp.Source = g.serverName
		resp.Target = msg.Source
		resp.CorrelationID = msg.CorrelationID
		return resp.Serialize()

	case protocol.TypeExecuteCircuit:
		return g.handleExecuteMessage(ctx, msg)

	case protocol.TypeQECSimulate:
		return g.wrapQEC(msg, protocol.TypeQECSimulateResult, g.QECSimulate(msg.Payload))

	case protocol.TypeQECDecodeSyndrome:
		return g.wrapQEC(msg, protocol.TypeQECDecodeResult, g.QECDecodeSyndrome(msg.Payload))

	case protocol.TypeBBDecoder:
		result, err := g.BBDecoder(msg.Payload)
		if err != nil {
			return protocol.NewError(err.Error(), g.serverName, msg.CorrelationID).Serialize()
		}
		return g.wrapQEC(msg, protocol.TypeBBDecoderResult, result)

	default:
		return protocol.NewError(
			fmt.Sprintf("Unsupported message type: %s", msg.Type),
			g.serverName, msg.CorrelationID,
		).Serialize()
	}
}

func (g *Gateway) handleExecuteMessage(ctx context.Context, msg protocol.Envelope) map[string]any {
	circuitMap, _ := msg.Payload["circuit"].(map[string]any)
	circuit, err := model.CircuitFromMap(circuitMap)
	if err != nil {
		return protocol.NewError("invalid circuit: "+err.Error(), g.serverName, msg.CorrelationID).Serialize()
	}
	shots := payloadInt(msg.Payload, "shots", 1024)

	// Same pre-validation as the REST path, so both entry points reject
	// invalid circuits identically.
	if errs := g.device.ValidateCircuit(circuit); len(errs) > 0 {
		resp := protocol.NewError(
			(&model.ValidationError{Errors: errs}).Error(),
			g.serverName, msg.CorrelationID,
		)
		resp.Payload["errors"] = errs
		return resp.Serialize()
	}

	result := g.device.Execute(ctx, circuit, shots, nil)
	g.storeJob(result)

	resp := protocol.New(protocol.TypeExecuteResult, result.ToMap())
	resp.Source = g.serverName
	resp.Target = msg.Source
	resp.CorrelationID = msg.CorrelationID
	return resp.Serialize()
}

func (g *Gateway) wrapQEC(msg protocol.Envelope, t protocol.MessageType, payload map[string]any) map[string]any {
	resp := protocol.New(t, payload)
	resp.Source = g.serverName
	resp.Target = msg.Source
	resp.CorrelationID = msg.CorrelationID
	return resp.Serialize()
}

// payloadInt reads an integer from an envelope payload, tolerating the
// float64 values JSON decoding produces.
func payloadInt(payload map[string]any, key string, fallback int) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
