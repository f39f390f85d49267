// Package device defines the capability contract that any quantum backend
// must satisfy to sit behind the gateway, plus a built-in local simulator.
// Researchers implement Device to connect their own hardware control stack.
package device

import (
	"context"
	"fmt"

	"github.com/qbridge/gateway-agent/internal/model"
)

// DeviceInfo is the static description of a backend. Implementations must
// hand out fresh copies of the slice/map fields on every call so that no
// two callers alias the same storage.
type DeviceInfo struct {
	Name           string         `json:"name"`
	NumQubits      int            `json:"num_qubits"`
	Technology     string         `json:"technology"`
	Connectivity   string         `json:"connectivity"`
	SupportedGates []string       `json:"supported_gates"`
	MaxShots       int            `json:"max_shots"`
	Status         string         `json:"status"`
	Metadata       map[string]any `json:"metadata"`
}

// ExecutionResult is the outcome of a single circuit execution.
type ExecutionResult struct {
	JobID           string         `json:"job_id"`
	Counts          map[string]int `json:"counts"`
	Shots           int            `json:"shots"`
	ExecutionTimeMS float64        `json:"execution_time_ms"`
	Success         bool           `json:"success"`
	Error           string         `json:"error,omitempty"`
	Metadata        map[string]any `json:"metadata"`
}

// ToMap renders the result for job ledgers and envelope payloads. The error
// key is present only on failures.
func (r ExecutionResult) ToMap() map[string]any {
	m := map[string]any{
		"job_id":            r.JobID,
		"counts":            r.Counts,
		"shots":             r.Shots,
		"execution_time_ms": r.ExecutionTimeMS,
		"success":           r.Success,
		"metadata":          r.Metadata,
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return m
}

// Device is the pluggable backend contract. Execute is total: every failure,
// including circuit validation, surfaces as an ExecutionResult with
// Success=false rather than an error or panic crossing the boundary.
type Device interface {
	// GetDeviceInfo returns the static backend description. Pure.
	GetDeviceInfo() DeviceInfo

	// Execute runs a circuit for the given number of shots. A hardware
	// adapter may block on I/O; ctx is the only cancellation channel.
	Execute(ctx context.Context, circuit model.Circuit, shots int, options map[string]any) ExecutionResult

	// GetStatus returns a point-in-time health snapshot.
	GetStatus() map[string]any

	// Transpile rewrites the circuit into device-native gates. The default
	// behavior is identity passthrough (see IdentityTranspile).
	Transpile(circuit model.Circuit, optimizationLevel int) model.Circuit

	// ValidateCircuit checks the circuit against device constraints and
	// returns every violation found (empty slice = valid).
	ValidateCircuit(circuit model.Circuit) []string
}

// ValidateCircuit is the shared validation logic called by Device
// implementations. It scans the whole circuit and collects every violation
// instead of stopping at the first: qubit-count overflow, unsupported
// gates, and qubit indices outside [0, num_qubits).
func ValidateCircuit(info DeviceInfo, circuit model.Circuit) []string {
	var errs []string

	if circuit.NumQubits > info.NumQubits {
		errs = append(errs, fmt.Sprintf(
			"Circuit requires %d qubits, device has %d", circuit.NumQubits, info.NumQubits))
	}

	supported := make(map[string]bool, len(info.SupportedGates))
	for _, g := range info.SupportedGates {
		supported[g] = true
	}

	for _, gate := range circuit.Gates {
		if !supported[gate.Gate] {
			errs = append(errs, fmt.Sprintf("Unsupported gate: %s", gate.Gate))
		}
		for _, q := range gate.Qubits {
			if q < 0 || q >= info.NumQubits {
				errs = append(errs, fmt.Sprintf(
					"Qubit index %d out of range (max %d)", q, info.NumQubits-1))
			}
		}
	}

	return errs
}

// IdentityTranspile is the default transpilation: the circuit is returned
// unchanged regardless of optimization level.
func IdentityTranspile(circuit model.Circuit, _ int) model.Circuit {
	return circuit
}
