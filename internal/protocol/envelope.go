// Package protocol implements the gateway message envelope: the versioned
// wire format used for all communication between the cloud service and
// researcher-hosted gateways.
//
// Protocol version: 1.0. Transport: REST (HTTP/JSON), or any byte channel
// that can carry the serialized envelope (see internal/bridge).
package protocol

import (
	"time"

	"github.com/google/uuid"
)

// Version is the protocol version stamped on every envelope.
const Version = "1.0"

// MessageType tags an envelope with its payload semantics.
type MessageType string

const (
	// Circuit operations
	TypeExecuteCircuit  MessageType = "execute_circuit"
	TypeExecuteResult   MessageType = "execute_result"
	TypeTranspile       MessageType = "transpile"
	TypeTranspileResult MessageType = "transpile_result"

	// Job management
	TypeJobStatus         MessageType = "job_status"
	TypeJobStatusResponse MessageType = "job_status_response"
	TypeJobCancel         MessageType = "job_cancel"
	TypeJobCancelResponse MessageType = "job_cancel_response"

	// Backend discovery
	TypeListBackends MessageType = "list_backends"
	TypeBackendInfo  MessageType = "backend_info"

	// Health & registration
	TypeHealthCheck      MessageType = "health_check"
	TypeHealthResponse   MessageType = "health_response"
	TypeRegister         MessageType = "register"
	TypeRegisterResponse MessageType = "register_response"

	// Error
	TypeError MessageType = "error"

	// Streaming
	TypeStreamResults MessageType = "stream_results"
	TypeStreamChunk   MessageType = "stream_chunk"

	// QEC delegation
	TypeQECSimulate       MessageType = "qec_simulate"
	TypeQECSimulateResult MessageType = "qec_simulate_result"
	TypeQECDecodeSyndrome MessageType = "qec_decode_syndrome"
	TypeQECDecodeResult   MessageType = "qec_decode_result"
	TypeBBDecoder         MessageType = "bb_decoder"
	TypeBBDecoderResult   MessageType = "bb_decoder_result"
)

// KnownTypes lists every message type this protocol version understands.
var KnownTypes = []MessageType{
	TypeExecuteCircuit, TypeExecuteResult, TypeTranspile, TypeTranspileResult,
	TypeJobStatus, TypeJobStatusResponse, TypeJobCancel, TypeJobCancelResponse,
	TypeListBackends, TypeBackendInfo,
	TypeHealthCheck, TypeHealthResponse, TypeRegister, TypeRegisterResponse,
	TypeError,
	TypeStreamResults, TypeStreamChunk,
	TypeQECSimulate, TypeQECSimulateResult,
	TypeQECDecodeSyndrome, TypeQECDecodeResult,
	TypeBBDecoder, TypeBBDecoderResult,
}

var knownTypes = func() map[MessageType]bool {
	m := make(map[MessageType]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		m[t] = true
	}
	return m
}()

// Envelope is the standard gateway message. All protocol-level communication
// between the cloud service and gateway agents uses this format.
type Envelope struct {
	Type          MessageType    `json:"type"`
	Payload       map[string]any `json:"payload"`
	Version       string         `json:"version"`
	Timestamp     string         `json:"timestamp"`
	Source        string         `json:"source"`
	Target        string         `json:"target"`
	CorrelationID string         `json:"correlation_id"`
	Error         string         `json:"error,omitempty"`
}

// New builds an envelope of the given type, filling version, timestamp and
// correlation id defaults. A caller-supplied timestamp or correlation id is
// never overwritten.
func New(t MessageType, payload map[string]any) Envelope {
	e := Envelope{Type: t, Payload: payload}
	e.fillDefaults()
	return e
}

func (e *Envelope) fillDefaults() {
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	if e.Version == "" {
		e.Version = Version
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if e.CorrelationID == "" {
		e.CorrelationID = uuid.NewString()
	}
}

// Serialize renders the envelope into its canonical wire map. The error key
// is present only when non-empty.
func (e Envelope) Serialize() map[string]any {
	m := map[string]any{
		"type":           string(e.Type),
		"version":        e.Version,
		"timestamp":      e.Timestamp,
		"source":         e.Source,
		"target":         e.Target,
		"payload":        e.Payload,
		"correlation_id": e.CorrelationID,
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	return m
}

// Deserialize reads an envelope from a wire map. It never fails: an unknown
// or missing type coerces to TypeError so that newer senders with additional
// message types degrade gracefully instead of breaking decode.
func Deserialize(data map[string]any) Envelope {
	e := Envelope{
		Type:          TypeError,
		Payload:       asMap(data["payload"]),
		Version:       asString(data["version"]),
		Timestamp:     asString(data["timestamp"]),
		Source:        asString(data["source"]),
		Target:        asString(data["target"]),
		CorrelationID: asString(data["correlation_id"]),
		Error:         asString(data["error"]),
	}
	if t := MessageType(asString(data["type"])); knownTypes[t] {
		e.Type = t
	}
	e.fillDefaults()
	return e
}

// NewError builds an error envelope. The message is carried both in the
// payload (error_message) and in the top-level error field.
func NewError(message, source, correlationID string) Envelope {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	e := Envelope{
		Type:          TypeError,
		Payload:       map[string]any{"error_message": message},
		Source:        source,
		CorrelationID: correlationID,
		Error:         message,
	}
	e.fillDefaults()
	return e
}

// NewHealthResponse builds a health_response envelope. Caller-supplied
// details are applied first; status, server_name and version always win on
// key collision.
func NewHealthResponse(status, serverName string, details map[string]any) Envelope {
	payload := make(map[string]any, len(details)+3)
	for k, v := range details {
		payload[k] = v
	}
	payload["status"] = status
	payload["server_name"] = serverName
	payload["version"] = "1.0.0"

	e := Envelope{
		Type:    TypeHealthResponse,
		Source:  serverName,
		Payload: payload,
	}
	e.fillDefaults()
	return e
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
