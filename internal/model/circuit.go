package model

import "encoding/json"

// Gate is a single gate application inside a circuit.
type Gate struct {
	Gate   string             `json:"gate"`
	Qubits []int              `json:"qubits"`
	Params map[string]float64 `json:"params,omitempty"`
}

// Circuit is the device-independent circuit IR: a qubit count plus an
// ordered gate sequence. The gateway validates it field by field but never
// interprets it beyond pattern detection in the local simulator.
type Circuit struct {
	NumQubits int    `json:"num_qubits"`
	Gates     []Gate `json:"gates"`
}

// CircuitFromMap decodes a circuit out of an untyped payload map, as
// received inside protocol envelopes.
func CircuitFromMap(m map[string]any) (Circuit, error) {
	var c Circuit
	raw, err := json.Marshal(m)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, err
	}
	return c, nil
}

// ToMap renders the circuit back into envelope payload form.
func (c Circuit) ToMap() map[string]any {
	gates := make([]any, 0, len(c.Gates))
	for _, g := range c.Gates {
		gm := map[string]any{"gate": g.Gate, "qubits": g.Qubits}
		if len(g.Params) > 0 {
			gm["params"] = g.Params
		}
		gates = append(gates, gm)
	}
	return map[string]any{"num_qubits": c.NumQubits, "gates": gates}
}
