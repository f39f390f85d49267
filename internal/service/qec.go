package service

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// QEC delegation endpoints: standalone threshold-model calculators run on
// behalf of the cloud service. They share no state with the job ledger
// beyond returning through the same envelope/HTTP boundary.

var qecThresholds = map[string]float64{
	"surface": 0.01,
	"color":   0.008,
}

var qecDecoderMods = map[string]float64{
	"mwpm":       1.0,
	"union_find": 1.15,
	"lookup":     0.85,
}

// QECSimulate runs a threshold-model QEC decoder simulation.
func (g *Gateway) QECSimulate(req map[string]any) map[string]any {
	codeType := reqString(req, "code_type", "surface")
	decoderType := reqString(req, "decoder_type", "mwpm")
	d := reqInt(req, "code_distance", 5)
	p := reqFloat(req, "physical_error_rate", 0.001)
	shots := reqInt(req, "shots", 1000)
	numCycles := reqInt(req, "num_cycles", 10)
	noiseModel := reqString(req, "noise_model", "depolarizing")

	pTh, ok := qecThresholds[codeType]
	if !ok {
		pTh = 0.01
	}
	decoderMod, ok := qecDecoderMods[decoderType]
	if !ok {
		decoderMod = 1.0
	}
	if decoderType == "lookup" && d > 5 {
		decoderMod = 1.3
	}

	ratio := 1.0
	if pTh > 0 {
		ratio = p / pTh
	}
	exponent := float64(d+1) / 2.0
	logicalErrorRate := math.Min(0.5, math.Max(0, 0.03*math.Pow(ratio, exponent)*decoderMod))

	switch noiseModel {
	case "measurement_error":
		logicalErrorRate *= 1.2
	case "idle_error":
		logicalErrorRate *= 1.1
	}
	logicalErrorRate = math.Min(0.5, logicalErrorRate)

	failureCount := 0
	for i := 0; i < shots; i++ {
		if rand.Float64() < logicalErrorRate {
			failureCount++
		}
	}
	measuredRate := 0.0
	if shots > 0 {
		measuredRate = float64(failureCount) / float64(shots)
	}

	syndromeHistory := make([]any, 0, numCycles)
	for cycle := 0; cycle < numCycles; cycle++ {
		grid := make([]any, 0, d)
		detected := []any{}
		for row := 0; row < d; row++ {
			rowVals := make([]any, 0, d)
			for col := 0; col < d; col++ {
				val := 0
				if rand.Float64() < p*3 {
					val = 1
					detected = append(detected,
						fmt.Sprintf("Stabilizer (%d,%d) triggered in cycle %d", row, col, cycle))
				}
				rowVals = append(rowVals, val)
			}
			grid = append(grid, rowVals)
		}
		syndromeHistory = append(syndromeHistory, map[string]any{
			"cycle":           cycle,
			"syndrome_values": grid,
			"detected_errors": detected,
		})
	}

	return map[string]any{
		"code_type":            codeType,
		"decoder_type":         decoderType,
		"code_distance":        d,
		"noise_model":          noiseModel,
		"logical_error_rate":   roundTo(measuredRate, 6),
		"physical_error_rate":  p,
		"success_count":        shots - failureCount,
		"failure_count":        failureCount,
		"total_shots":          shots,
		"avg_decoding_time_ms": roundTo(uniform(0.1, 5.0), 4),
		"syndrome_history":     syndromeHistory,
		"error_rate_curve":     []any{},
		"execution_time_ms":    roundTo(uniform(10, 200), 2),
		"engine_used":          "gateway_agent_qec_sim",
		"delegated":            true,
		"server":               g.serverName,
	}
}

// QECDecodeSyndrome decodes a single syndrome measurement.
func (g *Gateway) QECDecodeSyndrome(req map[string]any) map[string]any {
	decoderType := reqString(req, "decoder_type", "mwpm")
	syndromeValues, _ := req["syndrome_values"].([]any)

	errorTypes := []string{"X", "Z", "Y"}
	corrections := []any{}
	for rowIdx, rowAny := range syndromeValues {
		row, _ := rowAny.([]any)
		for colIdx, valAny := range row {
			if reqIntValue(valAny) != 1 {
				continue
			}
			corrections = append(corrections, map[string]any{
				"qubit_index": rowIdx*len(row) + colIdx,
				"error_type":  errorTypes[rand.Intn(len(errorTypes))],
				"cycle":       0,
			})
		}
	}

	numErrors := len(corrections)
	var logicalError bool
	var confidence float64
	switch decoderType {
	case "lookup":
		logicalError = numErrors > 3
		confidence = 0.98
		if numErrors > 2 {
			confidence = 0.75
		}
	case "mwpm":
		logicalError = numErrors > 4
		confidence = 0.95
		if numErrors > 3 {
			confidence = 0.70
		}
	default:
		logicalError = numErrors > 3
		confidence = 0.92
		if numErrors > 3 {
			confidence = 0.65
		}
	}

	return map[string]any{
		"corrections":      corrections,
		"logical_error":    logicalError,
		"confidence":       roundTo(confidence, 3),
		"decoding_time_ms": roundTo(uniform(0.01, 1.0), 4),
		"delegated":        true,
		"server":           g.serverName,
	}
}

type bbFamily struct {
	n, k, d    int
	thresholds map[string]float64
}

var bbFamilies = map[string]bbFamily{
	"bb_72_12_6": {72, 12, 6, map[string]float64{
		"bp_osd": 0.0081, "mwpm": 0.0072, "union_find": 0.0068, "lookup_table": 0.0075}},
	"bb_90_8_10": {90, 8, 10, map[string]float64{
		"bp_osd": 0.0092, "mwpm": 0.0078, "union_find": 0.0073, "lookup_table": 0.0080}},
	"bb_144_12_12": {144, 12, 12, map[string]float64{
		"bp_osd": 0.0110, "mwpm": 0.0095, "union_find": 0.0088, "lookup_table": 0.0091}},
	"bb_288_12_18": {288, 12, 18, map[string]float64{
		"bp_osd": 0.0125, "mwpm": 0.0105, "union_find": 0.0098, "lookup_table": 0.0100}},
}

// BBDecoder simulates a bivariate-bicycle code decoder. Unknown code
// families are a caller error.
func (g *Gateway) BBDecoder(req map[string]any) (map[string]any, error) {
	codeFamily := reqString(req, "code_family", "bb_72_12_6")
	decoder := reqString(req, "decoder", "bp_osd")
	p := reqFloat(req, "error_rate", 0.001)
	rounds := reqInt(req, "rounds", 10)

	family, ok := bbFamilies[codeFamily]
	if !ok {
		return nil, fmt.Errorf("Unknown code family: %s", codeFamily)
	}

	threshold, ok := family.thresholds[decoder]
	if !ok {
		threshold = 0.008
	}
	d := family.d

	var logicalErrorRate float64
	if p < threshold {
		logicalErrorRate = math.Max(math.Pow(p/threshold, float64(d)/2), 1e-15)
		logicalErrorRate *= 1 + 0.1*rand.NormFloat64()
		logicalErrorRate = math.Max(math.Min(logicalErrorRate, 1.0), 1e-15)
	} else {
		logicalErrorRate = math.Min(0.5, p*(1+uniform(0.5, 2.0)))
	}

	roundFactor := 1 + 0.02*float64(rounds-1)
	logicalErrorRate = math.Min(logicalErrorRate*roundFactor, 0.5)

	scQubitsPerLogical := d * d * 2
	scTotalForSameK := scQubitsPerLogical * family.k
	scLogical := 0.5
	if p < 0.01 {
		scLogical = math.Max(math.Pow(p/0.01, float64(d)/2), 1e-15)
	}

	var convergence any
	if strings.Contains(decoder, "bp") {
		convergence = 5 + rand.Intn(96)
	}

	return map[string]any{
		"code_family":         codeFamily,
		"decoder":             decoder,
		"physical_error_rate": p,
		"logical_error_rate":  roundTo(logicalErrorRate, 12),
		"threshold":           threshold,
		"encoding_rate":       roundTo(float64(family.k)/float64(family.n), 4),
		"code_distance":       d,
		"num_data_qubits":     family.n,
		"num_logical_qubits":  family.k,
		"rounds":              rounds,
		"surface_code_comparison": map[string]any{
			"surface_code_qubits_needed":      scTotalForSameK,
			"bb_code_qubits_needed":           family.n,
			"qubit_savings_percent":           roundTo((1-float64(family.n)/float64(scTotalForSameK))*100, 1),
			"surface_code_logical_error_rate": roundTo(scLogical, 12),
			"bb_advantage":                    "BB codes achieve same distance with significantly fewer qubits",
		},
		"decoder_metrics": map[string]any{
			"decoder_name":           decoder,
			"avg_decoding_time_us":   roundTo(uniform(0.5, 50.0), 2),
			"max_decoding_time_us":   roundTo(uniform(50.0, 500.0), 2),
			"syndrome_weight":        1 + rand.Intn(d),
			"convergence_iterations": convergence,
		},
		"delegated": true,
		"server":    g.serverName,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

func uniform(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

func roundTo(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}

func reqString(req map[string]any, key, fallback string) string {
	if s, ok := req[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func reqInt(req map[string]any, key string, fallback int) int {
	switch v := req[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func reqIntValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func reqFloat(req map[string]any, key string, fallback float64) float64 {
	switch v := req[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}
