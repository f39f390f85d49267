package device

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qbridge/gateway-agent/internal/model"
)

const (
	defaultSimulatorName   = "local_simulator"
	defaultSimulatorQubits = 20
)

// LocalSimulator is the built-in backend used for testing and development.
// It does not perform statevector simulation: it detects common circuit
// patterns (Bell, GHZ, superposition) and produces a synthetic measurement
// distribution whose counts always sum exactly to the requested shots.
type LocalSimulator struct {
	name      string
	numQubits int
	seq       atomic.Uint64

	mu   sync.Mutex
	jobs map[string]ExecutionResult
	rng  *rand.Rand
}

// NewLocalSimulator builds a simulator. Empty name or non-positive qubit
// count fall back to the defaults (local_simulator, 20 qubits).
func NewLocalSimulator(name string, numQubits int) *LocalSimulator {
	if name == "" {
		name = defaultSimulatorName
	}
	if numQubits <= 0 {
		numQubits = defaultSimulatorQubits
	}
	return &LocalSimulator{
		name:      name,
		numQubits: numQubits,
		jobs:      make(map[string]ExecutionResult),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *LocalSimulator) GetDeviceInfo() DeviceInfo {
	return DeviceInfo{
		Name:         s.name,
		NumQubits:    s.numQubits,
		Technology:   "simulator",
		Connectivity: "full",
		SupportedGates: []string{
			"h", "x", "y", "z", "cx", "cnot", "ccx",
			"rx", "ry", "rz", "s", "sdg", "t", "tdg",
			"swap", "cz", "id", "measure",
		},
		MaxShots: 1000000,
		Status:   "online",
		Metadata: map[string]any{"type": "local_simulator", "version": "1.0"},
	}
}

func (s *LocalSimulator) ValidateCircuit(circuit model.Circuit) []string {
	return ValidateCircuit(s.GetDeviceInfo(), circuit)
}

func (s *LocalSimulator) Transpile(circuit model.Circuit, optimizationLevel int) model.Circuit {
	return IdentityTranspile(circuit, optimizationLevel)
}

// Execute runs the circuit synchronously. The boundary is total: validation
// failures and internal faults both come back as a stored failed result.
func (s *LocalSimulator) Execute(_ context.Context, circuit model.Circuit, shots int, _ map[string]any) (result ExecutionResult) {
	start := time.Now()
	jobID := s.newJobID()

	defer func() {
		if r := recover(); r != nil {
			result = ExecutionResult{
				JobID:           jobID,
				Counts:          map[string]int{},
				Shots:           shots,
				ExecutionTimeMS: msSince(start),
				Success:         false,
				Error:           fmt.Sprintf("%v", r),
				Metadata:        map[string]any{},
			}
			s.storeJob(result)
		}
	}()

	if errs := s.ValidateCircuit(circuit); len(errs) > 0 {
		result = ExecutionResult{
			JobID:           jobID,
			Counts:          map[string]int{},
			Shots:           shots,
			ExecutionTimeMS: msSince(start),
			Success:         false,
			Error:           strings.Join(errs, "; "),
			Metadata:        map[string]any{},
		}
		s.storeJob(result)
		return result
	}

	counts := s.simulate(circuit, shots)

	evidence := sha256.Sum256([]byte(fmt.Sprintf("%v%v%d", circuit, counts, time.Now().UnixNano())))

	result = ExecutionResult{
		JobID:           jobID,
		Counts:          counts,
		Shots:           shots,
		ExecutionTimeMS: msSince(start),
		Success:         true,
		Metadata: map[string]any{
			"simulator":     s.name,
			"evidence_hash": hex.EncodeToString(evidence[:]),
		},
	}
	s.storeJob(result)
	return result
}

func (s *LocalSimulator) GetStatus() map[string]any {
	s.mu.Lock()
	completed := len(s.jobs)
	s.mu.Unlock()
	return map[string]any{
		"status":         "online",
		"device":         s.name,
		"type":           "simulator",
		"num_qubits":     s.numQubits,
		"jobs_completed": completed,
	}
}

// GetJob looks up a stored result. The entry stays in the ledger.
func (s *LocalSimulator) GetJob(jobID string) (ExecutionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.jobs[jobID]
	return r, ok
}

// newJobID hashes the nanosecond clock together with a per-simulator
// counter so rapid successive executions never collide.
func (s *LocalSimulator) newJobID() string {
	seq := s.seq.Add(1)
	sum := md5.Sum([]byte(fmt.Sprintf("%d-%d", time.Now().UnixNano(), seq)))
	return "sim_" + hex.EncodeToString(sum[:])[:8]
}

func (s *LocalSimulator) storeJob(r ExecutionResult) {
	s.mu.Lock()
	s.jobs[r.JobID] = r
	s.mu.Unlock()
}

// simulate produces the synthetic count distribution via pattern detection,
// first match wins. Counts always sum exactly to shots: per-bucket noise is
// clamped to the remaining budget and the final state absorbs the rest.
func (s *LocalSimulator) simulate(circuit model.Circuit, shots int) map[string]int {
	numQubits := circuit.NumQubits
	if numQubits <= 0 {
		numQubits = 2
	}

	hasH, hasCX := false, false
	hSet := map[int]bool{}
	for _, g := range circuit.Gates {
		switch strings.ToLower(g.Gate) {
		case "h":
			q := 0
			if len(g.Qubits) > 0 {
				q = g.Qubits[0]
			}
			// Validation checks indices against device capacity, which can
			// exceed the circuit's declared width. An H gate outside the
			// circuit's own qubit range cannot appear in the bitstring.
			if q >= 0 && q < numQubits {
				hasH = true
				hSet[q] = true
			}
		case "cx", "cnot":
			hasCX = true
		}
	}

	counts := map[string]int{}

	switch {
	case hasH && hasCX && numQubits == 2:
		// Bell state: |00> + |11>, ~50/50 with up to 1% noise.
		c00 := clamp(shots/2+s.noise(shots/100), 0, shots)
		counts["00"] = c00
		counts["11"] = shots - c00

	case hasH && hasCX && numQubits == 3:
		// GHZ state: |000> + |111>.
		c000 := clamp(shots/2+s.noise(shots/100), 0, shots)
		counts["000"] = c000
		counts["111"] = shots - c000

	case hasH && len(hSet) == numQubits:
		// Full superposition: near-uniform over at most 256 basis states.
		numStates := 256
		if numQubits < 8 {
			numStates = 1 << numQubits
		}
		s.spread(counts, shots, numStates, func(i int) string {
			return fmt.Sprintf("%0*b", numQubits, i)
		})

	case hasH:
		// Partial superposition: only the H-touched qubits vary, the rest
		// stay 0.
		hQubits := sortedKeys(hSet)
		numStates := 1 << len(hQubits)
		s.spread(counts, shots, numStates, func(i int) string {
			bits := []byte(strings.Repeat("0", numQubits))
			for j, q := range hQubits {
				if (i>>j)&1 == 1 {
					bits[numQubits-1-q] = '1'
				}
			}
			return string(bits)
		})

	default:
		// No superposition: ground state takes every shot, no noise.
		counts[strings.Repeat("0", numQubits)] = shots
	}

	return counts
}

// spread distributes shots near-uniformly over numStates basis states with
// ~5% per-bucket noise; the last enumerated state takes the remainder.
func (s *LocalSimulator) spread(counts map[string]int, shots, numStates int, state func(int) string) {
	base := shots / numStates
	remaining := shots
	for i := 0; i < numStates-1; i++ {
		c := clamp(base+s.noise(maxInt(1, base/20)), 0, remaining)
		counts[state(i)] = c
		remaining -= c
	}
	counts[state(numStates-1)] = remaining
}

// noise draws a uniform integer in [-bound, bound].
func (s *LocalSimulator) noise(bound int) int {
	if bound <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(2*bound+1) - bound
}

func sortedKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
