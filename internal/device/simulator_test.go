package device

import (
	"context"
	"strings"
	"testing"

	"github.com/qbridge/gateway-agent/internal/model"
)

func bellCircuit() model.Circuit {
	return model.Circuit{
		NumQubits: 2,
		Gates: []model.Gate{
			{Gate: "h", Qubits: []int{0}},
			{Gate: "cx", Qubits: []int{0, 1}},
		},
	}
}

func sumCounts(counts map[string]int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

func TestExecuteBellStateShape(t *testing.T) {
	sim := NewLocalSimulator("", 0)
	res := sim.Execute(context.Background(), bellCircuit(), 10000, nil)

	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if len(res.Counts) != 2 {
		t.Fatalf("expected exactly 00 and 11, got %v", res.Counts)
	}
	for _, state := range []string{"00", "11"} {
		c, ok := res.Counts[state]
		if !ok {
			t.Fatalf("missing state %s: %v", state, res.Counts)
		}
		if c < 4500 || c > 5500 {
			t.Fatalf("state %s count %d outside 10%% of 5000", state, c)
		}
	}
	if got := sumCounts(res.Counts); got != 10000 {
		t.Fatalf("counts sum %d, want exactly 10000", got)
	}
}

func TestExecuteGHZStateShape(t *testing.T) {
	sim := NewLocalSimulator("", 0)
	circuit := model.Circuit{
		NumQubits: 3,
		Gates: []model.Gate{
			{Gate: "h", Qubits: []int{0}},
			{Gate: "cx", Qubits: []int{0, 1}},
			{Gate: "cx", Qubits: []int{1, 2}},
		},
	}
	res := sim.Execute(context.Background(), circuit, 8000, nil)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if len(res.Counts) != 2 {
		t.Fatalf("expected 000 and 111 only, got %v", res.Counts)
	}
	if _, ok := res.Counts["000"]; !ok {
		t.Fatalf("missing 000: %v", res.Counts)
	}
	if _, ok := res.Counts["111"]; !ok {
		t.Fatalf("missing 111: %v", res.Counts)
	}
	if got := sumCounts(res.Counts); got != 8000 {
		t.Fatalf("counts sum %d, want 8000", got)
	}
}

func TestExecuteGroundStateIsDeterministic(t *testing.T) {
	sim := NewLocalSimulator("", 0)
	circuit := model.Circuit{
		NumQubits: 3,
		Gates:     []model.Gate{{Gate: "x", Qubits: []int{0}}},
	}
	for _, shots := range []int{1, 100, 4096} {
		res := sim.Execute(context.Background(), circuit, shots, nil)
		if !res.Success {
			t.Fatalf("shots=%d: expected success, got %q", shots, res.Error)
		}
		if len(res.Counts) != 1 || res.Counts["000"] != shots {
			t.Fatalf("shots=%d: expected {000:%d} exactly, got %v", shots, shots, res.Counts)
		}
	}
}

func TestExecuteFullSuperpositionSpansAllStates(t *testing.T) {
	sim := NewLocalSimulator("", 0)
	circuit := model.Circuit{
		NumQubits: 3,
		Gates: []model.Gate{
			{Gate: "h", Qubits: []int{0}},
			{Gate: "h", Qubits: []int{1}},
			{Gate: "h", Qubits: []int{2}},
		},
	}
	res := sim.Execute(context.Background(), circuit, 8000, nil)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if len(res.Counts) != 8 {
		t.Fatalf("expected 8 basis states, got %d: %v", len(res.Counts), res.Counts)
	}
	if got := sumCounts(res.Counts); got != 8000 {
		t.Fatalf("counts sum %d, want 8000", got)
	}
	for state := range res.Counts {
		if len(state) != 3 {
			t.Fatalf("state %q has wrong width", state)
		}
	}
}

func TestExecutePartialSuperpositionFixesUntouchedQubitsAtZero(t *testing.T) {
	sim := NewLocalSimulator("", 0)
	circuit := model.Circuit{
		NumQubits: 4,
		Gates:     []model.Gate{{Gate: "h", Qubits: []int{1}}},
	}
	res := sim.Execute(context.Background(), circuit, 5000, nil)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if len(res.Counts) != 2 {
		t.Fatalf("one H qubit should yield 2 states, got %v", res.Counts)
	}
	// Qubit 1 is second from the right in the bitstring convention.
	for _, state := range []string{"0000", "0010"} {
		if _, ok := res.Counts[state]; !ok {
			t.Fatalf("missing state %s: %v", state, res.Counts)
		}
	}
	if got := sumCounts(res.Counts); got != 5000 {
		t.Fatalf("counts sum %d, want 5000", got)
	}
}

func TestExecuteHGateBeyondCircuitWidthFallsBackToGroundState(t *testing.T) {
	sim := NewLocalSimulator("", 0)
	// Qubit 5 is within the device's 20 qubits so validation passes, but
	// outside the circuit's declared 2-qubit width.
	circuit := model.Circuit{
		NumQubits: 2,
		Gates:     []model.Gate{{Gate: "h", Qubits: []int{5}}},
	}
	res := sim.Execute(context.Background(), circuit, 100, nil)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if len(res.Counts) != 1 || res.Counts["00"] != 100 {
		t.Fatalf("expected {00:100} exactly, got %v", res.Counts)
	}
}

func TestExecuteInvalidCircuitReturnsStoredFailedResult(t *testing.T) {
	sim := NewLocalSimulator("", 0)
	circuit := model.Circuit{
		NumQubits: 999,
		Gates:     []model.Gate{{Gate: "h", Qubits: []int{0}}},
	}
	res := sim.Execute(context.Background(), circuit, 1024, nil)
	if res.Success {
		t.Fatalf("expected failure for oversized circuit")
	}
	if len(res.Counts) != 0 {
		t.Fatalf("failed result must have empty counts, got %v", res.Counts)
	}
	if !strings.Contains(res.Error, "Circuit requires 999 qubits") {
		t.Fatalf("unexpected error: %q", res.Error)
	}

	stored, ok := sim.GetJob(res.JobID)
	if !ok {
		t.Fatalf("failed result not recorded in job ledger")
	}
	if stored.Success || stored.Error != res.Error {
		t.Fatalf("stored result differs: %+v", stored)
	}
}

func TestExecuteSuccessResultsCarryEvidenceHashAndSimulatorIdentity(t *testing.T) {
	sim := NewLocalSimulator("bench_sim", 8)
	res := sim.Execute(context.Background(), bellCircuit(), 100, nil)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if res.Metadata["simulator"] != "bench_sim" {
		t.Fatalf("missing simulator identity: %v", res.Metadata)
	}
	hash, _ := res.Metadata["evidence_hash"].(string)
	if len(hash) != 64 {
		t.Fatalf("expected sha256 hex evidence hash, got %q", hash)
	}
	if res.Error != "" {
		t.Fatalf("success result must have empty error, got %q", res.Error)
	}
}

func TestExecuteRapidSuccessiveJobIDsAreUnique(t *testing.T) {
	sim := NewLocalSimulator("", 0)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		res := sim.Execute(context.Background(), bellCircuit(), 128, nil)
		if seen[res.JobID] {
			t.Fatalf("duplicate job id on run %d: %s", i, res.JobID)
		}
		seen[res.JobID] = true
	}
}

func TestGetJobIsIdempotent(t *testing.T) {
	sim := NewLocalSimulator("", 0)
	res := sim.Execute(context.Background(), bellCircuit(), 256, nil)

	first, ok := sim.GetJob(res.JobID)
	if !ok {
		t.Fatalf("job %s not found", res.JobID)
	}
	for i := 0; i < 3; i++ {
		again, ok := sim.GetJob(res.JobID)
		if !ok {
			t.Fatalf("job disappeared on lookup %d", i)
		}
		if again.JobID != first.JobID || again.Shots != first.Shots || again.Success != first.Success {
			t.Fatalf("lookup %d returned different result: %+v vs %+v", i, again, first)
		}
	}

	if _, ok := sim.GetJob("sim_missing"); ok {
		t.Fatalf("unknown job id should be absent")
	}
}

func TestGetStatusCountsAllExecutionsIncludingFailed(t *testing.T) {
	sim := NewLocalSimulator("", 0)
	sim.Execute(context.Background(), bellCircuit(), 64, nil)
	sim.Execute(context.Background(), model.Circuit{NumQubits: 999}, 64, nil)

	status := sim.GetStatus()
	if status["status"] != "online" || status["type"] != "simulator" {
		t.Fatalf("unexpected status snapshot: %v", status)
	}
	if status["device"] != "local_simulator" || status["num_qubits"] != 20 {
		t.Fatalf("unexpected identity fields: %v", status)
	}
	if status["jobs_completed"] != 2 {
		t.Fatalf("expected 2 jobs counted, got %v", status["jobs_completed"])
	}
}

func TestExecuteTotalSuccessSumProperty(t *testing.T) {
	sim := NewLocalSimulator("", 0)
	circuits := []model.Circuit{
		bellCircuit(),
		{NumQubits: 3, Gates: []model.Gate{{Gate: "h", Qubits: []int{0}}, {Gate: "h", Qubits: []int{2}}}},
		{NumQubits: 4},
		{NumQubits: 999},
		{NumQubits: 2, Gates: []model.Gate{{Gate: "warp", Qubits: []int{0}}}},
	}
	for i, c := range circuits {
		res := sim.Execute(context.Background(), c, 2048, nil)
		if res.Success {
			if got := sumCounts(res.Counts); got != 2048 {
				t.Fatalf("circuit %d: success counts sum %d, want 2048", i, got)
			}
			if res.Error != "" {
				t.Fatalf("circuit %d: success result carries error %q", i, res.Error)
			}
		} else {
			if len(res.Counts) != 0 {
				t.Fatalf("circuit %d: failed result has counts %v", i, res.Counts)
			}
			if res.Error == "" {
				t.Fatalf("circuit %d: failed result missing error string", i)
			}
		}
	}
}
