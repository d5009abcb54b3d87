package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func readyDocs() ApplicationDocumentState {
	s := NewApplicationDocumentState("app-1")
	for _, a := range Artifacts {
		_ = s.Succeed(a)
	}
	return s
}

func TestAggregateFinalization(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	status := AggregateFinalization("app-1", []string{"r1", "r2"}, map[string]bool{"r1": true, "r2": true}, now)
	if !status.AllFinalized {
		t.Fatalf("expected all finalized")
	}

	status = AggregateFinalization("app-1", []string{"r1", "r2", "r3"}, map[string]bool{"r1": true, "r2": true}, now)
	if status.AllFinalized {
		t.Fatalf("a new unresolved rejection must flip allFinalized to false")
	}
	if diff := cmp.Diff([]string{"r3"}, status.Unresolved); diff != "" {
		t.Fatalf("unresolved mismatch (-want +got):\n%s", diff)
	}
	if status.Rejections["r3"].IsFinalized {
		t.Fatalf("unresolved rejection cannot be finalized")
	}

	status = AggregateFinalization("app-1", []string{"r1", "r2"}, map[string]bool{"r1": true, "r2": false}, now)
	if status.AllFinalized || len(status.Unresolved) != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}

	status = AggregateFinalization("app-1", nil, nil, now)
	if !status.AllFinalized {
		t.Fatalf("application without rejections is vacuously finalized")
	}
}

func TestComputeGate(t *testing.T) {
	pending := NewApplicationDocumentState("app-1")
	finalized := FinalizationStatus{AllFinalized: true}

	g := ComputeGate(pending, finalized)
	if !g.DocumentCollection || g.RejectionsAnalyzable || g.ResponseGeneratable {
		t.Fatalf("documents not ready must lock later stages: %+v", g)
	}
	if g.HighestStage() != StageDocumentCollection {
		t.Fatalf("unexpected stage %s", g.HighestStage())
	}

	g = ComputeGate(readyDocs(), FinalizationStatus{})
	if !g.RejectionsAnalyzable || g.ResponseGeneratable {
		t.Fatalf("unexpected gate: %+v", g)
	}

	g = ComputeGate(readyDocs(), finalized)
	want := Gate{ApplicationID: "app-1", DocumentCollection: true, DocumentsReady: true, RejectionsAnalyzable: true, AllFinalized: true, ResponseGeneratable: true}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Fatalf("gate mismatch (-want +got):\n%s", diff)
	}
	if !g.Unlocked(StageResponseGeneration) || g.HighestStage() != StageResponseGeneration {
		t.Fatalf("expected response generation unlocked: %+v", g)
	}
}
