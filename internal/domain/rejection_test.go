package domain

import (
	"errors"
	"testing"
)

func finalizedCount(s RejectionAnalysisState) int {
	n := 0
	for _, f := range s.Flags() {
		if f.IsFinalized {
			n++
		}
	}
	return n
}

func TestFinalizeClearsOtherStrategies(t *testing.T) {
	s := NewRejectionAnalysisState("app-1", "dk-1")

	if err := s.Finalize(StrategyTechnicalComparison); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Finalize(StrategyNovelFeatures); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	flags := s.Flags()
	if flags[StrategyTechnicalComparison].IsFinalized {
		t.Fatalf("technical comparison should no longer be finalized")
	}
	if !flags[StrategyNovelFeatures].IsFinalized {
		t.Fatalf("novel features should be finalized")
	}
	if n := finalizedCount(s); n != 1 {
		t.Fatalf("expected exactly one finalized strategy, got %d", n)
	}
}

func TestFinalizeEveryOrderLeavesOneFinalized(t *testing.T) {
	for _, first := range Strategies {
		for _, second := range Strategies {
			s := NewRejectionAnalysisState("app-1", "dk-1")
			_ = s.SetFlag(first, FlagIsFinalized, true)
			_ = s.SetFlag(second, FlagIsFinalized, true)
			if n := finalizedCount(s); n != 1 {
				t.Fatalf("%s then %s: expected one finalized, got %d", first, second, n)
			}
			if !s.IsFinalized(second) {
				t.Fatalf("%s then %s: expected %s finalized", first, second, second)
			}
		}
	}
}

func TestSetRejectionFlag(t *testing.T) {
	s := NewRejectionAnalysisState("app-1", "dk-1")

	if err := s.SetFlag(StrategyDependentClaims, FlagIsLoading, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetFlag(StrategyDependentClaims, FlagIsClaimsAmended, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := s.Flags()[StrategyDependentClaims]
	if !f.IsLoading || !f.IsClaimsAmended || f.IsFinalized {
		t.Fatalf("unexpected flags: %+v", f)
	}

	_ = s.SetFlag(StrategyDependentClaims, FlagIsFinalized, true)
	_ = s.SetFlag(StrategyOneFeatures, FlagIsFinalized, false)
	if !s.IsFinalized(StrategyDependentClaims) {
		t.Fatalf("clearing another strategy must not clear the finalized one")
	}
	_ = s.SetFlag(StrategyDependentClaims, FlagIsFinalized, false)
	if finalizedCount(s) != 0 {
		t.Fatalf("expected no finalized strategy")
	}

	if err := s.SetFlag(Strategy("bogus"), FlagIsLoading, true); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField for strategy, got %v", err)
	}
	if err := s.SetFlag(StrategyOneFeatures, "isShiny", true); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField for flag, got %v", err)
	}
}
