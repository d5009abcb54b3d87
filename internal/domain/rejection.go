package domain

import "fmt"

type StrategyState struct {
	IsLoading       bool `json:"isLoading"`
	IsClaimsAmended bool `json:"isClaimsAmended"`
}

// RejectionAnalysisState keeps per-strategy flags for one docket. The
// finalized strategy is a single slot, which is what keeps at most one
// strategy finalized.
type RejectionAnalysisState struct {
	DocketID      string                     `json:"docket_id"`
	ApplicationID string                     `json:"application_id"`
	Strategies    map[Strategy]StrategyState `json:"strategies"`
	Finalized     Strategy                   `json:"finalized,omitempty"`
}

type StrategyFlags struct {
	IsLoading       bool `json:"isLoading"`
	IsClaimsAmended bool `json:"isClaimsAmended"`
	IsFinalized     bool `json:"isFinalized"`
}

const (
	FlagIsLoading       = "isLoading"
	FlagIsClaimsAmended = "isClaimsAmended"
	FlagIsFinalized     = "isFinalized"
)

func NewRejectionAnalysisState(applicationID, docketID string) RejectionAnalysisState {
	return RejectionAnalysisState{
		DocketID:      docketID,
		ApplicationID: applicationID,
		Strategies:    make(map[Strategy]StrategyState, len(Strategies)),
	}
}

func (s RejectionAnalysisState) IsFinalized(strategy Strategy) bool {
	return strategy != "" && s.Finalized == strategy
}

// Finalize marks strategy as the finalized one and clears every other
// strategy in the same step.
func (s *RejectionAnalysisState) Finalize(strategy Strategy) error {
	if !strategy.Valid() {
		return fmt.Errorf("%w: strategy %q", ErrUnknownField, strategy)
	}
	s.Finalized = strategy
	return nil
}

func (s *RejectionAnalysisState) SetFlag(strategy Strategy, name string, value bool) error {
	if !strategy.Valid() {
		return fmt.Errorf("%w: strategy %q", ErrUnknownField, strategy)
	}
	if s.Strategies == nil {
		s.Strategies = make(map[Strategy]StrategyState, len(Strategies))
	}
	st := s.Strategies[strategy]
	switch name {
	case FlagIsLoading:
		st.IsLoading = value
	case FlagIsClaimsAmended:
		st.IsClaimsAmended = value
	case FlagIsFinalized:
		if value {
			return s.Finalize(strategy)
		}
		if s.Finalized == strategy {
			s.Finalized = ""
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	s.Strategies[strategy] = st
	return nil
}

func (s RejectionAnalysisState) Flags() map[Strategy]StrategyFlags {
	out := make(map[Strategy]StrategyFlags, len(Strategies))
	for _, strategy := range Strategies {
		st := s.Strategies[strategy]
		out[strategy] = StrategyFlags{
			IsLoading:       st.IsLoading,
			IsClaimsAmended: st.IsClaimsAmended,
			IsFinalized:     s.IsFinalized(strategy),
		}
	}
	return out
}
