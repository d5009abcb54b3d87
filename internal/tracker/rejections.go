package tracker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"office-action-orchestrator/internal/backend"
	"office-action-orchestrator/internal/domain"
)

// GenerateDocket starts analysis of one 102/103 rejection. The documents
// stage must be complete first.
func (s *Service) GenerateDocket(ctx context.Context, sess domain.Session, applicationID, rejectionID string) (domain.Docket, error) {
	scope := sess.Scope(applicationID)
	app, err := s.store.GetApplication(ctx, scope)
	if err != nil {
		return domain.Docket{}, err
	}
	rejection := app.Rejection(rejectionID)
	if rejection == nil {
		return domain.Docket{}, fmt.Errorf("%w: rejection %s", domain.ErrNotFound, rejectionID)
	}
	gate, err := s.Gate(ctx, sess, applicationID)
	if err != nil {
		return domain.Docket{}, err
	}
	if !gate.Unlocked(domain.StageRejectionAnalysis) {
		return domain.Docket{}, fmt.Errorf("%w: application documents are not ready", domain.ErrGateLocked)
	}

	docket, err := s.backend.GenerateDocket(ctx, sess.Token, applicationID, rejectionID, rejection.RejectionType)
	if err != nil {
		return domain.Docket{}, s.fail(ctx, sess, applicationID, err)
	}
	if err := s.attachDocket(ctx, scope, rejectionID, docket); err != nil {
		return domain.Docket{}, err
	}
	return docket, nil
}

func (s *Service) RejectionState(ctx context.Context, sess domain.Session, applicationID, docketID string) (domain.RejectionAnalysisState, error) {
	return s.store.GetRejectionState(ctx, sess.Scope(applicationID), docketID)
}

func (s *Service) SetRejectionFlag(ctx context.Context, sess domain.Session, applicationID, docketID string, strategy domain.Strategy, name string, value bool) (domain.RejectionAnalysisState, error) {
	return s.store.UpdateRejectionState(ctx, sess.Scope(applicationID), docketID, func(st *domain.RejectionAnalysisState) error {
		return st.SetFlag(strategy, name, value)
	})
}

// GenerateStrategy asks the backend for one amendment strategy of a docket.
// The strategy shows as loading for the duration of the call.
func (s *Service) GenerateStrategy(ctx context.Context, sess domain.Session, applicationID, docketID string, strategy domain.Strategy) (domain.Docket, domain.RejectionAnalysisState, error) {
	if !strategy.Valid() {
		return domain.Docket{}, domain.RejectionAnalysisState{}, &domain.FieldError{Field: "strategy", Message: fmt.Sprintf("unknown strategy %q", strategy)}
	}
	scope := sess.Scope(applicationID)
	_, rejection, err := s.docket(ctx, scope, docketID)
	if err != nil {
		return domain.Docket{}, domain.RejectionAnalysisState{}, err
	}

	if _, err := s.store.UpdateRejectionState(ctx, scope, docketID, func(st *domain.RejectionAnalysisState) error {
		return st.SetFlag(strategy, domain.FlagIsLoading, true)
	}); err != nil {
		return domain.Docket{}, domain.RejectionAnalysisState{}, err
	}

	docket, callErr := s.backend.GenerateStrategy(ctx, sess.Token, backend.StrategyRequest{
		ApplicationID: applicationID,
		RejectionID:   rejection.ID,
		DocketID:      docketID,
		RejectionType: rejection.RejectionType,
		Strategy:      strategy,
	})
	if callErr == nil {
		callErr = s.attachDocket(ctx, scope, rejection.ID, docket)
	}

	st, err := s.store.UpdateRejectionState(ctx, scope, docketID, func(st *domain.RejectionAnalysisState) error {
		if err := st.SetFlag(strategy, domain.FlagIsLoading, false); err != nil {
			return err
		}
		if callErr != nil {
			return nil
		}
		return st.SetFlag(strategy, domain.FlagIsClaimsAmended, true)
	})
	if callErr != nil {
		return domain.Docket{}, domain.RejectionAnalysisState{}, s.fail(ctx, sess, applicationID, callErr)
	}
	if err != nil {
		return domain.Docket{}, domain.RejectionAnalysisState{}, err
	}
	s.audit(ctx, scope, domain.AuditStrategyGenerated, map[string]any{"docket_id": docketID, "strategy": strategy})
	return docket, st, nil
}

// FinalizeStrategy confirms strategy with the backend, then records it as
// the docket's only finalized strategy in one store transaction and
// recomputes the application's finalization status.
func (s *Service) FinalizeStrategy(ctx context.Context, sess domain.Session, applicationID, docketID string, strategy domain.Strategy) (domain.RejectionAnalysisState, domain.FinalizationStatus, error) {
	if !strategy.Valid() {
		return domain.RejectionAnalysisState{}, domain.FinalizationStatus{}, &domain.FieldError{Field: "strategy", Message: fmt.Sprintf("unknown strategy %q", strategy)}
	}
	scope := sess.Scope(applicationID)
	_, rejection, err := s.docket(ctx, scope, docketID)
	if err != nil {
		return domain.RejectionAnalysisState{}, domain.FinalizationStatus{}, err
	}

	if err := s.backend.FinalizeRejection(ctx, sess.Token, backend.FinalizeRequest{
		ApplicationID: applicationID,
		RejectionID:   rejection.ID,
		DocketID:      docketID,
		FinalizedType: strategy,
	}); err != nil {
		return domain.RejectionAnalysisState{}, domain.FinalizationStatus{}, s.fail(ctx, sess, applicationID, err)
	}

	st, err := s.store.ApplyFinalization(ctx, scope, docketID, strategy)
	if err != nil {
		return domain.RejectionAnalysisState{}, domain.FinalizationStatus{}, err
	}
	s.audit(ctx, scope, domain.AuditFinalized, map[string]any{"docket_id": docketID, "strategy": strategy})
	log.Info().Str("application_id", applicationID).Str("docket_id", docketID).Str("strategy", string(strategy)).Msg("strategy finalized")

	status, err := s.CheckFinalizationStatus(ctx, sess, applicationID)
	if err != nil {
		return st, domain.FinalizationStatus{}, err
	}
	return st, status, nil
}

func (s *Service) FetchOtherRejection(ctx context.Context, sess domain.Session, applicationID, rejectionID string) (domain.OtherRejectionResponse, error) {
	if err := s.otherRejection(ctx, sess.Scope(applicationID), rejectionID); err != nil {
		return domain.OtherRejectionResponse{}, err
	}
	out, err := s.backend.FetchOtherRejection(ctx, sess.Token, applicationID, rejectionID)
	return out, s.fail(ctx, sess, applicationID, err)
}

func (s *Service) SaveOtherRejection(ctx context.Context, sess domain.Session, applicationID, rejectionID, response string) (domain.OtherRejectionResponse, error) {
	if err := s.otherRejection(ctx, sess.Scope(applicationID), rejectionID); err != nil {
		return domain.OtherRejectionResponse{}, err
	}
	out, err := s.backend.SaveOtherRejection(ctx, sess.Token, applicationID, rejectionID, response)
	return out, s.fail(ctx, sess, applicationID, err)
}

func (s *Service) GenerateOtherRejection(ctx context.Context, sess domain.Session, applicationID, rejectionID string) (domain.OtherRejectionResponse, error) {
	if err := s.otherRejection(ctx, sess.Scope(applicationID), rejectionID); err != nil {
		return domain.OtherRejectionResponse{}, err
	}
	out, err := s.backend.GenerateOtherRejection(ctx, sess.Token, applicationID, rejectionID)
	return out, s.fail(ctx, sess, applicationID, err)
}

func (s *Service) FinalizeOtherRejection(ctx context.Context, sess domain.Session, applicationID, rejectionID string) (domain.OtherRejectionResponse, domain.FinalizationStatus, error) {
	scope := sess.Scope(applicationID)
	if err := s.otherRejection(ctx, scope, rejectionID); err != nil {
		return domain.OtherRejectionResponse{}, domain.FinalizationStatus{}, err
	}
	out, err := s.backend.FinalizeOtherRejection(ctx, sess.Token, applicationID, rejectionID)
	if err != nil {
		return domain.OtherRejectionResponse{}, domain.FinalizationStatus{}, s.fail(ctx, sess, applicationID, err)
	}
	s.audit(ctx, scope, domain.AuditFinalized, map[string]any{"rejection_id": rejectionID})
	status, err := s.CheckFinalizationStatus(ctx, sess, applicationID)
	if err != nil {
		return out, domain.FinalizationStatus{}, err
	}
	return out, status, nil
}

func (s *Service) otherRejection(ctx context.Context, scope domain.Scope, rejectionID string) error {
	app, err := s.store.GetApplication(ctx, scope)
	if err != nil {
		return err
	}
	r := app.Rejection(rejectionID)
	if r == nil {
		return fmt.Errorf("%w: rejection %s", domain.ErrNotFound, rejectionID)
	}
	if r.RejectionType.Analyzable() {
		return &domain.FieldError{Field: "rejectionId", Message: fmt.Sprintf("%s rejections are handled through dockets", r.RejectionType)}
	}
	return nil
}

func (s *Service) docket(ctx context.Context, scope domain.Scope, docketID string) (*domain.Docket, *domain.Rejection, error) {
	app, err := s.store.GetApplication(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	docket, rejection := app.Docket(docketID)
	if docket == nil {
		return nil, nil, fmt.Errorf("%w: docket %s", domain.ErrNotFound, docketID)
	}
	return docket, rejection, nil
}

func (s *Service) attachDocket(ctx context.Context, scope domain.Scope, rejectionID string, docket domain.Docket) error {
	_, err := s.store.UpdateApplication(ctx, scope, func(app *domain.Application) error {
		if !domain.ReplaceDocket(app, rejectionID, docket) {
			return fmt.Errorf("%w: rejection %s", domain.ErrNotFound, rejectionID)
		}
		return nil
	})
	return err
}
