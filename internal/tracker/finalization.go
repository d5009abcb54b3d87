package tracker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"office-action-orchestrator/internal/domain"
)

// CheckFinalizationStatus asks the backend for the status of every
// rejection of the application and stores the aggregate. An invalid session
// aborts the check and clears the user's state; any other failed call leaves
// its rejection unresolved. Overlapping checks resolve to the one that
// started last, which is also what the call returns.
func (s *Service) CheckFinalizationStatus(ctx context.Context, sess domain.Session, applicationID string) (domain.FinalizationStatus, error) {
	started := s.now()
	app, err := s.store.GetApplication(ctx, sess.Scope(applicationID))
	if err != nil {
		return domain.FinalizationStatus{}, err
	}
	ids := app.RejectionIDs()

	var (
		mu       sync.Mutex
		resolved = make(map[string]bool, len(ids))
	)
	g, gctx := errgroup.WithContext(ctx)
	if s.pollConcurrency > 0 {
		g.SetLimit(s.pollConcurrency)
	}
	for _, id := range ids {
		g.Go(func() error {
			finalized, err := s.backend.RejectionStatus(gctx, sess.Token, applicationID, id)
			if err != nil {
				if errors.Is(err, domain.ErrSessionInvalid) {
					return err
				}
				log.Warn().Err(err).Str("application_id", applicationID).Str("rejection_id", id).Msg("rejection status unresolved")
				return nil
			}
			mu.Lock()
			resolved[id] = finalized
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.FinalizationStatus{}, s.fail(ctx, sess, applicationID, err)
	}

	status := domain.AggregateFinalization(applicationID, ids, resolved, s.now())
	status.StartedAt = started
	return s.store.SaveFinalizationStatus(ctx, sess.UserID, status)
}

func (s *Service) FinalizationStatus(ctx context.Context, sess domain.Session, applicationID string) (domain.FinalizationStatus, error) {
	return s.store.GetFinalizationStatus(ctx, sess.Scope(applicationID))
}

// Gate derives stage unlocks from the stored document state and the last
// finalization status. It never calls the backend.
func (s *Service) Gate(ctx context.Context, sess domain.Session, applicationID string) (domain.Gate, error) {
	scope := sess.Scope(applicationID)
	docs, err := s.store.GetDocumentState(ctx, scope)
	if err != nil {
		return domain.Gate{}, err
	}
	status, err := s.store.GetFinalizationStatus(ctx, scope)
	if err != nil {
		return domain.Gate{}, err
	}
	g := domain.ComputeGate(docs, status)
	s.observer.GateEvaluated(g.HighestStage())
	return g, nil
}
