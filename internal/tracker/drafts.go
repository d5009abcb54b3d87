package tracker

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"office-action-orchestrator/internal/domain"
)

func (s *Service) PreviewDraft(ctx context.Context, sess domain.Session, applicationID string) (domain.DraftPreview, error) {
	preview, err := s.backend.PreviewDraft(ctx, sess.Token, applicationID)
	return preview, s.fail(ctx, sess, applicationID, err)
}

// EnsureGeneratable fails with ErrGateLocked unless every stage up to
// response generation is unlocked.
func (s *Service) EnsureGeneratable(ctx context.Context, sess domain.Session, applicationID string) error {
	if _, err := s.store.GetApplication(ctx, sess.Scope(applicationID)); err != nil {
		return err
	}
	g, err := s.Gate(ctx, sess, applicationID)
	if err != nil {
		return err
	}
	if !g.Unlocked(domain.StageResponseGeneration) {
		return fmt.Errorf("%w: response generation requires ready documents and every rejection finalized", domain.ErrGateLocked)
	}
	return nil
}

// AssembleDraft generates the response document and stores it. The draft
// is not recorded until RecordDraft is called.
func (s *Service) AssembleDraft(ctx context.Context, sess domain.Session, applicationID, draftID string) (domain.DraftRecord, error) {
	doc, err := s.backend.GenerateDraft(ctx, sess.Token, applicationID)
	if err != nil {
		return domain.DraftRecord{}, s.fail(ctx, sess, applicationID, err)
	}
	objectKey, err := s.blobs.PutDraft(ctx, applicationID, draftID, doc)
	if err != nil {
		return domain.DraftRecord{}, fmt.Errorf("store draft: %w", err)
	}
	return domain.DraftRecord{
		ID:            draftID,
		ApplicationID: applicationID,
		UserID:        sess.UserID,
		ObjectKey:     objectKey,
		SizeBytes:     int64(len(doc)),
		CreatedAt:     s.now(),
	}, nil
}

func (s *Service) RecordDraft(ctx context.Context, rec domain.DraftRecord) error {
	if err := s.store.RecordDraft(ctx, rec); err != nil {
		return err
	}
	s.audit(ctx, domain.Scope{UserID: rec.UserID, ApplicationID: rec.ApplicationID}, domain.AuditDraftGenerated, map[string]any{
		"draft_id":   rec.ID,
		"object_key": rec.ObjectKey,
		"size_bytes": rec.SizeBytes,
	})
	log.Info().Str("application_id", rec.ApplicationID).Str("draft_id", rec.ID).Int64("size_bytes", rec.SizeBytes).Msg("draft recorded")
	return nil
}

func (s *Service) Drafts(ctx context.Context, sess domain.Session, applicationID string) ([]domain.DraftRecord, error) {
	return s.store.ListDrafts(ctx, sess.Scope(applicationID))
}

// OpenDraft streams a recorded draft owned by the session's user.
func (s *Service) OpenDraft(ctx context.Context, sess domain.Session, applicationID, draftID string) (io.ReadCloser, domain.DraftRecord, error) {
	drafts, err := s.store.ListDrafts(ctx, sess.Scope(applicationID))
	if err != nil {
		return nil, domain.DraftRecord{}, err
	}
	for _, rec := range drafts {
		if rec.ID != draftID {
			continue
		}
		rc, size, err := s.blobs.OpenDraft(ctx, rec.ObjectKey)
		if err != nil {
			return nil, domain.DraftRecord{}, err
		}
		rec.SizeBytes = size
		return rc, rec, nil
	}
	return nil, domain.DraftRecord{}, fmt.Errorf("%w: draft %s", domain.ErrNotFound, draftID)
}
