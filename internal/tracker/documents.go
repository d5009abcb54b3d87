package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"office-action-orchestrator/internal/backend"
	"office-action-orchestrator/internal/domain"
	"office-action-orchestrator/internal/storage"
)

// ListApplications refreshes the cached applications. A full listing is
// authoritative: cached applications missing from it are dropped together
// with their tracker state.
func (s *Service) ListApplications(ctx context.Context, sess domain.Session, all bool) ([]domain.Application, error) {
	var (
		apps []domain.Application
		err  error
	)
	if all {
		apps, err = s.backend.FetchAllApplications(ctx, sess.Token)
	} else {
		apps, err = s.backend.FetchLatestApplications(ctx, sess.Token)
	}
	if err != nil {
		return nil, s.fail(ctx, sess, "", err)
	}
	if err := s.store.SaveApplications(ctx, sess.UserID, apps); err != nil {
		return nil, err
	}
	if all {
		known := make([]string, 0, len(apps))
		for _, app := range apps {
			known = append(known, app.ID)
		}
		if err := s.store.PruneApplications(ctx, sess.UserID, known); err != nil {
			return nil, err
		}
	}
	return apps, nil
}

func (s *Service) AnalyseApplication(ctx context.Context, sess domain.Session, applicationNumber string) (domain.Application, error) {
	applicationNumber = strings.TrimSpace(applicationNumber)
	if applicationNumber == "" {
		return domain.Application{}, &domain.FieldError{Field: "applicationNumber", Message: "is required"}
	}
	app, err := s.backend.AnalyseApplication(ctx, sess.Token, applicationNumber)
	if err != nil {
		return domain.Application{}, s.fail(ctx, sess, "", err)
	}
	return app, s.cacheApplication(ctx, sess, app)
}

func (s *Service) UploadApplication(ctx context.Context, sess domain.Session, filename, contentType string, content []byte) (domain.Application, error) {
	if err := domain.ValidateUpload(filename, contentType, int64(len(content)), s.maxUploadBytes); err != nil {
		return domain.Application{}, err
	}
	app, err := s.backend.UploadApplication(ctx, sess.Token, filename, content)
	if err != nil {
		return domain.Application{}, s.fail(ctx, sess, "", err)
	}
	return app, s.cacheApplication(ctx, sess, app)
}

func (s *Service) Application(ctx context.Context, sess domain.Session, applicationID string) (domain.Application, error) {
	return s.store.GetApplication(ctx, sess.Scope(applicationID))
}

func (s *Service) cacheApplication(ctx context.Context, sess domain.Session, app domain.Application) error {
	if err := s.store.SaveApplications(ctx, sess.UserID, []domain.Application{app}); err != nil {
		return err
	}
	_, err := s.store.UpdateDocumentState(ctx, sess.Scope(app.ID), func(st *domain.ApplicationDocumentState) error {
		st.ObserveApplication(app)
		return nil
	})
	return err
}

func (s *Service) DocumentState(ctx context.Context, sess domain.Session, applicationID string) (domain.ApplicationDocumentState, error) {
	return s.store.GetDocumentState(ctx, sess.Scope(applicationID))
}

// SetArtifactStatus applies one legacy document flag, creating the default
// record first when the application has none.
func (s *Service) SetArtifactStatus(ctx context.Context, sess domain.Session, applicationID, field string, value bool) (domain.ApplicationDocumentState, error) {
	return s.store.UpdateDocumentState(ctx, sess.Scope(applicationID), func(st *domain.ApplicationDocumentState) error {
		return st.SetFlag(field, value)
	})
}

// CollectArtifacts starts background collection for the given artifacts,
// or for every artifact not yet ready when none are named.
func (s *Service) CollectArtifacts(ctx context.Context, sess domain.Session, applicationID string, artifacts []domain.Artifact) ([]domain.Artifact, error) {
	if s.collector == nil {
		return nil, errors.New("artifact collection is not configured")
	}
	if _, err := s.store.GetApplication(ctx, sess.Scope(applicationID)); err != nil {
		return nil, err
	}
	if len(artifacts) == 0 {
		docs, err := s.store.GetDocumentState(ctx, sess.Scope(applicationID))
		if err != nil {
			return nil, err
		}
		artifacts = docs.PendingArtifacts()
	}
	for _, a := range artifacts {
		if !a.Valid() {
			return nil, &domain.FieldError{Field: "artifacts", Message: fmt.Sprintf("unknown artifact %q", a)}
		}
	}
	if len(artifacts) == 0 {
		return artifacts, nil
	}
	if err := s.collector.StartArtifactCollection(ctx, sess.ID, applicationID, artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// CollectArtifact fetches one artifact and settles its state. Backend
// failures end in the Failed phase and are not returned; only an invalid
// session or a store failure is. A result that arrives after the
// application left the cache is dropped.
func (s *Service) CollectArtifact(ctx context.Context, sess domain.Session, applicationID string, artifact domain.Artifact) (domain.ArtifactStatus, error) {
	scope := sess.Scope(applicationID)
	if _, err := s.store.SettleDocuments(ctx, scope, func(_ *domain.Application, st *domain.ApplicationDocumentState) error {
		return st.Begin(artifact)
	}); err != nil {
		return domain.ArtifactStatus{}, err
	}

	var (
		fetched domain.Application
		err     error
	)
	switch artifact {
	case domain.ArtifactClaims:
		fetched, err = s.backend.FetchLatestAmendedClaim(ctx, sess.Token, applicationID)
	case domain.ArtifactSubjectDescription:
		fetched, err = s.backend.FetchSubjectDescription(ctx, sess.Token, applicationID)
	case domain.ArtifactPriorArtDescription:
		fetched, err = s.backend.FetchPriorArtDescription(ctx, sess.Token, applicationID)
	default:
		err = &domain.FieldError{Field: "artifact", Message: fmt.Sprintf("unknown artifact %q", artifact)}
	}
	if err != nil {
		return s.settleFailure(ctx, sess, applicationID, artifact, err)
	}
	return s.settleSuccess(ctx, scope, artifact, fetched)
}

// UploadClaims stores a claims file for forwarding and marks claims in
// flight. The file is validated before anything is stored.
func (s *Service) UploadClaims(ctx context.Context, sess domain.Session, applicationID, filename, contentType string, content []byte) (domain.UploadRecord, error) {
	if err := domain.ValidateUpload(filename, contentType, int64(len(content)), s.maxUploadBytes); err != nil {
		return domain.UploadRecord{}, err
	}
	scope := sess.Scope(applicationID)
	if _, err := s.store.GetApplication(ctx, scope); err != nil {
		return domain.UploadRecord{}, err
	}

	uploadID := uuid.NewString()
	rec := domain.UploadRecord{
		ID:            uploadID,
		SessionID:     sess.ID,
		UserID:        sess.UserID,
		ApplicationID: applicationID,
		Artifact:      domain.ArtifactClaims,
		Filename:      filename,
		ObjectKey:     storage.UploadObjectKey(uploadID, filename),
		Status:        domain.UploadReceived,
	}
	// The object store notifies the forwarder as soon as the object lands,
	// so the record and the in-flight phase must exist before the put.
	if err := s.store.CreateUpload(ctx, rec); err != nil {
		return domain.UploadRecord{}, err
	}
	if _, err := s.store.SettleDocuments(ctx, scope, func(_ *domain.Application, st *domain.ApplicationDocumentState) error {
		return st.Begin(domain.ArtifactClaims)
	}); err != nil {
		return domain.UploadRecord{}, err
	}
	if _, err := s.blobs.PutUpload(ctx, uploadID, filename, contentType, content); err != nil {
		reason := "upload could not be stored"
		if serr := s.store.SetUploadStatus(ctx, uploadID, domain.UploadFailed, &reason); serr != nil {
			log.Error().Err(serr).Str("upload_id", uploadID).Msg("mark upload failed")
		}
		if _, serr := s.store.SettleDocuments(ctx, scope, func(_ *domain.Application, st *domain.ApplicationDocumentState) error {
			return st.Fail(domain.ArtifactClaims, reason)
		}); serr != nil {
			log.Error().Err(serr).Str("upload_id", uploadID).Msg("mark claims failed")
		}
		return domain.UploadRecord{}, fmt.Errorf("store upload: %w", err)
	}
	return rec, nil
}

// ForwardClaimsUpload sends a stored claims upload to the backend and
// settles the claims artifact. Re-delivered events for an upload that was
// already forwarded are ignored.
func (s *Service) ForwardClaimsUpload(ctx context.Context, uploadID string) (domain.ArtifactStatus, error) {
	rec, err := s.store.GetUpload(ctx, uploadID)
	if err != nil {
		return domain.ArtifactStatus{}, err
	}
	if rec.Status == domain.UploadForwarded {
		return domain.ArtifactStatus{Phase: domain.PhaseSucceeded}, nil
	}

	sess, err := s.Authenticate(ctx, rec.SessionID)
	if err != nil {
		reason := "session expired before forwarding"
		if serr := s.store.SetUploadStatus(ctx, uploadID, domain.UploadFailed, &reason); serr != nil {
			return domain.ArtifactStatus{}, serr
		}
		return domain.ArtifactStatus{}, err
	}

	content, err := s.blobs.GetUpload(ctx, rec.ObjectKey)
	if err != nil {
		return domain.ArtifactStatus{}, fmt.Errorf("read upload %s: %w", rec.ObjectKey, err)
	}

	fetched, err := s.backend.UploadClaims(ctx, sess.Token, rec.ApplicationID, rec.Filename, content)
	if err != nil {
		reason := failureReason(err)
		if serr := s.store.SetUploadStatus(ctx, uploadID, domain.UploadFailed, &reason); serr != nil {
			log.Error().Err(serr).Str("upload_id", uploadID).Msg("mark upload failed")
		}
		return s.settleFailure(ctx, sess, rec.ApplicationID, domain.ArtifactClaims, err)
	}
	st, err := s.settleSuccess(ctx, sess.Scope(rec.ApplicationID), domain.ArtifactClaims, fetched)
	if err != nil {
		return domain.ArtifactStatus{}, err
	}
	if err := s.store.SetUploadStatus(ctx, uploadID, domain.UploadForwarded, nil); err != nil {
		return domain.ArtifactStatus{}, err
	}
	return st, nil
}

func (s *Service) UpdateClaims(ctx context.Context, sess domain.Session, applicationID, claims string) (domain.Application, error) {
	if strings.TrimSpace(claims) == "" {
		return domain.Application{}, &domain.FieldError{Field: "claims", Message: "is required"}
	}
	fetched, err := s.backend.UpdateClaims(ctx, sess.Token, applicationID, claims)
	if err != nil {
		return domain.Application{}, s.fail(ctx, sess, applicationID, err)
	}
	return s.store.UpdateApplication(ctx, sess.Scope(applicationID), func(app *domain.Application) error {
		*app = domain.MergeArtifact(*app, fetched, domain.ArtifactClaims)
		return nil
	})
}

// AbandonArtifact settles an artifact whose collection could not run to
// completion, e.g. when the store failed after the backend answered.
func (s *Service) AbandonArtifact(ctx context.Context, sess domain.Session, applicationID string, artifact domain.Artifact) (domain.ArtifactStatus, error) {
	return s.settleFailure(ctx, sess, applicationID, artifact, errCollectionAbandoned)
}

// AbandonClaimsUpload does the same for a claims upload whose forwarding
// gave up. Uploads that were forwarded are left alone.
func (s *Service) AbandonClaimsUpload(ctx context.Context, uploadID string) (domain.ArtifactStatus, error) {
	rec, err := s.store.GetUpload(ctx, uploadID)
	if err != nil {
		return domain.ArtifactStatus{}, err
	}
	if rec.Status == domain.UploadForwarded {
		return domain.ArtifactStatus{Phase: domain.PhaseSucceeded}, nil
	}
	reason := GenericFailureMessage
	if err := s.store.SetUploadStatus(ctx, uploadID, domain.UploadFailed, &reason); err != nil {
		return domain.ArtifactStatus{}, err
	}
	sess := domain.Session{ID: rec.SessionID, UserID: rec.UserID}
	return s.settleFailure(ctx, sess, rec.ApplicationID, domain.ArtifactClaims, errCollectionAbandoned)
}

var errCollectionAbandoned = errors.New("artifact collection did not complete")

func (s *Service) settleSuccess(ctx context.Context, scope domain.Scope, artifact domain.Artifact, fetched domain.Application) (domain.ArtifactStatus, error) {
	docs, err := s.store.SettleDocuments(ctx, scope, func(app *domain.Application, st *domain.ApplicationDocumentState) error {
		*app = domain.MergeArtifact(*app, fetched, artifact)
		st.ObserveApplication(*app)
		return st.Succeed(artifact)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return dropSettlement(scope, artifact), nil
	}
	if err != nil {
		return domain.ArtifactStatus{}, err
	}
	s.audit(ctx, scope, domain.AuditArtifactCollected, map[string]any{"artifact": artifact})
	return docs.Status(artifact), nil
}

func (s *Service) settleFailure(ctx context.Context, sess domain.Session, applicationID string, artifact domain.Artifact, cause error) (domain.ArtifactStatus, error) {
	if errors.Is(cause, domain.ErrSessionInvalid) {
		return domain.ArtifactStatus{}, s.fail(ctx, sess, applicationID, cause)
	}
	scope := sess.Scope(applicationID)
	reason := failureReason(cause)
	docs, err := s.store.SettleDocuments(ctx, scope, func(_ *domain.Application, st *domain.ApplicationDocumentState) error {
		return st.Fail(artifact, reason)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return dropSettlement(scope, artifact), nil
	}
	if err != nil {
		return domain.ArtifactStatus{}, err
	}
	log.Warn().Err(cause).Str("application_id", applicationID).Str("artifact", string(artifact)).Msg("artifact collection failed")
	s.audit(ctx, scope, domain.AuditArtifactFailed, map[string]any{"artifact": artifact, "reason": reason})
	return docs.Status(artifact), nil
}

// dropSettlement handles a result for an application that was purged or
// pruned while the backend call was running. Nothing is written back.
func dropSettlement(scope domain.Scope, artifact domain.Artifact) domain.ArtifactStatus {
	log.Info().Str("application_id", scope.ApplicationID).Str("artifact", string(artifact)).Msg("application no longer cached, dropping artifact result")
	return domain.ArtifactStatus{}
}

// failureReason is the text shown next to a failed badge. Server messages
// from 400 answers are shown verbatim.
func failureReason(err error) string {
	var reqErr *backend.RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return reqErr.Message
	}
	if errors.Is(err, domain.ErrMalformedPayload) {
		return "unexpected response from server"
	}
	return GenericFailureMessage
}

const GenericFailureMessage = "Internal server error! Please try again."
