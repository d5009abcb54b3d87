package temporal

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.temporal.io/sdk/temporal"

	"office-action-orchestrator/internal/backend"
	"office-action-orchestrator/internal/domain"
)

const (
	ErrTypeSessionInvalid = "SessionInvalid"
	ErrTypeGateLocked     = "GateLocked"
	ErrTypeInvalidInput   = "InvalidInput"
	ErrTypeBadRequest     = "BadRequest"
	ErrTypeMalformed      = "MalformedPayload"
	ErrTypeUpstream       = "Upstream"
	ErrTypeNotFound       = "NotFound"
)

// Tracker is the service surface the activities drive.
type Tracker interface {
	Authenticate(ctx context.Context, sessionID string) (domain.Session, error)
	CollectArtifact(ctx context.Context, sess domain.Session, applicationID string, artifact domain.Artifact) (domain.ArtifactStatus, error)
	ForwardClaimsUpload(ctx context.Context, uploadID string) (domain.ArtifactStatus, error)
	AbandonArtifact(ctx context.Context, sess domain.Session, applicationID string, artifact domain.Artifact) (domain.ArtifactStatus, error)
	AbandonClaimsUpload(ctx context.Context, uploadID string) (domain.ArtifactStatus, error)
	EnsureGeneratable(ctx context.Context, sess domain.Session, applicationID string) error
	AssembleDraft(ctx context.Context, sess domain.Session, applicationID, draftID string) (domain.DraftRecord, error)
	RecordDraft(ctx context.Context, rec domain.DraftRecord) error
}

type Activities struct {
	Tracker Tracker
}

type CollectArtifactInput struct {
	SessionID     string
	ApplicationID string
	Artifact      domain.Artifact
}

type CollectArtifactOutput struct {
	Artifact domain.Artifact
	Status   domain.ArtifactStatus
}

type ForwardClaimsUploadInput struct {
	UploadID string
}

type ForwardClaimsUploadOutput struct {
	Status domain.ArtifactStatus
}

// AbandonArtifactInput names either an upload or a session and artifact.
type AbandonArtifactInput struct {
	SessionID     string
	ApplicationID string
	Artifact      domain.Artifact
	UploadID      string
}

type AbandonArtifactOutput struct {
	Status domain.ArtifactStatus
}

type CheckGateInput struct {
	SessionID     string
	ApplicationID string
}

type GenerateDraftInput struct {
	SessionID     string
	ApplicationID string
	DraftID       string
}

type GenerateDraftOutput struct {
	Draft domain.DraftRecord
}

type RecordDraftInput struct {
	Draft domain.DraftRecord
}

func (a *Activities) CollectArtifactActivity(ctx context.Context, input CollectArtifactInput) (CollectArtifactOutput, error) {
	sess, err := a.Tracker.Authenticate(ctx, input.SessionID)
	if err != nil {
		return CollectArtifactOutput{}, activityError(err)
	}
	st, err := a.Tracker.CollectArtifact(ctx, sess, input.ApplicationID, input.Artifact)
	if err != nil {
		return CollectArtifactOutput{}, activityError(err)
	}
	log.Info().Str("application_id", input.ApplicationID).Str("artifact", string(input.Artifact)).Str("phase", string(st.Phase)).Msg("artifact settled")
	return CollectArtifactOutput{Artifact: input.Artifact, Status: st}, nil
}

func (a *Activities) ForwardClaimsUploadActivity(ctx context.Context, input ForwardClaimsUploadInput) (ForwardClaimsUploadOutput, error) {
	st, err := a.Tracker.ForwardClaimsUpload(ctx, input.UploadID)
	if err != nil {
		return ForwardClaimsUploadOutput{}, activityError(err)
	}
	return ForwardClaimsUploadOutput{Status: st}, nil
}

// AbandonArtifactActivity only touches the store, so unlike the collection
// activities it is safe to retry.
func (a *Activities) AbandonArtifactActivity(ctx context.Context, input AbandonArtifactInput) (AbandonArtifactOutput, error) {
	if input.UploadID != "" {
		st, err := a.Tracker.AbandonClaimsUpload(ctx, input.UploadID)
		if err != nil {
			return AbandonArtifactOutput{}, activityError(err)
		}
		return AbandonArtifactOutput{Status: st}, nil
	}
	sess, err := a.Tracker.Authenticate(ctx, input.SessionID)
	if err != nil {
		return AbandonArtifactOutput{}, activityError(err)
	}
	st, err := a.Tracker.AbandonArtifact(ctx, sess, input.ApplicationID, input.Artifact)
	if err != nil {
		return AbandonArtifactOutput{}, activityError(err)
	}
	log.Warn().Str("application_id", input.ApplicationID).Str("artifact", string(input.Artifact)).Msg("artifact abandoned")
	return AbandonArtifactOutput{Status: st}, nil
}

func (a *Activities) CheckGateActivity(ctx context.Context, input CheckGateInput) error {
	sess, err := a.Tracker.Authenticate(ctx, input.SessionID)
	if err != nil {
		return activityError(err)
	}
	return activityError(a.Tracker.EnsureGeneratable(ctx, sess, input.ApplicationID))
}

func (a *Activities) GenerateDraftActivity(ctx context.Context, input GenerateDraftInput) (GenerateDraftOutput, error) {
	sess, err := a.Tracker.Authenticate(ctx, input.SessionID)
	if err != nil {
		return GenerateDraftOutput{}, activityError(err)
	}
	rec, err := a.Tracker.AssembleDraft(ctx, sess, input.ApplicationID, input.DraftID)
	if err != nil {
		return GenerateDraftOutput{}, activityError(err)
	}
	return GenerateDraftOutput{Draft: rec}, nil
}

func (a *Activities) RecordDraftActivity(ctx context.Context, input RecordDraftInput) error {
	return activityError(a.Tracker.RecordDraft(ctx, input.Draft))
}

// activityError turns conditions that no retry can fix into non-retryable
// application errors carrying a stable type.
func activityError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrSessionInvalid):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeSessionInvalid, err)
	case errors.Is(err, domain.ErrGateLocked):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeGateLocked, err)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnknownField):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	case errors.Is(err, domain.ErrMalformedPayload):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeMalformed, err)
	case errors.Is(err, domain.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotFound, err)
	}
	var reqErr *backend.RequestError
	if errors.As(err, &reqErr) {
		return temporal.NewNonRetryableApplicationError(reqErr.Message, ErrTypeBadRequest, err)
	}
	if errors.Is(err, domain.ErrUpstream) {
		return temporal.NewApplicationError(err.Error(), ErrTypeUpstream, err)
	}
	return err
}

// DomainError maps a workflow or activity failure back onto the domain
// sentinels so callers can classify it with errors.Is.
func DomainError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Type() {
	case ErrTypeSessionInvalid:
		return errors.Join(domain.ErrSessionInvalid, err)
	case ErrTypeGateLocked:
		return errors.Join(domain.ErrGateLocked, err)
	case ErrTypeInvalidInput:
		return errors.Join(domain.ErrInvalidInput, err)
	case ErrTypeMalformed:
		return errors.Join(domain.ErrMalformedPayload, err)
	case ErrTypeUpstream:
		return errors.Join(domain.ErrUpstream, err)
	case ErrTypeNotFound:
		return errors.Join(domain.ErrNotFound, err)
	case ErrTypeBadRequest:
		return &backend.RequestError{StatusCode: 400, Message: appErr.Message()}
	default:
		return err
	}
}
