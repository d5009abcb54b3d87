package temporal

import (
	"errors"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"office-action-orchestrator/internal/domain"
)

const (
	ArtifactCollectionWorkflowName = "ArtifactCollectionWorkflow"
	ClaimsUploadWorkflowName       = "ClaimsUploadWorkflow"
	DraftAssemblyWorkflowName      = "DraftAssemblyWorkflow"
)

type ArtifactCollectionInput struct {
	SessionID     string
	ApplicationID string
	Artifacts     []domain.Artifact
}

type ArtifactCollectionResult struct {
	ApplicationID string
	Statuses      map[domain.Artifact]domain.ArtifactStatus
}

// ArtifactCollectionWorkflow fetches every requested artifact concurrently.
// Each artifact settles on its own; an invalid session fails the run after
// all in-flight fetches have returned. An artifact whose activity failed
// for another reason is marked failed so it does not stay in flight.
func ArtifactCollectionWorkflow(ctx workflow.Context, input ArtifactCollectionInput) (ArtifactCollectionResult, error) {
	logger := workflow.GetLogger(ctx)
	actCtx := mustActivityContext(ctx, ActivityPolicyCollectArtifact)

	futures := make([]workflow.Future, 0, len(input.Artifacts))
	for _, artifact := range input.Artifacts {
		futures = append(futures, workflow.ExecuteActivity(actCtx, (*Activities).CollectArtifactActivity, CollectArtifactInput{
			SessionID:     input.SessionID,
			ApplicationID: input.ApplicationID,
			Artifact:      artifact,
		}))
	}

	result := ArtifactCollectionResult{
		ApplicationID: input.ApplicationID,
		Statuses:      make(map[domain.Artifact]domain.ArtifactStatus, len(input.Artifacts)),
	}
	var firstErr error
	for i, f := range futures {
		var out CollectArtifactOutput
		if err := f.Get(ctx, &out); err != nil {
			artifact := input.Artifacts[i]
			logger.Warn("artifact collection failed", "artifact", artifact, "error", err)
			if !nothingToSettle(err) {
				st, aerr := abandonArtifact(ctx, AbandonArtifactInput{
					SessionID:     input.SessionID,
					ApplicationID: input.ApplicationID,
					Artifact:      artifact,
				})
				if aerr == nil {
					result.Statuses[artifact] = st
					continue
				}
				logger.Error("artifact left in flight", "artifact", artifact, "error", aerr)
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.Statuses[out.Artifact] = out.Status
	}
	if firstErr != nil {
		return result, firstErr
	}
	return result, nil
}

type ClaimsUploadInput struct {
	UploadID      string
	ApplicationID string
	Filename      string
	ObjectKey     string
}

type ClaimsUploadResult struct {
	UploadID string
	Status   domain.ArtifactStatus
}

func ClaimsUploadWorkflow(ctx workflow.Context, input ClaimsUploadInput) (ClaimsUploadResult, error) {
	var out ForwardClaimsUploadOutput
	err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyForwardClaimsUpload), (*Activities).ForwardClaimsUploadActivity, ForwardClaimsUploadInput{
		UploadID: input.UploadID,
	}).Get(ctx, &out)
	if err == nil {
		return ClaimsUploadResult{UploadID: input.UploadID, Status: out.Status}, nil
	}
	if nothingToSettle(err) {
		return ClaimsUploadResult{}, err
	}
	workflow.GetLogger(ctx).Warn("claims forwarding failed", "upload_id", input.UploadID, "error", err)
	st, aerr := abandonArtifact(ctx, AbandonArtifactInput{UploadID: input.UploadID})
	if aerr != nil {
		return ClaimsUploadResult{}, errors.Join(err, aerr)
	}
	return ClaimsUploadResult{UploadID: input.UploadID, Status: st}, nil
}

// nothingToSettle reports failures that leave no state behind to mark: the
// session was wiped or the application is no longer cached.
func nothingToSettle(err error) bool {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Type() {
	case ErrTypeSessionInvalid, ErrTypeNotFound:
		return true
	default:
		return false
	}
}

func abandonArtifact(ctx workflow.Context, input AbandonArtifactInput) (domain.ArtifactStatus, error) {
	var out AbandonArtifactOutput
	err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyAbandonArtifact), (*Activities).AbandonArtifactActivity, input).Get(ctx, &out)
	return out.Status, err
}

type DraftAssemblyInput struct {
	SessionID     string
	ApplicationID string
	DraftID       string
}

type DraftAssemblyResult struct {
	Draft domain.DraftRecord
}

// DraftAssemblyWorkflow re-checks the gate, generates the response document
// once and records it. Generation is never retried.
func DraftAssemblyWorkflow(ctx workflow.Context, input DraftAssemblyInput) (DraftAssemblyResult, error) {
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyCheckGate), (*Activities).CheckGateActivity, CheckGateInput{
		SessionID:     input.SessionID,
		ApplicationID: input.ApplicationID,
	}).Get(ctx, nil); err != nil {
		return DraftAssemblyResult{}, err
	}

	var generated GenerateDraftOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyGenerateDraft), (*Activities).GenerateDraftActivity, GenerateDraftInput{
		SessionID:     input.SessionID,
		ApplicationID: input.ApplicationID,
		DraftID:       input.DraftID,
	}).Get(ctx, &generated); err != nil {
		return DraftAssemblyResult{}, err
	}

	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyRecordDraft), (*Activities).RecordDraftActivity, RecordDraftInput{
		Draft: generated.Draft,
	}).Get(ctx, nil); err != nil {
		return DraftAssemblyResult{}, err
	}

	return DraftAssemblyResult{Draft: generated.Draft}, nil
}
