package temporal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"office-action-orchestrator/internal/domain"
)

// Starter launches the orchestrator workflows on a task queue.
type Starter struct {
	Client    client.Client
	TaskQueue string
	IDPrefix  string
}

func (s *Starter) workflowID(kind string, parts ...string) string {
	return fmt.Sprintf("%s-%s-%s", s.IDPrefix, kind, strings.Join(parts, "-"))
}

// StartArtifactCollection starts collection without waiting for it. A run
// already collecting the same artifacts for the same session is reused.
func (s *Starter) StartArtifactCollection(ctx context.Context, sessionID, applicationID string, artifacts []domain.Artifact) error {
	names := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		names = append(names, string(a))
	}
	sort.Strings(names)

	_, err := s.Client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        s.workflowID("artifacts", sessionID, applicationID, strings.Join(names, "+")),
		TaskQueue: s.TaskQueue,
	}, ArtifactCollectionWorkflowName, ArtifactCollectionInput{
		SessionID:     sessionID,
		ApplicationID: applicationID,
		Artifacts:     artifacts,
	})
	if err != nil {
		return fmt.Errorf("start artifact collection for %s: %w", applicationID, err)
	}
	return nil
}

// StartClaimsUpload is idempotent per upload: a second event for the same
// object finds the workflow already started.
func (s *Starter) StartClaimsUpload(ctx context.Context, input ClaimsUploadInput) (string, error) {
	workflowID := s.workflowID("claims", input.UploadID)
	_, err := s.Client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                                       workflowID,
		TaskQueue:                                s.TaskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, ClaimsUploadWorkflowName, input)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return workflowID, nil
		}
		return "", fmt.Errorf("start claims upload %s: %w", input.UploadID, err)
	}
	return workflowID, nil
}

// RunDraftAssembly starts a draft assembly and waits for its result.
func (s *Starter) RunDraftAssembly(ctx context.Context, sessionID, applicationID string) (domain.DraftRecord, error) {
	draftID := uuid.NewString()
	run, err := s.Client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        s.workflowID("draft", applicationID, draftID),
		TaskQueue: s.TaskQueue,
	}, DraftAssemblyWorkflowName, DraftAssemblyInput{
		SessionID:     sessionID,
		ApplicationID: applicationID,
		DraftID:       draftID,
	})
	if err != nil {
		return domain.DraftRecord{}, fmt.Errorf("start draft assembly for %s: %w", applicationID, err)
	}

	var result DraftAssemblyResult
	if err := run.Get(ctx, &result); err != nil {
		return domain.DraftRecord{}, DomainError(err)
	}
	return result.Draft, nil
}
