package temporal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"office-action-orchestrator/internal/backend"
	"office-action-orchestrator/internal/domain"
	"office-action-orchestrator/internal/tracker"
	"office-action-orchestrator/internal/tracker/trackertest"
)

func newWorkflowEnv(f *trackerFixture) *testsuite.TestWorkflowEnvironment {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ArtifactCollectionWorkflow)
	env.RegisterWorkflow(ClaimsUploadWorkflow)
	env.RegisterWorkflow(DraftAssemblyWorkflow)
	env.RegisterActivity(f.acts.CollectArtifactActivity)
	env.RegisterActivity(f.acts.ForwardClaimsUploadActivity)
	env.RegisterActivity(f.acts.AbandonArtifactActivity)
	env.RegisterActivity(f.acts.CheckGateActivity)
	env.RegisterActivity(f.acts.GenerateDraftActivity)
	env.RegisterActivity(f.acts.RecordDraftActivity)
	return env
}

func TestArtifactCollectionWorkflow_ArtifactsSettleIndependently(t *testing.T) {
	f := newTrackerFixture()
	f.seed(trackertest.Application("app-1"))
	f.backend.FetchLatestAmendedClaimFn = func(_ context.Context, _, applicationID string) (domain.Application, error) {
		return domain.Application{ID: applicationID, Claims: "1. A widget.", ClaimsExist: true}, nil
	}
	f.backend.FetchSubjectDescriptionFn = func(_ context.Context, _, applicationID string) (domain.Application, error) {
		return domain.Application{ID: applicationID, SubjectDescription: "A widget.", SubjectDescriptionExist: true}, nil
	}
	f.backend.FetchPriorArtDescriptionFn = func(context.Context, string, string) (domain.Application, error) {
		return domain.Application{}, &backend.RequestError{StatusCode: 400, Message: "No prior art found"}
	}

	env := newWorkflowEnv(f)
	env.ExecuteWorkflow(ArtifactCollectionWorkflow, ArtifactCollectionInput{
		SessionID:     f.sess.ID,
		ApplicationID: "app-1",
		Artifacts:     domain.Artifacts,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result ArtifactCollectionResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "app-1", result.ApplicationID)
	require.Equal(t, domain.PhaseSucceeded, result.Statuses[domain.ArtifactClaims].Phase)
	require.Equal(t, domain.PhaseSucceeded, result.Statuses[domain.ArtifactSubjectDescription].Phase)
	require.Equal(t, domain.ArtifactStatus{Phase: domain.PhaseFailed, Reason: "No prior art found"}, result.Statuses[domain.ArtifactPriorArtDescription])

	app, err := f.svc.Application(context.Background(), f.sess, "app-1")
	require.NoError(t, err)
	require.Equal(t, "1. A widget.", app.Claims)
	require.Equal(t, "A widget.", app.SubjectDescription)

	// A failed fetch settles as a phase, so no activity is retried.
	require.Equal(t, 1, f.backend.Calls("FetchPriorArtDescription"))
}

func TestArtifactCollectionWorkflow_InvalidSessionFailsRun(t *testing.T) {
	f := newTrackerFixture()
	f.seed(trackertest.Application("app-1"))

	env := newWorkflowEnv(f)
	env.ExecuteWorkflow(ArtifactCollectionWorkflow, ArtifactCollectionInput{
		SessionID:     "expired",
		ApplicationID: "app-1",
		Artifacts:     []domain.Artifact{domain.ArtifactSubjectDescription},
	})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, ErrTypeSessionInvalid, appErr.Type())
	require.ErrorIs(t, DomainError(err), domain.ErrSessionInvalid)
	require.Zero(t, f.backend.TotalCalls())
}

func TestArtifactCollectionWorkflow_StoreFailureDoesNotRefetch(t *testing.T) {
	f := newTrackerFixture()
	f.seed(trackertest.Application("app-1"))
	// The first call marks the fetch in flight, the second settles it.
	f.useStore(&flakyStore{MemStore: f.store, failOn: 2})
	f.backend.FetchSubjectDescriptionFn = func(_ context.Context, _, applicationID string) (domain.Application, error) {
		return domain.Application{ID: applicationID, SubjectDescription: "A widget.", SubjectDescriptionExist: true}, nil
	}

	env := newWorkflowEnv(f)
	env.ExecuteWorkflow(ArtifactCollectionWorkflow, ArtifactCollectionInput{
		SessionID:     f.sess.ID,
		ApplicationID: "app-1",
		Artifacts:     []domain.Artifact{domain.ArtifactSubjectDescription},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	require.Equal(t, 1, f.backend.Calls("FetchSubjectDescription"))

	var result ArtifactCollectionResult
	require.NoError(t, env.GetWorkflowResult(&result))
	want := domain.ArtifactStatus{Phase: domain.PhaseFailed, Reason: tracker.GenericFailureMessage}
	require.Equal(t, want, result.Statuses[domain.ArtifactSubjectDescription])

	docs, err := f.svc.DocumentState(context.Background(), f.sess, "app-1")
	require.NoError(t, err)
	require.Equal(t, want, docs.Status(domain.ArtifactSubjectDescription))
}

func TestArtifactCollectionWorkflow_UncachedApplicationIsNotRetried(t *testing.T) {
	f := newTrackerFixture()

	env := newWorkflowEnv(f)
	env.ExecuteWorkflow(ArtifactCollectionWorkflow, ArtifactCollectionInput{
		SessionID:     f.sess.ID,
		ApplicationID: "gone",
		Artifacts:     []domain.Artifact{domain.ArtifactClaims},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.ErrorIs(t, DomainError(env.GetWorkflowError()), domain.ErrNotFound)
	require.Zero(t, f.backend.TotalCalls())
	require.False(t, f.store.HasDocumentState(f.sess.Scope("gone")))
}

func TestClaimsUploadWorkflow_StoreFailureDoesNotResend(t *testing.T) {
	f := newTrackerFixture()
	f.seed(trackertest.Application("app-1"))
	rec, err := f.svc.UploadClaims(context.Background(), f.sess, "app-1", "claims.pdf", "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	f.useStore(&flakyStore{MemStore: f.store, failOn: 1})
	f.backend.UploadClaimsFn = func(_ context.Context, _, applicationID, _ string, _ []byte) (domain.Application, error) {
		return domain.Application{ID: applicationID, Claims: "1. A widget.", ClaimsExist: true}, nil
	}

	env := newWorkflowEnv(f)
	env.ExecuteWorkflow(ClaimsUploadWorkflow, ClaimsUploadInput{UploadID: rec.ID, ApplicationID: "app-1"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	require.Equal(t, 1, f.backend.Calls("UploadClaims"))

	var result ClaimsUploadResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, domain.ArtifactStatus{Phase: domain.PhaseFailed, Reason: tracker.GenericFailureMessage}, result.Status)
	require.Equal(t, domain.UploadFailed, f.store.Upload(rec.ID).Status)
}

func TestClaimsUploadWorkflow_ForwardsStoredUpload(t *testing.T) {
	f := newTrackerFixture()
	f.seed(trackertest.Application("app-1"))
	rec, err := f.svc.UploadClaims(context.Background(), f.sess, "app-1", "claims.pdf", "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)

	f.backend.UploadClaimsFn = func(_ context.Context, token, applicationID, filename string, content []byte) (domain.Application, error) {
		require.Equal(t, f.sess.Token, token)
		require.Equal(t, "claims.pdf", filename)
		return domain.Application{ID: applicationID, Claims: "1. A widget.", ClaimsExist: true}, nil
	}

	env := newWorkflowEnv(f)
	env.ExecuteWorkflow(ClaimsUploadWorkflow, ClaimsUploadInput{
		UploadID:      rec.ID,
		ApplicationID: "app-1",
		Filename:      rec.Filename,
		ObjectKey:     rec.ObjectKey,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result ClaimsUploadResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, rec.ID, result.UploadID)
	require.Equal(t, domain.PhaseSucceeded, result.Status.Phase)
	require.Equal(t, domain.UploadForwarded, f.store.Upload(rec.ID).Status)
}

func TestClaimsUploadWorkflow_BackendRejectionSettlesFailed(t *testing.T) {
	f := newTrackerFixture()
	f.seed(trackertest.Application("app-1"))
	rec, err := f.svc.UploadClaims(context.Background(), f.sess, "app-1", "claims.docx", "", []byte("PK"))
	require.NoError(t, err)

	f.backend.UploadClaimsFn = func(context.Context, string, string, string, []byte) (domain.Application, error) {
		return domain.Application{}, &backend.RequestError{StatusCode: 400, Message: "Claims could not be parsed"}
	}

	env := newWorkflowEnv(f)
	env.ExecuteWorkflow(ClaimsUploadWorkflow, ClaimsUploadInput{UploadID: rec.ID, ApplicationID: "app-1"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result ClaimsUploadResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, domain.ArtifactStatus{Phase: domain.PhaseFailed, Reason: "Claims could not be parsed"}, result.Status)
	require.Equal(t, domain.UploadFailed, f.store.Upload(rec.ID).Status)
}

func TestDraftAssemblyWorkflow_LockedGateNeverGenerates(t *testing.T) {
	f := newTrackerFixture()
	f.seed(trackertest.Application("app-1", domain.Rejection{ID: "r1", RejectionType: domain.Rejection103}))

	env := newWorkflowEnv(f)
	env.ExecuteWorkflow(DraftAssemblyWorkflow, DraftAssemblyInput{
		SessionID:     f.sess.ID,
		ApplicationID: "app-1",
		DraftID:       "draft-1",
	})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, ErrTypeGateLocked, appErr.Type())
	require.ErrorIs(t, DomainError(err), domain.ErrGateLocked)
	require.Zero(t, f.backend.Calls("GenerateDraft"))
}

func TestDraftAssemblyWorkflow_GenerationIsNotRetried(t *testing.T) {
	f := newTrackerFixture()
	f.seedGeneratable("app-1")
	f.backend.GenerateDraftFn = func(context.Context, string, string) ([]byte, error) {
		return nil, domain.ErrUpstream
	}

	env := newWorkflowEnv(f)
	env.ExecuteWorkflow(DraftAssemblyWorkflow, DraftAssemblyInput{
		SessionID:     f.sess.ID,
		ApplicationID: "app-1",
		DraftID:       "draft-1",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.ErrorIs(t, DomainError(env.GetWorkflowError()), domain.ErrUpstream)
	require.Equal(t, 1, f.backend.Calls("GenerateDraft"))

	drafts, err := f.svc.Drafts(context.Background(), f.sess, "app-1")
	require.NoError(t, err)
	require.Empty(t, drafts)
}
