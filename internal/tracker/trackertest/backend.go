package trackertest

import (
	"context"
	"fmt"
	"sync"

	"office-action-orchestrator/internal/backend"
	"office-action-orchestrator/internal/domain"
	"office-action-orchestrator/internal/tracker"
)

var (
	_ tracker.Store     = (*MemStore)(nil)
	_ tracker.Backend   = (*StubBackend)(nil)
	_ tracker.BlobStore = (*MemBlobs)(nil)
)

// StubBackend answers tracker.Backend calls from the function fields that are
// set. Calls to unset fields fail with ErrUpstream.
type StubBackend struct {
	mu    sync.Mutex
	calls map[string]int

	LoginFn                    func(ctx context.Context, creds domain.Credentials) (backend.LoginResult, error)
	LogoutFn                   func(ctx context.Context, token string) error
	FetchAllApplicationsFn     func(ctx context.Context, token string) ([]domain.Application, error)
	AnalyseApplicationFn       func(ctx context.Context, token, number string) (domain.Application, error)
	UploadClaimsFn             func(ctx context.Context, token, applicationID, filename string, content []byte) (domain.Application, error)
	FetchSubjectDescriptionFn  func(ctx context.Context, token, applicationID string) (domain.Application, error)
	FetchPriorArtDescriptionFn func(ctx context.Context, token, applicationID string) (domain.Application, error)
	FetchLatestAmendedClaimFn  func(ctx context.Context, token, applicationID string) (domain.Application, error)
	UpdateClaimsFn             func(ctx context.Context, token, applicationID, claims string) (domain.Application, error)
	GenerateDocketFn           func(ctx context.Context, token, applicationID, rejectionID string, rejectionType domain.RejectionType) (domain.Docket, error)
	GenerateStrategyFn         func(ctx context.Context, token string, req backend.StrategyRequest) (domain.Docket, error)
	RejectionStatusFn          func(ctx context.Context, token, applicationID, rejectionID string) (bool, error)
	FinalizeRejectionFn        func(ctx context.Context, token string, req backend.FinalizeRequest) error
	FinalizeOtherRejectionFn   func(ctx context.Context, token, applicationID, rejectionID string) (domain.OtherRejectionResponse, error)
	PreviewDraftFn             func(ctx context.Context, token, applicationID string) (domain.DraftPreview, error)
	GenerateDraftFn            func(ctx context.Context, token, applicationID string) ([]byte, error)
}

func (b *StubBackend) hit(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.calls == nil {
		b.calls = make(map[string]int)
	}
	b.calls[name]++
}

// Calls reports how often the named method was invoked.
func (b *StubBackend) Calls(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

// TotalCalls is the number of backend calls of any kind.
func (b *StubBackend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func unexpected(name string) error {
	return fmt.Errorf("%w: unexpected call to %s", domain.ErrUpstream, name)
}

func (b *StubBackend) Register(context.Context, domain.Registration) error {
	b.hit("Register")
	return nil
}

func (b *StubBackend) Login(ctx context.Context, creds domain.Credentials) (backend.LoginResult, error) {
	b.hit("Login")
	if b.LoginFn == nil {
		return backend.LoginResult{}, unexpected("Login")
	}
	return b.LoginFn(ctx, creds)
}

func (b *StubBackend) Logout(ctx context.Context, token string) error {
	b.hit("Logout")
	if b.LogoutFn == nil {
		return nil
	}
	return b.LogoutFn(ctx, token)
}

func (b *StubBackend) VerifyResetToken(context.Context, string) error {
	b.hit("VerifyResetToken")
	return nil
}

func (b *StubBackend) ResetPassword(context.Context, domain.PasswordReset) error {
	b.hit("ResetPassword")
	return nil
}

func (b *StubBackend) AnalyseApplication(ctx context.Context, token, number string) (domain.Application, error) {
	b.hit("AnalyseApplication")
	if b.AnalyseApplicationFn == nil {
		return domain.Application{}, unexpected("AnalyseApplication")
	}
	return b.AnalyseApplicationFn(ctx, token, number)
}

func (b *StubBackend) UploadApplication(context.Context, string, string, []byte) (domain.Application, error) {
	b.hit("UploadApplication")
	return domain.Application{}, unexpected("UploadApplication")
}

func (b *StubBackend) FetchLatestApplications(ctx context.Context, token string) ([]domain.Application, error) {
	b.hit("FetchLatestApplications")
	if b.FetchAllApplicationsFn == nil {
		return nil, unexpected("FetchLatestApplications")
	}
	return b.FetchAllApplicationsFn(ctx, token)
}

func (b *StubBackend) FetchAllApplications(ctx context.Context, token string) ([]domain.Application, error) {
	b.hit("FetchAllApplications")
	if b.FetchAllApplicationsFn == nil {
		return nil, unexpected("FetchAllApplications")
	}
	return b.FetchAllApplicationsFn(ctx, token)
}

func (b *StubBackend) UploadClaims(ctx context.Context, token, applicationID, filename string, content []byte) (domain.Application, error) {
	b.hit("UploadClaims")
	if b.UploadClaimsFn == nil {
		return domain.Application{}, unexpected("UploadClaims")
	}
	return b.UploadClaimsFn(ctx, token, applicationID, filename, content)
}

func (b *StubBackend) FetchSubjectDescription(ctx context.Context, token, applicationID string) (domain.Application, error) {
	b.hit("FetchSubjectDescription")
	if b.FetchSubjectDescriptionFn == nil {
		return domain.Application{}, unexpected("FetchSubjectDescription")
	}
	return b.FetchSubjectDescriptionFn(ctx, token, applicationID)
}

func (b *StubBackend) FetchPriorArtDescription(ctx context.Context, token, applicationID string) (domain.Application, error) {
	b.hit("FetchPriorArtDescription")
	if b.FetchPriorArtDescriptionFn == nil {
		return domain.Application{}, unexpected("FetchPriorArtDescription")
	}
	return b.FetchPriorArtDescriptionFn(ctx, token, applicationID)
}

func (b *StubBackend) UpdateClaims(ctx context.Context, token, applicationID, claims string) (domain.Application, error) {
	b.hit("UpdateClaims")
	if b.UpdateClaimsFn == nil {
		return domain.Application{}, unexpected("UpdateClaims")
	}
	return b.UpdateClaimsFn(ctx, token, applicationID, claims)
}

func (b *StubBackend) FetchLatestAmendedClaim(ctx context.Context, token, applicationID string) (domain.Application, error) {
	b.hit("FetchLatestAmendedClaim")
	if b.FetchLatestAmendedClaimFn == nil {
		return domain.Application{}, unexpected("FetchLatestAmendedClaim")
	}
	return b.FetchLatestAmendedClaimFn(ctx, token, applicationID)
}

func (b *StubBackend) GenerateDocket(ctx context.Context, token, applicationID, rejectionID string, rejectionType domain.RejectionType) (domain.Docket, error) {
	b.hit("GenerateDocket")
	if b.GenerateDocketFn == nil {
		return domain.Docket{}, unexpected("GenerateDocket")
	}
	return b.GenerateDocketFn(ctx, token, applicationID, rejectionID, rejectionType)
}

func (b *StubBackend) GenerateStrategy(ctx context.Context, token string, req backend.StrategyRequest) (domain.Docket, error) {
	b.hit("GenerateStrategy")
	if b.GenerateStrategyFn == nil {
		return domain.Docket{}, unexpected("GenerateStrategy")
	}
	return b.GenerateStrategyFn(ctx, token, req)
}

func (b *StubBackend) RejectionStatus(ctx context.Context, token, applicationID, rejectionID string) (bool, error) {
	b.hit("RejectionStatus")
	if b.RejectionStatusFn == nil {
		return false, unexpected("RejectionStatus")
	}
	return b.RejectionStatusFn(ctx, token, applicationID, rejectionID)
}

func (b *StubBackend) FinalizeRejection(ctx context.Context, token string, req backend.FinalizeRequest) error {
	b.hit("FinalizeRejection")
	if b.FinalizeRejectionFn == nil {
		return unexpected("FinalizeRejection")
	}
	return b.FinalizeRejectionFn(ctx, token, req)
}

func (b *StubBackend) FetchOtherRejection(_ context.Context, _, _, rejectionID string) (domain.OtherRejectionResponse, error) {
	b.hit("FetchOtherRejection")
	return domain.OtherRejectionResponse{RejectionID: rejectionID}, nil
}

func (b *StubBackend) SaveOtherRejection(_ context.Context, _, _, rejectionID, response string) (domain.OtherRejectionResponse, error) {
	b.hit("SaveOtherRejection")
	return domain.OtherRejectionResponse{RejectionID: rejectionID, Response: response}, nil
}

func (b *StubBackend) GenerateOtherRejection(_ context.Context, _, _, rejectionID string) (domain.OtherRejectionResponse, error) {
	b.hit("GenerateOtherRejection")
	return domain.OtherRejectionResponse{RejectionID: rejectionID, Response: "generated response"}, nil
}

func (b *StubBackend) FinalizeOtherRejection(ctx context.Context, token, applicationID, rejectionID string) (domain.OtherRejectionResponse, error) {
	b.hit("FinalizeOtherRejection")
	if b.FinalizeOtherRejectionFn == nil {
		return domain.OtherRejectionResponse{RejectionID: rejectionID, IsFinalized: true}, nil
	}
	return b.FinalizeOtherRejectionFn(ctx, token, applicationID, rejectionID)
}

func (b *StubBackend) PreviewDraft(ctx context.Context, token, applicationID string) (domain.DraftPreview, error) {
	b.hit("PreviewDraft")
	if b.PreviewDraftFn == nil {
		return domain.DraftPreview{Ready: true, MissingItems: []domain.MissingItem{}}, nil
	}
	return b.PreviewDraftFn(ctx, token, applicationID)
}

func (b *StubBackend) GenerateDraft(ctx context.Context, token, applicationID string) ([]byte, error) {
	b.hit("GenerateDraft")
	if b.GenerateDraftFn == nil {
		return nil, unexpected("GenerateDraft")
	}
	return b.GenerateDraftFn(ctx, token, applicationID)
}

// Session returns a session seeded into store, ready for service calls.
func Session(ctx context.Context, store *MemStore, userID string) domain.Session {
	sess := domain.Session{ID: "sess-" + userID, UserID: userID, Email: userID + "@example.com", Token: "tok-" + userID}
	if err := store.CreateSession(ctx, sess); err != nil {
		panic(err)
	}
	return sess
}

// Application builds a cached application with one docket per 102/103
// rejection. Docket ids are "dk-" + rejection id.
func Application(id string, rejections ...domain.Rejection) domain.Application {
	app := domain.Application{ID: id, ApplicationNumber: "US" + id, Rejections: []domain.Rejection{}}
	for _, r := range rejections {
		if r.RejectionType.Analyzable() && r.Docket == nil {
			r.Docket = &domain.Docket{ID: "dk-" + r.ID, RejectionID: r.ID, RejectionType: r.RejectionType}
		}
		app.Rejections = append(app.Rejections, r)
	}
	return app
}
