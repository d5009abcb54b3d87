package tracker

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"office-action-orchestrator/internal/backend"
	"office-action-orchestrator/internal/domain"
)

type Store interface {
	CreateSession(ctx context.Context, sess domain.Session) error
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	SetActive(ctx context.Context, sessionID, applicationID, docketID string) error
	PurgeUser(ctx context.Context, userID string) error

	SaveApplications(ctx context.Context, userID string, apps []domain.Application) error
	GetApplication(ctx context.Context, scope domain.Scope) (domain.Application, error)
	UpdateApplication(ctx context.Context, scope domain.Scope, fn func(*domain.Application) error) (domain.Application, error)
	PruneApplications(ctx context.Context, userID string, known []string) error

	GetDocumentState(ctx context.Context, scope domain.Scope) (domain.ApplicationDocumentState, error)
	UpdateDocumentState(ctx context.Context, scope domain.Scope, fn func(*domain.ApplicationDocumentState) error) (domain.ApplicationDocumentState, error)
	// SettleDocuments updates the cached application and its document state
	// together. It fails with domain.ErrNotFound when the application is not
	// cached and writes nothing in that case.
	SettleDocuments(ctx context.Context, scope domain.Scope, fn func(*domain.Application, *domain.ApplicationDocumentState) error) (domain.ApplicationDocumentState, error)

	GetRejectionState(ctx context.Context, scope domain.Scope, docketID string) (domain.RejectionAnalysisState, error)
	UpdateRejectionState(ctx context.Context, scope domain.Scope, docketID string, fn func(*domain.RejectionAnalysisState) error) (domain.RejectionAnalysisState, error)
	ApplyFinalization(ctx context.Context, scope domain.Scope, docketID string, strategy domain.Strategy) (domain.RejectionAnalysisState, error)

	// SaveFinalizationStatus keeps the status of the most recently started
	// check and returns whichever status is stored afterwards.
	SaveFinalizationStatus(ctx context.Context, userID string, status domain.FinalizationStatus) (domain.FinalizationStatus, error)
	GetFinalizationStatus(ctx context.Context, scope domain.Scope) (domain.FinalizationStatus, error)

	CreateUpload(ctx context.Context, rec domain.UploadRecord) error
	GetUpload(ctx context.Context, uploadID string) (domain.UploadRecord, error)
	SetUploadStatus(ctx context.Context, uploadID string, status domain.UploadStatus, reason *string) error

	RecordDraft(ctx context.Context, rec domain.DraftRecord) error
	ListDrafts(ctx context.Context, scope domain.Scope) ([]domain.DraftRecord, error)

	InsertAudit(ctx context.Context, scope domain.Scope, state domain.AuditState, detail any) error
}

// Backend is the part of the analysis API the tracker drives.
type Backend interface {
	Register(ctx context.Context, reg domain.Registration) error
	Login(ctx context.Context, creds domain.Credentials) (backend.LoginResult, error)
	Logout(ctx context.Context, token string) error
	VerifyResetToken(ctx context.Context, resetToken string) error
	ResetPassword(ctx context.Context, reset domain.PasswordReset) error

	AnalyseApplication(ctx context.Context, token, applicationNumber string) (domain.Application, error)
	UploadApplication(ctx context.Context, token, filename string, content []byte) (domain.Application, error)
	FetchLatestApplications(ctx context.Context, token string) ([]domain.Application, error)
	FetchAllApplications(ctx context.Context, token string) ([]domain.Application, error)
	UploadClaims(ctx context.Context, token, applicationID, filename string, content []byte) (domain.Application, error)
	FetchSubjectDescription(ctx context.Context, token, applicationID string) (domain.Application, error)
	FetchPriorArtDescription(ctx context.Context, token, applicationID string) (domain.Application, error)
	UpdateClaims(ctx context.Context, token, applicationID, claims string) (domain.Application, error)
	FetchLatestAmendedClaim(ctx context.Context, token, applicationID string) (domain.Application, error)

	GenerateDocket(ctx context.Context, token, applicationID, rejectionID string, rejectionType domain.RejectionType) (domain.Docket, error)
	GenerateStrategy(ctx context.Context, token string, req backend.StrategyRequest) (domain.Docket, error)
	RejectionStatus(ctx context.Context, token, applicationID, rejectionID string) (bool, error)
	FinalizeRejection(ctx context.Context, token string, req backend.FinalizeRequest) error
	FetchOtherRejection(ctx context.Context, token, applicationID, rejectionID string) (domain.OtherRejectionResponse, error)
	SaveOtherRejection(ctx context.Context, token, applicationID, rejectionID, response string) (domain.OtherRejectionResponse, error)
	GenerateOtherRejection(ctx context.Context, token, applicationID, rejectionID string) (domain.OtherRejectionResponse, error)
	FinalizeOtherRejection(ctx context.Context, token, applicationID, rejectionID string) (domain.OtherRejectionResponse, error)

	PreviewDraft(ctx context.Context, token, applicationID string) (domain.DraftPreview, error)
	GenerateDraft(ctx context.Context, token, applicationID string) ([]byte, error)
}

type BlobStore interface {
	PutUpload(ctx context.Context, uploadID, filename, contentType string, content []byte) (string, error)
	GetUpload(ctx context.Context, objectKey string) ([]byte, error)
	PutDraft(ctx context.Context, applicationID, draftID string, content []byte) (string, error)
	OpenDraft(ctx context.Context, objectKey string) (io.ReadCloser, int64, error)
}

// Collector starts background collection of artifacts for an application.
type Collector interface {
	StartArtifactCollection(ctx context.Context, sessionID, applicationID string, artifacts []domain.Artifact) error
}

type Observer interface {
	SessionInvalidated()
	GateEvaluated(stage domain.Stage)
}

type nopObserver struct{}

func (nopObserver) SessionInvalidated() {}
func (nopObserver) GateEvaluated(domain.Stage) {}

type Service struct {
	store           Store
	backend         Backend
	blobs           BlobStore
	collector       Collector
	observer        Observer
	pollConcurrency int
	maxUploadBytes  int64
	now             func() time.Time
}

type Option func(*Service)

func WithCollector(c Collector) Option {
	return func(s *Service) { s.collector = c }
}

func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithPollConcurrency bounds concurrent /rejection/status calls. Zero or
// less means unbounded.
func WithPollConcurrency(n int) Option {
	return func(s *Service) { s.pollConcurrency = n }
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, be Backend, blobs BlobStore, opts ...Option) *Service {
	s := &Service{
		store:           store,
		backend:         be,
		blobs:           blobs,
		observer:        nopObserver{},
		pollConcurrency: 8,
		maxUploadBytes:  domain.MaxUploadBytes,
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Register(ctx context.Context, reg domain.Registration) error {
	if err := domain.ValidateInput(reg); err != nil {
		return err
	}
	return s.backend.Register(ctx, reg)
}

// Login authenticates against the backend and persists a new session. The
// returned session id is the only credential handed to API consumers.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := domain.ValidateInput(creds); err != nil {
		return domain.Session{}, err
	}
	res, err := s.backend.Login(ctx, creds)
	if err != nil {
		return domain.Session{}, err
	}
	sess := domain.Session{
		ID:        uuid.NewString(),
		UserID:    res.User.ID,
		Email:     res.User.Email,
		Token:     res.Token,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	log.Info().Str("user_id", sess.UserID).Str("session_id", sess.ID).Msg("session created")
	return sess, nil
}

// Logout signs out of the backend and clears every piece of state held for
// the user, even when the backend already considers the token dead.
func (s *Service) Logout(ctx context.Context, sess domain.Session) error {
	if err := s.backend.Logout(ctx, sess.Token); err != nil && !errors.Is(err, domain.ErrSessionInvalid) {
		log.Warn().Err(err).Str("user_id", sess.UserID).Msg("backend logout failed")
	}
	return s.store.PurgeUser(ctx, sess.UserID)
}

func (s *Service) VerifyResetToken(ctx context.Context, resetToken string) error {
	if strings.TrimSpace(resetToken) == "" {
		return &domain.FieldError{Field: "token", Message: "is required"}
	}
	return s.backend.VerifyResetToken(ctx, resetToken)
}

func (s *Service) ResetPassword(ctx context.Context, reset domain.PasswordReset) error {
	if err := domain.ValidateInput(reset); err != nil {
		return err
	}
	return s.backend.ResetPassword(ctx, reset)
}

// Authenticate resolves a session id. Unknown ids are reported as an
// invalid session.
func (s *Service) Authenticate(ctx context.Context, sessionID string) (domain.Session, error) {
	if sessionID == "" {
		return domain.Session{}, domain.ErrSessionInvalid
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, domain.ErrSessionInvalid
	}
	return sess, err
}

// SetActive switches the session's active application. Finalization status
// is recomputed for the new application and, for a first-time rejection, the
// artifacts that are still missing are collected in the background.
func (s *Service) SetActive(ctx context.Context, sess domain.Session, applicationID, docketID string) (domain.Session, error) {
	if applicationID == "" {
		if err := s.store.SetActive(ctx, sess.ID, "", ""); err != nil {
			return domain.Session{}, err
		}
		sess.ActiveApplicationID, sess.ActiveDocketID = "", ""
		return sess, nil
	}

	scope := sess.Scope(applicationID)
	app, err := s.store.GetApplication(ctx, scope)
	if err != nil {
		return domain.Session{}, err
	}
	if docketID != "" {
		if d, _ := app.Docket(docketID); d == nil {
			return domain.Session{}, &domain.FieldError{Field: "docketId", Message: "does not belong to the application"}
		}
	}
	if err := s.store.SetActive(ctx, sess.ID, applicationID, docketID); err != nil {
		return domain.Session{}, err
	}
	sess.ActiveApplicationID, sess.ActiveDocketID = applicationID, docketID

	docs, err := s.store.UpdateDocumentState(ctx, scope, func(st *domain.ApplicationDocumentState) error {
		st.ObserveApplication(app)
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}

	if _, err := s.CheckFinalizationStatus(ctx, sess, applicationID); err != nil {
		if errors.Is(err, domain.ErrSessionInvalid) {
			return domain.Session{}, err
		}
		log.Warn().Err(err).Str("application_id", applicationID).Msg("finalization status check failed")
	}

	if app.IsFirstRejection && s.collector != nil {
		if pending := docs.PendingArtifacts(); len(pending) > 0 {
			if err := s.collector.StartArtifactCollection(ctx, sess.ID, applicationID, pending); err != nil {
				log.Error().Err(err).Str("application_id", applicationID).Msg("start artifact collection")
			}
		}
	}
	return sess, nil
}

// fail runs the session-invalid side effect: all state for the user is
// wiped, which forces a new login.
func (s *Service) fail(ctx context.Context, sess domain.Session, applicationID string, err error) error {
	if err == nil || !errors.Is(err, domain.ErrSessionInvalid) {
		return err
	}
	s.observer.SessionInvalidated()
	log.Warn().Str("user_id", sess.UserID).Str("application_id", applicationID).Msg("backend rejected session, clearing user state")
	if perr := s.store.PurgeUser(ctx, sess.UserID); perr != nil {
		log.Error().Err(perr).Str("user_id", sess.UserID).Msg("purge user state")
	}
	if aerr := s.store.InsertAudit(ctx, sess.Scope(applicationID), domain.AuditSessionInvalid, nil); aerr != nil {
		log.Error().Err(aerr).Msg("audit session invalid")
	}
	return err
}

func (s *Service) audit(ctx context.Context, scope domain.Scope, state domain.AuditState, detail any) {
	if err := s.store.InsertAudit(ctx, scope, state, detail); err != nil {
		log.Error().Err(err).Str("state", string(state)).Str("application_id", scope.ApplicationID).Msg("insert audit")
	}
}
