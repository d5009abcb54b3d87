// Package trackertest provides in-memory collaborators for tracker tests.
package trackertest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"sync"

	"office-action-orchestrator/internal/domain"
)

type docketKey struct {
	userID   string
	docketID string
}

// MemStore is a mutex guarded tracker.Store. Values are deep-copied through
// JSON so callers never share state with the store.
type MemStore struct {
	mu           sync.Mutex
	sessions     map[string]domain.Session
	apps         map[domain.Scope]domain.Application
	docs         map[domain.Scope]domain.ApplicationDocumentState
	rejections   map[docketKey]domain.RejectionAnalysisState
	finalization map[domain.Scope]domain.FinalizationStatus
	uploads      map[string]domain.UploadRecord
	drafts       []domain.DraftRecord
	audit        map[domain.Scope][]domain.AuditState
	purged       []string
}

func NewMemStore() *MemStore {
	return &MemStore{
		sessions:     make(map[string]domain.Session),
		apps:         make(map[domain.Scope]domain.Application),
		docs:         make(map[domain.Scope]domain.ApplicationDocumentState),
		rejections:   make(map[docketKey]domain.RejectionAnalysisState),
		finalization: make(map[domain.Scope]domain.FinalizationStatus),
		uploads:      make(map[string]domain.UploadRecord),
		audit:        make(map[domain.Scope][]domain.AuditState),
	}
}

func clone[T any](v T) T {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}

func (m *MemStore) CreateSession(_ context.Context, sess domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemStore) GetSession(_ context.Context, sessionID string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	return sess, nil
}

func (m *MemStore) SetActive(_ context.Context, sessionID, applicationID, docketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	sess.ActiveApplicationID, sess.ActiveDocketID = applicationID, docketID
	m.sessions[sessionID] = sess
	return nil
}

func (m *MemStore) PurgeUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged = append(m.purged, userID)
	for id, sess := range m.sessions {
		if sess.UserID == userID {
			delete(m.sessions, id)
		}
	}
	for scope := range m.apps {
		if scope.UserID == userID {
			delete(m.apps, scope)
		}
	}
	for scope := range m.docs {
		if scope.UserID == userID {
			delete(m.docs, scope)
		}
	}
	for key := range m.rejections {
		if key.userID == userID {
			delete(m.rejections, key)
		}
	}
	for scope := range m.finalization {
		if scope.UserID == userID {
			delete(m.finalization, scope)
		}
	}
	return nil
}

func (m *MemStore) SaveApplications(_ context.Context, userID string, apps []domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, app := range apps {
		m.apps[domain.Scope{UserID: userID, ApplicationID: app.ID}] = clone(app)
	}
	return nil
}

func (m *MemStore) GetApplication(_ context.Context, scope domain.Scope) (domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[scope]
	if !ok {
		return domain.Application{}, fmt.Errorf("%w: application %s", domain.ErrNotFound, scope.ApplicationID)
	}
	return clone(app), nil
}

func (m *MemStore) UpdateApplication(_ context.Context, scope domain.Scope, fn func(*domain.Application) error) (domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cached, ok := m.apps[scope]
	if !ok {
		return domain.Application{}, fmt.Errorf("%w: application %s", domain.ErrNotFound, scope.ApplicationID)
	}
	app := clone(cached)
	if err := fn(&app); err != nil {
		return domain.Application{}, err
	}
	app.ID = scope.ApplicationID
	m.apps[scope] = clone(app)
	return app, nil
}

func (m *MemStore) PruneApplications(_ context.Context, userID string, known []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := make(map[string]bool, len(known))
	for _, id := range known {
		keep[id] = true
	}
	for scope := range m.apps {
		if scope.UserID == userID && !keep[scope.ApplicationID] {
			delete(m.apps, scope)
		}
	}
	for scope := range m.docs {
		if scope.UserID == userID && !keep[scope.ApplicationID] {
			delete(m.docs, scope)
		}
	}
	for key, st := range m.rejections {
		if key.userID == userID && !keep[st.ApplicationID] {
			delete(m.rejections, key)
		}
	}
	for scope := range m.finalization {
		if scope.UserID == userID && !keep[scope.ApplicationID] {
			delete(m.finalization, scope)
		}
	}
	return nil
}

func (m *MemStore) GetDocumentState(_ context.Context, scope domain.Scope) (domain.ApplicationDocumentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.docs[scope]
	if !ok {
		return domain.NewApplicationDocumentState(scope.ApplicationID), nil
	}
	return st, nil
}

func (m *MemStore) UpdateDocumentState(_ context.Context, scope domain.Scope, fn func(*domain.ApplicationDocumentState) error) (domain.ApplicationDocumentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.docs[scope]
	if !ok {
		st = domain.NewApplicationDocumentState(scope.ApplicationID)
	}
	if err := fn(&st); err != nil {
		return domain.ApplicationDocumentState{}, err
	}
	m.docs[scope] = st
	return st, nil
}

func (m *MemStore) SettleDocuments(_ context.Context, scope domain.Scope, fn func(*domain.Application, *domain.ApplicationDocumentState) error) (domain.ApplicationDocumentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cached, ok := m.apps[scope]
	if !ok {
		return domain.ApplicationDocumentState{}, fmt.Errorf("%w: application %s", domain.ErrNotFound, scope.ApplicationID)
	}
	app := clone(cached)
	st, ok := m.docs[scope]
	if !ok {
		st = domain.NewApplicationDocumentState(scope.ApplicationID)
	}
	if err := fn(&app, &st); err != nil {
		return domain.ApplicationDocumentState{}, err
	}
	app.ID = scope.ApplicationID
	m.apps[scope] = clone(app)
	m.docs[scope] = st
	return st, nil
}

func (m *MemStore) GetRejectionState(_ context.Context, scope domain.Scope, docketID string) (domain.RejectionAnalysisState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.rejections[docketKey{scope.UserID, docketID}]
	if !ok {
		return domain.NewRejectionAnalysisState(scope.ApplicationID, docketID), nil
	}
	return clone(st), nil
}

func (m *MemStore) UpdateRejectionState(_ context.Context, scope domain.Scope, docketID string, fn func(*domain.RejectionAnalysisState) error) (domain.RejectionAnalysisState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateRejection(scope, docketID, fn)
}

func (m *MemStore) updateRejection(scope domain.Scope, docketID string, fn func(*domain.RejectionAnalysisState) error) (domain.RejectionAnalysisState, error) {
	key := docketKey{scope.UserID, docketID}
	st, ok := m.rejections[key]
	if ok {
		st = clone(st)
	} else {
		st = domain.NewRejectionAnalysisState(scope.ApplicationID, docketID)
	}
	if err := fn(&st); err != nil {
		return domain.RejectionAnalysisState{}, err
	}
	m.rejections[key] = clone(st)
	return st, nil
}

func (m *MemStore) ApplyFinalization(_ context.Context, scope domain.Scope, docketID string, strategy domain.Strategy) (domain.RejectionAnalysisState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[scope]
	if !ok {
		return domain.RejectionAnalysisState{}, fmt.Errorf("%w: application %s", domain.ErrNotFound, scope.ApplicationID)
	}
	app = clone(app)
	docket, _ := app.Docket(docketID)
	if docket == nil {
		return domain.RejectionAnalysisState{}, fmt.Errorf("%w: docket %s", domain.ErrNotFound, docketID)
	}
	st, err := m.updateRejection(scope, docketID, func(st *domain.RejectionAnalysisState) error {
		return st.Finalize(strategy)
	})
	if err != nil {
		return domain.RejectionAnalysisState{}, err
	}
	docket.FinalizedType = strategy
	m.apps[scope] = app
	return st, nil
}

func (m *MemStore) SaveFinalizationStatus(_ context.Context, userID string, status domain.FinalizationStatus) (domain.FinalizationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scope := domain.Scope{UserID: userID, ApplicationID: status.ApplicationID}
	if cur, ok := m.finalization[scope]; ok && cur.StartedAt.After(status.StartedAt) {
		return clone(cur), nil
	}
	m.finalization[scope] = clone(status)
	return clone(status), nil
}

func (m *MemStore) GetFinalizationStatus(_ context.Context, scope domain.Scope) (domain.FinalizationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.finalization[scope]
	if !ok {
		return domain.FinalizationStatus{ApplicationID: scope.ApplicationID, Rejections: map[string]domain.RejectionFinalization{}}, nil
	}
	return clone(status), nil
}

func (m *MemStore) CreateUpload(_ context.Context, rec domain.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[rec.ID] = rec
	return nil
}

func (m *MemStore) GetUpload(_ context.Context, uploadID string) (domain.UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.uploads[uploadID]
	if !ok {
		return domain.UploadRecord{}, fmt.Errorf("%w: upload %s", domain.ErrNotFound, uploadID)
	}
	return rec, nil
}

func (m *MemStore) SetUploadStatus(_ context.Context, uploadID string, status domain.UploadStatus, reason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.uploads[uploadID]
	rec.Status = status
	rec.FailureReason = reason
	m.uploads[uploadID] = rec
	return nil
}

func (m *MemStore) RecordDraft(_ context.Context, rec domain.DraftRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts = append(m.drafts, rec)
	return nil
}

func (m *MemStore) ListDrafts(_ context.Context, scope domain.Scope) ([]domain.DraftRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.DraftRecord, 0)
	for _, rec := range m.drafts {
		if rec.UserID == scope.UserID && rec.ApplicationID == scope.ApplicationID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) InsertAudit(_ context.Context, scope domain.Scope, state domain.AuditState, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit[scope] = append(m.audit[scope], state)
	return nil
}

func (m *MemStore) Audit(scope domain.Scope) []domain.AuditState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditState(nil), m.audit[scope]...)
}

// HasDocumentState reports whether a document state record exists.
func (m *MemStore) HasDocumentState(scope domain.Scope) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[scope]
	return ok
}

func (m *MemStore) Purged() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.purged...)
}

func (m *MemStore) Upload(uploadID string) domain.UploadRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads[uploadID]
}

// MemBlobs keeps uploads and drafts in memory.
type MemBlobs struct {
	mu      sync.Mutex
	uploads map[string][]byte
	drafts  map[string][]byte
}

func NewMemBlobs() *MemBlobs {
	return &MemBlobs{uploads: make(map[string][]byte), drafts: make(map[string][]byte)}
}

func (b *MemBlobs) PutUpload(_ context.Context, uploadID, filename, _ string, content []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := path.Join(uploadID, path.Base(filename))
	b.uploads[key] = append([]byte(nil), content...)
	return key, nil
}

func (b *MemBlobs) GetUpload(_ context.Context, objectKey string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.uploads[objectKey]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, objectKey)
	}
	return data, nil
}

func (b *MemBlobs) PutDraft(_ context.Context, applicationID, draftID string, content []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := path.Join(applicationID, draftID+".docx")
	b.drafts[key] = append([]byte(nil), content...)
	return key, nil
}

func (b *MemBlobs) OpenDraft(_ context.Context, objectKey string) (io.ReadCloser, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.drafts[objectKey]
	if !ok {
		return nil, 0, fmt.Errorf("%w: object %s", domain.ErrNotFound, objectKey)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}
