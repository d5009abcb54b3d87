package temporal

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"office-action-orchestrator/internal/domain"
	"office-action-orchestrator/internal/tracker"
	"office-action-orchestrator/internal/tracker/trackertest"
)

type trackerFixture struct {
	store   *trackertest.MemStore
	backend *trackertest.StubBackend
	blobs   *trackertest.MemBlobs
	svc     *tracker.Service
	sess    domain.Session
	acts    *Activities
}

func newTrackerFixture() *trackerFixture {
	f := &trackerFixture{
		store:   trackertest.NewMemStore(),
		backend: &trackertest.StubBackend{},
		blobs:   trackertest.NewMemBlobs(),
	}
	f.useStore(f.store)
	f.sess = trackertest.Session(context.Background(), f.store, "u-1")
	return f
}

// useStore rebuilds the service on top of store, which usually wraps
// f.store.
func (f *trackerFixture) useStore(store tracker.Store) {
	f.svc = tracker.NewService(store, f.backend, f.blobs,
		tracker.WithClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }))
	f.acts = &Activities{Tracker: f.svc}
}

// flakyStore fails the failOn-th SettleDocuments call.
type flakyStore struct {
	*trackertest.MemStore
	failOn int32
	calls  atomic.Int32
}

func (s *flakyStore) SettleDocuments(ctx context.Context, scope domain.Scope, fn func(*domain.Application, *domain.ApplicationDocumentState) error) (domain.ApplicationDocumentState, error) {
	if s.calls.Add(1) == s.failOn {
		return domain.ApplicationDocumentState{}, errors.New("connection reset")
	}
	return s.MemStore.SettleDocuments(ctx, scope, fn)
}

func (f *trackerFixture) seed(app domain.Application) {
	if err := f.store.SaveApplications(context.Background(), f.sess.UserID, []domain.Application{app}); err != nil {
		panic(err)
	}
}

// seedGeneratable stores an application whose documents are all on the
// server and which has nothing left to finalize.
func (f *trackerFixture) seedGeneratable(applicationID string) {
	app := trackertest.Application(applicationID)
	app.ClaimsExist = true
	app.SubjectDescriptionExist = true
	app.PriorArtDescriptionExist = true
	f.seed(app)

	ctx := context.Background()
	scope := f.sess.Scope(applicationID)
	if _, err := f.store.UpdateDocumentState(ctx, scope, func(st *domain.ApplicationDocumentState) error {
		st.ObserveApplication(app)
		return nil
	}); err != nil {
		panic(err)
	}
	status := domain.AggregateFinalization(applicationID, nil, nil, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	if _, err := f.store.SaveFinalizationStatus(ctx, f.sess.UserID, status); err != nil {
		panic(err)
	}
}
