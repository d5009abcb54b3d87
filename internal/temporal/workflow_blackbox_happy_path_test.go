package temporal

import (
	"context"
	"io"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"

	"office-action-orchestrator/internal/domain"
)

type activityTrace struct {
	mu sync.Mutex

	startedOrder   []string
	completedOrder []string

	gateIn      *CheckGateInput
	generateIn  *GenerateDraftInput
	generateOut *GenerateDraftOutput
	recordIn    *RecordDraftInput
}

func (t *activityTrace) recordStarted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedOrder = append(t.startedOrder, name)
}

func (t *activityTrace) recordCompleted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completedOrder = append(t.completedOrder, name)
}

var _ = Describe("DraftAssemblyWorkflow blackbox happy path", func() {
	It("checks the gate, generates the document once and records it", func() {
		var suite testsuite.WorkflowTestSuite
		env := suite.NewTestWorkflowEnvironment()

		f := newTrackerFixture()
		f.seedGeneratable("app-1")
		f.backend.GenerateDraftFn = func(_ context.Context, token, applicationID string) ([]byte, error) {
			Expect(token).To(Equal(f.sess.Token))
			Expect(applicationID).To(Equal("app-1"))
			return []byte("PK\x03\x04 response"), nil
		}

		trace := &activityTrace{}

		env.SetOnActivityStartedListener(func(info *activity.Info, _ context.Context, args converter.EncodedValues) {
			trace.recordStarted(info.ActivityType.Name)

			switch info.ActivityType.Name {
			case "CheckGateActivity":
				var in CheckGateInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.gateIn = &in
				trace.mu.Unlock()
			case "GenerateDraftActivity":
				var in GenerateDraftInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.generateIn = &in
				trace.mu.Unlock()
			case "RecordDraftActivity":
				var in RecordDraftInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.recordIn = &in
				trace.mu.Unlock()
			}
		})

		env.SetOnActivityCompletedListener(func(info *activity.Info, result converter.EncodedValue, _ error) {
			trace.recordCompleted(info.ActivityType.Name)

			if info.ActivityType.Name == "GenerateDraftActivity" {
				var out GenerateDraftOutput
				_ = result.Get(&out)
				trace.mu.Lock()
				trace.generateOut = &out
				trace.mu.Unlock()
			}
		})

		env.RegisterWorkflow(DraftAssemblyWorkflow)
		env.RegisterActivity(f.acts.CheckGateActivity)
		env.RegisterActivity(f.acts.GenerateDraftActivity)
		env.RegisterActivity(f.acts.RecordDraftActivity)

		By("running the workflow for a generatable application")
		env.ExecuteWorkflow(DraftAssemblyWorkflow, DraftAssemblyInput{
			SessionID:     f.sess.ID,
			ApplicationID: "app-1",
			DraftID:       "draft-1",
		})

		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).NotTo(HaveOccurred())

		var result DraftAssemblyResult
		Expect(env.GetWorkflowResult(&result)).To(Succeed())
		Expect(result.Draft.ID).To(Equal("draft-1"))
		Expect(result.Draft.ApplicationID).To(Equal("app-1"))
		Expect(result.Draft.UserID).To(Equal(f.sess.UserID))
		Expect(result.Draft.ObjectKey).To(Equal("app-1/draft-1.docx"))
		Expect(result.Draft.SizeBytes).To(BeEquivalentTo(len("PK\x03\x04 response")))

		By("verifying activity order")
		trace.mu.Lock()
		defer trace.mu.Unlock()
		expectedOrder := []string{"CheckGateActivity", "GenerateDraftActivity", "RecordDraftActivity"}
		Expect(trace.startedOrder).To(Equal(expectedOrder))
		Expect(trace.completedOrder).To(Equal(expectedOrder))

		By("verifying activity inputs and outputs")
		Expect(trace.gateIn).NotTo(BeNil())
		Expect(trace.gateIn.SessionID).To(Equal(f.sess.ID))
		Expect(trace.generateIn).NotTo(BeNil())
		Expect(trace.generateIn.DraftID).To(Equal("draft-1"))
		Expect(trace.generateOut).NotTo(BeNil())
		Expect(trace.recordIn).NotTo(BeNil())
		Expect(trace.recordIn.Draft).To(Equal(trace.generateOut.Draft))

		By("verifying the recorded draft can be streamed back")
		Expect(f.backend.Calls("GenerateDraft")).To(Equal(1))
		rc, rec, err := f.svc.OpenDraft(context.Background(), f.sess, "app-1", "draft-1")
		Expect(err).NotTo(HaveOccurred())
		defer rc.Close()
		body, err := io.ReadAll(rc)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal("PK\x03\x04 response"))
		Expect(rec.ObjectKey).To(Equal(result.Draft.ObjectKey))

		audit := f.store.Audit(f.sess.Scope("app-1"))
		Expect(audit).NotTo(BeEmpty())
		Expect(audit[len(audit)-1]).To(Equal(domain.AuditDraftGenerated))
	})
})
