//go:build system

package system_test

import (
	"context"
	"database/sql"
	"os"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/client"

	"office-action-orchestrator/internal/domain"
	appTemporal "office-action-orchestrator/internal/temporal"
)

var _ = Describe("System blackbox happy path", Ordered, func() {
	var repoRoot string
	var cfg systemTestConfig

	BeforeAll(func() {
		if os.Getenv("RUN_BLACKBOX_SYSTEM_TEST") != "1" {
			Skip("set RUN_BLACKBOX_SYSTEM_TEST=1 to run real blackbox system test")
		}

		cfg = loadSystemTestConfig()
		if cfg.Email == "" || cfg.Password == "" {
			Skip("set SYSTEM_TEST_EMAIL and SYSTEM_TEST_PASSWORD to a backend account")
		}

		var err error
		repoRoot, err = findRepoRoot()
		Expect(err).ToNot(HaveOccurred())

		By("verifying required docker compose services (including worker) are already running")
		Expect(requireComposeServicesRunning(repoRoot, cfg.RequiredComposeServices)).To(Succeed())

		By("failing fast if infrastructure is unreachable")
		Expect(waitForPostgres(cfg.PostgresDSN, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForTemporal(cfg.TemporalAddress, cfg.TemporalNamespace, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(cfg.MinioReadyURL, 200, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(strings.TrimRight(cfg.APIBaseURL, "/")+cfg.APIHealthPath, 200, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(strings.TrimRight(cfg.APIBaseURL, "/")+cfg.APIReadyPath, 200, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForWorkerPoller(cfg.TemporalAddress, cfg.TemporalNamespace, cfg.TemporalTaskQueue, cfg.WorkerPollerTimeout)).To(Succeed())
		Expect(applyMigration(repoRoot, cfg.PostgresDSN)).To(Succeed())
	})

	It("signs in, collects application documents through a real worker and evaluates the gate", func() {
		api := newAPIClient(cfg.APIBaseURL)

		By("signing in exactly like a user")
		login, err := api.login(cfg.Email, cfg.Password)
		Expect(err).ToNot(HaveOccurred())
		Expect(login.SessionID).ToNot(BeEmpty())
		Expect(login.UserID).ToNot(BeEmpty())

		By("picking an application")
		apps, err := api.applications()
		Expect(err).ToNot(HaveOccurred())
		Expect(apps).ToNot(BeEmpty())
		applicationID := cfg.ApplicationID
		if applicationID == "" {
			applicationID = apps[0].ID
		}

		By("starting document collection")
		started, err := api.collectArtifacts(applicationID)
		Expect(err).ToNot(HaveOccurred())

		temporalClient, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalAddress,
			Namespace: cfg.TemporalNamespace,
		})
		Expect(err).ToNot(HaveOccurred())
		defer temporalClient.Close()

		names := make([]string, 0, len(started))
		for _, a := range started {
			names = append(names, string(a))
		}
		sort.Strings(names)
		workflowID := strings.Join([]string{cfg.WorkflowIDPrefix, "artifacts", login.SessionID, applicationID, strings.Join(names, "+")}, "-")

		if len(started) > 0 {
			By("waiting for the collection workflow to complete")
			ctx, cancel := context.WithTimeout(context.Background(), cfg.WorkflowCompletionTimeout)
			defer cancel()
			var result appTemporal.ArtifactCollectionResult
			Expect(temporalClient.GetWorkflow(ctx, workflowID, "").Get(ctx, &result)).To(Succeed())
			Expect(result.ApplicationID).To(Equal(applicationID))
			Expect(result.Statuses).To(HaveLen(len(started)))
		}

		By("polling document state until no artifact is in flight")
		var docs documentStateResponse
		Eventually(func() bool {
			var stateErr error
			docs, stateErr = api.documentState(applicationID)
			Expect(stateErr).ToNot(HaveOccurred())
			for _, a := range domain.Artifacts {
				if docs.Status(a).Phase == domain.PhaseInFlight {
					return false
				}
			}
			return true
		}, cfg.WorkflowCompletionTimeout, cfg.WorkflowPollInterval).Should(BeTrue())
		Expect(docs.ApplicationID).To(Equal(applicationID))
		Expect(docs.DocumentsReady).To(Equal(docs.AllDocumentsReady()))

		if len(started) > 0 {
			By("validating activity inputs and outputs from Temporal workflow history")
			trace, err := collectActivityTrace(context.Background(), temporalClient, workflowID)
			Expect(err).ToNot(HaveOccurred())
			Expect(trace.ScheduledOrder).To(HaveLen(len(started)))
			Expect(trace.CompletedOrder).To(HaveLen(len(started)))

			var collected []domain.Artifact
			for _, raw := range trace.Inputs["CollectArtifactActivity"] {
				in := raw.(appTemporal.CollectArtifactInput)
				Expect(in.SessionID).To(Equal(login.SessionID))
				Expect(in.ApplicationID).To(Equal(applicationID))
				collected = append(collected, in.Artifact)
			}
			Expect(collected).To(ConsistOf(started))

			for _, raw := range trace.Outputs["CollectArtifactActivity"] {
				out := raw.(appTemporal.CollectArtifactOutput)
				Expect(out.Status.Phase).To(BeElementOf(domain.PhaseSucceeded, domain.PhaseFailed))
				Expect(docs.Status(out.Artifact).Phase).To(Equal(out.Status.Phase))
			}
		}

		By("checking rejection finalization and the derived gate")
		status, err := api.checkFinalization(applicationID)
		Expect(err).ToNot(HaveOccurred())
		Expect(status.ApplicationID).To(Equal(applicationID))

		gate, err := api.gate(applicationID)
		Expect(err).ToNot(HaveOccurred())
		Expect(gate.Gate.DocumentsReady).To(Equal(docs.DocumentsReady))
		Expect(gate.Gate.AllFinalized).To(Equal(status.AllFinalized))
		Expect(gate.Gate.ResponseGeneratable).To(Equal(gate.Gate.RejectionsAnalyzable && status.AllFinalized))

		By("verifying audit records in Postgres")
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		Expect(err).ToNot(HaveOccurred())
		defer db.Close()
		Expect(db.Ping()).To(Succeed())

		if len(started) > 0 {
			auditStates, err := fetchStringRows(db, `SELECT state FROM audit_log WHERE user_id = $1 AND application_id = $2 ORDER BY id`, login.UserID, applicationID)
			Expect(err).ToNot(HaveOccurred())
			Expect(auditStates).To(ContainElement(BeElementOf(string(domain.AuditArtifactCollected), string(domain.AuditArtifactFailed))))
		}

		By("signing out")
		Expect(api.logout()).To(Succeed())
		_, err = api.documentState(applicationID)
		Expect(err).To(MatchError(ContainSubstring("status=401")))
	})
})
