package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"office-action-orchestrator/internal/metrics"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if h.metrics {
		r.Use(metrics.Middleware)
		r.Handle("/metrics", metrics.Handler())
	}

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/verify-reset-token", h.VerifyResetToken)
		r.Post("/auth/reset-password", h.ResetPassword)
		r.Get("/claims/format", h.FormatClaims)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)

			r.Post("/auth/logout", h.Logout)
			r.Get("/session", h.GetSession)
			r.Put("/session/active", h.SetActive)

			r.Get("/applications", h.ListApplications)
			r.Post("/applications/analyse", h.AnalyseApplication)
			r.Post("/applications/upload", h.UploadApplication)

			r.Route("/applications/{applicationId}", func(r chi.Router) {
				r.Get("/", h.GetApplication)
				r.Put("/claims", h.UpdateClaims)
				r.Post("/claims/upload", h.UploadClaims)

				r.Get("/documents", h.GetDocumentState)
				r.Patch("/documents", h.SetArtifactStatus)
				r.Post("/documents/collect", h.CollectArtifacts)

				r.Get("/finalization", h.GetFinalizationStatus)
				r.Post("/finalization/check", h.CheckFinalizationStatus)
				r.Get("/gate", h.GetGate)

				r.Post("/rejections/{rejectionId}/docket", h.GenerateDocket)
				r.Get("/rejections/{rejectionId}/other", h.FetchOtherRejection)
				r.Put("/rejections/{rejectionId}/other", h.SaveOtherRejection)
				r.Post("/rejections/{rejectionId}/other/generate", h.GenerateOtherRejection)
				r.Post("/rejections/{rejectionId}/other/finalize", h.FinalizeOtherRejection)

				r.Get("/dockets/{docketId}", h.GetRejectionState)
				r.Patch("/dockets/{docketId}/strategies/{strategy}", h.SetRejectionFlag)
				r.Post("/dockets/{docketId}/strategies/{strategy}/generate", h.GenerateStrategy)
				r.Post("/dockets/{docketId}/strategies/{strategy}/finalize", h.FinalizeStrategy)

				r.Post("/draft/preview", h.PreviewDraft)
				r.Post("/draft", h.GenerateDraft)
				r.Get("/drafts", h.ListDrafts)
				r.Get("/drafts/{draftId}", h.DownloadDraft)
			})
		})
	})

	return r
}
