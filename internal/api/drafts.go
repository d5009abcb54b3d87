package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"office-action-orchestrator/internal/domain"
	"office-action-orchestrator/internal/storage"
)

func (h *Handler) GetFinalizationStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.tracker.FinalizationStatus(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) CheckFinalizationStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.tracker.CheckFinalizationStatus(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) GetGate(w http.ResponseWriter, r *http.Request) {
	g, err := h.tracker.Gate(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gate":         g,
		"highestStage": g.HighestStage(),
	})
}

func (h *Handler) PreviewDraft(w http.ResponseWriter, r *http.Request) {
	preview, err := h.tracker.PreviewDraft(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// GenerateDraft runs draft assembly and streams the finished document. A
// locked gate is answered before any workflow is started.
func (h *Handler) GenerateDraft(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	applicationID := chi.URLParam(r, "applicationId")
	if err := h.tracker.EnsureGeneratable(r.Context(), sess, applicationID); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.drafts.RunDraftAssembly(r.Context(), sess.ID, applicationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.streamDraft(w, r, sess, applicationID, rec.ID)
}

func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.tracker.Drafts(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": drafts})
}

func (h *Handler) DownloadDraft(w http.ResponseWriter, r *http.Request) {
	h.streamDraft(w, r, sessionFrom(r), chi.URLParam(r, "applicationId"), chi.URLParam(r, "draftId"))
}

func (h *Handler) streamDraft(w http.ResponseWriter, r *http.Request, sess domain.Session, applicationID, draftID string) {
	rc, rec, err := h.tracker.OpenDraft(r.Context(), sess, applicationID, draftID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", storage.DraftContentType)
	w.Header().Set("Content-Disposition", attachmentDisposition(applicationID+"-response.docx"))
	if rec.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		log.Warn().Err(err).Str("draft_id", draftID).Msg("draft stream interrupted")
	}
}

func attachmentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// FormatClaims renders a comma separated claim list as ranges, e.g.
// "1,2,3,5" becomes "1-3, 5".
func (h *Handler) FormatClaims(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("claims"))
	claims := []int{}
	if raw != "" {
		for _, part := range strings.Split(raw, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n <= 0 {
				writeError(w, r, &domain.FieldError{Field: "claims", Message: fmt.Sprintf("%q is not a claim number", part)})
				return
			}
			claims = append(claims, n)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"formatted": domain.FormatClaimRanges(claims)})
}
