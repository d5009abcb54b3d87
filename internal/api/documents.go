package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"office-action-orchestrator/internal/domain"
)

type documentStateResponse struct {
	domain.ApplicationDocumentState
	Flags          domain.DocumentFlags `json:"flags"`
	DocumentsReady bool                 `json:"documentsReady"`
}

func newDocumentStateResponse(st domain.ApplicationDocumentState) documentStateResponse {
	return documentStateResponse{
		ApplicationDocumentState: st,
		Flags:                    st.Flags(),
		DocumentsReady:           st.AllDocumentsReady(),
	}
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	apps, err := h.tracker.ListApplications(r.Context(), sessionFrom(r), all)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": apps})
}

type analyseRequest struct {
	ApplicationNumber string `json:"applicationNumber" validate:"required"`
}

func (h *Handler) AnalyseApplication(w http.ResponseWriter, r *http.Request) {
	var req analyseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.tracker.AnalyseApplication(r.Context(), sessionFrom(r), req.ApplicationNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) UploadApplication(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, h.maxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.tracker.UploadApplication(r.Context(), sessionFrom(r), up.filename, up.contentType, up.body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.tracker.Application(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type updateClaimsRequest struct {
	Claims string `json:"claims" validate:"required"`
}

func (h *Handler) UpdateClaims(w http.ResponseWriter, r *http.Request) {
	var req updateClaimsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.tracker.UpdateClaims(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), req.Claims)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) GetDocumentState(w http.ResponseWriter, r *http.Request) {
	st, err := h.tracker.DocumentState(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentStateResponse(st))
}

type setFlagRequest struct {
	Field string `json:"field" validate:"required"`
	Value *bool  `json:"value" validate:"required"`
}

func (h *Handler) SetArtifactStatus(w http.ResponseWriter, r *http.Request) {
	var req setFlagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := h.tracker.SetArtifactStatus(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), req.Field, *req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentStateResponse(st))
}

type collectRequest struct {
	Artifacts []domain.Artifact `json:"artifacts"`
}

func (h *Handler) CollectArtifacts(w http.ResponseWriter, r *http.Request) {
	var req collectRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	started, err := h.tracker.CollectArtifacts(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), req.Artifacts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"artifacts": started})
}

func (h *Handler) UploadClaims(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, h.maxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.tracker.UploadClaims(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), up.filename, up.contentType, up.body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rec)
}

type upload struct {
	filename    string
	contentType string
	body        []byte
}

// readUpload reads the "file" form field, at most maxBytes+1 bytes so an
// oversized file is still detected by the upload guard.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return upload{}, &domain.FieldError{Field: "file", Message: "file exceeds size limit"}
		}
		return upload{}, &domain.FieldError{Field: "file", Message: "invalid multipart payload"}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return upload{}, &domain.FieldError{Field: "file", Message: "file form field is required"}
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return upload{}, &domain.FieldError{Field: "file", Message: "failed to read file"}
	}
	return upload{
		filename:    header.Filename,
		contentType: header.Header.Get("Content-Type"),
		body:        body,
	}, nil
}
