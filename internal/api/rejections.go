package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"office-action-orchestrator/internal/domain"
)

type rejectionStateResponse struct {
	domain.RejectionAnalysisState
	Flags map[domain.Strategy]domain.StrategyFlags `json:"flags"`
}

func newRejectionStateResponse(st domain.RejectionAnalysisState) rejectionStateResponse {
	return rejectionStateResponse{RejectionAnalysisState: st, Flags: st.Flags()}
}

func strategyParam(r *http.Request) (domain.Strategy, error) {
	s := domain.Strategy(chi.URLParam(r, "strategy"))
	if !s.Valid() {
		return "", &domain.FieldError{Field: "strategy", Message: "unknown strategy " + string(s)}
	}
	return s, nil
}

func (h *Handler) GenerateDocket(w http.ResponseWriter, r *http.Request) {
	docket, err := h.tracker.GenerateDocket(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), chi.URLParam(r, "rejectionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docket)
}

func (h *Handler) GetRejectionState(w http.ResponseWriter, r *http.Request) {
	st, err := h.tracker.RejectionState(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), chi.URLParam(r, "docketId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRejectionStateResponse(st))
}

type setRejectionFlagRequest struct {
	Name  string `json:"name" validate:"required"`
	Value *bool  `json:"value" validate:"required"`
}

func (h *Handler) SetRejectionFlag(w http.ResponseWriter, r *http.Request) {
	strategy, err := strategyParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req setRejectionFlagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := h.tracker.SetRejectionFlag(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), chi.URLParam(r, "docketId"), strategy, req.Name, *req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRejectionStateResponse(st))
}

func (h *Handler) GenerateStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, err := strategyParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	docket, st, err := h.tracker.GenerateStrategy(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), chi.URLParam(r, "docketId"), strategy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"docket": docket,
		"state":  newRejectionStateResponse(st),
	})
}

func (h *Handler) FinalizeStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, err := strategyParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, status, err := h.tracker.FinalizeStrategy(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), chi.URLParam(r, "docketId"), strategy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":              newRejectionStateResponse(st),
		"finalizationStatus": status,
	})
}

func (h *Handler) FetchOtherRejection(w http.ResponseWriter, r *http.Request) {
	resp, err := h.tracker.FetchOtherRejection(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), chi.URLParam(r, "rejectionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type saveOtherRejectionRequest struct {
	Response string `json:"response" validate:"required"`
}

func (h *Handler) SaveOtherRejection(w http.ResponseWriter, r *http.Request) {
	var req saveOtherRejectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.tracker.SaveOtherRejection(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), chi.URLParam(r, "rejectionId"), req.Response)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GenerateOtherRejection(w http.ResponseWriter, r *http.Request) {
	resp, err := h.tracker.GenerateOtherRejection(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), chi.URLParam(r, "rejectionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) FinalizeOtherRejection(w http.ResponseWriter, r *http.Request) {
	resp, status, err := h.tracker.FinalizeOtherRejection(r.Context(), sessionFrom(r), chi.URLParam(r, "applicationId"), chi.URLParam(r, "rejectionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rejection":          resp,
		"finalizationStatus": status,
	})
}
