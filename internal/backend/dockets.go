package backend

import (
	"context"
	"fmt"

	"office-action-orchestrator/internal/domain"
)

type StrategyRequest struct {
	ApplicationID string
	RejectionID   string
	DocketID      string
	RejectionType domain.RejectionType
	Strategy      domain.Strategy
}

type FinalizeRequest struct {
	ApplicationID string
	RejectionID   string
	DocketID      string
	FinalizedType domain.Strategy
}

type docketBody struct {
	Token         string `json:"token"`
	ApplicationID string `json:"applicationId"`
	RejectionID   string `json:"rejectionId"`
	DocketID      string `json:"docketId,omitempty"`
	FinalizedType string `json:"finalizedType,omitempty"`
}

type otherRejectionBody struct {
	Token         string `json:"token"`
	ApplicationID string `json:"applicationId"`
	RejectionID   string `json:"rejectionId"`
	Response      string `json:"response,omitempty"`
}

type rejectionStatus struct {
	IsFinalized bool `json:"isFinalized"`
}

// GenerateDocket starts per-rejection analysis. Only 102 and 103 rejections
// can be analysed by the backend.
func (c *HTTPClient) GenerateDocket(ctx context.Context, token, applicationID, rejectionID string, rejectionType domain.RejectionType) (domain.Docket, error) {
	if !rejectionType.Analyzable() {
		return domain.Docket{}, &domain.FieldError{Field: "rejectionType", Message: fmt.Sprintf("%s rejections cannot be analysed", rejectionType)}
	}
	return c.docket(ctx, "/docket/generate", docketBody{Token: token, ApplicationID: applicationID, RejectionID: rejectionID})
}

func (c *HTTPClient) GenerateStrategy(ctx context.Context, token string, req StrategyRequest) (domain.Docket, error) {
	if !req.RejectionType.Analyzable() {
		return domain.Docket{}, &domain.FieldError{Field: "rejectionType", Message: fmt.Sprintf("%s rejections have no amendment strategies", req.RejectionType)}
	}
	if !req.Strategy.Valid() {
		return domain.Docket{}, &domain.FieldError{Field: "strategy", Message: fmt.Sprintf("unknown strategy %q", req.Strategy)}
	}
	path := fmt.Sprintf("/tabs/%s/%s", req.RejectionType, req.Strategy.TabPath())
	return c.docket(ctx, path, docketBody{
		Token:         token,
		ApplicationID: req.ApplicationID,
		RejectionID:   req.RejectionID,
		DocketID:      req.DocketID,
	})
}

func (c *HTTPClient) RejectionStatus(ctx context.Context, token, applicationID, rejectionID string) (bool, error) {
	var out rejectionStatus
	err := c.postJSON(ctx, "/rejection/status", true, docketBody{Token: token, ApplicationID: applicationID, RejectionID: rejectionID}, &out)
	if err != nil {
		return false, err
	}
	return out.IsFinalized, nil
}

func (c *HTTPClient) FinalizeRejection(ctx context.Context, token string, req FinalizeRequest) error {
	return c.postJSON(ctx, "/rejection/finalize", true, docketBody{
		Token:         token,
		ApplicationID: req.ApplicationID,
		RejectionID:   req.RejectionID,
		DocketID:      req.DocketID,
		FinalizedType: string(req.FinalizedType),
	}, nil)
}

func (c *HTTPClient) FetchOtherRejection(ctx context.Context, token, applicationID, rejectionID string) (domain.OtherRejectionResponse, error) {
	return c.otherRejection(ctx, "/rejection/other/fetch", otherRejectionBody{Token: token, ApplicationID: applicationID, RejectionID: rejectionID})
}

func (c *HTTPClient) SaveOtherRejection(ctx context.Context, token, applicationID, rejectionID, response string) (domain.OtherRejectionResponse, error) {
	return c.otherRejection(ctx, "/rejection/other/save", otherRejectionBody{Token: token, ApplicationID: applicationID, RejectionID: rejectionID, Response: response})
}

func (c *HTTPClient) GenerateOtherRejection(ctx context.Context, token, applicationID, rejectionID string) (domain.OtherRejectionResponse, error) {
	return c.otherRejection(ctx, "/rejection/other/generate", otherRejectionBody{Token: token, ApplicationID: applicationID, RejectionID: rejectionID})
}

func (c *HTTPClient) FinalizeOtherRejection(ctx context.Context, token, applicationID, rejectionID string) (domain.OtherRejectionResponse, error) {
	return c.otherRejection(ctx, "/rejection/other/finalize", otherRejectionBody{Token: token, ApplicationID: applicationID, RejectionID: rejectionID})
}

func (c *HTTPClient) docket(ctx context.Context, path string, body docketBody) (domain.Docket, error) {
	var d domain.Docket
	if err := c.postJSON(ctx, path, true, body, &d); err != nil {
		return domain.Docket{}, err
	}
	if err := domain.ValidatePayload("docket", d); err != nil {
		return domain.Docket{}, err
	}
	return d, nil
}

func (c *HTTPClient) otherRejection(ctx context.Context, path string, body otherRejectionBody) (domain.OtherRejectionResponse, error) {
	var out domain.OtherRejectionResponse
	if err := c.postJSON(ctx, path, true, body, &out); err != nil {
		return domain.OtherRejectionResponse{}, err
	}
	if err := domain.ValidatePayload("other rejection", out); err != nil {
		return domain.OtherRejectionResponse{}, err
	}
	return out, nil
}
