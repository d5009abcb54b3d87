package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"office-action-orchestrator/internal/domain"
)

const draftGeneratePath = "/draft/generate"

func (c *HTTPClient) PreviewDraft(ctx context.Context, token, applicationID string) (domain.DraftPreview, error) {
	var out domain.DraftPreview
	if err := c.postJSON(ctx, "/draft/preview", true, applicationBody{Token: token, ApplicationID: applicationID}, &out); err != nil {
		return domain.DraftPreview{}, err
	}
	if err := domain.ValidatePayload("draft preview", out); err != nil {
		return domain.DraftPreview{}, err
	}
	return out, nil
}

// GenerateDraft returns the raw response document. Error answers are still
// JSON envelopes and are classified like every other call.
func (c *HTTPClient) GenerateDraft(ctx context.Context, token, applicationID string) (doc []byte, err error) {
	start := time.Now()
	defer func() { c.record(draftGeneratePath, err, time.Since(start)) }()

	body, err := json.Marshal(applicationBody{Token: token, ApplicationID: applicationID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+draftGeneratePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/octet-stream")

	respBody, status, err := c.roundTrip(req, draftGeneratePath)
	if err != nil {
		return nil, err
	}
	if err := classify(status, respBody, true); err != nil {
		return nil, err
	}
	if len(respBody) == 0 {
		return nil, &domain.PayloadError{Kind: "draft", Err: errors.New("empty document")}
	}
	if bytes.HasPrefix(bytes.TrimSpace(respBody), []byte("{")) {
		var env envelope
		if json.Unmarshal(respBody, &env) == nil && env.Success != nil && !*env.Success {
			return nil, &RequestError{StatusCode: status, Message: env.Message}
		}
		return nil, &domain.PayloadError{Kind: "draft", Err: fmt.Errorf("expected binary document, got json")}
	}
	return respBody, nil
}
