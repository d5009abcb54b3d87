package backend

import (
	"context"

	"office-action-orchestrator/internal/domain"
)

type analyseBody struct {
	Token             string `json:"token"`
	ApplicationNumber string `json:"applicationNumber"`
}

type updateClaimsBody struct {
	Token         string `json:"token"`
	ApplicationID string `json:"applicationId"`
	Claims        string `json:"claims"`
}

func (c *HTTPClient) AnalyseApplication(ctx context.Context, token, applicationNumber string) (domain.Application, error) {
	return c.application(ctx, "/application/analyse", analyseBody{Token: token, ApplicationNumber: applicationNumber})
}

func (c *HTTPClient) UploadApplication(ctx context.Context, token, filename string, content []byte) (domain.Application, error) {
	var app domain.Application
	if err := c.postMultipart(ctx, "/application/upload", map[string]string{"token": token}, filename, content, &app); err != nil {
		return domain.Application{}, err
	}
	if err := domain.ValidatePayload("application", app); err != nil {
		return domain.Application{}, err
	}
	return app, nil
}

func (c *HTTPClient) FetchLatestApplications(ctx context.Context, token string) ([]domain.Application, error) {
	return c.applications(ctx, "/application/fetchLatestThreeApplication", token)
}

func (c *HTTPClient) FetchAllApplications(ctx context.Context, token string) ([]domain.Application, error) {
	return c.applications(ctx, "/application/fetchAllApplication", token)
}

func (c *HTTPClient) UploadClaims(ctx context.Context, token, applicationID, filename string, content []byte) (domain.Application, error) {
	var app domain.Application
	fields := map[string]string{"token": token, "applicationId": applicationID}
	if err := c.postMultipart(ctx, "/application/uploadClaims", fields, filename, content, &app); err != nil {
		return domain.Application{}, err
	}
	if err := domain.ValidatePayload("application", app); err != nil {
		return domain.Application{}, err
	}
	return app, nil
}

func (c *HTTPClient) FetchSubjectDescription(ctx context.Context, token, applicationID string) (domain.Application, error) {
	return c.application(ctx, "/application/fetchSubjectDescription", applicationBody{Token: token, ApplicationID: applicationID})
}

func (c *HTTPClient) FetchPriorArtDescription(ctx context.Context, token, applicationID string) (domain.Application, error) {
	return c.application(ctx, "/application/fetchPriorArtDescription", applicationBody{Token: token, ApplicationID: applicationID})
}

func (c *HTTPClient) UpdateClaims(ctx context.Context, token, applicationID, claims string) (domain.Application, error) {
	return c.application(ctx, "/application/updateClaims", updateClaimsBody{Token: token, ApplicationID: applicationID, Claims: claims})
}

func (c *HTTPClient) FetchLatestAmendedClaim(ctx context.Context, token, applicationID string) (domain.Application, error) {
	return c.application(ctx, "/application/fetchLatestAmendedClaim", applicationBody{Token: token, ApplicationID: applicationID})
}

func (c *HTTPClient) application(ctx context.Context, path string, body any) (domain.Application, error) {
	var app domain.Application
	if err := c.postJSON(ctx, path, true, body, &app); err != nil {
		return domain.Application{}, err
	}
	if err := domain.ValidatePayload("application", app); err != nil {
		return domain.Application{}, err
	}
	return app, nil
}

func (c *HTTPClient) applications(ctx context.Context, path, token string) ([]domain.Application, error) {
	apps := make([]domain.Application, 0)
	if err := c.postJSON(ctx, path, true, tokenBody{Token: token}, &apps); err != nil {
		return nil, err
	}
	for _, app := range apps {
		if err := domain.ValidatePayload("application", app); err != nil {
			return nil, err
		}
	}
	return apps, nil
}
