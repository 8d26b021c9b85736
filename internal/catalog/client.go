package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrApplicationNotFound is returned when no deployment type exists for the
// requested application display name.
var ErrApplicationNotFound = errors.New("application not found in catalog")

// DeploymentType is the catalog record synchronized after a content refresh.
type DeploymentType struct {
	// ApplicationID is the catalog identifier of the owning application.
	ApplicationID string `json:"applicationId"`
	// ApplicationName is the localized display name the record was found by.
	ApplicationName string `json:"applicationName"`
	// Name is the deployment type name within the application.
	Name string `json:"name"`
	// Descriptor is the deployment descriptor XML holding, among other
	// things, the enhanced detection method settings.
	Descriptor string `json:"descriptor"`
}

// Client is the catalog surface consumed by the refresher pipeline.
type Client interface {
	// DeploymentTypeByApplication looks up the deployment type of the
	// application with the given display name. Returns
	// ErrApplicationNotFound when the catalog has no such application.
	DeploymentTypeByApplication(ctx context.Context, displayName string) (*DeploymentType, error)

	// ReplaceDetectionClause atomically removes the clause with the given
	// logical name and installs the provided registry version clause.
	ReplaceDetectionClause(ctx context.Context, dt *DeploymentType, oldLogicalName string, clause *RegistryVersionClause) error

	// RedistributeContent asks the catalog to push the deployment type's
	// content to its distribution points again.
	RedistributeContent(ctx context.Context, dt *DeploymentType) error
}

// HTTPClient implements Client against a REST admin service.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient returns a client for the admin service at baseURL.
// The token is optional; when set it is sent as a bearer token.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// DeploymentTypeByApplication implements Client.
func (c *HTTPClient) DeploymentTypeByApplication(ctx context.Context, displayName string) (*DeploymentType, error) {
	endpoint := fmt.Sprintf("%s/v1.0/DeploymentTypes?applicationName=%s",
		c.baseURL, url.QueryEscape(displayName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%q: %w", displayName, ErrApplicationNotFound)
	default:
		return nil, fmt.Errorf("lookup deployment type: unexpected status %s", resp.Status)
	}

	var dt DeploymentType
	if err := json.NewDecoder(resp.Body).Decode(&dt); err != nil {
		return nil, fmt.Errorf("decode deployment type: %w", err)
	}

	return &dt, nil
}

// replaceDetectionRequest is the body of a detection-clause replacement call.
type replaceDetectionRequest struct {
	RemoveLogicalName string                 `json:"removeLogicalName"`
	Clause            *RegistryVersionClause `json:"clause"`
}

// ReplaceDetectionClause implements Client.
func (c *HTTPClient) ReplaceDetectionClause(ctx context.Context, dt *DeploymentType, oldLogicalName string, clause *RegistryVersionClause) error {
	body, err := json.Marshal(replaceDetectionRequest{
		RemoveLogicalName: oldLogicalName,
		Clause:            clause,
	})
	if err != nil {
		return fmt.Errorf("marshal detection clause: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1.0/Applications/%s/DeploymentTypes/%s/DetectionMethod",
		c.baseURL, url.PathEscape(dt.ApplicationID), url.PathEscape(dt.Name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build detection request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("replace detection clause: unexpected status %s", resp.Status)
	}

	return nil
}

// RedistributeContent implements Client.
func (c *HTTPClient) RedistributeContent(ctx context.Context, dt *DeploymentType) error {
	endpoint := fmt.Sprintf("%s/v1.0/Applications/%s/DeploymentTypes/%s/RedistributeContent",
		c.baseURL, url.PathEscape(dt.ApplicationID), url.PathEscape(dt.Name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build redistribution request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK &&
		resp.StatusCode != http.StatusAccepted &&
		resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("redistribute content: unexpected status %s", resp.Status)
	}

	return nil
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}

	return resp, nil
}
