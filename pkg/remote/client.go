// Package remote is the HTTP client for the documentation platform's asset
// graph: specs, generated collections, environments and the asynchronous
// tasks that connect them.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
)

// Config holds the connection settings for the documentation platform.
type Config struct {
	// BaseURL is the platform API root, without a trailing slash.
	BaseURL string

	// APIKey is sent on every request in the x-api-key header.
	APIKey string

	// WorkspaceID scopes spec, collection and environment operations.
	WorkspaceID string

	// Timeout bounds each individual HTTP call. Defaults to 30s.
	Timeout time.Duration
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.APIKey, validation.Required),
		validation.Field(&c.WorkspaceID, validation.Required),
	)
}

// APIError is a non-success platform response. The accepted-async status
// (202) on generation and synchronization requests is not an error.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API error: %s %s returned %d: %s",
		e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the documentation platform.
type Client struct {
	cfg    Config
	client *http.Client
	log    hclog.Logger
}

// NewClient creates a Client from cfg. A nil logger is replaced with a null
// logger.
func NewClient(cfg Config, log hclog.Logger) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid platform client config: %w", err)
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.Named("remote"),
	}, nil
}

// Spec is a remote spec container.
type Spec struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Collection is a remote request collection.
type Collection struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// Environment is a remote variable set.
type Environment struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// EnvironmentValue is one variable in an environment.
type EnvironmentValue struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// TaskRef locates an asynchronous task accepted by the platform.
type TaskRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Locator returns the pollable path for the task.
func (t TaskRef) Locator() string {
	if t.URL != "" {
		return t.URL
	}
	return "/tasks/" + t.ID
}

// do issues one request and returns the status code and raw body. Transport
// failures are returned as errors; HTTP status handling is left to the
// caller, which knows which statuses each endpoint accepts.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (int, []byte, error) {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("platform request", "method", method, "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read %s %s response: %w", method, path, err)
	}
	return resp.StatusCode, respBody, nil
}

// call issues a request expecting one of the given statuses, decoding the
// body into result when non-nil. Any other status is an *APIError.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, result interface{}, accept ...int) (int, error) {
	status, respBody, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return 0, err
	}

	accepted := false
	for _, s := range accept {
		if status == s {
			accepted = true
			break
		}
	}
	if !accepted {
		return status, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: status,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return status, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
	}
	return status, nil
}

func (c *Client) workspaceQuery() url.Values {
	return url.Values{"workspaceId": []string{c.cfg.WorkspaceID}}
}

// CreateSpec creates a spec with one inline root file and returns it.
func (c *Client) CreateSpec(ctx context.Context, name, filePath, content string) (*Spec, error) {
	body := map[string]interface{}{
		"name": name,
		"type": "OPENAPI:3.0",
		"files": []map[string]string{
			{"path": filePath, "content": content},
		},
	}
	var spec Spec
	if _, err := c.call(ctx, http.MethodPost, "/specs", c.workspaceQuery(), body, &spec,
		http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	c.log.Info("created spec", "name", name, "id", spec.ID)
	return &spec, nil
}

// UpdateSpecFile replaces the content of one file in a spec.
func (c *Client) UpdateSpecFile(ctx context.Context, specID, filePath, content string) error {
	path := fmt.Sprintf("/specs/%s/files/%s", specID, filePath)
	body := map[string]string{"content": content}
	if _, err := c.call(ctx, http.MethodPatch, path, nil, body, nil, http.StatusOK); err != nil {
		return err
	}
	c.log.Info("updated spec file", "spec_id", specID, "path", filePath)
	return nil
}

// ListSpecs lists the workspace's specs for name resolution.
func (c *Client) ListSpecs(ctx context.Context) ([]Spec, error) {
	var result struct {
		Specs []Spec `json:"specs"`
	}
	if _, err := c.call(ctx, http.MethodGet, "/specs", c.workspaceQuery(), nil, &result,
		http.StatusOK); err != nil {
		return nil, err
	}
	return result.Specs, nil
}

// FindSpecByName returns the workspace spec with the given name, or nil.
func (c *Client) FindSpecByName(ctx context.Context, name string) (*Spec, error) {
	specs, err := c.ListSpecs(ctx)
	if err != nil {
		return nil, err
	}
	for i := range specs {
		if specs[i].Name == name {
			return &specs[i], nil
		}
	}
	return nil, nil
}

// ListSpecCollections lists the collections generated from a spec.
func (c *Client) ListSpecCollections(ctx context.Context, specID string) ([]Collection, error) {
	path := fmt.Sprintf("/specs/%s/collections", specID)
	var result struct {
		Collections []Collection `json:"collections"`
	}
	if _, err := c.call(ctx, http.MethodGet, path, nil, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Collections, nil
}

// ListCollections lists the workspace's collections for name resolution.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	var result struct {
		Collections []Collection `json:"collections"`
	}
	if _, err := c.call(ctx, http.MethodGet, "/collections", c.workspaceQuery(), nil, &result,
		http.StatusOK); err != nil {
		return nil, err
	}
	return result.Collections, nil
}

// FindCollectionByName returns the workspace collection with the given name,
// or nil.
func (c *Client) FindCollectionByName(ctx context.Context, name string) (*Collection, error) {
	collections, err := c.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	for i := range collections {
		if collections[i].Name == name {
			return &collections[i], nil
		}
	}
	return nil, nil
}

// GenerationOptions control how the platform derives a collection from a
// spec.
type GenerationOptions struct {
	FolderStrategy           string `json:"folderStrategy"`
	ParametersResolution     string `json:"parametersResolution"`
	IncludeDeprecated        bool   `json:"includeDeprecated"`
	EnableImplicitHeaders    bool   `json:"enableImplicitHeaders"`
	IncludeAuthInfoInExample bool   `json:"includeAuthInfoInExample"`
}

// DefaultGenerationOptions is the fixed option set used for every generated
// collection: folder per path, schema-based parameters, deprecated
// operations included, implicit headers and auth inheritance excluded.
func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{
		FolderStrategy:           "Paths",
		ParametersResolution:     "Schema",
		IncludeDeprecated:        true,
		EnableImplicitHeaders:    false,
		IncludeAuthInfoInExample: false,
	}
}

type taskResponse struct {
	Task TaskRef `json:"task"`
}

// GenerateCollection starts asynchronous collection generation from a spec.
// The platform must accept the request asynchronously (202); any other
// response is a configuration or permission error.
func (c *Client) GenerateCollection(ctx context.Context, specID, name string, opts GenerationOptions) (TaskRef, error) {
	path := fmt.Sprintf("/specs/%s/generations/collection", specID)
	body := map[string]interface{}{
		"name":    name,
		"options": opts,
	}
	var result taskResponse
	if _, err := c.call(ctx, http.MethodPost, path, c.workspaceQuery(), body, &result,
		http.StatusAccepted); err != nil {
		return TaskRef{}, err
	}
	c.log.Info("collection generation accepted", "spec_id", specID, "task", result.Task.Locator())
	return result.Task, nil
}

// SyncCollection starts asynchronous synchronization of a collection with
// its linked spec.
func (c *Client) SyncCollection(ctx context.Context, collectionUID, specID string) (TaskRef, error) {
	path := fmt.Sprintf("/collections/%s/synchronizations", collectionUID)
	query := url.Values{"specId": []string{specID}}
	var result taskResponse
	if _, err := c.call(ctx, http.MethodPut, path, query, nil, &result,
		http.StatusAccepted); err != nil {
		return TaskRef{}, err
	}
	c.log.Info("collection sync accepted", "collection_uid", collectionUID, "task", result.Task.Locator())
	return result.Task, nil
}

// ListEnvironments lists the workspace's environments.
func (c *Client) ListEnvironments(ctx context.Context) ([]Environment, error) {
	var result struct {
		Environments []Environment `json:"environments"`
	}
	if _, err := c.call(ctx, http.MethodGet, "/environments", c.workspaceQuery(), nil, &result,
		http.StatusOK); err != nil {
		return nil, err
	}
	return result.Environments, nil
}

// FindEnvironmentByName returns the workspace environment with the given
// name, or nil.
func (c *Client) FindEnvironmentByName(ctx context.Context, name string) (*Environment, error) {
	environments, err := c.ListEnvironments(ctx)
	if err != nil {
		return nil, err
	}
	for i := range environments {
		if environments[i].Name == name {
			return &environments[i], nil
		}
	}
	return nil, nil
}

type environmentBody struct {
	Environment struct {
		Name   string             `json:"name"`
		Values []EnvironmentValue `json:"values"`
	} `json:"environment"`
}

type environmentResponse struct {
	Environment Environment `json:"environment"`
}

// CreateEnvironment creates a named environment and returns its identifier.
func (c *Client) CreateEnvironment(ctx context.Context, name string, values []EnvironmentValue) (string, error) {
	var body environmentBody
	body.Environment.Name = name
	body.Environment.Values = values

	var result environmentResponse
	if _, err := c.call(ctx, http.MethodPost, "/environments", c.workspaceQuery(), body, &result,
		http.StatusOK, http.StatusCreated); err != nil {
		return "", err
	}
	c.log.Info("created environment", "name", name, "uid", result.Environment.UID)
	return result.Environment.UID, nil
}

// UpdateEnvironment replaces the named environment's variables.
func (c *Client) UpdateEnvironment(ctx context.Context, uid, name string, values []EnvironmentValue) error {
	var body environmentBody
	body.Environment.Name = name
	body.Environment.Values = values

	if _, err := c.call(ctx, http.MethodPut, "/environments/"+uid, nil, body, nil,
		http.StatusOK); err != nil {
		return err
	}
	c.log.Info("updated environment", "name", name, "uid", uid)
	return nil
}
