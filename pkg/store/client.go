package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/retry"
)

// DefaultTimeout is the maximum time to wait for a store response.
const DefaultTimeout = 30 * time.Second

// ClientConfig configures the HTTP store client.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Retry   *retry.Config
}

// Client is the HTTP implementation of Store and Uploader.
type Client struct {
	baseURL    string
	token      string
	retry      *retry.Config
	httpClient *http.Client
	logger     *zap.Logger
}

var (
	_ Store    = (*Client)(nil)
	_ Uploader = (*Client)(nil)
)

// NewClient creates a store client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	policy := cfg.Retry
	if policy == nil {
		policy = retry.DefaultConfig()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		retry:      policy,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("store"),
	}
}

// listResponse is the paginated envelope. Non-paginated endpoints return a bare array.
type listResponse struct {
	Data []models.RemoteEntity `json:"data"`
	Meta struct {
		Pagination Pagination `json:"pagination"`
	} `json:"meta"`
}

type entityResponse struct {
	Data models.RemoteEntity `json:"data"`
}

// List fetches one page of a collection.
func (c *Client) List(ctx context.Context, collection string, q Query) (*Page, error) {
	endpoint, err := buildURL(c.baseURL, "api", collection)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	if encoded := q.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	body, err := c.do(ctx, "list", collection, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var data []models.RemoteEntity
		if err := json.Unmarshal(trimmed, &data); err != nil {
			return nil, fmt.Errorf("failed to parse %s listing: %w", collection, err)
		}
		return &Page{Data: data}, nil
	}

	var resp listResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse %s listing: %w", collection, err)
	}
	return &Page{Data: resp.Data, Pagination: resp.Meta.Pagination}, nil
}

// Create creates a document and returns it as stored.
func (c *Client) Create(ctx context.Context, collection string, fields map[string]any) (*models.RemoteEntity, error) {
	endpoint, err := buildURL(c.baseURL, "api", collection)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	return c.write(ctx, "create", collection, http.MethodPost, endpoint, fields)
}

// Update patches the given fields of a document.
func (c *Client) Update(ctx context.Context, collection, documentID string, fields map[string]any) (*models.RemoteEntity, error) {
	endpoint, err := buildURL(c.baseURL, "api", collection, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	return c.write(ctx, "update", collection, http.MethodPut, endpoint, fields)
}

// Delete removes a document.
func (c *Client) Delete(ctx context.Context, collection, documentID string) error {
	endpoint, err := buildURL(c.baseURL, "api", collection, documentID)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	_, err = c.do(ctx, "delete", collection, http.MethodDelete, endpoint, nil, "")
	return err
}

func (c *Client) write(ctx context.Context, op, collection, method, endpoint string, fields map[string]any) (*models.RemoteEntity, error) {
	// The upload registry takes bare attributes; documents take the data envelope.
	var envelope any = map[string]any{"data": fields}
	if collection == CollectionFiles {
		envelope = fields
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", collection, err)
	}

	body, err := c.do(ctx, op, collection, method, endpoint, data, "application/json")
	if err != nil {
		return nil, err
	}

	if collection == CollectionFiles {
		var entity models.RemoteEntity
		if err := json.Unmarshal(body, &entity); err != nil {
			return nil, fmt.Errorf("failed to parse %s response: %w", collection, err)
		}
		return &entity, nil
	}

	var resp entityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", collection, err)
	}
	return &resp.Data, nil
}

// do executes a request and returns the response body. Idempotent methods are retried on
// transient failures with the body reader recreated for every attempt. POST is sent once:
// a timed-out create or upload may already be stored, and resending it duplicates the record.
func (c *Client) do(ctx context.Context, op, collection, method, endpoint string, payload []byte, contentType string) ([]byte, error) {
	attempt := func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		return c.send(req, op, collection)
	}

	if method == http.MethodPost {
		return attempt()
	}
	return retry.DoWithResultIfRetryable(ctx, c.retry, attempt)
}

// send authenticates and executes a prepared request.
func (c *Client) send(req *http.Request, op, collection string) ([]byte, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Calling store",
		zap.String("op", op),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call store: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		storeErr := newError(op, collection, resp.StatusCode, body)
		c.logger.Warn("Store returned error",
			zap.String("op", op),
			zap.String("collection", collection),
			zap.Int("status", resp.StatusCode),
			zap.String("message", storeErr.Message))
		return nil, storeErr
	}

	return body, nil
}

// buildURL safely constructs a URL by joining path segments to a base URL.
func buildURL(baseURL string, segments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	parts := append([]string{u.Path}, segments...)
	u.Path = path.Join(parts...)

	return u.String(), nil
}
