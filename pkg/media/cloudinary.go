// Package media talks to the media provider that backs the store's upload registry.
package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/apperrors"
	"github.com/eknihyzdarma/catalog-migrator/pkg/logging"
	"github.com/eknihyzdarma/catalog-migrator/pkg/retry"
)

// Resource types known to the provider.
const (
	ResourceImage = "image"
	ResourceRaw   = "raw"
)

// Provider re-uploads files and removes stale resources.
type Provider interface {
	// UploadRaw stores data under publicID with raw delivery, overwriting an existing resource.
	UploadRaw(ctx context.Context, data []byte, filename, publicID string) (*Uploaded, error)
	// Destroy removes a resource of the given type.
	Destroy(ctx context.Context, publicID, resourceType string) error
}

// Uploaded describes a stored resource.
type Uploaded struct {
	PublicID     string `json:"public_id"`
	SecureURL    string `json:"secure_url"`
	ResourceType string `json:"resource_type"`
}

// Config configures the Cloudinary client.
type Config struct {
	BaseURL   string
	CloudName string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	Retry     *retry.Config
}

type cloudinary struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger
}

var _ Provider = (*cloudinary)(nil)

// NewCloudinary returns a Provider using Cloudinary's signed upload API.
func NewCloudinary(cfg Config, logger *zap.Logger) (Provider, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: cloudinary cloud name, api key and api secret are required", apperrors.ErrMissingCredential)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &cloudinary{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		logger:     logger.Named("media"),
	}, nil
}

func (c *cloudinary) UploadRaw(ctx context.Context, data []byte, filename, publicID string) (*Uploaded, error) {
	endpoint, err := c.endpoint(ResourceRaw, "upload")
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"overwrite": "true",
		"public_id": publicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write multipart body: %w", err)
	}
	for _, k := range sortedKeys(params) {
		if err := mw.WriteField(k, params[k]); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := mw.WriteField("api_key", c.cfg.APIKey); err != nil {
		return nil, fmt.Errorf("failed to write field api_key: %w", err)
	}
	if err := mw.WriteField("signature", Sign(params, c.cfg.APISecret)); err != nil {
		return nil, fmt.Errorf("failed to write field signature: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	c.logger.Info("Uploading raw resource",
		zap.String("public_id", publicID),
		zap.String("filename", filename),
		zap.Int("bytes", len(data)))

	body, err := c.post(ctx, endpoint, buf.Bytes(), mw.FormDataContentType())
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", filename, err)
	}

	var out Uploaded
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	if out.SecureURL == "" {
		return nil, fmt.Errorf("upload of %s returned no url", filename)
	}
	return &out, nil
}

func (c *cloudinary) Destroy(ctx context.Context, publicID, resourceType string) error {
	endpoint, err := c.endpoint(resourceType, "destroy")
	if err != nil {
		return err
	}

	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", c.cfg.APIKey)
	form.Set("signature", Sign(params, c.cfg.APISecret))

	body, err := c.post(ctx, endpoint, []byte(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return fmt.Errorf("failed to destroy %s: %w", publicID, err)
	}

	var out struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("failed to parse destroy response: %w", err)
	}
	switch out.Result {
	case "ok":
		return nil
	case "not found":
		return fmt.Errorf("destroy %s: %w", publicID, apperrors.ErrNotFound)
	default:
		return fmt.Errorf("destroy %s returned %q", publicID, out.Result)
	}
}

func (c *cloudinary) post(ctx context.Context, endpoint string, payload []byte, contentType string) ([]byte, error) {
	return retry.DoWithResultIfRetryable(ctx, c.cfg.Retry, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to call media provider: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			c.logger.Error("Media provider returned error",
				zap.Int("status", resp.StatusCode),
				zap.String("body", logging.SanitizeBody(body)))
			return nil, fmt.Errorf("media provider returned status %d: %s", resp.StatusCode, logging.SanitizeBody(body))
		}
		return body, nil
	})
}

func (c *cloudinary) endpoint(resourceType, action string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid media base URL: %w", err)
	}
	u.Path = path.Join(u.Path, c.cfg.CloudName, resourceType, action)
	return u.String(), nil
}

// Sign computes the request signature: SHA-1 over the sorted k=v pairs joined by '&',
// followed by the API secret.
func Sign(params map[string]string, secret string) string {
	pairs := make([]string, 0, len(params))
	for _, k := range sortedKeys(params) {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
