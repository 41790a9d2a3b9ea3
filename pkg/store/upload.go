package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/jsonutil"
)

type uploadedFile struct {
	ID   json.RawMessage `json:"id"`
	URL  string          `json:"url"`
	Name string          `json:"name"`
	Mime string          `json:"mime"`
}

// Upload sends one file to the upload endpoint as multipart field "files".
func (c *Client) Upload(ctx context.Context, data []byte, filename, mimeType string) (*Asset, error) {
	endpoint, err := buildURL(c.baseURL, "api", "upload")
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(filename)))
	if mimeType != "" {
		header.Set("Content-Type", mimeType)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	c.logger.Debug("Uploading file",
		zap.String("filename", filename),
		zap.String("mime", mimeType),
		zap.Int("bytes", len(data)))

	body, err := c.do(ctx, "upload", "upload", http.MethodPost, endpoint, buf.Bytes(), mw.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var files []uploadedFile
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("upload of %s returned no files", filename)
	}

	f := files[0]
	return &Asset{
		ID:   jsonutil.FlexibleStringValue(f.ID),
		URL:  f.URL,
		Name: f.Name,
		Mime: f.Mime,
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
