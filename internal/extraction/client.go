package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/entity"
)

// Config for the extraction service client.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Lenient bool // sanitize loose responses before validating
}

// Client calls the remote extraction service over HTTP.
type Client struct {
	cfg    Config
	http   *http.Client
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewClient builds a Client and compiles the response schema.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("extraction url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := CompileSchema(BuildFieldsJSONSchema())
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		schema: schema,
		logger: logger,
	}, nil
}

// Extract sends the document and returns the validated reading. No retry is
// attempted; the caller reports a failure once.
func (c *Client) Extract(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	c.logger.Info("extraction.extract.start",
		"session_id", req.SessionID,
		"document", req.DocumentName,
		"bytes", len(req.Content),
		"concepts", len(req.Concepts),
	)

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	body := map[string]any{
		"documentName": req.DocumentName,
		"contentType":  contentType,
		"content":      base64.StdEncoding.EncodeToString(req.Content),
		"hints": map[string]any{
			"concepts":   req.Concepts,
			"dateFormat": "DD-MM-YYYY",
		},
	}
	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	raw, status, err := SendJSON(ctx, c.http, c.cfg.URL, body, headers, c.logger)
	if err != nil {
		c.logger.Error("extraction.extract.http_error",
			"session_id", req.SessionID,
			"status", status,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{Raw: raw}, fmt.Errorf("call extraction service: %w", err)
	}

	content, err := c.clean(raw)
	if err != nil {
		c.logger.Error("extraction.extract.schema_validation_failed",
			"session_id", req.SessionID,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{Raw: raw}, err
	}

	fields, err := DecodeFields(content)
	if err != nil {
		c.logger.Error("extraction.extract.unmarshal_failed", "session_id", req.SessionID, "error", err)
		return Result{Raw: content}, err
	}

	c.logger.Info("extraction.extract.ok",
		"session_id", req.SessionID,
		"confidence", fields.Confidence,
		"populated", len(fields.Populated),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Fields: fields, Raw: content}, nil
}

func (c *Client) clean(raw []byte) ([]byte, error) {
	if !c.cfg.Lenient {
		if err := ValidateJSON(c.schema, raw); err != nil {
			return nil, fmt.Errorf("schema validation failed: %w", err)
		}
		return raw, nil
	}

	cleaned, _, err := NormalizeAndSanitizeJSON(raw, c.logger)
	if err != nil {
		return nil, fmt.Errorf("sanitize failed: %w", err)
	}
	if err := ValidateJSON(c.schema, cleaned); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return cleaned, nil
}

// DecodeFields decodes validated JSON into ExtractedFields. Amounts keep
// their JSON form (json.Number or string) for the normalizer.
func DecodeFields(content []byte) (entity.ExtractedFields, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var out entity.ExtractedFields
	if err := dec.Decode(&out); err != nil {
		return entity.ExtractedFields{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	out.Confidence, _ = constants.CanonicalizeTier(string(out.Confidence))
	return out, nil
}
