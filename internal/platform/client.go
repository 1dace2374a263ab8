package platform

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"immo-workers/internal/common/config"
	"immo-workers/internal/common/errors"
	commonhttp "immo-workers/internal/common/http"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/common/metrics"
	"immo-workers/internal/common/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxResponseBytes = 10 << 20

// Client talks to the platform over HTTP. It implements Invoker, Entities,
// Auth and Uploader. Calls are never retried.
type Client struct {
	baseURL string
	appID   string
	apiKey  string
	http    *commonhttp.Client
	obs     *observability.Observability
	logger  logger.Logger
}

type ClientOptions struct {
	Config        config.PlatformConfig
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Config.BaseURL == "" {
		return nil, fmt.Errorf("platform base URL is required")
	}
	if _, err := url.Parse(opts.Config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid platform base URL: %w", err)
	}
	if opts.Config.AppID == "" {
		return nil, fmt.Errorf("platform app ID is required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	obs := opts.Observability
	if obs == nil {
		obs = observability.Noop()
	}
	timeout := config.GetDuration(opts.Config.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(opts.Config.BaseURL, "/"),
		appID:   opts.Config.AppID,
		apiKey:  opts.Config.APIKey,
		http:    commonhttp.NewClient(timeout).WithHeader("X-App-Id", opts.Config.AppID),
		obs:     obs,
		logger:  log.With(map[string]interface{}{"component": "platform"}),
	}, nil
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return fmt.Sprintf("%s/api/apps/%s/%s", c.baseURL, url.PathEscape(c.appID), strings.Join(escaped, "/"))
}

// Invoke calls a remote function and returns its {data} payload.
func (c *Client) Invoke(ctx context.Context, function string, payload interface{}) (*Response, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	req, err := commonhttp.NewJSONRequest(ctx, http.MethodPost, c.endpoint("functions", function), payload)
	if err != nil {
		return nil, errors.NewPlatformError(function, 0, err)
	}

	status, body, err := c.do(ctx, function, req)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, errors.NewPlatformError(function, status, fmt.Errorf("invalid response body: %w", err))
		}
	}
	if envelope.Data == nil {
		envelope.Data = json.RawMessage(body)
	}
	return &Response{Data: envelope.Data, Status: status}, nil
}

func (c *Client) Filter(ctx context.Context, entity string, query map[string]interface{}, sort string, limit int, out interface{}) error {
	params := url.Values{}
	if len(query) > 0 {
		raw, err := json.Marshal(query)
		if err != nil {
			return errors.NewPlatformError(entity+".filter", 0, err)
		}
		params.Set("q", string(raw))
	}
	if sort != "" {
		params.Set("sort", sort)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	target := c.endpoint("entities", entity)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := commonhttp.NewJSONRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.NewPlatformError(entity+".filter", 0, err)
	}
	return c.doInto(ctx, entity+".filter", req, out)
}

func (c *Client) Create(ctx context.Context, entity string, record interface{}, out interface{}) error {
	req, err := commonhttp.NewJSONRequest(ctx, http.MethodPost, c.endpoint("entities", entity), record)
	if err != nil {
		return errors.NewPlatformError(entity+".create", 0, err)
	}
	return c.doInto(ctx, entity+".create", req, out)
}

func (c *Client) Update(ctx context.Context, entity, id string, patch interface{}, out interface{}) error {
	req, err := commonhttp.NewJSONRequest(ctx, http.MethodPut, c.endpoint("entities", entity, id), patch)
	if err != nil {
		return errors.NewPlatformError(entity+".update", 0, err)
	}
	return c.doInto(ctx, entity+".update", req, out)
}

func (c *Client) Delete(ctx context.Context, entity, id string) error {
	req, err := commonhttp.NewJSONRequest(ctx, http.MethodDelete, c.endpoint("entities", entity, id), nil)
	if err != nil {
		return errors.NewPlatformError(entity+".delete", 0, err)
	}
	return c.doInto(ctx, entity+".delete", req, nil)
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	req, err := commonhttp.NewJSONRequest(ctx, http.MethodGet, c.endpoint("entities", EntityUser, "me"), nil)
	if err != nil {
		return nil, errors.NewPlatformError("auth.me", 0, err)
	}
	var user User
	if err := c.doInto(ctx, "auth.me", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UploadFile posts r as multipart field "file" and returns the stored file URL.
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) (string, error) {
	const op = "Core.UploadFile"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", errors.NewPlatformError(op, 0, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", errors.NewPlatformError(op, 0, err)
	}
	if err := mw.Close(); err != nil {
		return "", errors.NewPlatformError(op, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("integration-endpoints", "Core", "UploadFile"), &buf)
	if err != nil {
		return "", errors.NewPlatformError(op, 0, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var out struct {
		FileURL string `json:"file_url"`
	}
	if err := c.doInto(ctx, op, req, &out); err != nil {
		return "", err
	}
	if out.FileURL == "" {
		return "", errors.NewPlatformError(op, http.StatusOK, fmt.Errorf("response has no file_url"))
	}
	return out.FileURL, nil
}

func (c *Client) doInto(ctx context.Context, op string, req *http.Request, out interface{}) error {
	status, body, err := c.do(ctx, op, req)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewPlatformError(op, status, fmt.Errorf("invalid response body: %w", err))
	}
	return nil
}

// do sends req with auth headers and maps transport and status failures.
func (c *Client) do(ctx context.Context, op string, req *http.Request) (int, []byte, error) {
	start := time.Now()
	ctx, span := c.obs.StartSpan(ctx, "platform "+op,
		attribute.String("platform.operation", op),
		attribute.String("http.method", req.Method),
	)
	defer span.End()
	observability.InjectHeaders(ctx, req.Header)

	token := TokenFrom(ctx)
	if token == "" {
		token = c.apiKey
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	status, body, err := c.send(ctx, op, req)

	label := metrics.Status(err)
	metrics.PlatformInvocations.WithLabelValues(op, label).Inc()
	c.obs.RecordInvocation(ctx, op, time.Since(start), label)
	span.SetAttributes(attribute.Int("http.status_code", status))

	fields := map[string]interface{}{
		"function":   op,
		"status":     status,
		"durationMs": time.Since(start).Milliseconds(),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WithError(err).Warn("platform call failed", fields)
		return status, nil, err
	}
	c.logger.Debug("platform call completed", fields)
	return status, body, nil
}

func (c *Client) send(ctx context.Context, op string, req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		if isTimeout(ctx, err) {
			return 0, nil, errors.NewPlatformTimeoutError(op, err)
		}
		return 0, nil, errors.NewPlatformError(op, 0, err)
	}

	body, err := commonhttp.ReadBody(resp, maxResponseBytes)
	if err != nil {
		return resp.StatusCode, nil, errors.NewPlatformError(op, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, nil, errors.NewPlatformError(op, resp.StatusCode, remoteError(resp.StatusCode, body))
	}
	return resp.StatusCode, body, nil
}

// remoteError extracts the platform's error string from a failed response.
func remoteError(status int, body []byte) error {
	var payload struct {
		Error   interface{} `json:"error"`
		Message string      `json:"message"`
		Detail  string      `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch e := payload.Error.(type) {
		case string:
			if e != "" {
				return stderrors.New(e)
			}
		case map[string]interface{}:
			if msg, ok := e["message"].(string); ok && msg != "" {
				return stderrors.New(msg)
			}
		}
		if payload.Message != "" {
			return stderrors.New(payload.Message)
		}
		if payload.Detail != "" {
			return stderrors.New(payload.Detail)
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		return fmt.Errorf("%d %s: %s", status, http.StatusText(status), text)
	}
	return fmt.Errorf("%d %s", status, http.StatusText(status))
}

func isTimeout(ctx context.Context, err error) bool {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
