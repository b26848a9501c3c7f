package connection

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/yndnr/crudkv-go/internal/infra/buildinfo"
)

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTLSConfig sets the TLS config used for https servers.
func WithTLSConfig(cfg *tls.Config) ClientOption {
	return func(c *HTTPClient) {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = cfg
		c.client.Transport = transport
	}
}

// NewHTTPClient creates a new HTTP client. A server without a scheme is
// assumed to be plain HTTP. Deadlines come from the request context.
func NewHTTPClient(server string, opts ...ClientOption) *HTTPClient {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	c := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Do sends a request. contentType is only set when body is non-nil.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", "crudkv-cli/"+buildinfo.Version)
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.client.Do(req)
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, "")
}

// Post performs a POST request with a raw body.
func (c *HTTPClient) Post(ctx context.Context, path string, body io.Reader, contentType string) (*http.Response, error) {
	if body == nil {
		body = http.NoBody
	}
	return c.Do(ctx, http.MethodPost, path, body, contentType)
}

// Put performs a PUT request with a raw body.
func (c *HTTPClient) Put(ctx context.Context, path string, body io.Reader, contentType string) (*http.Response, error) {
	if body == nil {
		body = http.NoBody
	}
	return c.Do(ctx, http.MethodPut, path, body, contentType)
}

// Delete performs a DELETE request.
func (c *HTTPClient) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, "")
}

// CollectionPath returns the escaped path of a collection.
func CollectionPath(collection string) string {
	return "/" + url.PathEscape(collection)
}

// ResourcePath returns the escaped path of one resource.
func ResourcePath(collection, id string) string {
	return CollectionPath(collection) + "/" + url.PathEscape(id)
}

// APIError is an error answered by the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// CheckResponse returns an *APIError for 4xx and 5xx responses and closes
// their body. Successful responses are left untouched.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode, Code: resp.Header.Get("X-Error-Code")}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Code != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	return apiErr
}

// ParseResponse checks the status and decodes a bare JSON body into target.
func ParseResponse(resp *http.Response, target any) error {
	if err := CheckResponse(resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// ParseEnvelope checks the status and decodes the data member of a
// {code, message, request_id, data} envelope into target.
func ParseEnvelope(resp *http.Response, target any) error {
	envelope := struct {
		Data any `json:"data"`
	}{Data: target}
	return ParseResponse(resp, &envelope)
}

// ReadBody checks the status and returns the raw body.
func ReadBody(resp *http.Response) ([]byte, error) {
	if err := CheckResponse(resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
