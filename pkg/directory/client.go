// Package directory is the typed client for the remote directory/event
// service. Every call except the health probe carries the access-gateway
// headers, the static API token, and the HMAC signed-request envelope.
package directory

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/grosvenor-hsc/biotime/pkg/hmacsig"
	"github.com/grosvenor-hsc/biotime/pkg/options"
)

// Gateway header names required by the access-control layer in front of the
// service. Independent of the HMAC identity proof.
const (
	headerGatewayClientID     = "CF-Access-Client-Id"
	headerGatewayClientSecret = "CF-Access-Client-Secret"
	headerAPIToken            = "X-Api-Token"
	headerHMACTimestamp       = "X-HMAC-Timestamp"
	headerHMACSignature       = "X-HMAC-Signature"
)

// Config carries the deployment-supplied credentials and endpoint. Nothing
// here is ever compiled in.
type Config struct {
	BaseURL             string
	APIToken            string
	HMACSecret          []byte
	GatewayClientID     string
	GatewayClientSecret string
}

type Client struct {
	baseURL       string
	apiToken      string
	gatewayID     string
	gatewaySecret string
	signer        *hmacsig.Signer
	httpClient    *http.Client
	clock         func() time.Time
	logger        *slog.Logger
}

func NewClient(config Config, opts ...options.Option) (*Client, error) {
	oo := options.NewOptions(opts...)

	if config.BaseURL == "" {
		return nil, errors.New("directory: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("directory: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if len(config.HMACSecret) == 0 {
		return nil, errors.New("directory: HMACSecret is required")
	}

	httpClient := oo.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: oo.RequestTimeout}
	}

	return &Client{
		baseURL:       strings.TrimRight(config.BaseURL, "/"),
		apiToken:      config.APIToken,
		gatewayID:     config.GatewayClientID,
		gatewaySecret: config.GatewayClientSecret,
		signer:        hmacsig.New(config.HMACSecret, opts...),
		httpClient:    httpClient,
		clock:         oo.Clock,
		logger:        oo.Logger,
	}, nil
}

// CheckHealth reports a short status line for the kiosk status bar. Best
// effort: every failure collapses into a status string, never an error.
func (c *Client) CheckHealth(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return "API: unreachable"
	}
	c.addGatewayHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "API: unreachable"
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return "API: OK"
	}
	return fmt.Sprintf("API: error %s", resp.Status)
}

// SearchEmployees runs a substring search over the remote directory. The
// server matches substrings, so callers must disambiguate exact names
// themselves.
func (c *Client) SearchEmployees(ctx context.Context, query string) ([]Entry, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/employees/search", url.Values{"q": {query}}, nil)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &ProtocolError{Reason: "malformed search response", Err: err}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Enrol creates a brand-new remote identity carrying the given template.
func (c *Client) Enrol(ctx context.Context, siteID, deviceID, employeeName, templateBase64 string) (*EnrolResponse, error) {
	payload := enrolRequest{
		SiteID:          siteID,
		DeviceID:        deviceID,
		EmployeeName:    employeeName,
		TemplateBase64:  templateBase64,
		ClientLocalTime: c.clientLocalTime(),
	}

	body, err := c.do(ctx, http.MethodPost, "/api/enrol", nil, payload)
	if err != nil {
		return nil, err
	}
	return parseEnrolResponse(body)
}

// ReEnrol replaces the template bound to an existing remote identity.
func (c *Client) ReEnrol(ctx context.Context, enrollmentID int, templateBase64 string) (*EnrolResponse, error) {
	payload := reEnrolRequest{
		EnrollmentID:    enrollmentID,
		TemplateBase64:  templateBase64,
		ClientLocalTime: c.clientLocalTime(),
	}

	body, err := c.do(ctx, http.MethodPost, "/api/reenrol", nil, payload)
	if err != nil {
		return nil, err
	}
	return parseEnrolResponse(body)
}

// DeleteEnrollment removes the remote identity and its stored templates.
func (c *Client) DeleteEnrollment(ctx context.Context, enrollmentID int) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/employees/%d", enrollmentID), nil, nil)
	return err
}

// ReportScan records a verification event. The server, not the client,
// decides the clock direction.
func (c *Client) ReportScan(ctx context.Context, enrollmentID int, confidence float64, employeeName string) (*ScanResponse, error) {
	payload := scanRequest{
		EnrollmentID:    enrollmentID,
		Confidence:      confidence,
		EmployeeName:    employeeName,
		ClientLocalTime: c.clientLocalTime(),
	}

	body, err := c.do(ctx, http.MethodPost, "/api/scan", nil, payload)
	if err != nil {
		return nil, err
	}

	var resp ScanResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProtocolError{Reason: "malformed scan response", Err: err}
	}
	if resp.Action == "" {
		return nil, &ProtocolError{Reason: "scan response missing action"}
	}
	return &resp, nil
}

// FetchTemplate downloads and decodes the stored template for a remote
// identity, for hydrating a local cache miss.
func (c *Client) FetchTemplate(ctx context.Context, enrollmentID int) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/template/%d", enrollmentID), nil, nil)
	if err != nil {
		return nil, err
	}

	var resp templateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProtocolError{Reason: "malformed template response", Err: err}
	}
	if resp.TemplateBase64 == "" {
		return nil, &ProtocolError{Reason: "template response missing templateBase64"}
	}

	template, err := base64.StdEncoding.DecodeString(resp.TemplateBase64)
	if err != nil {
		return nil, &ProtocolError{Reason: "template is not valid base64", Err: err}
	}
	return template, nil
}

func parseEnrolResponse(body []byte) (*EnrolResponse, error) {
	var resp EnrolResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProtocolError{Reason: "malformed enrol response", Err: err}
	}
	if resp.EnrollmentID == 0 {
		return nil, &ProtocolError{Reason: "enrol response missing enrollmentId"}
	}
	return &resp, nil
}

func (c *Client) clientLocalTime() string {
	return c.clock().Format(time.RFC3339)
}

func (c *Client) addGatewayHeaders(req *http.Request) {
	req.Header.Set(headerGatewayClientID, c.gatewayID)
	req.Header.Set(headerGatewayClientSecret, c.gatewaySecret)
}

// do performs one signed request and returns the response body. Non-2xx
// becomes *HTTPError, an exceeded wait becomes ErrTimeout, and transport
// failures pass through wrapped. The query string stays out of the signed
// path.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, requestBody any) ([]byte, error) {
	var bodyBytes []byte
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("directory: encode request body: %w", err)
		}
		bodyBytes = encoded
	}

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("directory: create request: %w", err)
	}

	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addGatewayHeaders(req)

	env := c.signer.Sign(method, path, bodyBytes)
	req.Header.Set(headerAPIToken, c.apiToken)
	req.Header.Set(headerHMACTimestamp, env.Timestamp)
	req.Header.Set(headerHMACSignature, env.Signature)

	c.logger.Debug("directory request", "method", method, "path", path, "timestamp", env.Timestamp)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("directory: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("directory: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(respBody),
		}
		c.logger.Warn("directory request failed", "method", method, "path", path, "status", resp.StatusCode)
		return nil, httpErr
	}

	return respBody, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
