package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	json "github.com/goccy/go-json"
	"github.com/lshigami/labsignoff/config"
	"github.com/lshigami/labsignoff/internal/dto"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

const (
	EndpointParts          = "/api/get-parts/"
	EndpointCriteria       = "/api/get-criteria/"
	EndpointSignoffs       = "/api/get-signoffs/"
	EndpointSignoffDetails = "/api/get-signoff-details/"
	EndpointQuickSignoff   = "/api/quick-signoff/"

	sessionCookieName = "sessionid"
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	// Message is the server's "error" (or "message") field when the body was JSON.
	Message string
	Body    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP error! status: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// APIClient talks JSON to the lab grading server. It keeps session and
// anti-forgery cookies in a jar and forwards the anti-forgery token unchanged
// as a request header.
type APIClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	csrfCookie string
	csrfHeader string
}

func NewAPIClient(cfg *config.Config) (*APIClient, error) {
	base, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", cfg.API.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("API base URL %q must be absolute", cfg.API.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := &APIClient{
		baseURL: base,
		// Timeout 0 means requests may hang; the UI keeps its loading state.
		httpClient: &http.Client{Jar: jar, Timeout: cfg.API.Timeout},
		csrfCookie: cfg.API.CSRFCookieName,
		csrfHeader: cfg.API.CSRFHeaderName,
	}

	var seed []*http.Cookie
	if cfg.API.SessionID != "" {
		seed = append(seed, &http.Cookie{Name: sessionCookieName, Value: cfg.API.SessionID, Path: "/"})
	}
	if cfg.API.CSRFToken != "" {
		seed = append(seed, &http.Cookie{Name: client.csrfCookie, Value: cfg.API.CSRFToken, Path: "/"})
	}
	if len(seed) > 0 {
		jar.SetCookies(base, seed)
	}
	return client, nil
}

// CSRFToken returns the anti-forgery token currently held in the cookie jar.
func (c *APIClient) CSRFToken() string {
	for _, cookie := range c.httpClient.Jar.Cookies(c.baseURL) {
		if cookie.Name == c.csrfCookie {
			return cookie.Value
		}
	}
	return ""
}

func (c *APIClient) resolve(ref string, query url.Values) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", ref, err)
	}
	u = c.baseURL.ResolveReference(u)
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// GetJSON issues a GET for ref (absolute, or relative to the base URL) and
// decodes the body into out.
func (c *APIClient) GetJSON(ctx context.Context, ref string, query url.Values, out any) error {
	u, err := c.resolve(ref, query)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

// PostJSON encodes body as JSON and decodes the response into out. The
// anti-forgery header is always present on POSTs, empty if no cookie exists.
func (c *APIClient) PostJSON(ctx context.Context, ref string, body any, out any) error {
	u, err := c.resolve(ref, nil)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(c.csrfHeader, c.CSRFToken())
	return c.do(req, out)
}

func (c *APIClient) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if req.Header.Get(c.csrfHeader) == "" {
		if token := c.CSRFToken(); token != "" {
			req.Header.Set(c.csrfHeader, token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("API request failed")
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
		var errBody dto.ErrorResponse
		if json.Unmarshal(body, &errBody) == nil {
			httpErr.Message = errBody.Error
			if httpErr.Message == "" {
				httpErr.Message = errBody.Message
			}
		}
		log.Warn().Int("status", resp.StatusCode).Str("method", req.Method).Str("path", req.URL.Path).Msg("API returned error status")
		return httpErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
