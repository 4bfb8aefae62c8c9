//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// Environment variable names for integration test configuration.
const (
	EnvServerURL = "INTEGRATION_SERVER_URL"
	EnvUserEmail = "INTEGRATION_USER_EMAIL"
	EnvUserPass  = "INTEGRATION_USER_PASS"
)

// Default configuration values.
const (
	DefaultServerURL  = "http://localhost:8080"
	DefaultUserEmail  = "alice@example.com"
	DefaultUserPass   = "secret"
	DefaultTimeout    = 10 * time.Second
	DefaultCookieName = "supermarkets_session"
)

// getEnvOrDefault returns the value of the environment variable
// identified by key, or defaultVal if the variable is not set.
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// skipIfServiceUnavailable checks whether the service at the given
// URL is reachable and skips the test if it is not.
func skipIfServiceUnavailable(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Skipf("Service unavailable at %s: %v", url, err)
	}
	resp.Body.Close()
}

// createHTTPClient returns an *http.Client with a sensible timeout
// for integration tests. Redirects are not followed so guard
// behavior can be asserted directly.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// login authenticates against the server under test and returns the
// session cookie. The test is skipped when the configured user cannot
// log in, since the credential set of a deployed instance is not
// controlled by this suite.
func login(t *testing.T, client *http.Client, base string) *http.Cookie {
	t.Helper()

	email := getEnvOrDefault(EnvUserEmail, DefaultUserEmail)
	pass := getEnvOrDefault(EnvUserPass, DefaultUserPass)

	body := fmt.Sprintf(`{"email": %q, "password": %q}`, email, pass)
	resp, err := client.Post(
		base+"/api/v1/auth/login",
		"application/json",
		bytes.NewBufferString(body),
	)
	if err != nil {
		t.Fatalf("Login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Skipf("Cannot log in as %s (status %d); set %s and %s",
			email, resp.StatusCode, EnvUserEmail, EnvUserPass)
	}

	for _, c := range resp.Cookies() {
		if c.Name == DefaultCookieName {
			return c
		}
	}

	t.Fatalf("Login did not set cookie %s", DefaultCookieName)
	return nil
}

// apiResponse is a generic API response envelope used for parsing
// integration test responses.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// errorResponse represents an error response from the API.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// supermarketResponse represents a supermarket returned by the API.
type supermarketResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	LogoURL   string    `json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// healthResponse represents the health endpoint response.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// readyResponse represents the ready endpoint response.
type readyResponse struct {
	Status string `json:"status"`
}

// doRequest is a convenience wrapper that performs an HTTP request and
// returns the status code and body bytes.
func doRequest(
	t *testing.T,
	client *http.Client,
	method, url string,
	body io.Reader,
	headers map[string]string,
	cookie *http.Cookie,
) (int, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	return resp.StatusCode, respBody
}
