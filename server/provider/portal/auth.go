package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mattermost/mattermost/server/public/pluginapi"

	"github.com/ibidi/schengen-visa-bot/server/provider"
)

const (
	// tokenRefreshBuffer is how long before expiry a cached token is
	// considered stale and refreshed proactively.
	tokenRefreshBuffer = 5 * time.Minute

	authRequestTimeout = 30 * time.Second
)

// csrfTokenPattern extracts the cross-site-request token embedded in a
// portal's login form. Portals that require it reject login POSTs without
// the echoed value.
var csrfTokenPattern = regexp.MustCompile(`name="csrf[_-]token"\s+(?:content|value)="([^"]+)"`)

// loginResponse is the JSON body portals return on a successful login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

// AuthManager performs the login handshake for one portal account and
// caches the resulting session token in memory. The token lives on the
// adapter instance only; it is never persisted or shared across adapters.
type AuthManager struct {
	desc       Descriptor
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	logger     pluginapi.LogService

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewAuthManager creates an authentication manager for one portal account.
func NewAuthManager(desc Descriptor, creds Credentials, logger pluginapi.LogService) *AuthManager {
	return &AuthManager{
		desc:     desc,
		baseURL:  strings.TrimRight(creds.URL, "/"),
		email:    creds.Email,
		password: creds.Password,
		httpClient: &http.Client{
			Timeout: authRequestTimeout,
		},
		logger: logger,
	}
}

// Token returns a valid session token, performing the login handshake if
// the cached one is missing or expiring soon.
func (m *AuthManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Until(m.expiry) > tokenRefreshBuffer {
		return m.token, nil
	}

	m.logger.Info("Acquiring portal session token", "portal", m.desc.Type)
	token, expiry, err := m.login(ctx)
	if err != nil {
		return "", err
	}

	m.token = token
	m.expiry = expiry
	return token, nil
}

// Invalidate drops the cached token so the next Token call re-authenticates.
// Called when the portal rejects a request with the current token.
func (m *AuthManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiry = time.Time{}
}

// login runs the handshake: fetch the cross-site-request token from the
// login page when the portal requires one, then POST the credentials.
func (m *AuthManager) login(ctx context.Context) (string, time.Time, error) {
	const op = "portal login"

	form := url.Values{}
	form.Set("email", m.email)
	form.Set("password", m.password)

	if m.desc.RequiresCSRF {
		csrf, err := m.fetchCSRFToken(ctx)
		if err != nil {
			return "", time.Time{}, err
		}
		form.Set("csrf_token", csrf)
	}

	loginURL := m.baseURL + m.desc.LoginPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, provider.NewError(provider.Transient, op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, provider.ClassifyTransport(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Parsed below.
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// A rejected login is an authentication failure regardless of
		// which status the portal chose for it.
		return "", time.Time{}, provider.NewError(provider.AuthFailure, op, fmt.Errorf("login rejected with HTTP %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return "", time.Time{}, provider.NewError(provider.Transient, op, fmt.Errorf("HTTP %d", resp.StatusCode))
	default:
		return "", time.Time{}, provider.NewError(provider.MalformedResponse, op, fmt.Errorf("unexpected HTTP %d", resp.StatusCode))
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", time.Time{}, provider.NewError(provider.MalformedResponse, op, err)
	}
	if body.AccessToken == "" {
		return "", time.Time{}, provider.NewError(provider.AuthFailure, op, fmt.Errorf("login response missing token"))
	}

	expiry := time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	m.logger.Info("Portal login succeeded", "portal", m.desc.Type, "expiry", expiry.Format(time.RFC3339))
	return body.AccessToken, expiry, nil
}

// fetchCSRFToken GETs the login page and extracts the embedded token.
func (m *AuthManager) fetchCSRFToken(ctx context.Context) (string, error) {
	const op = "fetch login page"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+m.desc.LoginPath, nil)
	if err != nil {
		return "", provider.NewError(provider.Transient, op, err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", provider.ClassifyTransport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", provider.ClassifyStatus(op, resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", provider.ClassifyTransport(op, err)
	}

	match := csrfTokenPattern.FindSubmatch(page)
	if match == nil {
		return "", provider.NewError(provider.MalformedResponse, op, fmt.Errorf("login page missing csrf token"))
	}

	return string(match[1]), nil
}
