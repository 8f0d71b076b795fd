package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mattermost/mattermost/server/public/pluginapi"

	"github.com/ibidi/schengen-visa-bot/server/provider"
)

const clientRequestTimeout = 30 * time.Second

// Client identities rotated on an explicit rate-limit response.
const (
	primaryUserAgent   = "schengen-visa-bot/1.0"
	alternateUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Location is a portal-specific appointment center.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

// slotEntry mirrors one element of a portal's slot listing.
type slotEntry struct {
	Date        string `json:"date"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	BookingLink string `json:"booking_link"`
}

// Client issues the authenticated requests of one portal account: location
// resolution and slot listing. Every request carries the session token from
// the auth manager; a 401 invalidates the token and retries once after a
// fresh login, so an expired session heals without surfacing AuthFailure.
type Client struct {
	desc       Descriptor
	baseURL    string
	auth       *AuthManager
	httpClient *http.Client
	logger     pluginapi.LogService
}

// NewClient creates an authenticated portal client.
func NewClient(desc Descriptor, baseURL string, auth *AuthManager, logger pluginapi.LogService) *Client {
	return &Client{
		desc:    desc,
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout: clientRequestTimeout,
		},
		logger: logger,
	}
}

// ResolveLocation finds the portal's center for a city. Returns nil without
// error when the portal has no center there.
func (c *Client) ResolveLocation(ctx context.Context, city string) (*Location, error) {
	const op = "resolve portal location"

	query := url.Values{}
	query.Set("city", city)

	var locations []Location
	if err := c.getJSON(ctx, c.desc.LocationsPath+"?"+query.Encode(), op, &locations); err != nil {
		return nil, err
	}

	for i, loc := range locations {
		if strings.EqualFold(loc.City, city) ||
			strings.Contains(strings.ToLower(loc.Name), strings.ToLower(city)) {
			return &locations[i], nil
		}
	}
	return nil, nil
}

// FetchSlots lists the available slots at a resolved location.
func (c *Client) FetchSlots(ctx context.Context, locationID string) ([]slotEntry, error) {
	const op = "fetch portal slots"

	query := url.Values{}
	query.Set("location", locationID)

	var slots []slotEntry
	if err := c.getJSON(ctx, c.desc.SlotsPath+"?"+query.Encode(), op, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// getJSON performs an authenticated GET and decodes the response into out.
// Handles the token-expiry retry and the alternate-identity rate-limit
// retry.
func (c *Client) getJSON(ctx context.Context, path, op string, out interface{}) error {
	err := c.doGET(ctx, path, op, primaryUserAgent, out)
	if err == nil {
		return nil
	}

	switch {
	case provider.IsKind(err, provider.AuthFailure):
		// The session token may simply have expired server-side. Refresh
		// once; a second rejection means the credentials are bad.
		c.logger.Debug("Portal rejected session token, re-authenticating", "portal", c.desc.Type)
		c.auth.Invalidate()
		return c.doGET(ctx, path, op, primaryUserAgent, out)
	case provider.IsKind(err, provider.RateLimited):
		c.logger.Debug("Portal rate-limited, retrying with alternate client identity", "portal", c.desc.Type)
		return c.doGET(ctx, path, op, alternateUserAgent, out)
	default:
		return err
	}
}

func (c *Client) doGET(ctx context.Context, path, op, userAgent string, out interface{}) error {
	token, err := c.auth.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return provider.NewError(provider.Transient, op, err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return provider.ClassifyTransport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return provider.ClassifyStatus(op, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return provider.NewError(provider.MalformedResponse, op, err)
	}
	return nil
}
