// Package aggregator polls the public appointment feed that aggregates
// Schengen mission availability. The feed is unauthenticated; one GET per
// cycle returns every published slot, and the adapter filters down to the
// session's mission country and city.
package aggregator

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mattermost/mattermost/server/public/pluginapi"

	"github.com/ibidi/schengen-visa-bot/server/provider"
)

const (
	// DefaultFeedURL is the public aggregator endpoint.
	DefaultFeedURL = "https://api.schengenvisaappointments.com/api/visa-list/?format=json"

	// DefaultHomeCountry is the source country entries must declare to
	// count as reachable for the bot's users.
	DefaultHomeCountry = "Turkiye"

	requestTimeout = 30 * time.Second
)

// Client identities rotated when the feed rate-limits us. The adapter
// retries once with the alternate identity before surfacing the error.
const (
	primaryUserAgent   = "schengen-visa-bot/1.0"
	alternateUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
)

// feedEntry mirrors one element of the aggregator's JSON array.
type feedEntry struct {
	SourceCountry   string `json:"source_country"`
	MissionCountry  string `json:"mission_country"`
	CenterName      string `json:"center_name"`
	AppointmentDate string `json:"appointment_date"`
	VisaCategory    string `json:"visa_category"`
	VisaSubcategory string `json:"visa_subcategory"`
	BookNowLink     string `json:"book_now_link"`
}

// Adapter implements provider.Adapter for the public aggregator feed.
type Adapter struct {
	feedURL     string
	homeCountry string
	httpClient  *http.Client
	logger      pluginapi.LogService
}

// New creates an aggregator adapter. Empty feedURL or homeCountry select
// the defaults.
func New(feedURL, homeCountry string, logger pluginapi.LogService) *Adapter {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	if homeCountry == "" {
		homeCountry = DefaultHomeCountry
	}
	return &Adapter{
		feedURL:     feedURL,
		homeCountry: homeCountry,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
	}
}

// Name identifies this adapter variant.
func (a *Adapter) Name() string {
	return "aggregator"
}

// FetchSlots reads the public feed once and returns the entries matching
// the query's mission country and city. Dates are normalized to the target
// time zone here, not at display time.
func (a *Adapter) FetchSlots(ctx context.Context, query provider.Query) ([]provider.Slot, error) {
	entries, err := a.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	var slots []provider.Slot
	for _, entry := range entries {
		if !a.matches(entry, query) {
			continue
		}

		slot := provider.Slot{
			Country:     entry.MissionCountry,
			City:        query.City,
			Center:      entry.CenterName,
			Category:    entry.VisaCategory,
			Subcategory: entry.VisaSubcategory,
			BookingLink: entry.BookNowLink,
		}

		if entry.AppointmentDate != "" {
			date, perr := provider.ParseSlotDate(entry.AppointmentDate)
			if perr != nil {
				a.logger.Warn("Could not parse appointment date", "date", entry.AppointmentDate, "center", entry.CenterName, "error", perr.Error())
			} else {
				slot.Date = date
			}
		}

		slots = append(slots, slot)
	}

	a.logger.Debug("Aggregator fetch completed", "entries", len(entries), "matched", len(slots), "country", query.Country, "city", query.City)
	return slots, nil
}

// matches applies the feed filter: the entry must originate from the home
// country, target the queried mission, and its center name must contain the
// city (case-insensitive).
func (a *Adapter) matches(entry feedEntry, query provider.Query) bool {
	if entry.SourceCountry != a.homeCountry {
		return false
	}
	if entry.MissionCountry != query.Country {
		return false
	}
	if entry.CenterName == "" || query.City == "" {
		return false
	}
	return strings.Contains(strings.ToLower(entry.CenterName), strings.ToLower(query.City))
}

// fetchFeed performs the GET with one alternate-identity retry on an
// explicit rate-limit response.
func (a *Adapter) fetchFeed(ctx context.Context) ([]feedEntry, error) {
	entries, err := a.fetchFeedAs(ctx, primaryUserAgent)
	if err != nil && provider.IsKind(err, provider.RateLimited) {
		a.logger.Debug("Feed rate-limited, retrying with alternate client identity")
		entries, err = a.fetchFeedAs(ctx, alternateUserAgent)
	}
	return entries, err
}

func (a *Adapter) fetchFeedAs(ctx context.Context, userAgent string) ([]feedEntry, error) {
	const op = "fetch aggregator feed"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.feedURL, nil)
	if err != nil {
		return nil, provider.NewError(provider.Transient, op, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, provider.ClassifyTransport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ClassifyStatus(op, resp.StatusCode)
	}

	var entries []feedEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, provider.NewError(provider.MalformedResponse, op, err)
	}

	return entries, nil
}
