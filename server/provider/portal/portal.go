// Package portal implements the authenticated appointment portals: missions
// that do not publish through the public aggregator and instead require a
// login handshake before slot data can be read. One descriptor per portal
// captures the variant-specific details (paths, whether a cross-site-request
// token must be extracted from the login page); the fetch flow itself is
// shared.
package portal

import (
	"context"
	"fmt"

	"github.com/mattermost/mattermost/server/public/pluginapi"

	"github.com/ibidi/schengen-visa-bot/server/provider"
)

// Descriptor captures one portal variant's wire details.
type Descriptor struct {
	// Type is the stable portal identifier used in configuration
	// ("vfs", "italy", "germany").
	Type string

	// DisplayName is shown in notifications and status output.
	DisplayName string

	// Group is the country group this portal serves.
	Group provider.Group

	// Countries are the mission tokens this portal owns in the router.
	// Portals in the same group still claim disjoint countries.
	Countries []string

	// RequiresCSRF indicates the login form embeds a cross-site-request
	// token that must be extracted and echoed on the login POST.
	RequiresCSRF bool

	// Paths, relative to the configured base URL.
	LoginPath     string
	LocationsPath string
	SlotsPath     string
}

// Descriptors lists every supported portal variant.
var Descriptors = map[string]Descriptor{
	"vfs": {
		Type:          "vfs",
		DisplayName:   "VFS Global",
		Group:         provider.GroupVFS,
		Countries:     []string{"UK", "CAN", "AUS", "NZL", "ZAF"},
		RequiresCSRF:  true,
		LoginPath:     "/user/login",
		LocationsPath: "/appointment/centers",
		SlotsPath:     "/appointment/slots",
	},
	"italy": {
		Type:          "italy",
		DisplayName:   "Prenot@Mi",
		Group:         provider.GroupOther,
		Countries:     []string{"ITA"},
		RequiresCSRF:  true,
		LoginPath:     "/auth/login",
		LocationsPath: "/booking/offices",
		SlotsPath:     "/booking/availability",
	},
	"germany": {
		Type:          "germany",
		DisplayName:   "Auslandsportal",
		Group:         provider.GroupOther,
		Countries:     []string{"DEU"},
		RequiresCSRF:  false,
		LoginPath:     "/api/login",
		LocationsPath: "/api/locations",
		SlotsPath:     "/api/appointments",
	},
}

// Credentials is one configured portal account, supplied out of band
// through the plugin configuration.
type Credentials struct {
	// ID is a stable UUID v4 identifying this entry in configuration.
	ID string `json:"id"`

	// Type selects the Descriptor.
	Type string `json:"type"`

	// URL is the portal's base URL (HTTPS).
	URL string `json:"url"`

	// Email and Password are the account credentials.
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Adapter implements provider.Adapter for one authenticated portal account.
// The adapter owns its authentication token; tokens are never shared across
// adapters so sessions using different credentials stay isolated.
type Adapter struct {
	desc   Descriptor
	auth   *AuthManager
	client *Client
	logger pluginapi.LogService
}

// New builds a portal adapter from a descriptor and account credentials.
func New(desc Descriptor, creds Credentials, logger pluginapi.LogService) *Adapter {
	auth := NewAuthManager(desc, creds, logger)
	return &Adapter{
		desc:   desc,
		auth:   auth,
		client: NewClient(desc, creds.URL, auth, logger),
		logger: logger,
	}
}

// Name identifies the portal variant.
func (a *Adapter) Name() string {
	return a.desc.Type
}

// DisplayName returns the portal's user-facing name.
func (a *Adapter) DisplayName() string {
	return a.desc.DisplayName
}

// FetchSlots runs one authenticated poll cycle: ensure a valid session
// token, resolve the portal's location identifier for the queried city,
// then fetch and normalize the slot data.
func (a *Adapter) FetchSlots(ctx context.Context, query provider.Query) ([]provider.Slot, error) {
	location, err := a.client.ResolveLocation(ctx, query.City)
	if err != nil {
		return nil, err
	}
	if location == nil {
		// The portal does not serve this city; a cycle with nothing to
		// offer is a successful empty result, not a failure.
		a.logger.Debug("Portal has no center for city", "portal", a.desc.Type, "city", query.City)
		return nil, nil
	}

	raw, err := a.client.FetchSlots(ctx, location.ID)
	if err != nil {
		return nil, err
	}

	slots := make([]provider.Slot, 0, len(raw))
	for _, entry := range raw {
		date, perr := provider.ParseSlotDate(entry.Date)
		if perr != nil {
			a.logger.Warn("Could not parse portal slot date", "portal", a.desc.Type, "date", entry.Date, "error", perr.Error())
		}
		slots = append(slots, provider.Slot{
			Country:     query.Country,
			City:        query.City,
			Center:      location.Name,
			Date:        date,
			Category:    entry.Category,
			Subcategory: entry.Subcategory,
			BookingLink: entry.BookingLink,
		})
	}

	a.logger.Debug("Portal fetch completed", "portal", a.desc.Type, "location", location.ID, "slots", len(slots))
	return slots, nil
}

// DescriptorFor returns the descriptor for a configured portal type.
func DescriptorFor(portalType string) (Descriptor, error) {
	desc, ok := Descriptors[portalType]
	if !ok {
		return Descriptor{}, fmt.Errorf("unknown portal type: %s", portalType)
	}
	return desc, nil
}
