package provider

import (
	"github.com/biter777/countries"
)

// Group identifies which adapter variant serves a set of mission countries.
type Group string

const (
	// GroupSchengen is served by the public aggregator feed.
	GroupSchengen Group = "schengen"

	// GroupVFS covers missions whose appointments are published through
	// the VFS Global portal.
	GroupVFS Group = "vfs"

	// GroupOther covers missions with their own national portals.
	GroupOther Group = "other"
)

// Country is one selectable mission country.
type Country struct {
	// Token is the stable selection token used by the conversation menus
	// and matched against the aggregator feed's mission_country field.
	Token string

	// Group decides which adapter variant owns this country.
	Group Group
}

// Countries lists every mission the bot can watch, grouped by the backend
// that publishes its appointments.
var Countries = []Country{
	{Token: "France", Group: GroupSchengen},
	{Token: "Netherlands", Group: GroupSchengen},
	{Token: "Ireland", Group: GroupSchengen},
	{Token: "Malta", Group: GroupSchengen},
	{Token: "Sweden", Group: GroupSchengen},
	{Token: "Czechia", Group: GroupSchengen},
	{Token: "Croatia", Group: GroupSchengen},
	{Token: "Bulgaria", Group: GroupSchengen},
	{Token: "Finland", Group: GroupSchengen},
	{Token: "Slovenia", Group: GroupSchengen},
	{Token: "Denmark", Group: GroupSchengen},
	{Token: "Norway", Group: GroupSchengen},
	{Token: "Estonia", Group: GroupSchengen},
	{Token: "Lithuania", Group: GroupSchengen},
	{Token: "Luxembourg", Group: GroupSchengen},
	{Token: "Ukraine", Group: GroupSchengen},
	{Token: "Latvia", Group: GroupSchengen},

	{Token: "UK", Group: GroupVFS},
	{Token: "CAN", Group: GroupVFS},
	{Token: "AUS", Group: GroupVFS},
	{Token: "NZL", Group: GroupVFS},
	{Token: "ZAF", Group: GroupVFS},

	{Token: "ITA", Group: GroupOther},
	{Token: "DEU", Group: GroupOther},
}

// displayOverrides covers tokens the countries library does not resolve the
// way users expect.
var displayOverrides = map[string]string{
	"UK": "United Kingdom",
}

// GroupOf returns the group owning a country token. Unknown countries
// belong to the aggregator group, mirroring the router's default.
func GroupOf(token string) Group {
	for _, c := range Countries {
		if c.Token == token {
			return c.Group
		}
	}
	return GroupSchengen
}

// CountriesIn returns the selection tokens of every country in a group, in
// catalog order.
func CountriesIn(group Group) []string {
	var tokens []string
	for _, c := range Countries {
		if c.Group == group {
			tokens = append(tokens, c.Token)
		}
	}
	return tokens
}

// DisplayName resolves a country token to a human-readable name for menus
// and notifications. Tokens the countries database cannot resolve are shown
// as-is.
func DisplayName(token string) string {
	if name, ok := displayOverrides[token]; ok {
		return name
	}
	if cc := countries.ByName(token); cc != countries.Unknown {
		return cc.String()
	}
	return token
}
