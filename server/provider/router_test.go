package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubAdapter is a named no-op adapter for routing assertions.
type stubAdapter struct {
	name string
}

func (s *stubAdapter) Name() string {
	return s.name
}

func (s *stubAdapter) FetchSlots(_ context.Context, _ Query) ([]Slot, error) {
	return nil, nil
}

func TestResolve_DefaultsToFallback(t *testing.T) {
	fallback := &stubAdapter{name: "aggregator"}
	router := NewRouter(fallback)

	assert.Same(t, fallback, router.Resolve("France"))
	assert.Same(t, fallback, router.Resolve("Atlantis"))
}

func TestResolve_PortalClaimsItsCountries(t *testing.T) {
	fallback := &stubAdapter{name: "aggregator"}
	vfs := &stubAdapter{name: "vfs"}
	router := NewRouter(fallback)
	router.SetCountries(CountriesIn(GroupVFS), vfs)

	assert.Same(t, vfs, router.Resolve("UK"))
	assert.Same(t, vfs, router.Resolve("CAN"))

	// Unclaimed countries stay on the fallback
	assert.Same(t, fallback, router.Resolve("France"))
	assert.Same(t, fallback, router.Resolve("DEU"))
}

func TestResolve_PortalsSharingAGroupKeepTheirOwnCountries(t *testing.T) {
	fallback := &stubAdapter{name: "aggregator"}
	italy := &stubAdapter{name: "italy"}
	germany := &stubAdapter{name: "germany"}
	router := NewRouter(fallback)
	router.SetCountries([]string{"ITA"}, italy)
	router.SetCountries([]string{"DEU"}, germany)

	assert.Same(t, italy, router.Resolve("ITA"))
	assert.Same(t, germany, router.Resolve("DEU"))
}

func TestResolve_NilCountryAdapterFallsBack(t *testing.T) {
	fallback := &stubAdapter{name: "aggregator"}
	router := NewRouter(fallback)
	router.SetCountries([]string{"ITA"}, nil)

	assert.Same(t, fallback, router.Resolve("ITA"))
}

func TestGroupOf(t *testing.T) {
	assert.Equal(t, GroupSchengen, GroupOf("France"))
	assert.Equal(t, GroupVFS, GroupOf("ZAF"))
	assert.Equal(t, GroupOther, GroupOf("DEU"))

	// Unknown countries belong to the aggregator group
	assert.Equal(t, GroupSchengen, GroupOf("Atlantis"))
}

func TestCountriesIn(t *testing.T) {
	schengen := CountriesIn(GroupSchengen)
	assert.Len(t, schengen, 17)
	assert.Equal(t, "France", schengen[0])

	vfs := CountriesIn(GroupVFS)
	assert.Equal(t, []string{"UK", "CAN", "AUS", "NZL", "ZAF"}, vfs)

	other := CountriesIn(GroupOther)
	assert.Equal(t, []string{"ITA", "DEU"}, other)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "United Kingdom", DisplayName("UK"))
	assert.Equal(t, "France", DisplayName("France"))

	// Unresolvable tokens are shown as-is
	assert.Equal(t, "Atlantis", DisplayName("Atlantis"))
}
