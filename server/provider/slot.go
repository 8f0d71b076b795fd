package provider

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TargetTimeZone is the fixed zone all slot dates are normalized into at
// fetch time, so every downstream comparison runs on a consistent clock.
const TargetTimeZone = "Europe/Istanbul"

var targetLocation = loadTargetLocation()

func loadTargetLocation() *time.Location {
	loc, err := time.LoadLocation(TargetTimeZone)
	if err != nil {
		// Istanbul has been fixed at UTC+3 since 2016; fall back if the
		// host has no tzdata.
		return time.FixedZone("+03", 3*60*60)
	}
	return loc
}

// Slot is one bookable appointment opportunity reported by a provider.
// Slots are produced fresh each poll cycle and never persisted by the core.
type Slot struct {
	Country     string
	City        string
	Center      string
	Date        time.Time // normalized to TargetTimeZone; zero if the provider omitted it
	Category    string
	Subcategory string // optional
	BookingLink string
}

// Signature identifies a slot across cycles for optional repeat
// suppression. Two slots with the same center, date, and category are the
// same opportunity regardless of which cycle reported them.
func (s Slot) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%s", s.Country, s.Center, s.Date.Format(time.RFC3339), s.Category)
}

// NormalizeDate converts a provider-reported timestamp into the target zone.
func NormalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(targetLocation)
}

// ParseSlotDate parses the date formats appointment backends use
// (RFC 3339 with or without a zone, or a bare calendar date) and normalizes
// the result into the target zone.
func ParseSlotDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return NormalizeDate(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format %q", raw)
}

// SortSlots orders slots ascending by date, breaking ties by center name so
// dispatch order is deterministic.
func SortSlots(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].Date.Equal(slots[j].Date) {
			return slots[i].Date.Before(slots[j].Date)
		}
		return slots[i].Center < slots[j].Center
	})
}
