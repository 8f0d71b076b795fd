package formatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibidi/schengen-visa-bot/server/provider"
)

func TestFormatSlot_AllFields(t *testing.T) {
	slot := provider.Slot{
		Country:     "France",
		City:        "Istanbul",
		Center:      "France Visa Application Centre - Istanbul",
		Date:        time.Date(2025, 3, 5, 10, 30, 0, 0, time.UTC),
		Category:    "Short Term Visa",
		Subcategory: "Tourism",
		BookingLink: "https://example.com/book",
	}

	attachment := FormatSlot(slot)

	assert.Contains(t, attachment.Text, "France")
	assert.Equal(t, ColorSlot, attachment.Color)
	require.Len(t, attachment.Fields, 4)

	assert.Equal(t, "Date", attachment.Fields[0].Title)
	assert.Equal(t, "05.03.2025 10:30", attachment.Fields[0].Value)
	assert.True(t, bool(attachment.Fields[0].Short))

	assert.Equal(t, "Center", attachment.Fields[1].Title)
	assert.Equal(t, slot.Center, attachment.Fields[1].Value)

	assert.Equal(t, "Category", attachment.Fields[2].Title)
	assert.Equal(t, "Short Term Visa / Tourism", attachment.Fields[2].Value)

	assert.Equal(t, "Booking", attachment.Fields[3].Title)
	assert.Equal(t, "[Book now](https://example.com/book)", attachment.Fields[3].Value)

	assert.Equal(t, "France | Istanbul", attachment.Footer)
}

func TestFormatSlot_MinimalFields(t *testing.T) {
	slot := provider.Slot{
		Country: "Netherlands",
		City:    "Ankara",
	}

	attachment := FormatSlot(slot)

	// Only the date field remains; empty center, category, and link are omitted
	require.Len(t, attachment.Fields, 1)
	assert.Equal(t, "Date", attachment.Fields[0].Title)
	assert.Equal(t, "Not announced", attachment.Fields[0].Value)
}

func TestFormatSlot_CategoryWithoutSubcategory(t *testing.T) {
	slot := provider.Slot{
		Country:  "Germany",
		City:     "Izmir",
		Center:   "Center",
		Category: "National Visa",
	}

	attachment := FormatSlot(slot)

	require.Len(t, attachment.Fields, 3)
	assert.Equal(t, "National Visa", attachment.Fields[2].Value)
}

func TestReauthRequiredMessage(t *testing.T) {
	message := ReauthRequiredMessage("VFS Global", "UK")

	assert.Contains(t, message, "United Kingdom")
	assert.Contains(t, message, "VFS Global")
	assert.Contains(t, message, "/visawatch check")
}

func TestEscalationMessage(t *testing.T) {
	message := EscalationMessage("France", "Istanbul", 3)

	assert.Contains(t, message, "3")
	assert.Contains(t, message, "France")
	assert.Contains(t, message, "Istanbul")
}

func TestHeartbeatMessage(t *testing.T) {
	message := HeartbeatMessage("Netherlands", "Ankara", 20)

	assert.Contains(t, message, "#20")
	assert.Contains(t, message, "Netherlands")
	assert.Contains(t, message, "Ankara")
}

func TestStartedMessage_SingularFrequency(t *testing.T) {
	message := StartedMessage("France", "Istanbul", 1)

	assert.Contains(t, message, "every minute")
	assert.NotContains(t, message, "1 minutes")
}

func TestStartedMessage_PluralFrequency(t *testing.T) {
	message := StartedMessage("France", "Istanbul", 5)

	assert.Contains(t, message, "every 5 minutes")
}

func TestStatusText_Inactive(t *testing.T) {
	message := StatusText(false, "", "", 0)

	assert.Contains(t, message, "No active appointment check")
}

func TestStatusText_Active(t *testing.T) {
	message := StatusText(true, "France", "Istanbul", 2)

	assert.Contains(t, message, "France / Istanbul")
	assert.Contains(t, message, "every 2 minutes")
}

func TestSlotSummary(t *testing.T) {
	slot := provider.Slot{
		Country: "France",
		Center:  "Istanbul Centre",
		Date:    time.Date(2025, 3, 5, 10, 30, 0, 0, time.UTC),
	}

	assert.Equal(t, "France | Istanbul Centre | 05.03.2025 10:30", SlotSummary(slot))
}
