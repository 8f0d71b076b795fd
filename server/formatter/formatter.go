package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/ibidi/schengen-visa-bot/server/provider"
)

// Attachment colors
const (
	ColorSlot    = "#2ECC71" // Green 🟢
	ColorWarning = "#FF9900" // Orange 🟠
	ColorStopped = "#FF0000" // Red 🔴
)

// slotDateFormat renders appointment dates the way travelers read them.
const slotDateFormat = "02.01.2006 15:04"

// FormatSlot converts a normalized provider.Slot into a Mattermost SlackAttachment
// with the appointment date, center, and booking link as structured fields.
func FormatSlot(slot provider.Slot) *model.SlackAttachment {
	attachment := &model.SlackAttachment{}

	attachment.Text = fmt.Sprintf("#### 🎉 Appointment slot found: %s", provider.DisplayName(slot.Country))
	attachment.Color = ColorSlot

	var fields []*model.SlackAttachmentField

	// 1. Date + Center (side by side)
	fields = append(fields,
		&model.SlackAttachmentField{
			Title: "Date",
			Value: formatSlotDate(slot.Date),
			Short: true,
		},
	)

	if slot.Center != "" {
		fields = append(fields, &model.SlackAttachmentField{
			Title: "Center",
			Value: slot.Center,
			Short: true,
		})
	}

	// 2. Visa category (with subcategory when present)
	if slot.Category != "" {
		fields = append(fields, &model.SlackAttachmentField{
			Title: "Category",
			Value: formatCategory(slot.Category, slot.Subcategory),
			Short: false,
		})
	}

	// 3. Booking link (last field)
	if slot.BookingLink != "" {
		fields = append(fields, &model.SlackAttachmentField{
			Title: "Booking",
			Value: fmt.Sprintf("[Book now](%s)", slot.BookingLink),
			Short: false,
		})
	}

	attachment.Fields = fields

	// Footer: country + city the session watches
	attachment.Footer = fmt.Sprintf("%s | %s", provider.DisplayName(slot.Country), slot.City)

	return attachment
}

// ReauthRequiredMessage is the terminal notification sent when a provider
// rejects the configured credentials. The session is stopped; the user must
// restart after fixing the account.
func ReauthRequiredMessage(providerName, country string) string {
	return fmt.Sprintf(
		"🔒 **Checks stopped for %s.**\nThe %s account was rejected and needs to be re-authenticated. Start a new check with `/visawatch check` once the account works again.",
		provider.DisplayName(country), providerName)
}

// EscalationMessage warns that checks kept failing. Sent once per streak.
func EscalationMessage(country, city string, failures int) string {
	return fmt.Sprintf(
		"⚠️ The last %d checks for %s / %s failed. Still retrying, this is usually a temporary provider outage.",
		failures, provider.DisplayName(country), city)
}

// HeartbeatMessage is the periodic still-alive note sent while no slots
// have been found.
func HeartbeatMessage(country, city string, cycle int) string {
	return fmt.Sprintf(
		"🔍 Check #%d: no appointment slots for %s / %s yet. Still watching.",
		cycle, provider.DisplayName(country), city)
}

// StartedMessage confirms a newly configured session.
func StartedMessage(country, city string, frequencyMinutes int) string {
	return fmt.Sprintf(
		"✅ **Watching %s / %s.**\nChecking every %s. You will get a message here as soon as a slot opens. Stop anytime with `/visawatch stop`.",
		provider.DisplayName(country), city, formatFrequency(frequencyMinutes))
}

// StoppedMessage confirms a stop request.
func StoppedMessage() string {
	return "🛑 Appointment checks stopped. Start again with `/visawatch check`."
}

// StatusText renders the session status line shown by `/visawatch status`.
func StatusText(active bool, country, city string, frequencyMinutes int) string {
	if !active {
		return "ℹ️ No active appointment check. Start one with `/visawatch check`."
	}
	return fmt.Sprintf(
		"▶️ Watching **%s / %s**, checking every %s.",
		provider.DisplayName(country), city, formatFrequency(frequencyMinutes))
}

// formatSlotDate formats an appointment date, falling back to a placeholder
// for feed entries without a parseable date.
func formatSlotDate(t time.Time) string {
	if t.IsZero() {
		return "Not announced"
	}
	return t.Format(slotDateFormat)
}

// formatCategory joins category and subcategory
func formatCategory(category, subcategory string) string {
	if subcategory == "" {
		return category
	}
	return fmt.Sprintf("%s / %s", category, subcategory)
}

func formatFrequency(minutes int) string {
	if minutes == 1 {
		return "minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// SlotSummary is a compact one-line rendering used in logs.
func SlotSummary(slot provider.Slot) string {
	parts := []string{provider.DisplayName(slot.Country), slot.Center, formatSlotDate(slot.Date)}
	return strings.Join(parts, " | ")
}
