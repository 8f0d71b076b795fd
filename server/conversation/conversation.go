// Package conversation drives the four-step dialog that configures an
// appointment check: visa category, destination country, departure city,
// and check frequency. Each user has at most one dialog in flight; an
// answer either advances the dialog one step or leaves it exactly where
// it was.
package conversation

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/ibidi/schengen-visa-bot/server/provider"
)

// Step identifies one question of the dialog.
type Step string

const (
	StepCategory  Step = "category"
	StepCountry   Step = "country"
	StepCity      Step = "city"
	StepFrequency Step = "frequency"
)

// Frequency bounds in minutes, offered as menu choices.
const (
	minFrequency = 1
	maxFrequency = 5
)

// Cities the aggregator feed announces application centers for.
var Cities = []string{"Ankara", "Istanbul", "Izmir", "Antalya", "Gaziantep", "Bursa", "Edirne"}

// categoryChoices maps selectable groups to menu labels.
var categoryChoices = []Option{
	{Value: string(provider.GroupSchengen), Label: "🇪🇺 Schengen"},
	{Value: string(provider.GroupVFS), Label: "🌍 UK & Commonwealth"},
	{Value: string(provider.GroupOther), Label: "🛂 Other visas"},
}

// Option is one selectable answer of a prompt.
type Option struct {
	Value string
	Label string
}

// Prompt is the question presented to the user, with the step the answers
// belong to so stale button presses can be detected.
type Prompt struct {
	Step    Step
	Text    string
	Options []Option
}

// Selection is the completed dialog output.
type Selection struct {
	Category         provider.Group
	Country          string
	City             string
	FrequencyMinutes int
}

type dialog struct {
	step      Step
	selection Selection
}

// Manager holds every in-flight dialog, keyed by user ID.
type Manager struct {
	mu      sync.Mutex
	dialogs map[string]*dialog
}

// NewManager creates an empty dialog manager.
func NewManager() *Manager {
	return &Manager{
		dialogs: make(map[string]*dialog),
	}
}

// Begin starts a fresh dialog for the user, replacing any dialog already in
// flight, and returns the first prompt.
func (m *Manager) Begin(userID string) Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dialogs[userID] = &dialog{step: StepCategory}
	return categoryPrompt()
}

// Cancel drops the user's in-flight dialog, if any.
func (m *Manager) Cancel(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.dialogs, userID)
}

// InProgress reports whether the user has a dialog in flight.
func (m *Manager) InProgress(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.dialogs[userID]
	return ok
}

// HandleSelection applies one answer. It returns the next prompt while the
// dialog continues, or the completed selection once the final step is
// answered. A stale step or an unknown value leaves the dialog untouched
// and re-issues the current prompt.
func (m *Manager) HandleSelection(userID string, step Step, value string) (*Prompt, *Selection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.dialogs[userID]
	if !ok {
		return nil, nil, errors.New("no configuration dialog in progress")
	}

	// A press on a button from an earlier prompt repeats the current
	// question instead of rewinding the dialog.
	if step != d.step {
		p := m.promptFor(d)
		return &p, nil, nil
	}

	switch d.step {
	case StepCategory:
		group, ok := parseCategory(value)
		if !ok {
			p := categoryPrompt()
			return &p, nil, nil
		}
		d.selection.Category = group
		d.step = StepCountry

	case StepCountry:
		if !validCountry(d.selection.Category, value) {
			p := countryPrompt(d.selection.Category)
			return &p, nil, nil
		}
		d.selection.Country = value
		d.step = StepCity

	case StepCity:
		if !validCity(value) {
			p := cityPrompt(d.selection.Country)
			return &p, nil, nil
		}
		d.selection.City = value
		d.step = StepFrequency

	case StepFrequency:
		minutes, ok := parseFrequency(value)
		if !ok {
			p := frequencyPrompt()
			return &p, nil, nil
		}
		d.selection.FrequencyMinutes = minutes

		selection := d.selection
		delete(m.dialogs, userID)
		return nil, &selection, nil
	}

	p := m.promptFor(d)
	return &p, nil, nil
}

func (m *Manager) promptFor(d *dialog) Prompt {
	switch d.step {
	case StepCountry:
		return countryPrompt(d.selection.Category)
	case StepCity:
		return cityPrompt(d.selection.Country)
	case StepFrequency:
		return frequencyPrompt()
	default:
		return categoryPrompt()
	}
}

func categoryPrompt() Prompt {
	return Prompt{
		Step:    StepCategory,
		Text:    "🎯 Which visa are you applying for?",
		Options: categoryChoices,
	}
}

func countryPrompt(group provider.Group) Prompt {
	tokens := provider.CountriesIn(group)
	options := make([]Option, 0, len(tokens))
	for _, token := range tokens {
		options = append(options, Option{Value: token, Label: provider.DisplayName(token)})
	}
	return Prompt{
		Step:    StepCountry,
		Text:    "🌍 Which country do you want an appointment for?",
		Options: options,
	}
}

func cityPrompt(country string) Prompt {
	options := make([]Option, 0, len(Cities))
	for _, city := range Cities {
		options = append(options, Option{Value: city, Label: city})
	}
	return Prompt{
		Step:    StepCity,
		Text:    fmt.Sprintf("🏙 Which city do you want to apply from for %s?", provider.DisplayName(country)),
		Options: options,
	}
}

func frequencyPrompt() Prompt {
	options := make([]Option, 0, maxFrequency)
	for minutes := minFrequency; minutes <= maxFrequency; minutes++ {
		label := fmt.Sprintf("⏱ %d minutes", minutes)
		if minutes == 1 {
			label = "⏱ 1 minute"
		}
		options = append(options, Option{Value: strconv.Itoa(minutes), Label: label})
	}
	return Prompt{
		Step:    StepFrequency,
		Text:    "⏰ How often should I check?",
		Options: options,
	}
}

func parseCategory(value string) (provider.Group, bool) {
	for _, choice := range categoryChoices {
		if choice.Value == value {
			return provider.Group(value), true
		}
	}
	return "", false
}

func validCountry(group provider.Group, token string) bool {
	for _, t := range provider.CountriesIn(group) {
		if t == token {
			return true
		}
	}
	return false
}

func validCity(city string) bool {
	for _, c := range Cities {
		if c == city {
			return true
		}
	}
	return false
}

func parseFrequency(value string) (int, bool) {
	minutes, err := strconv.Atoi(value)
	if err != nil || minutes < minFrequency || minutes > maxFrequency {
		return 0, false
	}
	return minutes, true
}
