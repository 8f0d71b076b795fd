package main

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/ibidi/schengen-visa-bot/server/provider/portal"
)

// configuration captures the plugin's external configuration as exposed in the Mattermost server
// configuration, as well as values computed from the configuration. Any public fields will be
// deserialized from the Mattermost server configuration in OnConfigurationChange.
//
// As plugins are inherently concurrent (hooks being called asynchronously), and the plugin
// configuration can change at any time, access to the configuration must be synchronized. The
// strategy used in this plugin is to guard a pointer to the configuration, and clone the entire
// struct whenever it changes. You may replace this with whatever strategy you choose.
//
// If you add non-reference types to your configuration struct, be sure to rewrite Clone as a deep
// copy appropriate for your types.
type configuration struct {
	// BotUsername overrides the default bot account username.
	BotUsername string `json:"botUsername"`

	// BotDisplayName overrides the default bot account display name.
	BotDisplayName string `json:"botDisplayName"`

	// AggregatorURL overrides the community feed endpoint.
	AggregatorURL string `json:"aggregatorUrl"`

	// HomeCountry is the applicant country the aggregator feed is filtered by.
	HomeCountry string `json:"homeCountry"`

	// EnableHeartbeat sends a still-alive message every tenth empty check.
	EnableHeartbeat bool `json:"enableHeartbeat"`

	// EnableRepeatSuppression skips re-announcing a slot already sent to
	// the same user within the suppression window.
	EnableRepeatSuppression bool `json:"enableRepeatSuppression"`

	// Portals is an array of authenticated portal accounts.
	// Each entry routes one provider group away from the aggregator feed.
	Portals []portal.Credentials `json:"portals"`
}

// Clone creates a deep copy of the configuration.
// This ensures that slice modifications don't affect the original.
func (c *configuration) Clone() *configuration {
	clone := *c

	// Deep copy the Portals slice
	if c.Portals != nil {
		clone.Portals = make([]portal.Credentials, len(c.Portals))
		copy(clone.Portals, c.Portals)
	}

	return &clone
}

// getConfiguration retrieves the active configuration under lock, making it safe to use
// concurrently. The active configuration may change underneath the client of this method, but
// the struct returned by this API call is considered immutable.
func (p *Plugin) getConfiguration() *configuration {
	p.configurationLock.RLock()
	defer p.configurationLock.RUnlock()

	if p.configuration == nil {
		return &configuration{}
	}

	return p.configuration
}

// setConfiguration replaces the active configuration under lock.
//
// Do not call setConfiguration while holding the configurationLock, as sync.Mutex is not
// reentrant. In particular, avoid using the plugin API entirely, as this may in turn trigger a
// hook back into the plugin. If that hook attempts to acquire this lock, a deadlock may occur.
//
// This method panics if setConfiguration is called with the existing configuration. This almost
// certainly means that the configuration was modified without being cloned and may result in
// an unsafe access.
func (p *Plugin) setConfiguration(configuration *configuration) {
	p.configurationLock.Lock()
	defer p.configurationLock.Unlock()

	if configuration != nil && p.configuration == configuration {
		// Ignore assignment if the configuration struct is empty. Go will optimize the
		// allocation for same to point at the same memory address, breaking the check
		// above.
		if reflect.ValueOf(*configuration).NumField() == 0 {
			return
		}

		panic("setConfiguration called with the existing configuration")
	}

	p.configuration = configuration
}

// OnConfigurationChange is invoked when configuration changes may have been made.
func (p *Plugin) OnConfigurationChange() error {
	var newConfig = new(configuration)

	// Load the public configuration fields from the Mattermost server configuration.
	if err := p.API.LoadPluginConfiguration(newConfig); err != nil {
		return errors.Wrap(err, "failed to load plugin configuration")
	}

	// Validate portal account configurations
	if err := portal.ValidateCredentials(newConfig.Portals); err != nil {
		return errors.Wrap(err, "invalid portal configuration")
	}

	p.setConfiguration(newConfig)

	// OnConfigurationChange fires before OnActivate on startup; the router
	// is first built during activation.
	if p.client != nil {
		p.rebuildRouter(newConfig)
	}

	return nil
}
