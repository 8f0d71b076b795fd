package main

import (
	"strings"
	"sync"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/mattermost/mattermost/server/public/pluginapi"
	"github.com/pkg/errors"

	"github.com/ibidi/schengen-visa-bot/server/audit"
	"github.com/ibidi/schengen-visa-bot/server/conversation"
	"github.com/ibidi/schengen-visa-bot/server/dispatch"
	"github.com/ibidi/schengen-visa-bot/server/poster"
	"github.com/ibidi/schengen-visa-bot/server/provider"
	"github.com/ibidi/schengen-visa-bot/server/provider/aggregator"
	"github.com/ibidi/schengen-visa-bot/server/provider/portal"
	"github.com/ibidi/schengen-visa-bot/server/session"
)

// pluginID must match the manifest id; it anchors the interactive action URLs.
const pluginID = "com.ibidi.schengen-visa-bot"

// Plugin implements the interface expected by the Mattermost server to communicate between the server and plugin processes.
type Plugin struct {
	plugin.MattermostPlugin

	// client is the Mattermost server API client.
	client *pluginapi.Client

	// configurationLock synchronizes access to the configuration.
	configurationLock sync.RWMutex

	// configuration is the active plugin configuration. Consult getConfiguration and
	// setConfiguration for usage.
	configuration *configuration

	// routerLock guards router, which is swapped wholesale on configuration changes.
	routerLock sync.RWMutex

	// router picks the slot provider for a watched country.
	router *provider.Router

	// registry manages all active watch sessions.
	registry *session.Registry

	// poster delivers notifications as bot direct messages.
	poster *poster.Poster

	// recorder keeps the per-user audit trail of poll cycles.
	recorder *audit.Recorder

	// suppressor is shared across all sessions to skip repeat slot notifications.
	suppressor *dispatch.Suppressor

	// conversations tracks in-flight configuration dialogs.
	conversations *conversation.Manager

	// botID is the bot account the plugin posts as.
	botID string
}

// OnActivate is invoked when the plugin is activated. If an error is returned, the plugin will be deactivated.
func (p *Plugin) OnActivate() error {
	p.client = pluginapi.NewClient(p.API, p.Driver)
	p.recorder = audit.NewRecorder(p.API, p.client.Log)
	p.suppressor = dispatch.NewSuppressor(p.client.Log)
	p.conversations = conversation.NewManager()
	p.registry = session.NewRegistry(p.newRunner)

	config := p.getConfiguration()

	// Ensure bot user exists
	botUsername := config.BotUsername
	if botUsername == "" {
		botUsername = "visa-checker"
	}
	botDisplayName := config.BotDisplayName
	if botDisplayName == "" {
		botDisplayName = "Visa Appointment Checker"
	}

	botID, err := p.API.EnsureBotUser(&model.Bot{
		Username:    botUsername,
		DisplayName: botDisplayName,
		Description: "Bot that watches visa appointment feeds and messages you when a slot opens",
	})
	if err != nil {
		return errors.Wrap(err, "failed to ensure bot user")
	}
	p.botID = botID

	p.API.LogInfo("Bot user initialized", "botID", botID, "username", botUsername)

	p.poster = poster.New(p.API, botID)
	p.rebuildRouter(config)

	if err := p.registerCommand(); err != nil {
		return errors.Wrap(err, "failed to register command")
	}

	return nil
}

// OnDeactivate is invoked when the plugin is deactivated.
func (p *Plugin) OnDeactivate() error {
	if p.registry != nil {
		if err := p.registry.StopAll(); err != nil {
			p.API.LogError("Failed to stop all sessions during deactivation", "error", err.Error())
		}
	}

	if p.recorder != nil {
		p.recorder.Stop()
	}

	return nil
}

// rebuildRouter assembles a fresh provider router from the configuration and
// swaps it in. The community aggregator feed is always the fallback; each
// configured portal account claims its descriptor's countries.
func (p *Plugin) rebuildRouter(config *configuration) {
	feedURL := config.AggregatorURL
	if feedURL == "" {
		feedURL = aggregator.DefaultFeedURL
	}
	homeCountry := config.HomeCountry
	if homeCountry == "" {
		homeCountry = aggregator.DefaultHomeCountry
	}

	router := provider.NewRouter(aggregator.New(feedURL, homeCountry, p.client.Log))

	for _, creds := range config.Portals {
		desc, err := portal.DescriptorFor(creds.Type)
		if err != nil {
			// Validation rejects unknown types; this guards stale stored config.
			p.API.LogWarn("Skipping portal with unknown type", "id", creds.ID, "type", creds.Type)
			continue
		}
		router.SetCountries(desc.Countries, portal.New(desc, creds, p.client.Log))
		p.API.LogInfo("Portal routed", "type", creds.Type, "countries", strings.Join(desc.Countries, ","))
	}

	p.routerLock.Lock()
	p.router = router
	p.routerLock.Unlock()
}

// resolveAdapter picks the provider for a country against the current router.
// Runners call this every cycle, so a configuration change takes effect on
// the next poll without restarting sessions.
func (p *Plugin) resolveAdapter(country string) provider.Adapter {
	p.routerLock.RLock()
	defer p.routerLock.RUnlock()
	return p.router.Resolve(country)
}

// newRunner builds the polling runner for one session. Used as the registry's
// runner factory.
func (p *Plugin) newRunner(config session.Config) (*session.Runner, error) {
	pluginConfig := p.getConfiguration()

	opts := dispatch.Options{
		SuppressRepeats: pluginConfig.EnableRepeatSuppression,
		Heartbeat:       pluginConfig.EnableHeartbeat,
	}

	// A restarted session announces everything currently available again.
	if opts.SuppressRepeats {
		p.suppressor.Forget(config.UserID)
	}

	dispatcher := dispatch.NewDispatcher(
		config.UserID,
		config.Country,
		config.City,
		p.poster,
		p.suppressor,
		opts,
		p.client.Log,
	)

	return session.NewRunner(
		p.client,
		config,
		p.resolveAdapter,
		dispatcher,
		p.poster,
		p.recorder,
		p.registry.MarkStopped,
	), nil
}

// See https://developers.mattermost.com/extend/plugins/server/reference/
