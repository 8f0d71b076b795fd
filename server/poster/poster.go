package poster

import (
	"github.com/pkg/errors"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"

	"github.com/ibidi/schengen-visa-bot/server/formatter"
	"github.com/ibidi/schengen-visa-bot/server/provider"
)

// Poster delivers session notifications to users as bot direct messages.
// This struct is stateless - it only holds immutable configuration (API and botID).
type Poster struct {
	api   plugin.API
	botID string
}

// New creates a new Poster instance.
func New(api plugin.API, botID string) *Poster {
	return &Poster{
		api:   api,
		botID: botID,
	}
}

// Notify sends a plain markdown message to the user's DM channel with the bot.
func (p *Poster) Notify(userID, message string) error {
	channelID, err := p.directChannelID(userID)
	if err != nil {
		return err
	}

	post := &model.Post{
		UserId:    p.botID,
		ChannelId: channelID,
		Message:   message,
	}

	if _, appErr := p.api.CreatePost(post); appErr != nil {
		return errors.Wrap(appErr, "failed to create post")
	}
	return nil
}

// NotifySlot sends one found appointment slot to the user as a formatted
// attachment post.
func (p *Poster) NotifySlot(userID string, slot provider.Slot) error {
	channelID, err := p.directChannelID(userID)
	if err != nil {
		return err
	}

	attachment := formatter.FormatSlot(slot)

	post := &model.Post{
		UserId:    p.botID,
		ChannelId: channelID,
		Type:      model.PostTypeSlackAttachment,
		Props:     model.StringInterface{},
	}
	model.ParseSlackAttachment(post, []*model.SlackAttachment{attachment})

	if _, appErr := p.api.CreatePost(post); appErr != nil {
		return errors.Wrap(appErr, "failed to create post")
	}
	return nil
}

// directChannelID resolves the DM channel between the bot and the user.
func (p *Poster) directChannelID(userID string) (string, error) {
	channel, appErr := p.api.GetDirectChannel(userID, p.botID)
	if appErr != nil {
		return "", errors.Wrap(appErr, "failed to get direct channel")
	}
	return channel.Id, nil
}
