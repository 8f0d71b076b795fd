package main

import (
	"fmt"
	"strings"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/pkg/errors"

	"github.com/ibidi/schengen-visa-bot/server/conversation"
	"github.com/ibidi/schengen-visa-bot/server/formatter"
	"github.com/ibidi/schengen-visa-bot/server/session"
)

const commandTrigger = "visawatch"

const commandHelp = `**Visa Appointment Checker**
* |/visawatch check| - set up and start an appointment check
* |/visawatch stop| - stop your active check
* |/visawatch status| - show what is being watched
* |/visawatch history| - show your recent check results
* |/visawatch help| - show this text`

func (p *Plugin) registerCommand() error {
	return p.API.RegisterCommand(&model.Command{
		Trigger:          commandTrigger,
		AutoComplete:     true,
		AutoCompleteDesc: "Watch visa appointment slots and get a DM when one opens",
		AutoCompleteHint: "[check|stop|status|history|help]",
	})
}

// ExecuteCommand handles /visawatch invocations.
func (p *Plugin) ExecuteCommand(_ *plugin.Context, args *model.CommandArgs) (*model.CommandResponse, *model.AppError) {
	fields := strings.Fields(args.Command)

	subcommand := "help"
	if len(fields) > 1 {
		subcommand = fields[1]
	}

	switch subcommand {
	case "check":
		return p.executeCheck(args.UserId)
	case "stop":
		return p.executeStop(args.UserId)
	case "status":
		return p.executeStatus(args.UserId)
	case "history":
		return p.executeHistory(args.UserId)
	default:
		return ephemeralResponse(strings.ReplaceAll(commandHelp, "|", "`")), nil
	}
}

func (p *Plugin) executeCheck(userID string) (*model.CommandResponse, *model.AppError) {
	prompt := p.conversations.Begin(userID)

	if err := p.sendPrompt(userID, prompt); err != nil {
		p.API.LogError("Failed to send configuration prompt", "userId", userID, "error", err.Error())
		return ephemeralResponse("❌ Could not start the configuration dialog. Please try again."), nil
	}

	return ephemeralResponse("📩 I sent you a direct message to set up your appointment check."), nil
}

func (p *Plugin) executeStop(userID string) (*model.CommandResponse, *model.AppError) {
	// A stop also abandons a half-finished dialog.
	p.conversations.Cancel(userID)

	stopped, err := p.registry.Stop(userID)
	if err != nil {
		p.API.LogError("Failed to stop session", "userId", userID, "error", err.Error())
		return ephemeralResponse("❌ Could not stop the check. Please try again."), nil
	}
	if !stopped {
		return ephemeralResponse("ℹ️ You have no active appointment check."), nil
	}

	return ephemeralResponse(formatter.StoppedMessage()), nil
}

func (p *Plugin) executeStatus(userID string) (*model.CommandResponse, *model.AppError) {
	state, config, ok := p.registry.Status(userID)
	active := ok && state == session.StateActive
	return ephemeralResponse(formatter.StatusText(active, config.Country, config.City, config.FrequencyMinutes)), nil
}

func (p *Plugin) executeHistory(userID string) (*model.CommandResponse, *model.AppError) {
	history, err := p.recorder.History(userID)
	if err != nil {
		p.API.LogError("Failed to load check history", "userId", userID, "error", err.Error())
		return ephemeralResponse("❌ Could not load your check history."), nil
	}
	if len(history) == 0 {
		return ephemeralResponse("ℹ️ No check results recorded yet."), nil
	}

	const shown = 10
	if len(history) > shown {
		history = history[len(history)-shown:]
	}

	var sb strings.Builder
	sb.WriteString("**Recent checks**\n")
	for _, result := range history {
		line := fmt.Sprintf("* `%s` check #%d: %s", result.Timestamp.Format("02.01 15:04"), result.Cycle, result.Outcome)
		if result.SlotCount > 0 {
			line += fmt.Sprintf(" (%d slots)", result.SlotCount)
		}
		if result.Err != "" {
			line += fmt.Sprintf(" (%s)", result.Err)
		}
		sb.WriteString(line + "\n")
	}

	return ephemeralResponse(sb.String()), nil
}

// sendPrompt posts a dialog question with its answer buttons to the user's
// DM channel with the bot.
func (p *Plugin) sendPrompt(userID string, prompt conversation.Prompt) error {
	channel, appErr := p.API.GetDirectChannel(userID, p.botID)
	if appErr != nil {
		return errors.Wrap(appErr, "failed to get direct channel")
	}

	post := &model.Post{
		UserId:    p.botID,
		ChannelId: channel.Id,
	}
	model.ParseSlackAttachment(post, []*model.SlackAttachment{promptAttachment(prompt)})

	if _, appErr := p.API.CreatePost(post); appErr != nil {
		return errors.Wrap(appErr, "failed to create prompt post")
	}
	return nil
}

// promptAttachment renders a dialog question as an attachment whose buttons
// carry the step and value back to the action endpoint.
func promptAttachment(prompt conversation.Prompt) *model.SlackAttachment {
	actions := make([]*model.PostAction, 0, len(prompt.Options))
	for _, option := range prompt.Options {
		actions = append(actions, &model.PostAction{
			Type: model.PostActionTypeButton,
			Name: option.Label,
			Integration: &model.PostActionIntegration{
				URL: fmt.Sprintf("/plugins/%s/api/v1/action/select", pluginID),
				Context: map[string]any{
					"step":  string(prompt.Step),
					"value": option.Value,
				},
			},
		})
	}

	return &model.SlackAttachment{
		Text:    prompt.Text,
		Actions: actions,
	}
}

func ephemeralResponse(text string) *model.CommandResponse {
	return &model.CommandResponse{
		ResponseType: model.CommandResponseTypeEphemeral,
		Text:         text,
	}
}
