package poster

import (
	"testing"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin/plugintest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ibidi/schengen-visa-bot/server/provider"
)

func TestNotify_Success(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	botID := "bot-user-id"
	userID := "user-id"
	channelID := "dm-channel-id"

	api.On("GetDirectChannel", userID, botID).Return(&model.Channel{Id: channelID}, nil).Once()

	api.On("CreatePost", mock.MatchedBy(func(post *model.Post) bool {
		assert.Equal(t, botID, post.UserId, "DM should be posted as the bot")
		assert.Equal(t, channelID, post.ChannelId, "DM should target the direct channel")
		assert.Equal(t, "hello", post.Message)
		return true
	})).Return(&model.Post{Id: "post-id"}, nil).Once()

	poster := New(api, botID)
	err := poster.Notify(userID, "hello")

	require.NoError(t, err)
}

func TestNotify_DirectChannelError(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	botID := "bot-user-id"
	userID := "user-id"

	appErr := &model.AppError{
		Id:      "app.channel.create_direct_channel.internal_error",
		Message: "Failed to create direct channel",
	}
	api.On("GetDirectChannel", userID, botID).Return(nil, appErr).Once()

	poster := New(api, botID)
	err := poster.Notify(userID, "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get direct channel")
}

func TestNotify_CreatePostError(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	botID := "bot-user-id"
	userID := "user-id"

	api.On("GetDirectChannel", userID, botID).Return(&model.Channel{Id: "dm-channel-id"}, nil).Once()

	appErr := &model.AppError{
		Id:      "app.post.create.error",
		Message: "Failed to create post",
	}
	api.On("CreatePost", mock.Anything).Return(nil, appErr).Once()

	poster := New(api, botID)
	err := poster.Notify(userID, "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create post")
}

func TestNotifySlot_Success(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	botID := "bot-user-id"
	userID := "user-id"
	channelID := "dm-channel-id"

	slot := provider.Slot{
		Country:     "France",
		City:        "Istanbul",
		Center:      "France Visa Application Centre - Istanbul",
		Date:        time.Date(2025, 3, 5, 10, 30, 0, 0, time.UTC),
		Category:    "Short Term",
		BookingLink: "https://example.com/book",
	}

	api.On("GetDirectChannel", userID, botID).Return(&model.Channel{Id: channelID}, nil).Once()

	api.On("CreatePost", mock.MatchedBy(func(post *model.Post) bool {
		assert.Equal(t, botID, post.UserId)
		assert.Equal(t, channelID, post.ChannelId)
		assert.Equal(t, model.PostTypeSlackAttachment, post.Type)

		attachments, ok := post.Props["attachments"]
		assert.True(t, ok, "slot post props should contain attachments")
		assert.NotNil(t, attachments)

		return true
	})).Return(&model.Post{Id: "post-id"}, nil).Once()

	poster := New(api, botID)
	err := poster.NotifySlot(userID, slot)

	require.NoError(t, err)
}

func TestNotifySlot_CreatePostError(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	botID := "bot-user-id"
	userID := "user-id"

	api.On("GetDirectChannel", userID, botID).Return(&model.Channel{Id: "dm-channel-id"}, nil).Once()

	appErr := &model.AppError{
		Id:      "app.post.create.error",
		Message: "Failed to create post",
	}
	api.On("CreatePost", mock.Anything).Return(nil, appErr).Once()

	poster := New(api, botID)
	err := poster.NotifySlot(userID, provider.Slot{Country: "France", City: "Ankara"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create post")
}
