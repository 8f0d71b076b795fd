package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"

	"github.com/ibidi/schengen-visa-bot/server/conversation"
	"github.com/ibidi/schengen-visa-bot/server/formatter"
	"github.com/ibidi/schengen-visa-bot/server/session"
)

// ServeHTTP handles HTTP requests for the plugin.
// The root URL is currently <siteUrl>/plugins/com.ibidi.schengen-visa-bot/api/v1/.
func (p *Plugin) ServeHTTP(_ *plugin.Context, w http.ResponseWriter, r *http.Request) {
	router := mux.NewRouter()

	// Middleware to require that the user is logged in
	router.Use(p.MattermostAuthorizationRequired)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()

	apiRouter.HandleFunc("/action/select", p.handleActionSelect).Methods(http.MethodPost)
	apiRouter.HandleFunc("/session", p.handleGetSession).Methods(http.MethodGet)

	router.ServeHTTP(w, r)
}

func (p *Plugin) MattermostAuthorizationRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("Mattermost-User-ID")
		if userID == "" {
			http.Error(w, "Not authorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleActionSelect receives one dialog button press, advances the user's
// configuration dialog, and rewrites the triggering post with either the
// next question or the final confirmation.
func (p *Plugin) handleActionSelect(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("Mattermost-User-ID")

	var request model.PostActionIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	step, value := actionContext(request.Context)
	if step == "" || value == "" {
		http.Error(w, "Missing action context", http.StatusBadRequest)
		return
	}

	prompt, selection, err := p.conversations.HandleSelection(userID, conversation.Step(step), value)
	if err != nil {
		// Button press on a post from an abandoned dialog.
		writeActionResponse(w, &model.PostActionIntegrationResponse{
			EphemeralText: "ℹ️ This dialog is no longer active. Start over with `/visawatch check`.",
		})
		return
	}

	if selection != nil {
		p.completeDialog(w, userID, selection)
		return
	}

	writeActionResponse(w, &model.PostActionIntegrationResponse{
		Update: promptUpdatePost(*prompt),
	})
}

// completeDialog starts the session for a finished dialog and confirms in
// place of the last question.
func (p *Plugin) completeDialog(w http.ResponseWriter, userID string, selection *conversation.Selection) {
	config := session.Config{
		UserID:           userID,
		Category:         string(selection.Category),
		Country:          selection.Country,
		City:             selection.City,
		FrequencyMinutes: selection.FrequencyMinutes,
	}

	if err := p.registry.Start(config); err != nil {
		p.API.LogError("Failed to start session", "userId", userID, "error", err.Error())
		writeActionResponse(w, &model.PostActionIntegrationResponse{
			EphemeralText: "❌ Could not start the appointment check. Please try again.",
		})
		return
	}

	update := &model.Post{
		Message: formatter.StartedMessage(config.Country, config.City, config.FrequencyMinutes),
	}
	writeActionResponse(w, &model.PostActionIntegrationResponse{Update: update})
}

// handleGetSession reports the requesting user's session state as JSON.
func (p *Plugin) handleGetSession(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("Mattermost-User-ID")

	state, config, _ := p.registry.Status(userID)

	response := struct {
		State            string `json:"state"`
		Country          string `json:"country,omitempty"`
		City             string `json:"city,omitempty"`
		FrequencyMinutes int    `json:"frequencyMinutes,omitempty"`
	}{
		State:            string(state),
		Country:          config.Country,
		City:             config.City,
		FrequencyMinutes: config.FrequencyMinutes,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		p.API.LogWarn("Failed to write session response", "error", err.Error())
	}
}

// promptUpdatePost renders the next dialog question as a replacement for the
// triggering post, mirroring an edited message instead of stacking prompts.
func promptUpdatePost(prompt conversation.Prompt) *model.Post {
	post := &model.Post{}
	model.ParseSlackAttachment(post, []*model.SlackAttachment{promptAttachment(prompt)})
	return post
}

func actionContext(context map[string]any) (step, value string) {
	step, _ = context["step"].(string)
	value, _ = context["value"].(string)
	return step, value
}

func writeActionResponse(w http.ResponseWriter, response *model.PostActionIntegrationResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
