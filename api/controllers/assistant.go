package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/eshoplite-backend/api/responses"
	"github.com/angelmondragon/eshoplite-backend/api/validators"
	"github.com/angelmondragon/eshoplite-backend/internal/assistant"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
)

// AgentChat answers one user turn, starting a conversation when the
// request carries no id.
func AgentChat(svc assistant.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unwired(w, r, logg, "assistant")
			return
		}
		var turn assistant.ChatRequest
		if err := validators.DecodeJSONBody(r, &turn); err != nil {
			fail(w, r, logg, err)
			return
		}
		reply, err := svc.Chat(r.Context(), turn)
		if err != nil {
			fail(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, reply)
	}
}

func DeleteConversation(svc assistant.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unwired(w, r, logg, "assistant")
			return
		}
		if err := svc.DeleteConversation(r.Context(), chi.URLParam(r, "conversationId")); err != nil {
			fail(w, r, logg, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
