package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vedran77/devaura/internal/service"
	"github.com/vedran77/devaura/internal/transport/http/middleware"
	"github.com/vedran77/devaura/pkg/validator"
	"go.uber.org/zap"
)

type MessageHandler struct {
	convService *service.ConversationService
	msgService  *service.MessageService
	log         *zap.Logger
}

func NewMessageHandler(convService *service.ConversationService, msgService *service.MessageService, log *zap.Logger) *MessageHandler {
	return &MessageHandler{convService: convService, msgService: msgService, log: log}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID := r.PathValue("id")

	var input struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	text := strings.TrimSpace(input.Text)
	if errs := validator.ValidateMessageText(text); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	if _, err := h.convService.GetConversationFor(r.Context(), userID, convID); err != nil {
		writeConversationError(w, h.log, "send message", err)
		return
	}

	msg, err := h.msgService.SendMessage(r.Context(), convID, userID, text)
	if err != nil {
		// The message exists; only the feed summary lags behind.
		if errors.Is(err, service.ErrSummaryStale) && msg != nil {
			h.log.Warn("message sent with stale summary", zap.String("conversation_id", convID), zap.Error(err))
			writeJSON(w, http.StatusCreated, msg)
			return
		}
		writeInternal(w, h.log, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID := r.PathValue("id")

	if _, err := h.convService.GetConversationFor(r.Context(), userID, convID); err != nil {
		writeConversationError(w, h.log, "list messages", err)
		return
	}

	msgs, err := h.msgService.ListMessages(r.Context(), convID)
	if err != nil {
		writeInternal(w, h.log, "list messages", err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
