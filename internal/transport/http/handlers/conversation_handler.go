package handlers

import (
	"errors"
	"net/http"

	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/service"
	"github.com/vedran77/devaura/internal/transport/http/middleware"
	"go.uber.org/zap"
)

type ConversationHandler struct {
	convService    *service.ConversationService
	profileService *service.ProfileService
	log            *zap.Logger
}

func NewConversationHandler(
	convService *service.ConversationService,
	profileService *service.ProfileService,
	log *zap.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		convService:    convService,
		profileService: profileService,
		log:            log,
	}
}

func (h *ConversationHandler) GetOrCreate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		UserID string `json:"user_id"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.UserID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id is required")
		return
	}
	if input.UserID == userID {
		writeError(w, http.StatusBadRequest, "CANNOT_DM_SELF", "Cannot start a conversation with yourself")
		return
	}

	otherDetails, err := h.profileService.ParticipantDetails(r.Context(), input.UserID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		} else {
			writeInternal(w, h.log, "load participant details", err)
		}
		return
	}

	// A caller without a profile still gets a conversation, shown as the
	// default display name.
	currentDetails, err := h.profileService.ParticipantDetails(r.Context(), userID)
	if err != nil && !errors.Is(err, service.ErrProfileNotFound) {
		writeInternal(w, h.log, "load participant details", err)
		return
	}

	conv, created, err := h.convService.GetOrCreateConversation(r.Context(), userID, input.UserID, currentDetails, otherDetails)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidParticipants) {
			writeError(w, http.StatusBadRequest, "INVALID_PARTICIPANTS", "Two different users are required")
		} else {
			writeInternal(w, h.log, "get or create conversation", err)
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, conv)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.convService.ListConversations(r.Context(), userID)
	if err != nil {
		writeInternal(w, h.log, "list conversations", err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conv, err := h.convService.GetConversationFor(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeConversationError(w, h.log, "get conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func writeConversationError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
	case errors.Is(err, service.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation")
	default:
		writeInternal(w, log, op, err)
	}
}
