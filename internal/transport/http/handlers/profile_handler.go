package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/service"
	"github.com/vedran77/devaura/internal/transport/http/middleware"
	"github.com/vedran77/devaura/pkg/validator"
	"go.uber.org/zap"
)

const maxFeaturedLimit = 100

type ProfileHandler struct {
	profileService *service.ProfileService
	log            *zap.Logger
}

func NewProfileHandler(profileService *service.ProfileService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, log: log}
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	p, err := h.profileService.GetOwnProfile(r.Context(), userID)
	if err != nil {
		h.writeProfileError(w, "get own profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input domain.ProfileUpdate
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateProfileUpdate(input.DisplayName, input.Username, input.Bio, input.Website); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	p, err := h.profileService.UpdatePublicProfile(r.Context(), userID, input)
	if err != nil {
		h.writeProfileError(w, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r.Context())

	p, err := h.profileService.GetPublicProfile(r.Context(), viewerID, r.PathValue("id"))
	if err != nil {
		h.writeProfileError(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profileService.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeInternal(w, h.log, "search users", err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *ProfileHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= maxFeaturedLimit {
			limit = l
		}
	}

	profiles, err := h.profileService.FeaturedUsers(r.Context(), limit)
	if err != nil {
		writeInternal(w, h.log, "featured users", err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *ProfileHandler) UsernameAvailable(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if errs := validator.ValidateUsername(username); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	free, err := h.profileService.CheckUsernameAvailability(r.Context(), username)
	if err != nil {
		writeInternal(w, h.log, "check username", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": free})
}

func (h *ProfileHandler) writeProfileError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Profile not found")
	case errors.Is(err, service.ErrProfilePrivate):
		writeError(w, http.StatusForbidden, "PROFILE_PRIVATE", "This profile is private")
	case errors.Is(err, service.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "USERNAME_TAKEN", "Username is already taken")
	default:
		writeInternal(w, h.log, op, err)
	}
}
