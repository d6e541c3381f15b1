package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/api/middleware"
	"github.com/mokabook/bookstore/internal/models"
)

type Profiles interface {
	Get(ctx context.Context, userID int64) (*models.User, error)
	Update(ctx context.Context, userID int64, p models.ProfileUpdate) (*models.User, error)
}

type ProfileHandler struct {
	profiles Profiles
	log      zerolog.Logger
}

func NewProfileHandler(profiles Profiles, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, log: log}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.profiles.Get(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdate
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body", err.Error())
		return
	}
	u, err := h.profiles.Update(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
