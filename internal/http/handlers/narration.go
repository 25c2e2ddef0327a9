package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"narrator/internal/domain"
)

type narrationRequest struct {
	Story          string `json:"story" validate:"required"`
	CharacterImage string `json:"characterImage" validate:"required"`
}

type voiceRequest struct {
	Text       string `json:"text" validate:"required"`
	VoiceModel string `json:"voice_model"`
}

type voiceResponse struct {
	AudioURL string `json:"audio_url"`
}

func (a *App) GenerateNarration(w http.ResponseWriter, r *http.Request) {
	var req narrationRequest
	if !a.decode(w, r, &req) {
		return
	}
	resp, err := a.Narrations.StartNarration(r.Context(), req.Story, req.CharacterImage)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) GenerateVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if !a.decode(w, r, &req) {
		return
	}
	url, err := a.Narrations.GenerateVoice(r.Context(), req.Text, req.VoiceModel)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, voiceResponse{AudioURL: url})
}

func (a *App) NarrationStatus(w http.ResponseWriter, r *http.Request) {
	view, err := a.Narrations.Status(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", "invalid narration id")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "narration not found")
	case err != nil:
		a.serviceError(w, r, err)
	default:
		a.json(w, http.StatusOK, view)
	}
}

// serviceError exposes the error message to the caller; this API has no
// finer error codes for synchronous failures.
func (a *App) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidInput) {
		a.error(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		return
	}
	a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("handler: request failed")
	a.error(w, http.StatusInternalServerError, "internal", err.Error())
}
