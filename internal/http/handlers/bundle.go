package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"narrator/internal/domain"
	"narrator/internal/narration"
	"narrator/pkg/zip"
)

// NarrationBundle downloads every artifact of a job as one zip.
func (a *App) NarrationBundle(w http.ResponseWriter, r *http.Request) {
	view, err := a.Narrations.Status(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", "invalid narration id")
		return
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "narration not found")
		return
	case err != nil:
		a.serviceError(w, r, err)
		return
	}

	var entries []zip.Entry
	for _, art := range []*narration.ArtifactView{view.Voice, view.Character, view.Video} {
		if art == nil {
			continue
		}
		path, _, err := a.Store.Resolve(art.Name)
		if err != nil {
			continue
		}
		entries = append(entries, zip.Entry{Name: art.Name, Path: path})
	}
	if len(entries) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "narration not found")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zip"`, view.NarrationID))
	if err := zip.WriteArchive(w, entries); err != nil {
		a.Logger.Error().Err(err).Str("job_id", view.NarrationID).Msg("handler: bundle interrupted")
	}
}
