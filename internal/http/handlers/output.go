package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"narrator/internal/domain"
)

// Output serves a generated artifact; the content type follows the extension.
func (a *App) Output(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, info, err := a.Store.Resolve(name)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.Logger.Error().Err(err).Str("file", name).Msg("handler: resolve output")
		}
		a.json(w, http.StatusNotFound, map[string]string{"detail": "File not found"})
		return
	}
	f, err := os.Open(path)
	if err != nil {
		a.json(w, http.StatusNotFound, map[string]string{"detail": "File not found"})
		return
	}
	defer f.Close()
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
