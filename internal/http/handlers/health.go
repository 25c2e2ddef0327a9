package handlers

import (
	"net/http"

	"narrator/internal/infra"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "healthy", "service": infra.ServiceName})
}
