package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"narrator/internal/infra"
	"narrator/internal/narration"
	"narrator/internal/storage"
)

// NarrationService is the part of narration.Service the handlers use.
type NarrationService interface {
	StartNarration(ctx context.Context, story, imageRef string) (narration.Accepted, error)
	GenerateVoice(ctx context.Context, text, voiceModel string) (string, error)
	Status(ctx context.Context, jobID string) (narration.StatusView, error)
}

// Inline data URLs make narration bodies large.
const maxBodyBytes = 64 << 20

type App struct {
	Narrations NarrationService
	Store      *storage.FileStore
	Validate   *validator.Validate
	Logger     infra.Logger
}

func NewApp(svc NarrationService, store *storage.FileStore, logger infra.Logger) *App {
	return &App{
		Narrations: svc,
		Store:      store,
		Validate:   newValidator(),
		Logger:     logger,
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

type errorResponse struct {
	Error  string       `json:"error"`
	Code   string       `json:"code"`
	Fields []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Error: message, Code: code})
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON payload")
		return false
	}
	if err := a.Validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		resp := errorResponse{Error: "validation failed", Code: "validation_failed"}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				resp.Fields = append(resp.Fields, fieldError{Field: fe.Field(), Rule: fe.Tag()})
			}
		}
		a.json(w, http.StatusUnprocessableEntity, resp)
		return false
	}
	return true
}
