package handlers

import (
	"encoding/json"
	"net/http"

	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/storage"
	"tryon/internal/tryon"
	"tryon/internal/worker"
)

// App is the handler container. All collaborators are injected by the
// composition root; handlers hold no global state.
type App struct {
	Logger     infra.Logger
	Records    domain.TryOnRepository
	Store      *storage.FileStore
	Pool       *worker.Pool
	Pipeline   *tryon.Pipeline
	MaxRetries int
}

// NewApp builds the handler container.
func NewApp(logger infra.Logger, records domain.TryOnRepository, store *storage.FileStore, pool *worker.Pool, pipeline *tryon.Pipeline, maxRetries int) *App {
	if maxRetries < 1 {
		maxRetries = tryon.DefaultMaxRetries
	}
	return &App{
		Logger:     logger,
		Records:    records,
		Store:      store,
		Pool:       pool,
		Pipeline:   pipeline,
		MaxRetries: maxRetries,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error":   code,
		"message": message,
	})
}
