package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/refract/refract-studio/internal/config"
	"github.com/refract/refract-studio/internal/editor"
	"github.com/refract/refract-studio/internal/project"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Post("/projects", createProjectHandler(cfg))
		r.Get("/projects/{id}", getProjectHandler(cfg))
		r.Put("/projects/{id}", replaceProjectHandler(cfg))
		r.Delete("/projects/{id}", deleteProjectHandler(cfg))
		r.Post("/projects/{id}/shots/{shotID}/move", moveShotHandler(cfg))
		r.Post("/projects/{id}/text-shots/{shotID}/move", moveTextShotHandler(cfg))
		r.Post("/projects/{id}/export", exportHandler(cfg))

		r.Route("/projects/{id}/timeline", func(r chi.Router) {
			r.Get("/", getTimelineHandler(cfg))
			r.Post("/clips", addClipHandler(cfg))
			r.Delete("/clips/{clipID}", removeClipHandler(cfg))
			r.Patch("/clips/{clipID}", updateClipHandler(cfg))
			r.Post("/clips/{clipID}/reorder", reorderClipHandler(cfg))
			r.Post("/repack", repackHandler(cfg))
			r.Post("/seek", seekHandler(cfg))
			r.Post("/play", playHandler(cfg))
			r.Post("/pause", pauseHandler(cfg))
			r.Post("/drag/begin", dragBeginHandler(cfg))
			r.Post("/drag/move", dragMoveHandler(cfg))
			r.Post("/drag/end", dragEndHandler(cfg))
			r.Put("/view", updateViewHandler(cfg))
			r.Post("/save", saveTimelineHandler(cfg))

			r.Group(func(r chi.Router) {
				r.Use(LoopbackGuard())
				r.Get("/clips/{clipID}/media", clipMediaHandler(cfg))
				r.Head("/clips/{clipID}/media", clipMediaHandler(cfg))
			})
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		sessions, playing := 0, 0
		if cfg.Editor != nil {
			sessions = cfg.Editor.Len()
			playing = cfg.Editor.PlayingCount()
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
			Sessions: sessions,
			Playing:  playing,
		})
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Projects.List(r.Context())
		if err != nil {
			writeServiceError(w, cfg, err, "failed to list projects")
			return
		}
		WriteJSON(w, http.StatusOK, ProjectsResponse{Projects: projects})
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		p, err := cfg.Projects.Create(r.Context(), req.Name, req.Workflow)
		if err != nil {
			writeServiceError(w, cfg, err, "failed to create project")
			return
		}
		WriteJSON(w, http.StatusCreated, p)
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		p, err := cfg.Projects.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, cfg, err, "failed to load project")
			return
		}
		if p == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func replaceProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req ProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		p, err := cfg.Projects.Replace(r.Context(), id, req.Name, req.Workflow)
		if err != nil {
			writeServiceError(w, cfg, err, "failed to update project")
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := cfg.Projects.Delete(r.Context(), id); err != nil {
			writeServiceError(w, cfg, err, "failed to delete project")
			return
		}
		if cfg.Editor != nil {
			cfg.Editor.Close(id)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func moveShotHandler(cfg ServerConfig) http.HandlerFunc {
	return moveHandler(cfg, func(ctx context.Context, id, shotID string, dir project.Direction) (*project.Project, error) {
		return cfg.Projects.MoveShot(ctx, id, shotID, dir)
	})
}

func moveTextShotHandler(cfg ServerConfig) http.HandlerFunc {
	return moveHandler(cfg, func(ctx context.Context, id, shotID string, dir project.Direction) (*project.Project, error) {
		return cfg.Projects.MoveTextShot(ctx, id, shotID, dir)
	})
}

type moveFunc func(ctx context.Context, id, shotID string, dir project.Direction) (*project.Project, error)

// moveHandler shifts one shot a single step. Moves past either end leave the
// order unchanged and still return the project.
func moveHandler(cfg ServerConfig, move moveFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		shotID := chi.URLParam(r, "shotID")

		var req MoveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		p, err := move(r.Context(), id, shotID, project.Direction(req.Direction))
		if err != nil {
			writeServiceError(w, cfg, err, "failed to move shot")
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

// writeServiceError maps project and session errors onto status codes.
// Anything unexpected is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, cfg ServerConfig, err error, message string) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
	case errors.Is(err, project.ErrInvalidName), errors.Is(err, project.ErrInvalidDirection):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, editor.ErrSessionClosed):
		WriteError(w, http.StatusConflict, err.Error(), "SESSION_CLOSED")
	default:
		cfg.Logger.Error(message, "error", err)
		WriteError(w, http.StatusInternalServerError, message, "INTERNAL_ERROR")
	}
}
