package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/refract/refract-studio/internal/export"
)

// exportHandler writes the project's current timeline as an EDL. The clips
// come from the editing session, so unsaved edits are exported too.
func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		format := strings.ToLower(req.Format)
		if format == "" {
			format = "edl"
		}
		if format != "edl" {
			WriteError(w, http.StatusBadRequest, "format must be edl", "BAD_REQUEST")
			return
		}

		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		p, err := cfg.Projects.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg, err, "failed to load project")
			return
		}
		if p == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}

		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}

		events, unresolved := export.EventsFromClips(s.State().Clips)
		if len(events) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "no clips have a source to export", "UNRESOLVABLE_CLIPS")
			return
		}

		name := req.Name
		if name == "" {
			name = p.Name
		}

		outputPath, err := export.WriteEDL(req.OutputDir, name, events, req.FrameRate)
		if err != nil {
			cfg.Logger.Error("export failed", "error", err, "project_id", p.ID)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		if unresolved == nil {
			unresolved = []string{}
		}
		WriteJSON(w, http.StatusOK, export.ExportResponse{
			Status:          "ok",
			Format:          format,
			OutputPath:      outputPath,
			ClipCount:       len(events),
			UnresolvedClips: unresolved,
		})
	}
}
