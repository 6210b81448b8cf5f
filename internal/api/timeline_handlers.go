package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/refract/refract-studio/internal/editor"
	"github.com/refract/refract-studio/internal/timeline"
)

// openSession resolves the {id} URL parameter to an editing session, writing
// the error response itself when it cannot.
func openSession(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (*editor.Session, bool) {
	s, err := cfg.Editor.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, cfg, err, "failed to open timeline")
		return nil, false
	}
	return s, true
}

// clipFromURL checks that the {clipID} URL parameter names a clip.
func clipFromURL(w http.ResponseWriter, r *http.Request, s *editor.Session) (timeline.Clip, bool) {
	c, ok := s.Clip(chi.URLParam(r, "clipID"))
	if !ok {
		WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
		return timeline.Clip{}, false
	}
	return c, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func getTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, s.State())
	}
}

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}

		var req AddClipRequest
		if !decodeBody(w, r, &req) {
			return
		}

		c, err := s.AddClip(r.Context(), req.Spec())
		if err != nil {
			writeServiceError(w, cfg, err, "failed to add clip")
			return
		}
		WriteJSON(w, http.StatusCreated, ClipResponse{Clip: c, Timeline: s.State()})
	}
}

// removeClipHandler deletes a clip. Removing the only clip is accepted and
// leaves the timeline unchanged.
func removeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}
		c, ok := clipFromURL(w, r, s)
		if !ok {
			return
		}

		s.RemoveClip(c.ID)
		WriteJSON(w, http.StatusOK, s.State())
	}
}

func updateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}
		c, ok := clipFromURL(w, r, s)
		if !ok {
			return
		}

		var req UpdateClipRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.empty() {
			WriteError(w, http.StatusBadRequest, "nothing to update", "BAD_REQUEST")
			return
		}

		s.UpdateClip(c.ID, req.Patch())
		updated, _ := s.Clip(c.ID)
		WriteJSON(w, http.StatusOK, ClipResponse{Clip: updated, Timeline: s.State()})
	}
}

func reorderClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}
		c, ok := clipFromURL(w, r, s)
		if !ok {
			return
		}

		var req ReorderRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Index == nil {
			WriteError(w, http.StatusBadRequest, "index is required", "BAD_REQUEST")
			return
		}

		s.ReorderClip(c.ID, *req.Index)
		WriteJSON(w, http.StatusOK, s.State())
	}
}

func repackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}
		s.Repack()
		WriteJSON(w, http.StatusOK, s.State())
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}

		var req SeekRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Time == nil {
			WriteError(w, http.StatusBadRequest, "time is required", "BAD_REQUEST")
			return
		}

		pos := s.Seek(*req.Time)
		WriteJSON(w, http.StatusOK, SeekResponse{Position: pos, Timeline: s.State()})
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}
		s.Play()
		WriteJSON(w, http.StatusOK, s.State())
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}
		s.Pause()
		WriteJSON(w, http.StatusOK, s.State())
	}
}

func dragBeginHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}

		var req DragBeginRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ClipID == "" || req.PointerX == nil || !finite(*req.PointerX) {
			WriteError(w, http.StatusBadRequest, "clip_id and pointer_x are required", "BAD_REQUEST")
			return
		}

		err := s.DragBegin(req.ClipID, *req.PointerX)
		switch {
		case errors.Is(err, timeline.ErrUnknownClip):
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		case errors.Is(err, timeline.ErrDragActive):
			WriteError(w, http.StatusConflict, err.Error(), "DRAG_ACTIVE")
			return
		case err != nil:
			writeServiceError(w, cfg, err, "failed to begin drag")
			return
		}
		WriteJSON(w, http.StatusOK, s.State())
	}
}

// dragMoveHandler reports a pointer position. A move that would overlap
// another clip is not an error; the clip stays at its last valid start.
func dragMoveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}

		var req DragMoveRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.PointerX == nil || !finite(*req.PointerX) {
			WriteError(w, http.StatusBadRequest, "pointer_x is required", "BAD_REQUEST")
			return
		}

		start, accepted, err := s.DragMove(*req.PointerX)
		if errors.Is(err, editor.ErrNoDrag) {
			WriteError(w, http.StatusConflict, err.Error(), "NO_DRAG")
			return
		}
		WriteJSON(w, http.StatusOK, DragMoveResponse{
			Accepted:  accepted,
			StartTime: start,
			Timeline:  s.State(),
		})
	}
}

func dragEndHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}

		result, err := s.DragEnd()
		if errors.Is(err, editor.ErrNoDrag) {
			WriteError(w, http.StatusConflict, err.Error(), "NO_DRAG")
			return
		}
		WriteJSON(w, http.StatusOK, DragEndResponse{Result: result, Timeline: s.State()})
	}
}

func updateViewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}

		var req ViewRequest
		if !decodeBody(w, r, &req) {
			return
		}
		s.UpdateView(req.Patch())
		WriteJSON(w, http.StatusOK, s.State())
	}
}

func saveTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}
		if err := s.Save(r.Context()); err != nil {
			writeServiceError(w, cfg, err, "failed to save timeline")
			return
		}
		WriteJSON(w, http.StatusOK, s.State())
	}
}

// clipMediaHandler streams a clip's local source file for the preview
// player. Only files under the configured media directory are served.
func clipMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := openSession(w, r, cfg)
		if !ok {
			return
		}
		c, ok := clipFromURL(w, r, s)
		if !ok {
			return
		}

		if c.Source == "" || strings.Contains(c.Source, "://") {
			WriteError(w, http.StatusNotFound, "clip has no local source", "NO_SOURCE")
			return
		}

		path, ok := mediaPath(cfg.MediaDir, c.Source)
		if !ok {
			WriteError(w, http.StatusForbidden, "source is outside the media directory", "FORBIDDEN")
			return
		}

		if err := cfg.MediaServer.ServeFile(w, r, path); err != nil {
			cfg.Logger.Error("media error", "error", err, "clip_id", c.ID)
		}
	}
}

// mediaPath resolves source and the media directory through any symlinks
// and returns the real file path when it lies inside the directory. A
// missing file resolves to its absolute path so it can be reported as 404.
func mediaPath(dir, source string) (string, bool) {
	if dir == "" {
		return "", false
	}
	base, err := realPath(dir)
	if err != nil {
		return "", false
	}
	path, err := realPath(source)
	if err != nil || !withinDir(base, path) {
		return "", false
	}
	return path, true
}

func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if !errors.Is(err, fs.ErrNotExist) {
		return resolved, err
	}
	// A dangling symlink has no target to check.
	if _, lerr := os.Lstat(abs); lerr == nil {
		return "", err
	}
	if parent, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(parent, filepath.Base(abs)), nil
	}
	return abs, nil
}

func withinDir(dir, path string) bool {
	if dir == "" {
		return false
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
