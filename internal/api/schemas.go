package api

import (
	"github.com/refract/refract-studio/internal/editor"
	"github.com/refract/refract-studio/internal/project"
	"github.com/refract/refract-studio/internal/timeline"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
	Sessions int    `json:"sessions"`
	Playing  int    `json:"playing"`
}

// ProjectRequest is the dashboard's project document: a name plus the
// workflow fields, all camelCase.
type ProjectRequest struct {
	Name string `json:"name"`
	project.Workflow
}

type ProjectsResponse struct {
	Projects []*project.Project `json:"projects"`
}

type MoveRequest struct {
	Direction string `json:"direction"`
}

type AddClipRequest struct {
	ID           string   `json:"id,omitempty"`
	Title        string   `json:"title"`
	Source       string   `json:"source"`
	SourceLength float64  `json:"source_length"`
	Duration     float64  `json:"duration"`
	References   []string `json:"references"`
}

func (r AddClipRequest) Spec() timeline.ClipSpec {
	return timeline.ClipSpec{
		ID:           r.ID,
		Title:        r.Title,
		Source:       r.Source,
		SourceLength: r.SourceLength,
		Duration:     r.Duration,
		References:   r.References,
	}
}

type UpdateClipRequest struct {
	Title      *string   `json:"title"`
	TrimStart  *float64  `json:"trim_start"`
	TrimEnd    *float64  `json:"trim_end"`
	References *[]string `json:"references"`
}

func (r UpdateClipRequest) Patch() editor.ClipPatch {
	return editor.ClipPatch{
		Title:      r.Title,
		TrimStart:  r.TrimStart,
		TrimEnd:    r.TrimEnd,
		References: r.References,
	}
}

func (r UpdateClipRequest) empty() bool {
	return r.Title == nil && r.TrimStart == nil && r.TrimEnd == nil && r.References == nil
}

type ReorderRequest struct {
	Index *int `json:"index"`
}

type SeekRequest struct {
	Time *float64 `json:"time"`
}

type DragBeginRequest struct {
	ClipID   string   `json:"clip_id"`
	PointerX *float64 `json:"pointer_x"`
}

type DragMoveRequest struct {
	PointerX *float64 `json:"pointer_x"`
}

type ViewRequest struct {
	Zoom         *float64 `json:"zoom"`
	ZoomStep     int      `json:"zoom_step"`
	Snap         *bool    `json:"snap"`
	GridInterval *float64 `json:"grid_interval"`
}

func (r ViewRequest) Patch() editor.ViewPatch {
	return editor.ViewPatch{
		Zoom:         r.Zoom,
		ZoomStep:     r.ZoomStep,
		Snap:         r.Snap,
		GridInterval: r.GridInterval,
	}
}

type ClipResponse struct {
	Clip     timeline.Clip `json:"clip"`
	Timeline editor.State  `json:"timeline"`
}

type SeekResponse struct {
	Position timeline.Position `json:"position"`
	Timeline editor.State      `json:"timeline"`
}

type DragMoveResponse struct {
	Accepted  bool         `json:"accepted"`
	StartTime float64      `json:"start_time"`
	Timeline  editor.State `json:"timeline"`
}

type DragEndResponse struct {
	Result   timeline.DragState `json:"result"`
	Timeline editor.State       `json:"timeline"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
