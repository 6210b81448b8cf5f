package timeline

import "math"

const (
	DefaultPixelsPerSecond = 20.0
	DefaultGridInterval    = 1.0

	MinZoom  = 0.25
	MaxZoom  = 4.0
	ZoomStep = 0.25

	maxZoomSteps = int((MaxZoom - MinZoom) / ZoomStep)
)

// Grid controls snap-to-grid during interactive drags.
type Grid struct {
	Interval float64 `json:"interval"`
	Enabled  bool    `json:"enabled"`
}

func DefaultGrid() Grid {
	return Grid{Interval: DefaultGridInterval, Enabled: true}
}

// Snap rounds t to the nearest multiple of the grid interval. It is the
// identity when snapping is disabled or the interval is not positive.
func (g Grid) Snap(t float64) float64 {
	if !g.Enabled || !isFinite(g.Interval) || g.Interval <= 0 {
		return t
	}
	return math.Round(t/g.Interval) * g.Interval
}

// View maps between seconds and horizontal pixels. It never touches clip
// data; zoom only changes rendering and drag granularity.
type View struct {
	BasePixelsPerSecond float64 `json:"base_pixels_per_second"`
	Zoom                float64 `json:"zoom"`
}

func DefaultView() View {
	return View{BasePixelsPerSecond: DefaultPixelsPerSecond, Zoom: 1}
}

func (v View) PixelsPerSecond() float64 {
	base := v.BasePixelsPerSecond
	if !isFinite(base) || base <= 0 {
		base = DefaultPixelsPerSecond
	}
	return base * v.zoom()
}

func (v View) TimeToPixels(t float64) float64 {
	return t * v.PixelsPerSecond()
}

func (v View) PixelsToTime(px float64) float64 {
	return px / v.PixelsPerSecond()
}

// SetZoom clamps z into [MinZoom, MaxZoom] and rounds it to the nearest step.
func (v View) SetZoom(z float64) View {
	v.Zoom = clampZoom(z)
	return v
}

func (v View) ZoomIn() View {
	return v.ZoomBy(1)
}

func (v View) ZoomOut() View {
	return v.ZoomBy(-1)
}

// ZoomBy moves the zoom by steps increments of ZoomStep. Counts beyond the
// whole zoom range are clamped.
func (v View) ZoomBy(steps int) View {
	steps = max(-maxZoomSteps, min(steps, maxZoomSteps))
	return v.SetZoom(v.zoom() + float64(steps)*ZoomStep)
}

// zoom is the effective zoom; a zero View renders at 1x.
func (v View) zoom() float64 {
	if v.Zoom == 0 {
		return 1
	}
	return clampZoom(v.Zoom)
}

func clampZoom(z float64) float64 {
	if !isFinite(z) {
		return 1
	}
	z = math.Round(z/ZoomStep) * ZoomStep
	return clamp(z, MinZoom, MaxZoom)
}
