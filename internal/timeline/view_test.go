package timeline

import (
	"math"
	"testing"
)

func TestView_RoundTrip(t *testing.T) {
	times := []float64{0, 0.5, 1, 2.75, 15, 27.125, 3600}
	for _, zoom := range []float64{0.25, 0.5, 1, 1.75, 4} {
		v := DefaultView().SetZoom(zoom)
		for _, tt := range times {
			got := v.PixelsToTime(v.TimeToPixels(tt))
			if math.Abs(got-tt) > 1e-9 {
				t.Errorf("zoom %v: round trip of %v = %v", zoom, tt, got)
			}
		}
	}
}

func TestView_PixelsPerSecond(t *testing.T) {
	v := View{BasePixelsPerSecond: 40, Zoom: 2}
	if got := v.PixelsPerSecond(); got != 80 {
		t.Errorf("PixelsPerSecond() = %v, want 80", got)
	}
	if got := v.TimeToPixels(1.5); got != 120 {
		t.Errorf("TimeToPixels(1.5) = %v, want 120", got)
	}
	if got := v.PixelsToTime(40); got != 0.5 {
		t.Errorf("PixelsToTime(40) = %v, want 0.5", got)
	}
}

func TestView_Zoom(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"in range", 1.5, 1.5},
		{"rounds to step", 1.6, 1.5},
		{"below min", 0.1, 0.25},
		{"above max", 9, 4},
		{"zero clamps to min", 0, MinZoom},
		{"negative clamps to min", -3, MinZoom},
		{"nan resets", math.NaN(), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultView().SetZoom(tt.in).Zoom; got != tt.want {
				t.Errorf("SetZoom(%v).Zoom = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	v := DefaultView().SetZoom(MaxZoom).ZoomIn()
	if v.Zoom != MaxZoom {
		t.Errorf("ZoomIn past max = %v, want %v", v.Zoom, MaxZoom)
	}
	v = DefaultView().SetZoom(MinZoom).ZoomOut()
	if v.Zoom != MinZoom {
		t.Errorf("ZoomOut past min = %v, want %v", v.Zoom, MinZoom)
	}
	v = DefaultView().ZoomIn()
	if v.Zoom != 1.25 {
		t.Errorf("ZoomIn from 1 = %v, want 1.25", v.Zoom)
	}
	if got := (View{}).PixelsPerSecond(); got != DefaultPixelsPerSecond {
		t.Errorf("zero View PixelsPerSecond = %v, want %v", got, DefaultPixelsPerSecond)
	}
}

func TestView_ZoomBy(t *testing.T) {
	tests := []struct {
		steps int
		want  float64
	}{
		{0, 1},
		{2, 1.5},
		{-3, 0.25},
		{1 << 62, MaxZoom},
		{-1 << 62, MinZoom},
		{math.MaxInt, MaxZoom},
		{math.MinInt, MinZoom},
	}
	for _, tt := range tests {
		if got := DefaultView().ZoomBy(tt.steps).Zoom; got != tt.want {
			t.Errorf("ZoomBy(%d).Zoom = %v, want %v", tt.steps, got, tt.want)
		}
	}
}

func TestGrid_Snap(t *testing.T) {
	tests := []struct {
		name string
		grid Grid
		in   float64
		want float64
	}{
		{"rounds down", Grid{Interval: 1, Enabled: true}, 3.4, 3},
		{"rounds up", Grid{Interval: 1, Enabled: true}, 3.6, 4},
		{"half interval", Grid{Interval: 0.5, Enabled: true}, 3.3, 3.5},
		{"five seconds", Grid{Interval: 5, Enabled: true}, 12, 10},
		{"disabled", Grid{Interval: 1, Enabled: false}, 3.4, 3.4},
		{"zero interval", Grid{Interval: 0, Enabled: true}, 3.4, 3.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.grid.Snap(tt.in); got != tt.want {
				t.Errorf("Snap(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
