package editor

import (
	"time"

	"github.com/refract/refract-studio/internal/config"
	"github.com/refract/refract-studio/internal/playback"
	"github.com/refract/refract-studio/internal/timeline"
)

const (
	DefaultMaxSessions = 32
	DefaultDragLease   = 5 * time.Second
)

// Settings are the defaults a new session starts with.
type Settings struct {
	Timeline     timeline.Settings
	View         timeline.View
	TickInterval time.Duration
	DragLease    time.Duration
	MaxSessions  int
	ProbeTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Timeline:     timeline.DefaultSettings(),
		View:         timeline.DefaultView(),
		TickInterval: playback.DefaultTickInterval,
		DragLease:    DefaultDragLease,
		MaxSessions:  DefaultMaxSessions,
	}
}

// SettingsFromConfig maps the [editor] config section onto session defaults.
func SettingsFromConfig(cfg config.Editor) Settings {
	return Settings{
		Timeline: timeline.Settings{
			DefaultDuration: cfg.DefaultClipSeconds,
			Grid: timeline.Grid{
				Interval: cfg.GridSeconds,
				Enabled:  cfg.Snap,
			},
		},
		View: timeline.View{
			BasePixelsPerSecond: cfg.PixelsPerSecond,
			Zoom:                cfg.Zoom,
		},
		TickInterval: cfg.TickInterval(),
		DragLease:    cfg.DragLease(),
		MaxSessions:  cfg.MaxSessions,
		ProbeTimeout: cfg.ProbeTimeout(),
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.Timeline.DefaultDuration <= 0 {
		s.Timeline.DefaultDuration = d.Timeline.DefaultDuration
	}
	if s.View.BasePixelsPerSecond <= 0 {
		s.View.BasePixelsPerSecond = d.View.BasePixelsPerSecond
	}
	// An unset zoom means 1x; anything else is clamped to the zoom steps.
	if s.View.Zoom == 0 {
		s.View.Zoom = d.View.Zoom
	}
	s.View = s.View.SetZoom(s.View.Zoom)
	if s.TickInterval <= 0 {
		s.TickInterval = d.TickInterval
	}
	if s.DragLease <= 0 {
		s.DragLease = d.DragLease
	}
	if s.MaxSessions <= 0 {
		s.MaxSessions = d.MaxSessions
	}
	return s
}
