// Package editor hosts per-project editing sessions. Each session owns one
// in-memory timeline, its drag state machine and its playback clock.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/refract/refract-studio/internal/media"
	"github.com/refract/refract-studio/internal/project"
	"github.com/refract/refract-studio/internal/timeline"
)

// ProjectStore is the part of the project service sessions need.
type ProjectStore interface {
	Get(ctx context.Context, id string) (*project.Project, error)
	SaveTimeline(ctx context.Context, id string, clips []timeline.Clip) error
}

// Manager keeps the most recently used sessions open. Evicted sessions are
// closed; reopening one reloads it from the last saved timeline.
type Manager struct {
	store  ProjectStore
	prober media.Prober
	logger *slog.Logger

	mu       sync.Mutex
	settings Settings
	sessions *lru.Cache[string, *Session]
}

func NewManager(store ProjectStore, prober media.Prober, settings Settings, logger *slog.Logger) (*Manager, error) {
	settings = settings.withDefaults()
	m := &Manager{
		store:    store,
		prober:   prober,
		logger:   logger,
		settings: settings,
	}

	cache, err := lru.NewWithEvict(settings.MaxSessions, m.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	m.sessions = cache
	return m, nil
}

// Open returns the project's session, loading it on first use. It returns
// project.ErrNotFound when the project does not exist.
func (m *Manager) Open(ctx context.Context, projectID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions.Get(projectID); ok {
		return s, nil
	}

	p, err := m.store.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if p == nil {
		return nil, project.ErrNotFound
	}

	tl := seedTimeline(p, m.settings.Timeline)
	s := newSession(projectID, tl, m.settings, m.store, m.prober, m.logger)
	if p.TimelineSavedAt != nil {
		saved := *p.TimelineSavedAt
		s.savedAt = &saved
	}
	m.sessions.Add(projectID, s)

	if m.logger != nil {
		m.logger.Debug("session opened", "project_id", projectID, "clips", tl.Len())
	}
	return s, nil
}

// Lookup returns an already open session without loading anything.
func (m *Manager) Lookup(projectID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Peek(projectID)
}

// PlayingCount reports how many open sessions are currently playing.
func (m *Manager) PlayingCount() int {
	m.mu.Lock()
	ids := m.sessions.Keys()
	m.mu.Unlock()

	n := 0
	for _, id := range ids {
		if s, ok := m.Lookup(id); ok && s.Playing() {
			n++
		}
	}
	return n
}

// Close closes and forgets a project's session, if open.
func (m *Manager) Close(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Remove(projectID)
}

// CloseAll closes every open session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Purge()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Len()
}

func (m *Manager) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// ApplyDefaults replaces the settings used for sessions opened from now on.
// Open sessions keep theirs; a smaller session limit evicts the oldest.
func (m *Manager) ApplyDefaults(settings Settings) {
	settings = settings.withDefaults()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	if evicted := m.sessions.Resize(settings.MaxSessions); evicted > 0 && m.logger != nil {
		m.logger.Info("sessions evicted after limit change", "count", evicted)
	}
}

func (m *Manager) onEvict(projectID string, s *Session) {
	s.Close()
	if m.logger != nil {
		m.logger.Debug("session closed", "project_id", projectID)
	}
}

// seedTimeline restores a saved clip list, or builds one clip per shot, or
// falls back to a single default clip.
func seedTimeline(p *project.Project, settings timeline.Settings) *timeline.Timeline {
	if len(p.Timeline) > 0 {
		return timeline.New(settings, p.Timeline...)
	}

	clips := make([]timeline.Clip, 0, len(p.Shots))
	for i, shot := range p.Shots {
		title := shot.Description
		if title == "" {
			title = fmt.Sprintf("Scene %d", i+1)
		}
		var refs []string
		if shot.ReferencedContent != "" {
			refs = []string{shot.ReferencedContent}
		}
		clips = append(clips, timeline.Clip{Title: title, References: refs})
	}
	return timeline.New(settings, clips...)
}
