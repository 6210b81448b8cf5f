package editor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/refract/refract-studio/internal/media"
	"github.com/refract/refract-studio/internal/playback"
	"github.com/refract/refract-studio/internal/timeline"
)

var (
	ErrNoDrag        = errors.New("no drag in progress")
	ErrSessionClosed = errors.New("editing session is closed")
)

// ClipPatch carries optional edits to one clip. Nil fields are left alone.
type ClipPatch struct {
	Title      *string
	TrimStart  *float64
	TrimEnd    *float64
	References *[]string
}

// ViewPatch carries optional view and grid changes.
type ViewPatch struct {
	Zoom         *float64
	ZoomStep     int
	Snap         *bool
	GridInterval *float64
}

// State is what clients render: the timeline snapshot plus session-level
// view and drag information.
type State struct {
	ProjectID string `json:"project_id"`
	timeline.Snapshot
	View      timeline.View      `json:"view"`
	Drag      timeline.DragState `json:"drag"`
	DragClip  string             `json:"drag_clip_id,omitempty"`
	Dirty     bool               `json:"dirty"`
	SavedAt   *time.Time         `json:"saved_at,omitempty"`
}

// Session is one project's in-memory timeline. Every operation runs under mu,
// so callers only ever see a complete, repacked timeline between events.
type Session struct {
	projectID string
	store     ProjectStore
	prober    media.Prober
	logger    *slog.Logger

	probeTimeout time.Duration
	leaseTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	clock  *playback.Clock

	mu       sync.Mutex
	tl       *timeline.Timeline
	view     timeline.View
	drag     *timeline.Drag
	lease    *time.Timer
	dragGen  uint64
	rev      uint64
	savedRev uint64
	savedAt  *time.Time
	closed   bool
}

func newSession(projectID string, tl *timeline.Timeline, settings Settings, store ProjectStore, prober media.Prober, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		projectID:    projectID,
		store:        store,
		prober:       prober,
		logger:       logger,
		probeTimeout: settings.ProbeTimeout,
		leaseTimeout: settings.DragLease,
		ctx:          ctx,
		cancel:       cancel,
		tl:           tl,
		view:         settings.View,
	}
	s.drag = timeline.NewDrag(tl, s.view)
	s.clock = playback.NewClock(settings.TickInterval, s.tick)
	return s
}

func (s *Session) ProjectID() string {
	return s.projectID
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		ProjectID: s.projectID,
		Snapshot:  s.tl.Snapshot(),
		View:      s.view,
		Drag:      s.drag.State(),
		Dirty:     s.rev != s.savedRev,
		SavedAt:   s.savedAt,
	}
	if st.Drag == timeline.DragDragging {
		st.DragClip = s.drag.ClipID()
	}
	return st
}

// AddClip appends a clip. A local source file is probed first (outside the
// lock) to learn its real length; probe failures fall back to the defaults.
func (s *Session) AddClip(ctx context.Context, spec timeline.ClipSpec) (timeline.Clip, error) {
	if s.isClosed() {
		return timeline.Clip{}, ErrSessionClosed
	}

	if spec.SourceLength <= 0 && isLocalSource(spec.Source) && s.prober != nil {
		probeCtx := ctx
		if s.probeTimeout > 0 {
			var cancel context.CancelFunc
			probeCtx, cancel = context.WithTimeout(ctx, s.probeTimeout)
			defer cancel()
		}
		res, err := s.prober.Probe(probeCtx, spec.Source)
		switch {
		case err != nil:
			if s.logger != nil {
				s.logger.Warn("source probe failed, using default length", "source", spec.Source, "error", err)
			}
		default:
			spec.SourceLength = res.Duration
			if spec.Duration <= 0 {
				spec.Duration = res.Duration
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return timeline.Clip{}, ErrSessionClosed
	}
	c := s.tl.AddClip(spec)
	s.rev++
	return c, nil
}

func (s *Session) RemoveClip(id string) bool {
	return s.mutate(func(tl *timeline.Timeline) bool {
		return tl.RemoveClip(id)
	})
}

// UpdateClip applies a patch. It reports false when the clip is unknown or
// nothing in the patch could be applied.
func (s *Session) UpdateClip(id string, patch ClipPatch) bool {
	return s.mutate(func(tl *timeline.Timeline) bool {
		c, ok := tl.Clip(id)
		if !ok {
			return false
		}
		changed := false
		if patch.Title != nil {
			changed = tl.RenameClip(id, *patch.Title) || changed
		}
		if patch.References != nil {
			changed = tl.SetReferences(id, *patch.References) || changed
		}
		if patch.TrimStart != nil || patch.TrimEnd != nil {
			start, end := c.TrimStart, c.TrimEnd
			if patch.TrimStart != nil {
				start = *patch.TrimStart
			}
			if patch.TrimEnd != nil {
				end = *patch.TrimEnd
			}
			changed = tl.TrimClip(id, start, end) || changed
		}
		return changed
	})
}

func (s *Session) ReorderClip(id string, index int) bool {
	return s.mutate(func(tl *timeline.Timeline) bool {
		return tl.ReorderClip(id, index)
	})
}

func (s *Session) Repack() {
	s.mutate(func(tl *timeline.Timeline) bool {
		tl.Repack()
		return true
	})
}

func (s *Session) Seek(t float64) timeline.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.JumpToTime(t)
}

// Play starts the playback clock. It is a no-op on a closed session.
func (s *Session) Play() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.tl.Play()
	s.mu.Unlock()

	s.clock.Start(s.ctx)
}

func (s *Session) Pause() {
	s.mu.Lock()
	s.tl.Pause()
	s.mu.Unlock()

	// The tick function takes mu, so the clock is stopped outside it.
	s.clock.Stop()
}

func (s *Session) Playing() bool {
	return s.clock.Running()
}

func (s *Session) tick(delta float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.tl.AdvancePlayhead(delta)
}

// DragBegin starts a pointer drag. The drag holds a lease that ends it if no
// pointer update arrives within the lease timeout.
func (s *Session) DragBegin(clipID string, pointerX float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.drag.Begin(clipID, pointerX, s.acquireLease)
}

func (s *Session) DragMove(pointerX float64) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag.State() != timeline.DragDragging {
		return 0, false, ErrNoDrag
	}
	if s.lease != nil {
		s.lease.Reset(s.leaseTimeout)
	}
	// Moves are provisional; only a resolved End changes the saved layout.
	start, ok := s.drag.Move(pointerX)
	return start, ok, nil
}

func (s *Session) DragEnd() (timeline.DragState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag.State() != timeline.DragDragging {
		return timeline.DragIdle, ErrNoDrag
	}
	return s.endDrag(), nil
}

func (s *Session) endDrag() timeline.DragState {
	result := s.drag.End()
	if result == timeline.DragResolved {
		s.rev++
	}
	return result
}

// acquireLease is the drag's pointer subscription. It runs with mu held.
func (s *Session) acquireLease() func() {
	s.dragGen++
	gen := s.dragGen
	timer := time.AfterFunc(s.leaseTimeout, func() { s.leaseExpired(gen) })
	s.lease = timer
	return func() {
		timer.Stop()
		if s.lease == timer {
			s.lease = nil
		}
	}
}

func (s *Session) leaseExpired(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.dragGen || s.drag.State() != timeline.DragDragging {
		return
	}
	result := s.endDrag()
	if s.logger != nil {
		s.logger.Info("drag lease expired", "project_id", s.projectID, "result", result)
	}
}

func (s *Session) UpdateView(patch ViewPatch) timeline.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.view
	if patch.Zoom != nil {
		v = v.SetZoom(*patch.Zoom)
	}
	if patch.ZoomStep != 0 {
		v = v.ZoomBy(patch.ZoomStep)
	}
	s.view = v
	s.drag.SetView(v)

	if patch.Snap != nil || patch.GridInterval != nil {
		g := s.tl.Settings().Grid
		if patch.Snap != nil {
			g.Enabled = *patch.Snap
		}
		if patch.GridInterval != nil && *patch.GridInterval > 0 {
			g.Interval = *patch.GridInterval
		}
		s.tl.SetGrid(g)
	}
	return v
}

// Save persists the current clip list into the project.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	clips := s.tl.Clips()
	rev := s.rev
	s.mu.Unlock()

	if err := s.store.SaveTimeline(ctx, s.projectID, clips); err != nil {
		return err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if rev > s.savedRev {
		s.savedRev = rev
	}
	s.savedAt = &now
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("timeline saved", "project_id", s.projectID, "clips", len(clips))
	}
	return nil
}

// Clip returns a copy of one clip.
func (s *Session) Clip(id string) (timeline.Clip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.Clip(id)
}

// Close ends any drag, stops playback and marks the session unusable.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.drag.Close()
	s.tl.Pause()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.clock.Stop()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) mutate(fn func(*timeline.Timeline) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	changed := fn(s.tl)
	if changed {
		s.rev++
	}
	return changed
}

// isLocalSource reports whether source names an existing regular file.
func isLocalSource(source string) bool {
	if source == "" || strings.Contains(source, "://") {
		return false
	}
	info, err := os.Stat(source)
	return err == nil && info.Mode().IsRegular()
}
