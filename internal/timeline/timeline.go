// Package timeline implements the clip timeline editor: an ordered, contiguous
// sequence of clips with a playhead, grid-snapped drag moves and repacking.
//
// A Timeline is not safe for concurrent use. Callers serialise access (the
// editor session holds a mutex around every operation), which gives every
// caller a fully repacked view between events.
package timeline

import (
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/refract/refract-studio/internal/sliceutil"
)

type PlayState string

const (
	StatePaused  PlayState = "paused"
	StatePlaying PlayState = "playing"
	StateStopped PlayState = "stopped"
)

type Settings struct {
	DefaultDuration float64
	Grid            Grid
}

func DefaultSettings() Settings {
	return Settings{DefaultDuration: DefaultClipDuration, Grid: DefaultGrid()}
}

type Timeline struct {
	clips       []Clip
	currentTime float64
	active      int
	state       PlayState
	settings    Settings

	// unsorted is set while a drag has moved a clip and no repack has run.
	unsorted bool
}

// Position describes where the playhead is.
type Position struct {
	Time         float64 `json:"time"`
	ClipIndex    int     `json:"clip_index"`
	ClipID       string  `json:"clip_id"`
	SourceOffset float64 `json:"source_offset"`
}

// Snapshot is a detached copy of the timeline state.
type Snapshot struct {
	Clips         []Clip    `json:"clips"`
	TotalDuration float64   `json:"total_duration"`
	Position      Position  `json:"position"`
	State         PlayState `json:"state"`
	Grid          Grid      `json:"grid"`
}

// New builds a timeline from clips (typically restored from storage) and
// repacks it. With no clips the timeline starts with one default clip, since
// a timeline never holds fewer than one.
func New(settings Settings, clips ...Clip) *Timeline {
	if !isFinite(settings.DefaultDuration) || settings.DefaultDuration <= 0 {
		settings.DefaultDuration = DefaultClipDuration
	}

	t := &Timeline{
		state:    StatePaused,
		settings: settings,
	}

	seen := make(map[string]bool, len(clips))
	for _, c := range clips {
		c = normalize(c.clone(), settings.DefaultDuration)
		if seen[c.ID] {
			c.ID = uuid.NewString()
		}
		seen[c.ID] = true
		t.clips = append(t.clips, c)
	}
	if len(t.clips) == 0 {
		t.clips = append(t.clips, newClip(ClipSpec{Title: "Scene 1"}, settings.DefaultDuration))
	}

	t.Repack()
	return t
}

func (t *Timeline) Len() int {
	return len(t.clips)
}

// Clips returns a copy of the clips in timeline order.
func (t *Timeline) Clips() []Clip {
	out := make([]Clip, len(t.clips))
	for i, c := range t.clips {
		out[i] = c.clone()
	}
	return out
}

func (t *Timeline) Clip(id string) (Clip, bool) {
	i := t.indexOf(id)
	if i < 0 {
		return Clip{}, false
	}
	return t.clips[i].clone(), true
}

func (t *Timeline) TotalDuration() float64 {
	total := 0.0
	for _, c := range t.clips {
		if end := c.EndTime(); end > total {
			total = end
		}
	}
	return total
}

func (t *Timeline) CurrentTime() float64 {
	return t.currentTime
}

func (t *Timeline) State() PlayState {
	return t.state
}

func (t *Timeline) Settings() Settings {
	return t.settings
}

func (t *Timeline) SetGrid(g Grid) {
	t.settings.Grid = g
}

func (t *Timeline) Active() Clip {
	return t.clips[t.active].clone()
}

func (t *Timeline) Position() Position {
	c := t.clips[t.active]
	return Position{
		Time:         t.currentTime,
		ClipIndex:    t.active,
		ClipID:       c.ID,
		SourceOffset: t.currentTime - c.StartTime + c.TrimStart,
	}
}

func (t *Timeline) Snapshot() Snapshot {
	return Snapshot{
		Clips:         t.Clips(),
		TotalDuration: t.TotalDuration(),
		Position:      t.Position(),
		State:         t.state,
		Grid:          t.settings.Grid,
	}
}

// AddClip appends a clip at the current total duration.
func (t *Timeline) AddClip(spec ClipSpec) Clip {
	if spec.ID != "" && t.indexOf(spec.ID) >= 0 {
		spec.ID = ""
	}
	c := newClip(spec, t.settings.DefaultDuration)
	c.StartTime = t.TotalDuration()
	t.clips = append(t.clips, c)
	return c.clone()
}

// RemoveClip deletes a clip and repacks. Removing the only clip, or an
// unknown one, leaves the timeline untouched and reports false.
func (t *Timeline) RemoveClip(id string) bool {
	if len(t.clips) <= 1 {
		return false
	}
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	t.clips = append(t.clips[:i], t.clips[i+1:]...)
	t.Repack()
	return true
}

// MoveClip proposes a new start for a clip during a drag. The value is
// snapped to the grid, and the move is rejected when the resulting segment
// starts before zero or overlaps another clip. The timeline is not repacked.
func (t *Timeline) MoveClip(id string, proposedStart float64) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}

	start := t.settings.Grid.Snap(proposedStart)
	if !isFinite(start) || start < 0 {
		return false
	}
	end := start + t.clips[i].Duration

	for j, other := range t.clips {
		if j != i && other.overlaps(start, end) {
			return false
		}
	}

	if start != t.clips[i].StartTime {
		t.clips[i].StartTime = start
		t.unsorted = true
	}
	return true
}

// Repack sorts clips by start time (stable on ties) and lays them out
// contiguously from zero.
func (t *Timeline) Repack() {
	sort.SliceStable(t.clips, func(a, b int) bool {
		return t.clips[a].StartTime < t.clips[b].StartTime
	})
	t.layout()
}

// ReorderClip moves a clip to index (clamped) and lays the timeline out in
// the new order.
func (t *Timeline) ReorderClip(id string, index int) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	if index < 0 {
		index = 0
	}
	if index >= len(t.clips) {
		index = len(t.clips) - 1
	}
	t.clips = sliceutil.MoveItem(t.clips, i, index)
	t.layout()
	return true
}

// TrimClip sets the trim window inside the clip's source, clamped to
// [0, sourceLength]. The clip's duration becomes the trim length. A window
// that collapses after clamping is ignored.
func (t *Timeline) TrimClip(id string, trimStart, trimEnd float64) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	c := &t.clips[i]
	trimStart = clamp(trimStart, 0, c.SourceLength)
	trimEnd = clamp(trimEnd, 0, c.SourceLength)
	if trimEnd <= trimStart {
		return false
	}
	c.TrimStart = trimStart
	c.TrimEnd = trimEnd
	c.Duration = trimEnd - trimStart
	t.Repack()
	return true
}

func (t *Timeline) RenameClip(id, title string) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	t.clips[i].Title = title
	return true
}

func (t *Timeline) SetReferences(id string, refs []string) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	t.clips[i].References = append([]string(nil), refs...)
	return true
}

// JumpToTime moves the playhead to t clamped into [0, total duration].
func (t *Timeline) JumpToTime(at float64) Position {
	t.currentTime = clamp(at, 0, t.TotalDuration())
	t.active = t.locate(t.currentTime)
	if t.state == StateStopped {
		t.state = StatePaused
	}
	return t.Position()
}

// Play starts playback. A timeline whose playhead sits at the end restarts
// from zero.
func (t *Timeline) Play() {
	if t.currentTime >= t.TotalDuration() {
		t.currentTime = 0
		t.active = t.locate(0)
	}
	t.state = StatePlaying
}

func (t *Timeline) Pause() {
	if t.state == StatePlaying {
		t.state = StatePaused
	}
}

// AdvancePlayhead moves the playhead by delta seconds of playback. When the
// active clip has played its trim window the playhead jumps to the start of
// the next clip. Past the last clip playback stops and false is returned.
func (t *Timeline) AdvancePlayhead(delta float64) bool {
	if t.state != StatePlaying {
		return false
	}
	if !isFinite(delta) || delta <= 0 {
		return true
	}

	c := t.clips[t.active]
	limit := c.PlayLength()
	if limit > c.Duration {
		limit = c.Duration
	}
	elapsed := t.currentTime - c.StartTime + delta

	if elapsed < limit {
		t.currentTime += delta
		return true
	}

	if t.active+1 < len(t.clips) {
		t.active++
		t.currentTime = t.clips[t.active].StartTime
		return true
	}

	t.currentTime = t.TotalDuration()
	t.state = StateStopped
	return false
}

func (t *Timeline) layout() {
	next := 0.0
	for i := range t.clips {
		t.clips[i].StartTime = next
		next += t.clips[i].Duration
	}
	t.unsorted = false
	t.currentTime = clamp(t.currentTime, 0, next)
	t.active = t.locate(t.currentTime)
}

func (t *Timeline) locate(at float64) int {
	n := len(t.clips)
	if t.unsorted {
		for i, c := range t.clips {
			if c.StartTime <= at && at < c.EndTime() {
				return i
			}
		}
		if t.active < n {
			return t.active
		}
		return n - 1
	}

	i := sort.Search(n, func(i int) bool {
		return t.clips[i].EndTime() > at
	})
	if i >= n {
		return n - 1
	}
	return i
}

func (t *Timeline) indexOf(id string) int {
	return slices.IndexFunc(t.clips, func(c Clip) bool { return c.ID == id })
}
