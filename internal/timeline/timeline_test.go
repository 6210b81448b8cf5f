package timeline

import (
	"math"
	"testing"
)

func newTestTimeline(t *testing.T, durations ...float64) *Timeline {
	t.Helper()
	clips := make([]Clip, len(durations))
	for i, d := range durations {
		clips[i] = Clip{ID: string(rune('a' + i)), Duration: d}
	}
	return New(DefaultSettings(), clips...)
}

func assertContiguous(t *testing.T, tl *Timeline) {
	t.Helper()
	clips := tl.Clips()
	if len(clips) == 0 {
		t.Fatal("timeline has no clips")
	}
	if clips[0].StartTime != 0 {
		t.Errorf("clip[0].StartTime = %v, want 0", clips[0].StartTime)
	}
	for i := 0; i+1 < len(clips); i++ {
		if clips[i].EndTime() != clips[i+1].StartTime {
			t.Errorf("clip[%d].EndTime = %v, clip[%d].StartTime = %v", i, clips[i].EndTime(), i+1, clips[i+1].StartTime)
		}
	}
}

func TestNew_EmptyHasOneClip(t *testing.T) {
	tl := New(DefaultSettings())
	if tl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tl.Len())
	}
	if got := tl.TotalDuration(); got != DefaultClipDuration {
		t.Errorf("TotalDuration() = %v, want %v", got, DefaultClipDuration)
	}
}

func TestNew_RepairsStoredClips(t *testing.T) {
	tl := New(DefaultSettings(),
		Clip{ID: "x", Duration: 5, StartTime: 40},
		Clip{ID: "x", Duration: -1, TrimStart: 3, TrimEnd: 1},
	)

	clips := tl.Clips()
	if clips[0].ID == clips[1].ID {
		t.Fatal("duplicate clip ids should be replaced")
	}
	for _, c := range clips {
		if !(c.TrimStart >= 0 && c.TrimStart < c.TrimEnd && c.TrimEnd <= c.SourceLength) {
			t.Errorf("clip %s has invalid trim window [%v, %v] of %v", c.ID, c.TrimStart, c.TrimEnd, c.SourceLength)
		}
	}
	assertContiguous(t, tl)
}

func TestScenario_JumpSelectsSecondClip(t *testing.T) {
	tl := newTestTimeline(t, 15, 12, 8)

	if got := tl.TotalDuration(); got != 35 {
		t.Fatalf("TotalDuration() = %v, want 35", got)
	}

	pos := tl.JumpToTime(20)
	if pos.ClipIndex != 1 || pos.ClipID != "b" {
		t.Fatalf("active clip = %d (%s), want 1 (b)", pos.ClipIndex, pos.ClipID)
	}
	active := tl.Active()
	if active.StartTime != 15 || active.EndTime() != 27 {
		t.Errorf("active segment = [%v, %v), want [15, 27)", active.StartTime, active.EndTime())
	}
	if pos.SourceOffset != 5 {
		t.Errorf("SourceOffset = %v, want 5", pos.SourceOffset)
	}
}

func TestScenario_AddFourthClip(t *testing.T) {
	tl := newTestTimeline(t, 15, 12, 8)

	c := tl.AddClip(ClipSpec{Duration: 10})

	if c.StartTime != 35 {
		t.Errorf("new clip StartTime = %v, want 35", c.StartTime)
	}
	if got := tl.TotalDuration(); got != 45 {
		t.Errorf("TotalDuration() = %v, want 45", got)
	}
	assertContiguous(t, tl)
}

func TestAddClip_DefaultDuration(t *testing.T) {
	tl := newTestTimeline(t, 15)
	c := tl.AddClip(ClipSpec{})
	if c.Duration != DefaultClipDuration {
		t.Errorf("Duration = %v, want %v", c.Duration, DefaultClipDuration)
	}
	if c.TrimStart != 0 || c.TrimEnd != DefaultClipDuration {
		t.Errorf("trim = [%v, %v], want [0, %v]", c.TrimStart, c.TrimEnd, DefaultClipDuration)
	}
	if c.ID == "" {
		t.Error("AddClip should assign an id")
	}
}

func TestAddClip_DuplicateIDReplaced(t *testing.T) {
	tl := newTestTimeline(t, 15)
	c := tl.AddClip(ClipSpec{ID: "a"})
	if c.ID == "a" {
		t.Error("AddClip kept a duplicate id")
	}
}

func TestScenario_DragOverlapRejected(t *testing.T) {
	tl := newTestTimeline(t, 15, 12, 8)

	if tl.MoveClip("b", 5) {
		t.Fatal("MoveClip into clip a's range should be rejected")
	}
	c, _ := tl.Clip("b")
	if c.StartTime != 15 {
		t.Errorf("clip b StartTime = %v, want 15", c.StartTime)
	}
}

func TestMoveClip_NegativeRejected(t *testing.T) {
	tl := newTestTimeline(t, 15, 12)
	if tl.MoveClip("a", -3) {
		t.Error("MoveClip to negative start should be rejected")
	}
	if tl.MoveClip("a", math.NaN()) {
		t.Error("MoveClip to NaN should be rejected")
	}
}

func TestMoveClip_SnapsToGrid(t *testing.T) {
	tl := newTestTimeline(t, 15, 12, 8)

	if !tl.MoveClip("a", 40.4) {
		t.Fatal("MoveClip past the end should be accepted")
	}
	c, _ := tl.Clip("a")
	if c.StartTime != 40 {
		t.Errorf("StartTime = %v, want 40 (snapped)", c.StartTime)
	}

	tl.SetGrid(Grid{Interval: 1, Enabled: false})
	if !tl.MoveClip("a", 50.4) {
		t.Fatal("MoveClip should be accepted")
	}
	c, _ = tl.Clip("a")
	if c.StartTime != 50.4 {
		t.Errorf("StartTime = %v, want 50.4 (no snap)", c.StartTime)
	}
}

func TestMoveThenRepack_Reorders(t *testing.T) {
	tl := newTestTimeline(t, 15, 12, 8)

	if !tl.MoveClip("a", 40) {
		t.Fatal("MoveClip should be accepted")
	}
	tl.Repack()

	clips := tl.Clips()
	want := []string{"b", "c", "a"}
	for i, id := range want {
		if clips[i].ID != id {
			t.Errorf("clip[%d] = %s, want %s", i, clips[i].ID, id)
		}
	}
	assertContiguous(t, tl)
	if got := tl.TotalDuration(); got != 35 {
		t.Errorf("TotalDuration() = %v, want 35", got)
	}
}

func TestMoveClip_NoOverlapAtRest(t *testing.T) {
	tl := newTestTimeline(t, 15, 12, 8, 3)
	proposals := []struct {
		id    string
		start float64
	}{
		{"a", 60}, {"b", 2}, {"c", 0}, {"d", 100}, {"b", 37}, {"c", 14},
	}
	for _, p := range proposals {
		tl.MoveClip(p.id, p.start)
		tl.Repack()

		clips := tl.Clips()
		for i := range clips {
			for j := range clips {
				if i != j && clips[i].overlaps(clips[j].StartTime, clips[j].EndTime()) {
					t.Fatalf("clips %s and %s overlap after repack", clips[i].ID, clips[j].ID)
				}
			}
		}
		assertContiguous(t, tl)
	}
}

func TestRepack_Idempotent(t *testing.T) {
	tl := newTestTimeline(t, 4, 7, 1)
	tl.MoveClip("b", 30)
	tl.Repack()
	first := tl.Clips()
	tl.Repack()
	second := tl.Clips()

	for i := range first {
		if first[i].ID != second[i].ID || first[i].StartTime != second[i].StartTime {
			t.Errorf("clip[%d] changed on second repack: %+v -> %+v", i, first[i], second[i])
		}
	}
}

func TestRepack_StableOnTies(t *testing.T) {
	tl := New(DefaultSettings(),
		Clip{ID: "first", Duration: 3},
		Clip{ID: "second", Duration: 3},
		Clip{ID: "third", Duration: 3},
	)
	clips := tl.Clips()
	for i, id := range []string{"first", "second", "third"} {
		if clips[i].ID != id {
			t.Errorf("clip[%d] = %s, want %s", i, clips[i].ID, id)
		}
	}
}

func TestRemoveClip_SoleClipIsNoop(t *testing.T) {
	tl := newTestTimeline(t, 9)
	before := tl.Clips()[0]

	if tl.RemoveClip("a") {
		t.Error("RemoveClip on sole clip should report false")
	}
	after := tl.Clips()
	if len(after) != 1 || after[0].ID != before.ID || after[0].StartTime != before.StartTime || after[0].EndTime() != before.EndTime() {
		t.Errorf("timeline changed: %+v -> %+v", before, after)
	}
}

func TestRemoveClip_Repacks(t *testing.T) {
	tl := newTestTimeline(t, 15, 12, 8)
	tl.JumpToTime(34)

	if !tl.RemoveClip("b") {
		t.Fatal("RemoveClip should succeed")
	}
	assertContiguous(t, tl)
	if got := tl.TotalDuration(); got != 23 {
		t.Errorf("TotalDuration() = %v, want 23", got)
	}
	if got := tl.CurrentTime(); got != 23 {
		t.Errorf("CurrentTime() = %v, want clamped 23", got)
	}
	if tl.RemoveClip("missing") {
		t.Error("RemoveClip of unknown id should report false")
	}
}

func TestJumpToTime_Clamps(t *testing.T) {
	tl := newTestTimeline(t, 15, 12, 8)

	tests := []struct {
		name     string
		at       float64
		wantTime float64
		wantClip string
	}{
		{"before start", -10, 0, "a"},
		{"nan", math.NaN(), 0, "a"},
		{"past end", 99, 35, "c"},
		{"exact end", 35, 35, "c"},
		{"infinite", math.Inf(1), 35, "c"},
		{"boundary belongs to next", 15, 15, "b"},
		{"inside last", 30, 30, "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := tl.JumpToTime(tt.at)
			if pos.Time != tt.wantTime {
				t.Errorf("Time = %v, want %v", pos.Time, tt.wantTime)
			}
			if pos.ClipID != tt.wantClip {
				t.Errorf("ClipID = %s, want %s", pos.ClipID, tt.wantClip)
			}
		})
	}
}

func TestJumpToTime_SourceOffsetUsesTrim(t *testing.T) {
	tl := New(DefaultSettings(), Clip{ID: "a", Duration: 4, SourceLength: 20, TrimStart: 6, TrimEnd: 10})
	pos := tl.JumpToTime(1.5)
	if pos.SourceOffset != 7.5 {
		t.Errorf("SourceOffset = %v, want 7.5", pos.SourceOffset)
	}
}

func TestAdvancePlayhead_CrossesClipsAndStops(t *testing.T) {
	tl := newTestTimeline(t, 2, 3)

	if tl.AdvancePlayhead(1) {
		t.Fatal("AdvancePlayhead while paused should report false")
	}
	tl.Play()

	if !tl.AdvancePlayhead(1.5) {
		t.Fatal("AdvancePlayhead should keep playing")
	}
	if got := tl.CurrentTime(); got != 1.5 {
		t.Errorf("CurrentTime = %v, want 1.5", got)
	}

	if !tl.AdvancePlayhead(1) {
		t.Fatal("AdvancePlayhead should move to next clip")
	}
	if pos := tl.Position(); pos.ClipID != "b" || pos.Time != 2 {
		t.Errorf("position = %+v, want clip b at 2", pos)
	}

	tl.AdvancePlayhead(2)
	if got := tl.CurrentTime(); got != 4 {
		t.Errorf("CurrentTime = %v, want 4", got)
	}

	if tl.AdvancePlayhead(2) {
		t.Fatal("AdvancePlayhead past the last clip should stop")
	}
	if tl.State() != StateStopped {
		t.Errorf("State = %s, want stopped", tl.State())
	}
	if got := tl.CurrentTime(); got != 5 {
		t.Errorf("CurrentTime = %v, want 5", got)
	}
	if pos := tl.Position(); pos.ClipID != "b" {
		t.Errorf("active clip at end = %s, want b", pos.ClipID)
	}
}

func TestAdvancePlayhead_TrimmedClip(t *testing.T) {
	tl := New(DefaultSettings(),
		Clip{ID: "a", Duration: 10, SourceLength: 20},
		Clip{ID: "b", Duration: 5},
	)
	if !tl.TrimClip("a", 6, 10) {
		t.Fatal("TrimClip should succeed")
	}
	tl.Play()

	tl.AdvancePlayhead(3)
	if pos := tl.Position(); pos.ClipID != "a" || pos.Time != 3 || pos.SourceOffset != 9 {
		t.Errorf("position = %+v, want clip a at 3 (source 9)", pos)
	}

	// The trim window is 4 s long, so the boundary falls at 4.
	if !tl.AdvancePlayhead(1) {
		t.Fatal("AdvancePlayhead should move to clip b")
	}
	pos := tl.Position()
	if pos.ClipID != "b" || pos.Time != 4 || pos.SourceOffset != 0 {
		t.Errorf("position at switch = %+v, want clip b at 4 (source 0)", pos)
	}
}

func TestPlay_RestartsAfterStop(t *testing.T) {
	tl := newTestTimeline(t, 1)
	tl.Play()
	tl.AdvancePlayhead(5)
	tl.Play()
	if tl.State() != StatePlaying || tl.CurrentTime() != 0 {
		t.Errorf("state = %s at %v, want playing at 0", tl.State(), tl.CurrentTime())
	}
	tl.Pause()
	if tl.State() != StatePaused {
		t.Errorf("State = %s, want paused", tl.State())
	}
}

func TestTrimClip(t *testing.T) {
	tl := New(DefaultSettings(),
		Clip{ID: "a", Duration: 10, SourceLength: 30},
		Clip{ID: "b", Duration: 5},
	)

	if !tl.TrimClip("a", 4, 100) {
		t.Fatal("TrimClip should succeed")
	}
	c, _ := tl.Clip("a")
	if c.TrimStart != 4 || c.TrimEnd != 30 || c.Duration != 26 {
		t.Errorf("clip a = [%v, %v] dur %v, want [4, 30] dur 26", c.TrimStart, c.TrimEnd, c.Duration)
	}
	b, _ := tl.Clip("b")
	if b.StartTime != 26 {
		t.Errorf("clip b StartTime = %v, want 26", b.StartTime)
	}

	if tl.TrimClip("a", 12, 12) {
		t.Error("collapsed trim window should be rejected")
	}
}

func TestReorderClip(t *testing.T) {
	tl := newTestTimeline(t, 1, 2, 3)

	if !tl.ReorderClip("c", 0) {
		t.Fatal("ReorderClip should succeed")
	}
	clips := tl.Clips()
	for i, id := range []string{"c", "a", "b"} {
		if clips[i].ID != id {
			t.Errorf("clip[%d] = %s, want %s", i, clips[i].ID, id)
		}
	}
	assertContiguous(t, tl)

	tl.ReorderClip("c", 99)
	if last := tl.Clips()[2]; last.ID != "c" {
		t.Errorf("last clip = %s, want c", last.ID)
	}
}

func TestSetReferences_Copies(t *testing.T) {
	tl := newTestTimeline(t, 3)
	refs := []string{"hero", "hero", "city"}
	tl.SetReferences("a", refs)
	refs[0] = "changed"

	c, _ := tl.Clip("a")
	if len(c.References) != 3 || c.References[0] != "hero" {
		t.Errorf("References = %v, want [hero hero city]", c.References)
	}
}

func TestAddClip_CapsHugeLengths(t *testing.T) {
	tl := newTestTimeline(t, 5)
	for i := 0; i < 3; i++ {
		c := tl.AddClip(ClipSpec{Duration: 1e308, SourceLength: 1e308})
		if c.Duration != MaxClipLength || c.SourceLength != MaxClipLength {
			t.Errorf("clip = dur %v source %v, want both %v", c.Duration, c.SourceLength, MaxClipLength)
		}
	}
	if got := tl.TotalDuration(); math.IsInf(got, 0) || got != 5+3*MaxClipLength {
		t.Errorf("TotalDuration() = %v, want %v", got, 5+3*MaxClipLength)
	}

	loaded := New(DefaultSettings(), Clip{ID: "x", Duration: 1e308, SourceLength: 1e308, TrimEnd: 1e308})
	if c, _ := loaded.Clip("x"); c.Duration != MaxClipLength || c.TrimEnd > MaxClipLength {
		t.Errorf("loaded clip = %+v, want capped", c)
	}
}
