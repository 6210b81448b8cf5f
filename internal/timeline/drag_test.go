package timeline

import (
	"errors"
	"testing"
)

func TestDrag_ResolvedRepacks(t *testing.T) {
	tl := newTestTimeline(t, 15, 12, 8)
	view := View{BasePixelsPerSecond: 10, Zoom: 1}
	d := NewDrag(tl, view)

	released := 0
	acquire := func() func() { return func() { released++ } }

	if err := d.Begin("a", 100, acquire); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if d.State() != DragDragging {
		t.Fatalf("State = %s, want dragging", d.State())
	}

	start, ok := d.Move(500)
	if !ok || start != 40 {
		t.Fatalf("Move(500) = %v, %v; want 40, true", start, ok)
	}

	if got := d.End(); got != DragResolved {
		t.Errorf("End() = %s, want resolved", got)
	}
	if d.State() != DragIdle {
		t.Errorf("State after End = %s, want idle", d.State())
	}
	if released != 1 {
		t.Errorf("release called %d times, want 1", released)
	}
	if first := tl.Clips()[0]; first.ID != "b" {
		t.Errorf("first clip after repack = %s, want b", first.ID)
	}
	assertContiguous(t, tl)
}

func TestDrag_RejectedMoveKeepsLastValid(t *testing.T) {
	tl := newTestTimeline(t, 15, 12, 8)
	d := NewDrag(tl, View{BasePixelsPerSecond: 10, Zoom: 1})

	if err := d.Begin("b", 0, nil); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	start, ok := d.Move(-100)
	if ok {
		t.Fatal("Move into clip a should be rejected")
	}
	if start != 15 {
		t.Errorf("start after rejected move = %v, want 15", start)
	}

	if got := d.End(); got != DragReverted {
		t.Errorf("End() = %s, want reverted", got)
	}
	c, _ := tl.Clip("b")
	if c.StartTime != 15 {
		t.Errorf("clip b StartTime = %v, want 15", c.StartTime)
	}
}

func TestDrag_BeginErrors(t *testing.T) {
	tl := newTestTimeline(t, 5, 5)
	d := NewDrag(tl, DefaultView())

	if err := d.Begin("missing", 0, nil); !errors.Is(err, ErrUnknownClip) {
		t.Errorf("Begin(missing) error = %v, want ErrUnknownClip", err)
	}
	if err := d.Begin("a", 0, nil); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := d.Begin("b", 0, nil); !errors.Is(err, ErrDragActive) {
		t.Errorf("second Begin() error = %v, want ErrDragActive", err)
	}
}

func TestDrag_CloseReleases(t *testing.T) {
	tl := newTestTimeline(t, 5, 5)
	d := NewDrag(tl, DefaultView())

	released := false
	d.Begin("a", 0, func() func() { return func() { released = true } })
	d.Close()

	if !released {
		t.Error("Close should release the subscription")
	}
	if d.State() != DragIdle {
		t.Errorf("State = %s, want idle", d.State())
	}

	d.Close()
	if got := d.End(); got != DragIdle {
		t.Errorf("End() while idle = %s, want idle", got)
	}
}

func TestDrag_MoveWhileIdle(t *testing.T) {
	d := NewDrag(newTestTimeline(t, 5), DefaultView())
	if _, ok := d.Move(10); ok {
		t.Error("Move while idle should report false")
	}
}

func TestDrag_TrailingSpaceMoveReverts(t *testing.T) {
	tl := newTestTimeline(t, 15, 12, 8)
	d := NewDrag(tl, View{BasePixelsPerSecond: 10, Zoom: 1})

	if err := d.Begin("c", 0, nil); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if start, ok := d.Move(50); !ok || start != 32 {
		t.Fatalf("Move(50) = %v, %v; want 32, true", start, ok)
	}

	if got := d.End(); got != DragReverted {
		t.Errorf("End() = %s, want reverted", got)
	}
	c, _ := tl.Clip("c")
	if c.StartTime != 27 {
		t.Errorf("clip c StartTime = %v, want 27", c.StartTime)
	}
	assertContiguous(t, tl)
}
