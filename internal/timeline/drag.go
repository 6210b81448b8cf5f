package timeline

import "errors"

type DragState string

const (
	DragIdle     DragState = "idle"
	DragDragging DragState = "dragging"
	DragResolved DragState = "resolved"
	DragReverted DragState = "reverted"
)

var (
	ErrDragActive  = errors.New("a drag is already in progress")
	ErrUnknownClip = errors.New("unknown clip")
)

// Acquire subscribes to pointer tracking for the lifetime of one drag and
// returns the function that releases the subscription.
type Acquire func() (release func())

// Drag is the pointer-drag state machine for repositioning a clip.
// Idle -> Dragging -> (Resolved | Reverted) -> Idle.
type Drag struct {
	tl   *Timeline
	view View

	state       DragState
	clipID      string
	originX     float64
	originStart float64
	originIndex int
	release     func()
}

func NewDrag(tl *Timeline, view View) *Drag {
	return &Drag{tl: tl, view: view, state: DragIdle}
}

func (d *Drag) State() DragState {
	return d.state
}

func (d *Drag) ClipID() string {
	return d.clipID
}

func (d *Drag) SetView(v View) {
	d.view = v
}

// Begin starts dragging clipID from pointer position pointerX. acquire may be
// nil; when set it is called once and its release is guaranteed to run when
// the drag ends.
func (d *Drag) Begin(clipID string, pointerX float64, acquire Acquire) error {
	if d.state == DragDragging {
		return ErrDragActive
	}
	c, ok := d.tl.Clip(clipID)
	if !ok {
		return ErrUnknownClip
	}

	d.state = DragDragging
	d.clipID = clipID
	d.originX = pointerX
	d.originStart = c.StartTime
	d.originIndex = d.tl.indexOf(clipID)
	if acquire != nil {
		d.release = acquire()
	}
	return nil
}

// Move translates the pointer delta since Begin into a proposed start time.
// It returns the clip's start after the move; a rejected move keeps the last
// valid position.
func (d *Drag) Move(pointerX float64) (float64, bool) {
	if d.state != DragDragging {
		return 0, false
	}
	proposed := d.originStart + d.view.PixelsToTime(pointerX-d.originX)
	ok := d.tl.MoveClip(d.clipID, proposed)
	c, _ := d.tl.Clip(d.clipID)
	return c.StartTime, ok
}

// End handles pointer release: the timeline is repacked, the subscription is
// released and the machine returns to Idle. The returned state says whether
// the clip ended up away from where it started once repacked; a move into
// trailing space packs back to the origin and reports Reverted.
func (d *Drag) End() DragState {
	if d.state != DragDragging {
		return DragIdle
	}
	defer d.reset()

	d.tl.Repack()

	c, ok := d.tl.Clip(d.clipID)
	if ok && (c.StartTime != d.originStart || d.tl.indexOf(d.clipID) != d.originIndex) {
		return DragResolved
	}
	return DragReverted
}

// Close is the teardown path. An active drag is finished as if the pointer
// had been released.
func (d *Drag) Close() {
	if d.state == DragDragging {
		d.End()
	}
}

func (d *Drag) reset() {
	if d.release != nil {
		release := d.release
		d.release = nil
		release()
	}
	d.state = DragIdle
	d.clipID = ""
	d.originX = 0
	d.originStart = 0
	d.originIndex = 0
}
