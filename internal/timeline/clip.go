package timeline

import (
	"math"

	"github.com/google/uuid"
)

const DefaultClipDuration = 10.0

// Clip is one scene on the timeline. StartTime is owned by the timeline and
// is only meaningful relative to the other clips of the same timeline.
type Clip struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Source       string   `json:"source"`
	SourceLength float64  `json:"source_length"`
	Duration     float64  `json:"duration"`
	StartTime    float64  `json:"start_time"`
	TrimStart    float64  `json:"trim_start"`
	TrimEnd      float64  `json:"trim_end"`
	References   []string `json:"references"`
}

// ClipSpec describes a clip to be appended. Zero values fall back to the
// timeline defaults.
type ClipSpec struct {
	ID           string
	Title        string
	Source       string
	SourceLength float64
	Duration     float64
	References   []string
}

func (c Clip) EndTime() float64 {
	return c.StartTime + c.Duration
}

// PlayLength is the length of the trim window, i.e. how long the clip plays.
func (c Clip) PlayLength() float64 {
	return c.TrimEnd - c.TrimStart
}

func (c Clip) overlaps(start, end float64) bool {
	return start < c.EndTime() && c.StartTime < end
}

func (c Clip) clone() Clip {
	out := c
	if c.References != nil {
		out.References = append([]string(nil), c.References...)
	}
	return out
}

// MaxClipLength caps clip durations and source lengths so timeline sums
// stay finite.
const MaxClipLength = 24 * 60 * 60.0

func newClip(spec ClipSpec, defaultDuration float64) Clip {
	duration := spec.Duration
	if !isFinite(duration) || duration <= 0 {
		duration = defaultDuration
	}
	duration = math.Min(duration, MaxClipLength)
	sourceLength := spec.SourceLength
	if !isFinite(sourceLength) || sourceLength <= 0 {
		sourceLength = duration
	}
	sourceLength = math.Min(sourceLength, MaxClipLength)
	if duration > sourceLength {
		duration = sourceLength
	}

	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}

	return Clip{
		ID:           id,
		Title:        spec.Title,
		Source:       spec.Source,
		SourceLength: sourceLength,
		Duration:     duration,
		TrimStart:    0,
		TrimEnd:      duration,
		References:   append([]string(nil), spec.References...),
	}
}

// normalize repairs a clip loaded from storage so that the trim window and
// duration satisfy 0 <= trimStart < trimEnd <= sourceLength.
func normalize(c Clip, defaultDuration float64) Clip {
	if !isFinite(c.Duration) || c.Duration <= 0 {
		c.Duration = defaultDuration
	}
	c.Duration = math.Min(c.Duration, MaxClipLength)
	if !isFinite(c.SourceLength) || c.SourceLength <= 0 {
		c.SourceLength = math.Max(c.Duration, c.TrimEnd)
	}
	c.SourceLength = math.Min(c.SourceLength, MaxClipLength)
	if !isFinite(c.TrimStart) || c.TrimStart < 0 {
		c.TrimStart = 0
	}
	if !isFinite(c.TrimEnd) || c.TrimEnd <= c.TrimStart || c.TrimEnd > c.SourceLength {
		c.TrimEnd = math.Min(c.TrimStart+c.Duration, c.SourceLength)
	}
	if c.TrimStart >= c.TrimEnd {
		c.TrimStart = 0
		c.TrimEnd = math.Min(c.Duration, c.SourceLength)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return c
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
