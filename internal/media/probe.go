// Package media inspects clip source files so the editor knows how long a
// source really is.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var ErrNoDuration = errors.New("media has no usable duration")

type Prober interface {
	Probe(ctx context.Context, filePath string) (*ProbeResult, error)
}

type ProbeResult struct {
	Duration   float64
	Width      int
	Height     int
	Codec      string
	FrameRate  float64
	AudioCodec string
}

// probeOutput is the subset of ffprobe's -of json output we read.
type probeOutput struct {
	Streams []struct {
		CodecName    string `json:"codec_name"`
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// FFProbe shells out to ffprobe through ffmpeg-go.
type FFProbe struct {
	timeout time.Duration
	logger  *slog.Logger
}

func NewFFProbe(timeout time.Duration, logger *slog.Logger) *FFProbe {
	return &FFProbe{timeout: timeout, logger: logger}
}

func (f *FFProbe) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return nil, errors.New("probe: empty path")
	}

	timeout := f.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := ffmpeg.ProbeWithTimeout(filePath, timeout, ffmpeg.KwArgs{})
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", filePath, err)
	}

	result, err := ParseProbe([]byte(out))
	if err != nil {
		return nil, err
	}

	if f.logger != nil {
		f.logger.Debug("probed media", "path", filePath, "duration", result.Duration, "codec", result.Codec)
	}
	return result, nil
}

// ParseProbe decodes ffprobe JSON. The container duration is required.
func ParseProbe(data []byte) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("probe parse: %w", err)
	}

	duration := parseFloat(out.Format.Duration)
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return nil, ErrNoDuration
	}

	result := &ProbeResult{Duration: duration}
	for _, s := range out.Streams {
		switch strings.ToLower(s.CodecType) {
		case "video":
			if result.Codec != "" {
				continue
			}
			result.Codec = s.CodecName
			result.Width = s.Width
			result.Height = s.Height
			result.FrameRate = parseRate(s.AvgFrameRate)
		case "audio":
			if result.AudioCodec == "" {
				result.AudioCodec = s.CodecName
			}
		}
	}
	return result, nil
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

// parseRate reads ffprobe's "num/den" rates such as "30000/1001".
func parseRate(value string) float64 {
	num, den, ok := strings.Cut(value, "/")
	if !ok {
		return parseFloat(value)
	}
	n, d := parseFloat(num), parseFloat(den)
	if d == 0 || math.IsNaN(n) || math.IsNaN(d) {
		return 0
	}
	return n / d
}

// StubProber returns a fixed result. It is used when ffprobe is not wanted,
// e.g. in tests.
type StubProber struct {
	Result *ProbeResult
	Err    error
}

func (s *StubProber) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result == nil {
		return nil, ErrNoDuration
	}
	r := *s.Result
	return &r, nil
}
