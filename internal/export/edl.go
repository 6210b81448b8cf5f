// Package export writes timelines out as edit decision lists.
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/refract/refract-studio/internal/timeline"
)

const DefaultFrameRate = 30.0

// EventsFromClips turns timeline clips into EDL events. Clips without a
// source media path cannot be conformed and are returned by id in unresolved.
func EventsFromClips(clips []timeline.Clip) (events []Event, unresolved []string) {
	unresolved = []string{}
	for _, c := range clips {
		if strings.TrimSpace(c.Source) == "" {
			unresolved = append(unresolved, c.ID)
			continue
		}

		playLength := math.Min(c.PlayLength(), c.Duration)
		events = append(events, Event{
			ClipName:    ClipName(c.Title, c.ID),
			MediaPath:   c.Source,
			SourceInMs:  secondsToMs(c.TrimStart),
			SourceOutMs: secondsToMs(c.TrimStart + playLength),
			RecordInMs:  secondsToMs(c.StartTime),
			RecordOutMs: secondsToMs(c.StartTime + playLength),
		})
	}
	return events, unresolved
}

func GenerateEDL(events []Event, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	for i, ev := range events {
		srcIn := msToTimecode(ev.SourceInMs, fps)
		srcOut := msToTimecode(ev.SourceOutMs, fps)
		recIn := msToTimecode(ev.RecordInMs, fps)
		recOut := msToTimecode(ev.RecordOutMs, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", ev.ClipName),
			fmt.Sprintf("* MEDIA PATH:  %s", ev.MediaPath),
		)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func secondsToMs(s float64) int {
	return int(math.Round(s * 1000))
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}

// WriteEDL validates outputDir and writes the EDL for events as
// <name>.edl inside it, returning the written path.
func WriteEDL(outputDir, name string, events []Event, frameRate float64) (string, error) {
	if err := ValidateOutputDir(outputDir); err != nil {
		return "", err
	}
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}

	title := FileStem(name)
	outputPath := filepath.Join(outputDir, title+".edl")
	if err := os.WriteFile(outputPath, []byte(GenerateEDL(events, title, frameRate)), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return outputPath, nil
}
