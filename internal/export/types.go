package export

// ExportRequest selects the format and destination. The clips come from the
// project's editing session.
type ExportRequest struct {
	Format    string  `json:"format"`
	FrameRate float64 `json:"frame_rate"`
	OutputDir string  `json:"output_dir"`
	Name      string  `json:"name,omitempty"`
}

// Event is one EDL event. Source times come from the clip's trim window,
// record times from its segment on the timeline.
type Event struct {
	ClipName    string
	MediaPath   string
	SourceInMs  int
	SourceOutMs int
	RecordInMs  int
	RecordOutMs int
}

type ExportResponse struct {
	Status          string   `json:"status"`
	Format          string   `json:"format"`
	OutputPath      string   `json:"output_path"`
	ClipCount       int      `json:"clip_count"`
	UnresolvedClips []string `json:"unresolved_clips"`
}
