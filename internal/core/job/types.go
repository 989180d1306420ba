package job

// Job is the stored record of one mirror run.
type Job struct {
	JobID  string        `json:"job_id"`
	Type   Type          `json:"type"`
	Status Status        `json:"status"`
	Error  string        `json:"error,omitempty"`
	Result *MirrorResult `json:"result,omitempty"`
}

type Type string

const TypeMirror Type = "mirror"

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether a status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// MirrorResult is what a finished mirror run leaves behind.
type MirrorResult struct {
	URL         string `json:"url"`
	Domain      string `json:"domain"`
	ArchivePath string `json:"archive_path,omitempty"`
	Title       string `json:"title,omitempty"`
	FilesSaved  int    `json:"files_saved"`
	ErrorsSeen  int    `json:"errors_seen"`
	Log         string `json:"log,omitempty"`
}
