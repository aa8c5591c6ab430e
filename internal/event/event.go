package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// progressPrefix is the literal token the downloader is told to prepend to
// every templated progress line. See session.progressTemplate.
const progressPrefix = "download:"

// Event is one decoded line of downloader output. Exactly three shapes
// exist: Metadata (once per successful download), Progress (repeated), and
// Message (anything else).
type Event interface {
	downloadEvent()
}

// Metadata is the single structured record describing a finished download,
// emitted by the downloader as one JSON line. It doubles as the persisted
// video record.
type Metadata struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Uploader    *string  `json:"uploader,omitempty"`
	Duration    *float64 `json:"duration,omitempty"`
	WebpageURL  *string  `json:"webpage_url,omitempty"`
	Thumbnail   *string  `json:"thumbnail,omitempty"`
	UploadDate  *string  `json:"upload_date,omitempty"`
	Filename    string   `json:"filename"`
}

// Progress is a repeated record of in-flight transfer statistics. Every
// field except DownloadedBytes may be null in the templated output because
// the downloader may not have resolved it yet.
type Progress struct {
	ID              string   `json:"id"`
	DownloadedBytes int64    `json:"downloaded_bytes"`
	TotalBytes      *int64   `json:"total_bytes"`
	ETA             *float64 `json:"eta"`
	Speed           *float64 `json:"speed"`
	Elapsed         *float64 `json:"elapsed"`
}

// Message is a free-text line that matched neither structured shape.
type Message struct {
	Text string
}

func (Metadata) downloadEvent() {}
func (Progress) downloadEvent() {}
func (Message) downloadEvent()  {}

// Parse decodes one line of downloader output. It never fails: lines that
// match neither the metadata nor the progress shape come back as a Message.
//
// A progress line whose JSON body does not parse is a different matter: the
// argument list handed to the downloader is static, so the template either
// produces valid JSON after the prefix or the process is misbehaving in a
// way no caller input can cause. That case panics.
func Parse(line string) Event {
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, "{") {
		var md Metadata
		if err := json.Unmarshal([]byte(trimmed), &md); err == nil &&
			md.ID != "" && md.Title != "" && md.Filename != "" {
			return md
		}
	}

	if body, ok := strings.CutPrefix(trimmed, progressPrefix); ok {
		var p Progress
		if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &p); err != nil {
			panic(fmt.Sprintf("event: progress line with static template failed to parse: %v", err))
		}
		return p
	}

	return Message{Text: line}
}
