package mime

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// textExtMimeMap refines "text/plain" detections for note and transcript attachments.
var textExtMimeMap = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".json":     "application/json",
	".html":     "text/html",
	".htm":      "text/html",
	".vtt":      "text/vtt",
	".srt":      "application/x-subrip",
}

// audioOnlyExt marks containers that mimetype reports as video but that the
// browser MediaRecorder produces for audio-only captures.
var audioOnlyExt = map[string]string{
	".weba": "audio/webm",
	".oga":  "audio/ogg",
	".m4a":  "audio/mp4",
}

// DetectMimeType detects the MIME type from content, refined by file extension
// where content sniffing cannot tell formats apart.
func DetectMimeType(content []byte, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType := mimetype.Detect(content).String()

	if strings.HasPrefix(contentType, "text/plain") {
		if refined, ok := textExtMimeMap[ext]; ok {
			return strings.Replace(contentType, "text/plain", refined, 1)
		}
	}
	if strings.HasPrefix(contentType, "video/") {
		if refined, ok := audioOnlyExt[ext]; ok {
			return refined
		}
	}
	return contentType
}

// MediaKind returns "audio", "video" or "" for the given MIME type.
func MediaKind(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	default:
		return ""
	}
}
