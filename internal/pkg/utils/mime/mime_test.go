package mime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		filename string
		want     string
	}{
		{"markdown notes", []byte("# Notes\n\n- item"), "notes.md", "text/markdown; charset=utf-8"},
		{"plain text unknown ext", []byte("hello"), "notes.txt", "text/plain; charset=utf-8"},
		{"json refined", []byte("just text"), "chat.json", "application/json; charset=utf-8"},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), "shot.png", "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMimeType(tt.content, tt.filename))
		})
	}
}

func TestMediaKind(t *testing.T) {
	assert.Equal(t, "audio", MediaKind("audio/webm"))
	assert.Equal(t, "video", MediaKind("video/mp4"))
	assert.Equal(t, "", MediaKind("text/plain"))
}
