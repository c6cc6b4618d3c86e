package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDriveFileID(t *testing.T) {
	tests := []struct {
		input  string
		wantID string
		wantOK bool
	}{
		{"1AbCdEfGhIjK", "1AbCdEfGhIjK", true},
		{"  1AbCdEfGhIjK  ", "1AbCdEfGhIjK", true},
		{"https://drive.google.com/file/d/1AbCdEfGhIjK/view?usp=sharing", "1AbCdEfGhIjK", true},
		{"https://drive.google.com/open?id=1AbCdEfGhIjK", "1AbCdEfGhIjK", true},
		{"https://docs.google.com/document/d/1AbCdEfGhIjK/edit", "1AbCdEfGhIjK", true},
		{"https://example.com/file/d/1AbCdEfGhIjK/view", "", false},
		{"https://drive.google.com/drive/folders", "", false},
		{"short", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			id, ok := ExtractDriveFileID(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantID, id)
		})
	}
}

func TestIsPlainObjectKey(t *testing.T) {
	assert.True(t, IsPlainObjectKey("recordings/2024/class-01.mp4"))
	assert.True(t, IsPlainObjectKey("notes.pdf"))
	assert.False(t, IsPlainObjectKey(""))
	assert.False(t, IsPlainObjectKey("/etc/passwd"))
	assert.False(t, IsPlainObjectKey("a/../b"))
	assert.False(t, IsPlainObjectKey("https://example.com/x.mp4"))
	assert.False(t, IsPlainObjectKey("bad\nkey"))
}

func TestResolveFileID(t *testing.T) {
	assert.Equal(t, "1AbCdEfGhIjK", ResolveFileID("https://drive.google.com/file/d/1AbCdEfGhIjK/view"))
	assert.Equal(t, "recordings/a.mp4", ResolveFileID("  recordings/a.mp4 "))
}
