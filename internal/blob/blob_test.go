package blob

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndOpenRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Put("beach.JPG", strings.NewReader("fake image bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".jpg"), "ref keeps a lowercased extension: %s", ref)

	f, err := s.Open(ref)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "fake image bytes", string(data))
}

func TestPutIsContentAddressed(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ref1, err := s.Put("a.png", strings.NewReader("same bytes"))
	require.NoError(t, err)
	ref2, err := s.Put("b.png", strings.NewReader("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2)

	ref3, err := s.Put("a.png", strings.NewReader("different bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, ref1, ref3)
}

func TestPathRejectsTraversal(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, ref := range []string{"", "../etc/passwd", "a/b.jpg", "..", `a\b.jpg`} {
		_, err := s.Path(ref)
		assert.ErrorIs(t, err, ErrBadRef, "ref %q", ref)
	}
}

func TestRemove(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Put("x.png", strings.NewReader("bytes"))
	require.NoError(t, err)
	require.NoError(t, s.Remove(ref))

	_, err = s.Open(ref)
	assert.Error(t, err)

	// Removing twice is fine.
	assert.NoError(t, s.Remove(ref))
}

func TestFormatDetection(t *testing.T) {
	assert.True(t, IsSupportedImage("photo.JPEG"))
	assert.True(t, IsSupportedImage("photo.webp"))
	assert.False(t, IsSupportedImage("photo.tiff"))

	assert.True(t, IsSupportedVideo("clip.mp4"))
	assert.False(t, IsSupportedVideo("clip.mkv"))

	assert.True(t, IsSupportedAudio("song.mp3"))
	assert.True(t, IsSupportedAudio("song.FLAC"))
	assert.False(t, IsSupportedAudio("song.mid"))
}

func TestContentType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"a.jpg", "image/jpeg"},
		{"a.png", "image/png"},
		{"a.mp4", "video/mp4"},
		{"a.webm", "video/webm"},
		{"a.mp3", "audio/mpeg"},
		{"a.flac", "audio/flac"},
		{"a.bin", "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContentType(tt.filename), tt.filename)
	}
}
