// Package thumbs renders small preview images for the editor's media
// strip, caching the results in memory and on disk.
package thumbs

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"slidecast/internal/blob"
	"slidecast/internal/cache"
	"slidecast/internal/project"
)

const maxWidth = 320

type Service struct {
	ffmpegPath string
	outputDir  string
	blobs      *blob.Store
	cache      *cache.ByteCache
	logger     zerolog.Logger
}

func NewService(outputDir string, blobs *blob.Store, cacheCapacity int, cacheMaxBytes int64, logger zerolog.Logger) (*Service, error) {
	ffmpegPath := "ffmpeg"
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		ffmpegPath = path
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}
	return &Service{
		ffmpegPath: ffmpegPath,
		outputDir:  outputDir,
		blobs:      blobs,
		cache:      cache.NewByteCache(cacheCapacity, cacheMaxBytes),
		logger:     logger,
	}, nil
}

func (s *Service) IsAvailable() bool {
	_, err := exec.LookPath(s.ffmpegPath)
	return err == nil
}

// Get returns JPEG thumbnail bytes for a media item, generating them
// on first use. For videos the frame is taken a little way in, so a
// black lead-in does not become the thumbnail.
func (s *Service) Get(item project.MediaItem) ([]byte, error) {
	key := item.ContentRef
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}

	outputPath := filepath.Join(s.outputDir, key+".jpg")
	if data, err := os.ReadFile(outputPath); err == nil {
		s.cache.Set(key, data)
		return data, nil
	}

	if !s.IsAvailable() {
		return nil, fmt.Errorf("ffmpeg not available")
	}

	srcPath, err := s.blobs.Path(item.ContentRef)
	if err != nil {
		return nil, err
	}

	args := []string{}
	if item.Kind == project.KindVideo {
		args = append(args, "-ss", fmt.Sprintf("%d", seekSeconds(item.DurationSeconds)))
	}
	args = append(args,
		"-i", srcPath,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", maxWidth),
		"-q:v", "2",
		"-y",
		outputPath,
	)

	cmd := exec.Command(s.ffmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		s.logger.Debug().
			Err(err).
			Str("ref", item.ContentRef).
			Str("output", string(output)).
			Msg("ffmpeg thumbnail generation failed")
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("thumbnail not created: %w", err)
	}
	s.cache.Set(key, data)
	return data, nil
}

// Delete drops the thumbnail for a removed media item.
func (s *Service) Delete(contentRef string) {
	s.cache.Delete(contentRef)
	os.Remove(filepath.Join(s.outputDir, contentRef+".jpg"))
}

// CacheStats returns cache entry count and byte size.
func (s *Service) CacheStats() (int, int64) {
	return s.cache.Len(), s.cache.Size()
}

// seekSeconds picks the frame timestamp: 10% into the video, capped
// at 5 seconds.
func seekSeconds(duration float64) int64 {
	timestamp := int64(5)
	if duration > 0 {
		tenPercent := int64(duration / 10)
		if tenPercent > 0 && tenPercent < timestamp {
			timestamp = tenPercent
		}
		if float64(timestamp) > duration {
			timestamp = int64(duration / 2)
		}
	}
	return timestamp
}
