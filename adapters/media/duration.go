package media

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/tcolgate/mp3"
	"go.uber.org/zap"
)

// ProbeDuration implements repositories.MediaStore. It derives the playback
// length from container metadata: MP3 by summing frame durations, WAV from
// frame length over frame rate. Media that cannot be probed yields (0, false),
// an absent duration is tolerated upstream.
func (s *DiskStore) ProbeDuration(path, contentType string) (time.Duration, bool) {
	switch {
	case contentType == "audio/mpeg" || strings.HasSuffix(strings.ToLower(path), ".mp3"):
		return s.probeMP3(path)
	case contentType == "audio/wav" || strings.HasSuffix(strings.ToLower(path), ".wav"):
		return s.probeWAV(path)
	}
	return 0, false
}

func (s *DiskStore) probeMP3(path string) (time.Duration, bool) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("Cannot open media for duration probing", zap.String("path", path), zap.Error(err))
		return 0, false
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
		frames  int
	)
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if err != io.EOF {
				s.logger.Warn("MP3 frame decoding stopped early",
					zap.String("path", path),
					zap.Int("frames", frames),
					zap.Error(err))
			}
			break
		}
		total += frame.Duration()
		frames++
	}
	if frames == 0 {
		return 0, false
	}
	return total, true
}

func (s *DiskStore) probeWAV(path string) (time.Duration, bool) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("Cannot open media for duration probing", zap.String("path", path), zap.Error(err))
		return 0, false
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	duration, err := decoder.Duration()
	if err != nil || duration <= 0 {
		return 0, false
	}
	return duration, true
}
