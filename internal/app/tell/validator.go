package tell

import (
	"github.com/pkg/errors"

	"github.com/welltold/storygo/internal/pkg/audio"
)

const (
	//MaxAudioSeconds is the longest recording the server accepts
	MaxAudioSeconds = 480
	//MaxAudioBytes is the largest recording the server accepts. 96 MiB
	MaxAudioBytes = 96 << 20
)

//ErrEmptyRecording indicates a capture with no audio
var ErrEmptyRecording = errors.New("Recording is empty")

// ValidateCapture checks the recording against server limits before upload
func ValidateCapture(c *audio.Capture) error {
	if c == nil || c.Size == 0 {
		return ErrEmptyRecording
	}
	if c.DurationSec > MaxAudioSeconds {
		return ErrTooLarge
	}
	if c.Size > MaxAudioBytes {
		return ErrTooLarge
	}
	return nil
}
