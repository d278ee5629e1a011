package repositories

import "context"

// Transcriber abstracts a speech-to-text provider. The pipeline treats it as
// a blocking call bounded by the caller's context.
type Transcriber interface {
	// Transcribe converts a recorded audio clip to text.
	Transcribe(ctx context.Context, audio []byte, config AudioConfig) (string, error)
}

// AudioConfig describes the clip handed to the transcriber.
type AudioConfig struct {
	// Encoding of the audio container, "MP3" or "LINEAR16".
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Language   string `json:"language"`
}
