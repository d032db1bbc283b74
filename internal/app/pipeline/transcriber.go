package pipeline

import (
	"context"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/pkg/errors"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

// WhisperTranscriber transcribes audio using the Whisper API
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

//NewWhisperTranscriber creates transcriber from config
func NewWhisperTranscriber() (*WhisperTranscriber, error) {
	key := cmdapp.Config.GetString("openAI.key")
	if key == "" {
		return nil, errors.New("No openAI.key setting provided")
	}
	model := cmdapp.Config.GetString("openAI.model")
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{client: openai.NewClient(key), model: model}, nil
}

// Transcribe sends the audio and returns the text
func (t *WhisperTranscriber) Transcribe(ctx context.Context, name string, audio io.Reader) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: name,
		Reader:   audio,
	})
	if err != nil {
		return "", errors.Wrap(err, "Can't transcribe "+name)
	}
	return resp.Text, nil
}

// FakeTranscriber returns a canned transcript after a delay.
// Used for local runs without API keys
type FakeTranscriber struct {
	Delay time.Duration
}

// Transcribe fakes the work
func (t *FakeTranscriber) Transcribe(ctx context.Context, name string, audio io.Reader) (string, error) {
	cmdapp.Log.Infof("Faking transcription for %s", name)
	select {
	case <-time.After(t.Delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "This is a fake transcript for " + name + ".", nil
}
