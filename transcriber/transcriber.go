// Package transcriber turns microphone audio into utterance text: frames
// are segmented with WebRTC VAD and each utterance is sent to an
// OpenAI-compatible Whisper endpoint.
package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"voxd/config"
	"voxd/encoder"
	"voxd/log"
)

// Recognizer transcribes one encoded utterance.
type Recognizer interface {
	Transcribe(ctx context.Context, up encoder.Upload) (string, error)
}

type OpenAI struct {
	client   openai.Client
	model    string
	language string
}

// NewClient builds an API client for the configured endpoint.
func NewClient(cfg config.Config) openai.Client {
	key := cfg.APIKey
	if key == "" {
		// Local servers ignore the key but the SDK insists on one.
		key = "local"
	}
	return openai.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(cfg.APIURL),
		option.WithMaxRetries(0),
	)
}

func NewOpenAI(cfg config.Config, s config.Session) *OpenAI {
	return &OpenAI{
		client:   NewClient(cfg),
		model:    cfg.APIModel(s.Model),
		language: s.Language,
	}
}

func (o *OpenAI) Transcribe(ctx context.Context, up encoder.Upload) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:           openai.File(bytes.NewReader(up.Data), up.Filename, up.ContentType),
		Model:          openai.AudioModel(o.model),
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	if o.language != "" {
		params.Language = openai.String(o.language)
	}
	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return resp.Text, nil
}

// Models lists model ids the endpoint knows about.
func Models(ctx context.Context, client openai.Client) ([]string, error) {
	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	var ids []string
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Pull asks the endpoint to fetch a model ahead of first use.
func Pull(ctx context.Context, client openai.Client, model string) error {
	if err := client.Post(ctx, "models/"+model, nil, nil); err != nil {
		return fmt.Errorf("pull %s: %w", model, err)
	}
	return nil
}

func recognize(ctx context.Context, rec Recognizer, format encoder.Format, pcm []byte, partial bool) (string, error) {
	start := time.Now()
	up, err := encoder.Encode(format, pcm)
	if err != nil {
		return "", err
	}
	text, err := rec.Transcribe(ctx, up)
	log.Utterance(Seconds(pcm), time.Since(start), partial)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
