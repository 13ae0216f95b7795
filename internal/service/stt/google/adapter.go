// Package google provides a Google Cloud Speech-to-Text backend adapter.
package google

import (
	"context"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"

	"ai-speech-proxy-service/internal/apperrs"
	"ai-speech-proxy-service/internal/service/stt"
)

// Adapter implements stt.Backend using Google Cloud Speech-to-Text as an
// alternative cloud fallback.
type Adapter struct {
	client   *speech.Client
	language string
}

// Compile-time interface assertion.
var _ stt.Backend = (*Adapter)(nil)

// New creates a Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, language string) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if language == "" {
		language = "en-US"
	}
	return &Adapter{client: c, language: language}, nil
}

// Name implements stt.Backend.
func (a *Adapter) Name() string { return "cloud" }

// Transcribe runs a synchronous Recognize call over the upload bytes.
// Encoding and sample rate are read from the WAV header by the API.
func (a *Adapter) Transcribe(ctx context.Context, req stt.Request) stt.Result {
	content, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return stt.ErrorResult(apperrs.CloudNetworkError(err))
	}

	resp, err := a.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode: a.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	})
	if err != nil {
		return stt.ErrorResult(apperrs.CloudNetworkError(err))
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		parts = append(parts, r.Alternatives[0].Transcript)
	}
	return stt.TextResult(strings.TrimSpace(strings.Join(parts, " ")))
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	return a.client.Close()
}
