// Package openai provides the OpenAI transcription API backend adapter.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"ai-speech-proxy-service/internal/apperrs"
	"ai-speech-proxy-service/internal/observability/logging"
	"ai-speech-proxy-service/internal/service/stt"
)

// Config holds OpenAI API connection settings.
type Config struct {
	// APIURL is the transcriptions endpoint.
	APIURL string
	// APIKey is the bearer credential for the API.
	APIKey string
	// Timeout bounds one transcription call.
	Timeout time.Duration
}

// Adapter implements stt.Backend against the OpenAI audio transcriptions API.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// Compile-time interface assertion.
var _ stt.Backend = (*Adapter)(nil)

// New creates an OpenAI adapter.
func New(cfg Config) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements stt.Backend.
func (a *Adapter) Name() string { return "cloud" }

// Transcribe posts the audio as multipart form data with bearer auth.
// A 200 response carries JSON {"text": ...}; anything else is an error.
func (a *Adapter) Transcribe(ctx context.Context, req stt.Request) stt.Result {
	body, contentType, err := encodeRequest(req)
	if err != nil {
		return stt.ErrorResult(apperrs.CloudNetworkError(err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.APIURL, body)
	if err != nil {
		return stt.ErrorResult(apperrs.CloudNetworkError(err))
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return stt.ErrorResult(apperrs.CloudNetworkError(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.ErrorResult(apperrs.CloudNetworkError(err))
	}

	if resp.StatusCode != http.StatusOK {
		lg := logging.WithComponent("stt-openai")
		lg.Error().
			Int("status", resp.StatusCode).
			Str("body", strings.TrimSpace(string(raw))).
			Msg("OpenAI API error")
		return stt.ErrorResult(apperrs.CloudHTTPError(resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	// SRT responses come back as plain text, not JSON.
	if req.Format == stt.FormatSRT {
		return stt.TextResult(strings.TrimSpace(string(raw)))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return stt.ErrorResult(apperrs.CloudHTTPError(resp.StatusCode, "unparseable response body"))
	}
	return stt.TextResult(strings.TrimSpace(parsed.Text))
}

// encodeRequest builds the multipart body with the audio file and model name.
func encodeRequest(req stt.Request) (io.Reader, string, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}

	if err := w.WriteField("model", req.Model); err != nil {
		return nil, "", err
	}
	if req.Format == stt.FormatSRT {
		if err := w.WriteField("response_format", "srt"); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
