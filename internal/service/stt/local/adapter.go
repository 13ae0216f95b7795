// Package local provides the self-hosted whisper-webui backend adapter.
package local

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-speech-proxy-service/internal/apperrs"
	"ai-speech-proxy-service/internal/observability/logging"
	"ai-speech-proxy-service/internal/service/stt"
)

// Config holds whisper-webui connection settings.
type Config struct {
	// Host is the webui base URL, e.g. http://localhost:7860.
	Host string
	// Model is the whisper model size, e.g. large-v3-turbo.
	Model string
	// Language is an optional language hint; empty means automatic detection.
	Language string
	// MetadataLines is how many leading lines of the result are run metadata
	// to discard before the transcript text starts.
	MetadataLines int
	// Timeout bounds one transcription call.
	Timeout time.Duration
}

// Adapter implements stt.Backend against a whisper-webui instance. The webui
// returns a multi-line body whose first MetadataLines lines describe the run;
// the remainder is the transcript.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// Compile-time interface assertion.
var _ stt.Backend = (*Adapter)(nil)

// New creates a whisper-webui adapter.
func New(cfg Config) *Adapter {
	if cfg.MetadataLines == 0 {
		cfg.MetadataLines = 5
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements stt.Backend.
func (a *Adapter) Name() string { return "local" }

// Transcribe uploads the audio file to the webui and extracts the transcript
// from the multi-line response.
func (a *Adapter) Transcribe(ctx context.Context, req stt.Request) stt.Result {
	body, contentType, err := a.encodeRequest(req)
	if err != nil {
		return stt.ErrorResult(apperrs.LocalUnreachable(err))
	}

	url := strings.TrimRight(a.cfg.Host, "/") + "/transcribe_file"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return stt.ErrorResult(apperrs.LocalUnreachable(err))
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return stt.ErrorResult(apperrs.LocalUnreachable(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.ErrorResult(apperrs.LocalUnreachable(err))
	}
	if resp.StatusCode != http.StatusOK {
		return stt.ErrorResult(apperrs.LocalUnreachable(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))))
	}

	text := ExtractTranscript(string(raw), a.cfg.MetadataLines)
	if text == "" {
		lg := logging.WithComponent("stt-local")
		lg.Warn().Msg("Local backend returned no transcript text")
	}
	return stt.TextResult(text)
}

// encodeRequest builds the multipart body with the audio file and the
// whisper parameter bag.
func (a *Adapter) encodeRequest(req stt.Request) (io.Reader, string, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}

	fileFormat := "txt"
	if req.Format == stt.FormatSRT {
		fileFormat = "srt"
	}
	language := a.cfg.Language
	if language == "" {
		language = "Automatic Detection"
	}
	fields := map[string]string{
		"model":       a.cfg.Model,
		"language":    language,
		"file_format": fileFormat,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// ExtractTranscript strips the leading metadata lines from a webui result
// and flattens the remainder to a single space-separated line.
func ExtractTranscript(raw string, metadataLines int) string {
	lines := strings.Split(raw, "\n")
	if len(lines) <= metadataLines {
		return ""
	}
	text := strings.Join(lines[metadataLines:], " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.Join(strings.Fields(text), " ")
}
