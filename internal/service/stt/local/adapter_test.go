package local

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ai-speech-proxy-service/internal/apperrs"
	"ai-speech-proxy-service/internal/service/stt"
)

func TestExtractTranscript(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		metadataLines int
		want          string
	}{
		{
			name:          "strips metadata block",
			raw:           "Processing complete\nModel: large-v3-turbo\nLanguage: en\nDuration: 4.2s\nSegments: 1\nhello world",
			metadataLines: 5,
			want:          "hello world",
		},
		{
			name:          "joins multi-line transcript",
			raw:           "a\nb\nc\nd\ne\nfirst line\nsecond line",
			metadataLines: 5,
			want:          "first line second line",
		},
		{
			name:          "only metadata yields empty",
			raw:           "a\nb\nc\nd\ne",
			metadataLines: 5,
			want:          "",
		},
		{
			name:          "short result yields empty",
			raw:           "a\nb",
			metadataLines: 5,
			want:          "",
		},
		{
			name:          "flattens carriage returns and extra whitespace",
			raw:           "a\nb\nc\nd\ne\n  hello \r\n  there  ",
			metadataLines: 5,
			want:          "hello there",
		},
		{
			name:          "zero metadata lines keeps everything",
			raw:           "x\nhello",
			metadataLines: 0,
			want:          "x hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTranscript(tt.raw, tt.metadataLines)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.wav")
	if err := os.WriteFile(path, []byte("RIFFfake"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribe_Success(t *testing.T) {
	var gotModel, gotLanguage, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe_file" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		gotFormat = r.FormValue("file_format")

		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer f.Close()
		if _, err := io.ReadAll(f); err != nil {
			t.Fatal(err)
		}

		io.WriteString(w, "done\nmodel info\nlang info\ntiming\nsegments\nhello from whisper")
	}))
	defer srv.Close()

	a := New(Config{Host: srv.URL, Model: "large-v3-turbo", Timeout: 5 * time.Second})
	res := a.Transcribe(context.Background(), stt.Request{AudioPath: writeTestAudio(t)})

	if res.Outcome != stt.OutcomeText {
		t.Fatalf("expected OutcomeText, got %v (err: %v)", res.Outcome, res.Err)
	}
	if res.Text != "hello from whisper" {
		t.Errorf("unexpected transcript: %q", res.Text)
	}
	if gotModel != "large-v3-turbo" {
		t.Errorf("unexpected model field: %q", gotModel)
	}
	if gotLanguage != "Automatic Detection" {
		t.Errorf("unexpected language field: %q", gotLanguage)
	}
	if gotFormat != "txt" {
		t.Errorf("unexpected file_format field: %q", gotFormat)
	}
}

func TestTranscribe_SRTFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		if got := r.FormValue("file_format"); got != "srt" {
			t.Errorf("expected file_format srt, got %q", got)
		}
		io.WriteString(w, "a\nb\nc\nd\ne\n1\n00:00:00,000 --> 00:00:02,000\nhello")
	}))
	defer srv.Close()

	a := New(Config{Host: srv.URL, Timeout: 5 * time.Second})
	res := a.Transcribe(context.Background(), stt.Request{
		AudioPath: writeTestAudio(t),
		Format:    stt.FormatSRT,
	})
	if res.Outcome != stt.OutcomeText {
		t.Fatalf("expected OutcomeText, got %v", res.Outcome)
	}
}

func TestTranscribe_EmptyTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "a\nb\nc\nd\ne\n")
	}))
	defer srv.Close()

	a := New(Config{Host: srv.URL, Timeout: 5 * time.Second})
	res := a.Transcribe(context.Background(), stt.Request{AudioPath: writeTestAudio(t)})

	if res.Outcome != stt.OutcomeEmpty {
		t.Fatalf("expected OutcomeEmpty, got %v", res.Outcome)
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New(Config{Host: srv.URL, Timeout: 5 * time.Second})
	res := a.Transcribe(context.Background(), stt.Request{AudioPath: writeTestAudio(t)})

	if res.Outcome != stt.OutcomeError {
		t.Fatalf("expected OutcomeError, got %v", res.Outcome)
	}
	var appErr *apperrs.AppError
	if !errors.As(res.Err, &appErr) || appErr.Code != apperrs.CodeLocalUnreachable {
		t.Errorf("expected CodeLocalUnreachable, got %v", res.Err)
	}
}

func TestTranscribe_Unreachable(t *testing.T) {
	a := New(Config{Host: "http://127.0.0.1:1", Timeout: time.Second})
	res := a.Transcribe(context.Background(), stt.Request{AudioPath: writeTestAudio(t)})

	if res.Outcome != stt.OutcomeError {
		t.Fatalf("expected OutcomeError, got %v", res.Outcome)
	}
	var appErr *apperrs.AppError
	if !errors.As(res.Err, &appErr) || appErr.Code != apperrs.CodeLocalUnreachable {
		t.Errorf("expected CodeLocalUnreachable, got %v", res.Err)
	}
}

func TestTranscribe_MissingAudioFile(t *testing.T) {
	a := New(Config{Host: "http://localhost:7860", Timeout: time.Second})
	res := a.Transcribe(context.Background(), stt.Request{AudioPath: "/nonexistent/audio.wav"})

	if res.Outcome != stt.OutcomeError {
		t.Fatalf("expected OutcomeError, got %v", res.Outcome)
	}
}
