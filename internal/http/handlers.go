package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"ai-speech-proxy-service/internal/apperrs"
	"ai-speech-proxy-service/internal/observability/logging"
	"ai-speech-proxy-service/internal/service/audio"
	"ai-speech-proxy-service/internal/service/stt"
	"ai-speech-proxy-service/internal/usage"
)

// maxUploadBytes bounds multipart form memory buffering.
const maxUploadBytes = 64 << 20

// handleTranscribe accepts a multipart audio upload, routes it through the
// failover engine and returns the transcript.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	policy := policyFrom(r.Context())
	status := http.StatusOK
	defer func() {
		s.metrics.RecordRequest("transcriptions", strconv.Itoa(status), time.Since(start).Seconds())
	}()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		status = s.renderError(w, apperrs.MissingFile().WithCause(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		status = s.renderError(w, apperrs.MissingFile().WithCause(err))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		status = s.renderError(w, apperrs.EmptyFilename())
		return
	}

	model := r.FormValue("model")
	if model == "" {
		model = s.defaultModel
	}
	format := stt.FormatText
	if srt, _ := strconv.ParseBool(r.FormValue("srt_format")); srt {
		format = stt.FormatSRT
	}

	// Each request gets its own temp file, removed on every exit path.
	// A shared fixed upload path would corrupt concurrent requests.
	audioPath := filepath.Join(os.TempDir(), "upload-"+uuid.NewString()+".wav")
	out, err := os.Create(audioPath)
	if err != nil {
		status = s.renderError(w, apperrs.TranscriptionFailed().WithCause(err))
		return
	}
	defer os.Remove(audioPath)

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		status = s.renderError(w, apperrs.TranscriptionFailed().WithCause(err))
		return
	}
	out.Close()

	// Accounting uses the decoded sample count; an undecodable upload is
	// still transcribed but credited zero seconds.
	duration, err := audio.Duration(audioPath)
	if err != nil {
		lg := logging.WithClient(policy.ClientID)
		lg.Warn().Err(err).Msg("Could not determine audio duration")
		duration = 0
	}

	req := stt.Request{
		AudioPath: audioPath,
		Model:     model,
		Format:    format,
	}
	decision, err := s.engine.Route(r.Context(), req, policy, duration)
	if err != nil {
		status = s.renderError(w, err)
		return
	}

	if policy.SaveRecordings {
		s.recorder.Save(policy.ClientID, audioPath, decision.Text)
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": decision.Text})
}

// handleServiceStatus reports the health monitor's current belief.
func (s *Server) handleServiceStatus(w http.ResponseWriter, r *http.Request) {
	status := "unavailable"
	if s.monitor.Available() {
		status = "available"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// usageEntry is the wire shape of one client's daily usage.
type usageEntry struct {
	LocalAPIUsage  int64 `json:"local_api_usage"`
	OpenAIAPIUsage int64 `json:"openai_api_usage"`
}

// handleUsage returns the per-client usage mapping for the current date.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.UsageFor(s.now())
	if err != nil {
		if errors.Is(err, usage.ErrNoUsage) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "No usage data for today"})
			return
		}
		lg := logging.WithComponent("http")
		lg.Error().Err(err).Msg("Usage query failed")
		writeJSONError(w, http.StatusInternalServerError, "usage query failed")
		return
	}

	resp := make(map[string]usageEntry, len(records))
	for clientID, rec := range records {
		resp[clientID] = usageEntry{
			LocalAPIUsage:  rec.LocalSeconds,
			OpenAIAPIUsage: rec.CloudSeconds,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// renderError maps an error to its HTTP response and returns the status used.
func (s *Server) renderError(w http.ResponseWriter, err error) int {
	var appErr *apperrs.AppError
	if errors.As(err, &appErr) {
		writeJSONError(w, appErr.HTTPStatus, appErr.Message)
		return appErr.HTTPStatus
	}
	writeJSONError(w, http.StatusInternalServerError, "internal error")
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
