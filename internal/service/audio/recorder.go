package audio

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"ai-speech-proxy-service/internal/observability/logging"
)

// Auditor records best-effort audit entries for failed archival work.
type Auditor interface {
	Record(clientID, message string)
}

// Recorder archives request artifacts for clients with save_recordings
// enabled: the upload transcoded to compact mono Opus, and the transcript
// text alongside it. Artifacts are named {client_id}_{timestamp}.
type Recorder struct {
	dir   string
	audit Auditor
	now   func() time.Time
}

// NewRecorder creates a recorder writing under dir.
func NewRecorder(dir string, audit Auditor) *Recorder {
	return &Recorder{dir: dir, audit: audit, now: time.Now}
}

// baseName builds the artifact name for one request.
func (r *Recorder) baseName(clientID string) string {
	return clientID + "_" + r.now().Format("2006-01-02_150405")
}

// Save archives the audio and transcript for one request. The Opus
// transcode runs in the background against its own copy of the upload, so
// the caller may delete the request-scoped temp file immediately. Failures
// are audited and logged, never returned: archival is best-effort relative
// to response delivery.
func (r *Recorder) Save(clientID, audioPath, transcript string) {
	log := logging.WithClient(clientID)

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		log.Error().Err(err).Msg("Recordings dir create failed")
		r.audit.Record(clientID, "recordings dir create failed: "+err.Error())
		return
	}

	base := r.baseName(clientID)

	textPath := filepath.Join(r.dir, base+".txt")
	if err := os.WriteFile(textPath, []byte(transcript), 0o644); err != nil {
		log.Error().Err(err).Str("path", textPath).Msg("Transcript save failed")
		r.audit.Record(clientID, "transcript save failed: "+err.Error())
	}

	// The transcode needs the audio after the request's temp file is gone.
	copyPath := filepath.Join(r.dir, base+".wav.tmp")
	if err := copyFile(audioPath, copyPath); err != nil {
		log.Error().Err(err).Msg("Audio copy for transcode failed")
		r.audit.Record(clientID, "recording copy failed: "+err.Error())
		return
	}

	opusPath := filepath.Join(r.dir, base+".opus")
	go r.transcode(clientID, copyPath, opusPath)
}

// transcode converts the audio copy to mono Opus via ffmpeg and removes the
// copy afterwards. Fire-and-forget; the external tool is opaque.
func (r *Recorder) transcode(clientID, src, dst string) {
	defer os.Remove(src)

	cmd := exec.Command("ffmpeg", "-y", "-i", src, "-c:a", "libopus", "-b:a", "20k", "-ac", "1", dst)
	if out, err := cmd.CombinedOutput(); err != nil {
		lg := logging.WithClient(clientID)
		lg.Error().
			Err(err).
			Str("output", string(out)).
			Msg("Opus transcode failed")
		r.audit.Record(clientID, "opus transcode failed: "+err.Error())
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
