package router

import (
	"context"
	"time"

	"ai-speech-proxy-service/internal/apperrs"
	"ai-speech-proxy-service/internal/auth"
	"ai-speech-proxy-service/internal/events"
	"ai-speech-proxy-service/internal/models"
	"ai-speech-proxy-service/internal/observability/logging"
	"ai-speech-proxy-service/internal/observability/metrics"
	"ai-speech-proxy-service/internal/service/stt"
	"ai-speech-proxy-service/internal/usage"
)

// HealthSource exposes the local backend reachability belief.
type HealthSource interface {
	Available() bool
}

// Ledger records backend seconds consumed.
type Ledger interface {
	Record(clientID string, day time.Time, seconds float64, backend usage.Backend) error
}

// Auditor records best-effort audit entries.
type Auditor interface {
	Record(clientID, message string)
}

// Decision is the terminal result of routing one request.
type Decision struct {
	// Text is the transcript; set only when State is StateSuccess.
	Text string
	// Backend tags which backend produced the text.
	Backend usage.Backend
	// State is the terminal state the request reached.
	State State
}

// Engine chooses between the local and cloud backends per request, falls
// back on failure, and drives usage ledger updates. It holds no per-request
// mutable state and is safe for concurrent use.
type Engine struct {
	health  HealthSource
	local   stt.Backend
	cloud   stt.Backend
	ledger  Ledger
	audit   Auditor
	pub     *events.Publisher
	metrics *metrics.Metrics
	// timeout bounds each individual backend call. Zero means unbounded.
	timeout time.Duration
	now     func() time.Time
}

// NewEngine creates a routing engine.
func NewEngine(health HealthSource, local, cloud stt.Backend, ledger Ledger, auditor Auditor, pub *events.Publisher, timeout time.Duration) *Engine {
	return &Engine{
		health:  health,
		local:   local,
		cloud:   cloud,
		ledger:  ledger,
		audit:   auditor,
		pub:     pub,
		metrics: metrics.DefaultMetrics,
		timeout: timeout,
		now:     time.Now,
	}
}

// Route runs the failover state machine for one request.
//
// The local backend is attempted only while the health belief is positive.
// A local failure or empty result falls through to the policy check: clients
// without cloud permission terminate in StateForbidden, everyone else gets
// exactly one cloud attempt. Only the backend that actually produced the
// returned text is credited to the usage ledger.
func (e *Engine) Route(ctx context.Context, req stt.Request, policy *auth.ClientPolicy, durationSeconds float64) (Decision, error) {
	state := StateStart
	log := logging.WithClient(policy.ClientID)
	localAttempted := false

	if e.health.Available() {
		state = StateAttemptLocal
		localAttempted = true

		res := e.invoke(ctx, e.local, req)
		if res.Outcome == stt.OutcomeText {
			return e.success(ctx, req, policy, usage.BackendLocal, res.Text, durationSeconds)
		}

		switch res.Outcome {
		case stt.OutcomeEmpty:
			log.Warn().Str("state", state.String()).Msg("Local backend returned no text, evaluating fallback")
			e.audit.Record(policy.ClientID, "local backend returned empty transcript")
		case stt.OutcomeError:
			log.Warn().Err(res.Err).Str("state", state.String()).Msg("Local backend failed, evaluating fallback")
			e.audit.Record(policy.ClientID, "local backend error: "+res.Err.Error())
		}
	} else {
		log.Debug().Msg("Local backend unavailable, skipping local attempt")
	}

	if !policy.AllowCloud {
		state = StateForbidden
		e.audit.Record(policy.ClientID, "cloud transcription denied by client policy")
		log.Info().Str("state", state.String()).Msg("Cloud use forbidden for this client")
		return Decision{State: state}, apperrs.CloudForbidden()
	}

	state = StateAttemptCloud
	if localAttempted {
		e.metrics.RecordFallback()
	}

	res := e.invoke(ctx, e.cloud, req)
	if res.Outcome == stt.OutcomeText {
		return e.success(ctx, req, policy, usage.BackendCloud, res.Text, durationSeconds)
	}

	state = StateFailed
	switch res.Outcome {
	case stt.OutcomeEmpty:
		e.audit.Record(policy.ClientID, "cloud backend returned empty transcript")
	case stt.OutcomeError:
		e.audit.Record(policy.ClientID, "cloud backend error: "+res.Err.Error())
	}
	log.Error().Str("state", state.String()).Msg("Transcription failed on all attempted backends")

	// No backend produced usable output; the attempted cloud call is not
	// credited to the ledger.
	return Decision{State: state}, apperrs.TranscriptionFailed()
}

// invoke runs one bounded backend call and records its metrics.
func (e *Engine) invoke(ctx context.Context, backend stt.Backend, req stt.Request) stt.Result {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := e.now()
	res := backend.Transcribe(ctx, req)
	e.metrics.RecordTranscription(backend.Name(), res.Outcome.String(), time.Since(start).Seconds())
	return res
}

// success credits the producing backend and publishes events. Persistence
// failures are audited but never fail the request.
func (e *Engine) success(ctx context.Context, req stt.Request, policy *auth.ClientPolicy, backend usage.Backend, text string, durationSeconds float64) (Decision, error) {
	day := e.now()

	if err := e.ledger.Record(policy.ClientID, day, durationSeconds, backend); err != nil {
		lg := logging.WithBackend(policy.ClientID, string(backend))
		lg.Error().Err(err).Msg("Usage ledger update failed")
		e.audit.Record(policy.ClientID, "usage ledger write failed: "+err.Error())
	} else if e.pub != nil {
		ev := models.UsageEvent{
			EventType: "speech.proxy.usage.recorded",
			ClientID:  policy.ClientID,
			Date:      day.Format("2006-01-02"),
			Backend:   string(backend),
			Seconds:   int64(durationSeconds),
			Timestamp: e.now().UnixMilli(),
		}
		if err := e.pub.PublishUsage(ctx, policy.ClientID, ev); err != nil {
			lg := logging.WithClient(policy.ClientID)
			lg.Error().Err(err).Msg("Failed to publish usage event")
		}
	}

	if e.pub != nil {
		ev := models.TranscriptEvent{
			EventType:       "speech.proxy.transcript.final",
			ClientID:        policy.ClientID,
			Backend:         string(backend),
			Model:           req.Model,
			Format:          string(req.Format),
			Text:            text,
			DurationSeconds: durationSeconds,
			Timestamp:       e.now().UnixMilli(),
		}
		if err := e.pub.PublishTranscript(ctx, policy.ClientID, ev); err != nil {
			lg := logging.WithClient(policy.ClientID)
			lg.Error().Err(err).Msg("Failed to publish transcript event")
		}
	}

	lg := logging.WithBackend(policy.ClientID, string(backend))
	lg.Info().
		Float64("durationSeconds", durationSeconds).
		Msg("Transcription succeeded")
	return Decision{Text: text, Backend: backend, State: StateSuccess}, nil
}
